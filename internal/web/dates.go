package web

import (
	"context"
	"errors"
	"io"
	"net/http"

	"meetdays/internal/backing"
	appLog "meetdays/internal/log"
	"meetdays/internal/model"
)

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, r)
	case http.MethodPut:
		s.handlePut(w, r)
	default:
		writeError(w, model.ErrMethodNotAllowed)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	dates, err := s.readDates(r.Context())
	if err != nil {
		appLog.Error("read backing file", err, "path", s.cfg.FilePath, "ref", s.cfg.Branch)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.DatesPayload{Dates: dates})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, model.ErrUnauthorized)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, model.ErrBadJSON)
		return
	}
	dates, err := model.DecodeDates(body)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.writeDates(r.Context(), dates); err != nil {
		s.metrics.write(false, 0)
		appLog.Error("write backing file", err, "path", s.cfg.FilePath, "ref", s.cfg.Branch)
		writeError(w, err)
		return
	}
	s.metrics.write(true, len(dates))
	appLog.Info("dates updated", "count", len(dates))
	writeJSON(w, http.StatusOK, model.PutResponse{OK: true, Dates: dates})
}

// authorized requires a configured key and an exact header match.
func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.SyncKey == "" {
		return false
	}
	return secureCompare(r.Header.Get("x-sync-key"), s.cfg.SyncKey)
}

// readDates returns the normalized remote set. A missing file or content
// that is not a dates document reads as empty.
func (s *Server) readDates(ctx context.Context) ([]string, error) {
	rec, err := s.backing.Get(ctx, s.cfg.FilePath, s.cfg.Branch)
	if errors.Is(err, backing.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	dates, err := model.DecodeDates(rec.Content)
	if err != nil {
		appLog.Warn("backing file is not a dates document", "path", s.cfg.FilePath, "err", err)
		return []string{}, nil
	}
	return dates, nil
}

// writeDates fetches the current revision, then writes dates guarded by it.
// Another writer can still land between the two calls.
func (s *Server) writeDates(ctx context.Context, dates []string) error {
	var revision string
	rec, err := s.backing.Get(ctx, s.cfg.FilePath, s.cfg.Branch)
	switch {
	case err == nil:
		revision = rec.Revision
	case errors.Is(err, backing.ErrNotFound):
	default:
		return err
	}

	content, err := model.EncodeDates(dates)
	if err != nil {
		return err
	}
	return s.backing.Put(ctx, s.cfg.FilePath, backing.PutRequest{
		Content:  content,
		Revision: revision,
		Ref:      s.cfg.Branch,
		Message:  CommitMessage,
	})
}
