package store

import (
	"encoding/json"
	"fmt"

	"meetdays/internal/days"
	appLog "meetdays/internal/log"
	"meetdays/internal/model"
)

// Key is the scoped-store key holding the meet-day set.
const Key = "meet-days.v1"

// Store loads and saves the canonical meet-day set.
type Store struct {
	kv KV
}

// New wraps kv.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Load returns the stored set, or an empty set when nothing usable is
// stored. Failures are logged, never returned.
func (s *Store) Load() []string {
	dates, err := s.LoadResult()
	if err != nil {
		appLog.Warn("local meet days unreadable; using empty set", "key", Key, "err", err)
		return []string{}
	}
	return dates
}

// LoadResult is Load with the failure kept visible. A missing key is not a
// failure. On error the returned slice is empty, not nil.
func (s *Store) LoadResult() ([]string, error) {
	raw, ok, err := s.kv.Get(Key)
	if err != nil {
		return []string{}, fmt.Errorf("read %s: %w", Key, err)
	}
	if !ok || raw == "" {
		return []string{}, nil
	}

	var values []any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return []string{}, &model.Error{Kind: model.KindParse, Message: "local meet days are not a JSON array", Err: err}
	}
	return days.NormalizeValues(values), nil
}

// Save normalizes dates and writes them as a JSON array. It returns the
// set that was written.
func (s *Store) Save(dates []string) ([]string, error) {
	normalized := days.Normalize(dates)
	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(Key, string(data)); err != nil {
		return nil, fmt.Errorf("write %s: %w", Key, err)
	}
	appLog.Debug("local meet days saved", "count", len(normalized))
	return normalized, nil
}
