package backing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	appLog "meetdays/internal/log"
	"meetdays/internal/model"
)

// GCS stores the file as an object named "<ref>/<path>" in a bucket. The
// revision token is the object generation.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS opens a Cloud Storage client. An empty credentialsFile uses
// application default credentials.
func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func objectName(path, ref string) string {
	path = strings.Trim(path, "/")
	if ref == "" {
		return path
	}
	return ref + "/" + path
}

// Get reads the object and reports its generation.
func (g *GCS) Get(ctx context.Context, path, ref string) (Record, error) {
	obj := g.client.Bucket(g.bucket).Object(objectName(path, ref))
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return Record{}, ErrNotFound
		}
		return Record{}, gcsError("GCS read failed", err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return Record{}, gcsError("GCS read failed", err)
	}
	return Record{Content: content, Revision: strconv.FormatInt(r.Attrs.Generation, 10)}, nil
}

// Put writes the object. A revision makes the write conditional on the
// generation still matching; no revision requires the object to be absent.
func (g *GCS) Put(ctx context.Context, path string, req PutRequest) error {
	name := objectName(path, req.Ref)
	obj := g.client.Bucket(g.bucket).Object(name)

	cond := storage.Conditions{DoesNotExist: true}
	if req.Revision != "" {
		gen, err := strconv.ParseInt(req.Revision, 10, 64)
		if err != nil {
			return &model.Error{Kind: model.KindParse, Message: "invalid revision token", Err: err}
		}
		cond = storage.Conditions{GenerationMatch: gen}
	}

	w := obj.If(cond).NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "no-cache, no-store, must-revalidate"
	if req.Message != "" {
		w.Metadata = map[string]string{"message": req.Message}
	}

	if _, err := w.Write(req.Content); err != nil {
		_ = w.Close()
		return gcsError("GCS write failed", err)
	}
	if err := w.Close(); err != nil {
		appLog.Error("gcs object write rejected", err, "bucket", g.bucket, "object", name)
		return gcsError("GCS write failed", err)
	}
	return nil
}

func gcsError(msg string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &model.Error{
			Kind:    model.KindUpstream,
			Status:  apiErr.Code,
			Message: fmt.Sprintf("%s: %d", msg, apiErr.Code),
			Err:     err,
		}
	}
	return &model.Error{Kind: model.KindUpstream, Status: http.StatusBadGateway, Message: msg, Err: err}
}
