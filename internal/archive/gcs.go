// Package archive copies original uploads to Cloud Storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/invoice-entities/internal/pipeline"
)

// GCS stores each upload once, keyed by content fingerprint.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
	logger *slog.Logger
}

func NewGCS(ctx context.Context, bucket, prefix string, logger *slog.Logger, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("archive bucket is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCS{
		client: c,
		bucket: c.Bucket(bucket),
		name:   bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}, nil
}

// Archive writes r to <prefix>/<fingerprint>/<filename> only if the object
// does not exist yet; an existing object counts as success.
func (g *GCS) Archive(ctx context.Context, obj pipeline.ArchiveObject, r io.Reader) (string, error) {
	name := ObjectName(g.prefix, obj)
	uri := "gs://" + g.name + "/" + name

	w := g.bucket.Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.Metadata = map[string]string{
		"doc_id":      obj.DocID,
		"fingerprint": obj.Fingerprint,
		"filename":    obj.Filename,
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		if alreadyExists(err) {
			g.logger.Debug("archive.gcs.exists", "uri", uri)
			return uri, nil
		}
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		if alreadyExists(err) {
			g.logger.Debug("archive.gcs.exists", "uri", uri)
			return uri, nil
		}
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	g.logger.Info("archive.gcs.ok", "uri", uri, "doc_id", obj.DocID)
	return uri, nil
}

func (g *GCS) Close() error { return g.client.Close() }

// ObjectName is <prefix>/<fingerprint>/<filename>; an empty fingerprint falls
// back to the document id.
func ObjectName(prefix string, obj pipeline.ArchiveObject) string {
	key := obj.Fingerprint
	if key == "" {
		key = obj.DocID
	}
	return path.Join(prefix, key, obj.Filename)
}

func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
