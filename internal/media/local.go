package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"apartmentng/internal/models"
)

// LocalHost writes objects under a directory that the router serves at
// publicBase.
type LocalHost struct {
	dir        string
	publicBase string
	log        logrus.FieldLogger
}

func NewLocalHost(dir, publicBase string, log logrus.FieldLogger) (*LocalHost, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalHost{dir: dir, publicBase: strings.TrimRight(publicBase, "/"), log: log}, nil
}

func (h *LocalHost) Name() string { return "local" }

func (h *LocalHost) Dir() string { return h.dir }

func (h *LocalHost) Upload(ctx context.Context, obj Object) (Stored, error) {
	if err := ctx.Err(); err != nil {
		return Stored{}, err
	}
	key := objectKey(obj)
	full := filepath.Join(h.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Stored{}, fmt.Errorf("create media folder: %w", err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, obj.Data, 0o644); err != nil {
		return Stored{}, fmt.Errorf("write media: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return Stored{}, fmt.Errorf("store media: %w", err)
	}
	h.log.WithFields(logrus.Fields{"kind": obj.Kind, "key": key, "bytes": len(obj.Data)}).Debug("media stored")
	return Stored{ID: key, URL: h.publicBase + "/" + key}, nil
}

func (h *LocalHost) Delete(ctx context.Context, _ models.MediaKind, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validKey(id) {
		return fmt.Errorf("invalid media id %q", id)
	}
	err := os.Remove(filepath.Join(h.dir, filepath.FromSlash(id)))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
