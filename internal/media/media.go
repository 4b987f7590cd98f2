// Package media stores uploaded files on an external host and prepares
// uploads before they leave the process.
package media

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"

	"apartmentng/internal/models"
)

// ErrNotFound is returned by Delete when the host has no such object. The
// service treats it as success.
var ErrNotFound = errors.New("media not found")

type Object struct {
	Kind        models.MediaKind
	Filename    string
	ContentType string
	Ext         string
	Data        []byte
}

// Stored identifies an uploaded object. ID is what Delete takes.
type Stored struct {
	ID  string
	URL string
}

type Host interface {
	Name() string
	Upload(ctx context.Context, obj Object) (Stored, error)
	Delete(ctx context.Context, kind models.MediaKind, id string) error
}

// objectKey builds the host-side key for a new object, grouped by kind.
func objectKey(obj Object) string {
	folder := "apartments/images"
	switch obj.Kind {
	case models.MediaVideo:
		folder = "apartments/videos"
	case models.MediaDocument:
		folder = "agent_documents"
	}
	return path.Join(folder, uuid.NewString()+obj.Ext)
}

func validKey(id string) bool {
	if id == "" || strings.HasPrefix(id, "/") || strings.Contains(id, "\\") {
		return false
	}
	for _, part := range strings.Split(id, "/") {
		if part == ".." || part == "." || part == "" {
			return false
		}
	}
	return true
}
