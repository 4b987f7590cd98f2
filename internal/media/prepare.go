package media

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"apartmentng/internal/apperr"
	"apartmentng/internal/models"
)

type Limits struct {
	MaxBytes  int64
	MaxWidth  int
	MaxHeight int
}

var allowed = map[models.MediaKind]map[string]string{
	models.MediaImage: {
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	},
	models.MediaVideo: {
		"video/mp4":       ".mp4",
		"video/quicktime": ".mov",
		"video/x-msvideo": ".avi",
		"video/x-ms-wmv":  ".wmv",
		"video/x-ms-asf":  ".wmv",
	},
	models.MediaDocument: {
		"image/jpeg":      ".jpg",
		"image/png":       ".png",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"application/pdf": ".pdf",
	},
}

var allowedExt = map[models.MediaKind]map[string]bool{
	models.MediaImage:    {".jpeg": true, ".jpg": true, ".png": true, ".gif": true, ".webp": true},
	models.MediaVideo:    {".mp4": true, ".mov": true, ".avi": true, ".wmv": true},
	models.MediaDocument: {".jpeg": true, ".jpg": true, ".png": true, ".gif": true, ".webp": true, ".pdf": true},
}

// Prepare validates an upload by extension and sniffed content and returns the
// object to store. Listing photos larger than the configured box are scaled
// down to fit it; gif and webp pass through untouched.
func Prepare(kind models.MediaKind, filename string, data []byte, lim Limits) (Object, error) {
	if len(data) == 0 {
		return Object{}, apperr.Validation("Empty file")
	}
	if lim.MaxBytes > 0 && int64(len(data)) > lim.MaxBytes {
		return Object{}, apperr.Validation(fmt.Sprintf("File exceeds the %d MB limit", lim.MaxBytes>>20))
	}
	types, ok := allowed[kind]
	if !ok {
		return Object{}, fmt.Errorf("unknown media kind %q", kind)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[kind][ext] {
		return Object{}, apperr.Validation(invalidTypeMessage(kind))
	}
	mt := mimetype.Detect(data)
	var outExt string
	for m := mt; m != nil; m = m.Parent() {
		if e, ok := types[m.String()]; ok {
			outExt = e
			mt = m
			break
		}
	}
	if outExt == "" {
		return Object{}, apperr.Validation(invalidTypeMessage(kind))
	}

	obj := Object{Kind: kind, Filename: filename, ContentType: mt.String(), Ext: outExt, Data: data}
	if kind == models.MediaImage && (obj.ContentType == "image/jpeg" || obj.ContentType == "image/png") {
		resized, err := fitImage(data, obj.ContentType, lim.MaxWidth, lim.MaxHeight)
		if err != nil {
			return Object{}, apperr.Validation("Image could not be decoded")
		}
		obj.Data = resized
	}
	return obj, nil
}

func fitImage(data []byte, contentType string, maxW, maxH int) ([]byte, error) {
	if maxW <= 0 || maxH <= 0 {
		return data, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= maxW && b.Dy() <= maxH {
		return data, nil
	}
	fitted := imaging.Fit(img, maxW, maxH, imaging.Lanczos)
	format := imaging.JPEG
	if contentType == "image/png" {
		format = imaging.PNG
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, format, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func invalidTypeMessage(kind models.MediaKind) string {
	switch kind {
	case models.MediaVideo:
		return "Only video files are allowed (mp4, mov, avi, wmv)"
	case models.MediaDocument:
		return "Only image or PDF files are allowed"
	default:
		return "Only image files are allowed (jpeg, jpg, png, gif, webp)"
	}
}
