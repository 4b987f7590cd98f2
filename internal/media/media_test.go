package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"apartmentng/internal/apperr"
	"apartmentng/internal/logging"
	"apartmentng/internal/models"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var testLimits = Limits{MaxBytes: 5 << 20, MaxWidth: 1200, MaxHeight: 800}

func TestPrepareFitsLargeImages(t *testing.T) {
	obj, err := Prepare(models.MediaImage, "living-room.PNG", pngBytes(t, 2400, 1200), testLimits)
	require.NoError(t, err)
	require.Equal(t, "image/png", obj.ContentType)
	require.Equal(t, ".png", obj.Ext)

	cfg, err := png.DecodeConfig(bytes.NewReader(obj.Data))
	require.NoError(t, err)
	require.Equal(t, 1200, cfg.Width)
	require.Equal(t, 600, cfg.Height)
}

func TestPrepareKeepsSmallImages(t *testing.T) {
	data := pngBytes(t, 300, 200)
	obj, err := Prepare(models.MediaImage, "small.png", data, testLimits)
	require.NoError(t, err)
	require.Equal(t, data, obj.Data)
}

func TestPrepareRejectsMismatchedContent(t *testing.T) {
	_, err := Prepare(models.MediaImage, "fake.jpg", []byte("just some text pretending to be a photo"), testLimits)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = Prepare(models.MediaImage, "photo.exe", pngBytes(t, 10, 10), testLimits)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = Prepare(models.MediaVideo, "clip.mp4", pngBytes(t, 10, 10), testLimits)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPrepareEnforcesSizeLimit(t *testing.T) {
	_, err := Prepare(models.MediaImage, "big.png", pngBytes(t, 50, 50), Limits{MaxBytes: 10})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = Prepare(models.MediaImage, "empty.png", nil, testLimits)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPrepareAcceptsPDFDocuments(t *testing.T) {
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
	obj, err := Prepare(models.MediaDocument, "cac.pdf", pdf, testLimits)
	require.NoError(t, err)
	require.Equal(t, "application/pdf", obj.ContentType)
	require.Equal(t, ".pdf", obj.Ext)

	_, err = Prepare(models.MediaImage, "cac.pdf", pdf, testLimits)
	require.Error(t, err)
}

func TestLocalHostUploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	h, err := NewLocalHost(dir, "/uploads/", logging.Discard())
	require.NoError(t, err)
	ctx := context.Background()

	stored, err := h.Upload(ctx, Object{Kind: models.MediaImage, Ext: ".png", Data: []byte("x")})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stored.ID, "apartments/images/"))
	require.Equal(t, "/uploads/"+stored.ID, stored.URL)

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(stored.ID)))
	require.NoError(t, err)

	require.NoError(t, h.Delete(ctx, models.MediaImage, stored.ID))
	require.ErrorIs(t, h.Delete(ctx, models.MediaImage, stored.ID), ErrNotFound)
	require.Error(t, h.Delete(ctx, models.MediaImage, "../../etc/passwd"))
}

func TestS3ObjectURL(t *testing.T) {
	h := &S3Host{cfg: S3Config{Bucket: "listings", Region: "eu-west-1"}}
	require.Equal(t, "https://listings.s3.eu-west-1.amazonaws.com/apartments/images/a.jpg", h.objectURL("apartments/images/a.jpg"))

	h.cfg.Endpoint = "http://minio:9000"
	h.cfg.ForcePathStyle = true
	require.Equal(t, "http://minio:9000/listings/apartments/images/a.jpg", h.objectURL("apartments/images/a.jpg"))

	h.cfg.PublicBaseURL = "https://cdn.example.com/"
	require.Equal(t, "https://cdn.example.com/k", h.objectURL("k"))
}
