package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"apartmentng/internal/apperr"
	"apartmentng/internal/auth"
	"apartmentng/internal/middleware"
	"apartmentng/internal/models"
	"apartmentng/internal/service"
	"apartmentng/internal/util"
)

const maxJSONBody = 1 << 20

// writeErr renders a service error through the shared taxonomy. Internal
// errors are logged with the request id and redacted for the client.
func (h *Handlers) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	rid := middleware.RequestID(r.Context())
	if kind == apperr.KindInternal || kind == apperr.KindUpstream {
		h.log.WithError(err).WithField("request_id", rid).Error(r.Method + " " + r.URL.Path)
	}
	util.WriteError(w, kind.Status(), kind.String(), apperr.PublicMessage(err, h.cfg.ExposeInternalErrors), rid)
}

func (h *Handlers) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	util.WriteError(w, http.StatusBadRequest, apperr.KindValidation.String(), msg, middleware.RequestID(r.Context()))
}

// bind decodes a JSON body into dst and runs its validate tags. Any failure is
// answered with 400 and msg, or "invalid json" when the body does not parse.
func (h *Handlers) bind(w http.ResponseWriter, r *http.Request, dst any, msg string) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(w, r, "invalid json")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && msg == "" {
			msg = fieldMessage(verrs[0])
		}
		if msg == "" {
			msg = "invalid request"
		}
		h.badRequest(w, r, msg)
		return false
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	name := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return "Invalid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", name, fe.Param())
	}
	return "invalid " + name
}

func principal(r *http.Request) auth.Principal {
	p, _ := middleware.Principal(r.Context())
	return p
}

// pathID parses a numeric URL parameter. Malformed ids are reported as not
// found so they behave like ids that do not exist.
func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request, name, notFound string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		util.WriteError(w, http.StatusNotFound, apperr.KindNotFound.String(), notFound, middleware.RequestID(r.Context()))
		return 0, false
	}
	return id, true
}

// apartmentQuery reads the browse filters. Unparseable numbers are ignored
// rather than rejected.
func apartmentQuery(r *http.Request) models.ApartmentQuery {
	v := r.URL.Query()
	q := models.ApartmentQuery{
		Location: strings.TrimSpace(v.Get("location")),
		Sort:     strings.TrimSpace(v.Get("sort_by")),
	}
	if b, ok := queryBool(v.Get("featured")); ok {
		q.Featured = &b
	}
	if b, ok := queryBool(v.Get("available")); ok {
		q.Available = &b
	}
	if f, err := strconv.ParseFloat(v.Get("min_price"), 64); err == nil {
		q.MinPrice = &f
	}
	if f, err := strconv.ParseFloat(v.Get("max_price"), 64); err == nil {
		q.MaxPrice = &f
	}
	if n, err := strconv.Atoi(v.Get("bedrooms")); err == nil {
		q.MinBedrooms = &n
	}
	if n, err := strconv.Atoi(v.Get("bathrooms")); err == nil {
		q.MinBathrooms = &n
	}
	return q
}

func queryBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

// parseMultipart bounds the body by the configured upload size and parses it.
func (h *Handlers) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	limit := int64(h.cfg.MaxUploadMB) << 20
	if limit <= 0 {
		limit = 50 << 20
	}
	// Room for several files plus the form envelope.
	r.Body = http.MaxBytesReader(w, r.Body, limit*(service.MaxImagesPerRequest+1))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			util.WriteError(w, http.StatusRequestEntityTooLarge, apperr.KindValidation.String(), "Upload too large", middleware.RequestID(r.Context()))
			return false
		}
		h.badRequest(w, r, "invalid multipart form")
		return false
	}
	return true
}

func readUploads(headers []*multipart.FileHeader) ([]service.Upload, error) {
	out := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		up, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, up)
	}
	return out, nil
}

func readUpload(fh *multipart.FileHeader) (service.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return service.Upload{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return service.Upload{Filename: fh.Filename, Data: data}, nil
}

// formFile returns the single upload under field, or nil when absent.
func formFile(r *http.Request, field string) (*service.Upload, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, nil
	}
	up, err := readUpload(r.MultipartForm.File[field][0])
	if err != nil {
		return nil, err
	}
	return &up, nil
}
