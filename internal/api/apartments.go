package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"apartmentng/internal/middleware"
	"apartmentng/internal/models"
	"apartmentng/internal/util"
)

const msgApartmentNotFound = "Apartment not found"

// amenityList accepts a JSON array, a JSON-encoded array inside a string, or
// a comma separated string.
type amenityList []string

func (a *amenityList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*a = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			*a = list
			return nil
		}
	}
	*a = nil
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*a = append(*a, part)
		}
	}
	return nil
}

// apartmentRequest carries no validate tags: required fields are checked by
// the service after the ownership check.
type apartmentRequest struct {
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Location      string      `json:"location"`
	Bedrooms      int         `json:"bedrooms"`
	Bathrooms     int         `json:"bathrooms"`
	PricePerNight float64     `json:"price_per_night"`
	Amenities     amenityList `json:"amenities"`
}

func (req apartmentRequest) input() models.ApartmentInput {
	return models.ApartmentInput{
		Title:         req.Title,
		Description:   req.Description,
		Location:      req.Location,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		PricePerNight: req.PricePerNight,
		Amenities:     []string(req.Amenities),
	}
}

type availabilityRequest struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

type featuredRequest struct {
	IsFeatured *bool `json:"is_featured" validate:"required"`
}

func (h *Handlers) ListApartments(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListApartments(r.Context(), middleware.OptionalPrincipal(r.Context()), apartmentQuery(r))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, out)
}

func (h *Handlers) ListAllApartments(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListAllApartments(r.Context(), principal(r))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, out)
}

func (h *Handlers) ListMyApartments(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListMyApartments(r.Context(), principal(r))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetApartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", msgApartmentNotFound)
	if !ok {
		return
	}
	detail, err := h.svc.GetApartment(r.Context(), middleware.OptionalPrincipal(r.Context()), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handlers) CreateApartment(w http.ResponseWriter, r *http.Request) {
	var req apartmentRequest
	if !h.bind(w, r, &req, "") {
		return
	}
	apt, err := h.svc.CreateApartment(r.Context(), principal(r), req.input())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, map[string]any{
		"message":   "Apartment created successfully",
		"apartment": apt,
	})
}

// ownedApartment parses the id and runs load and ownership before the body is
// touched.
func (h *Handlers) ownedApartment(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := h.pathID(w, r, "id", msgApartmentNotFound)
	if !ok {
		return 0, false
	}
	if err := h.svc.AuthorizeApartment(r.Context(), principal(r), id); err != nil {
		h.writeErr(w, r, err)
		return 0, false
	}
	return id, true
}

func (h *Handlers) UpdateApartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedApartment(w, r)
	if !ok {
		return
	}
	var req apartmentRequest
	if !h.bind(w, r, &req, "") {
		return
	}
	apt, err := h.svc.UpdateApartment(r.Context(), principal(r), id, req.input())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{
		"message":   "Apartment updated successfully",
		"apartment": apt,
	})
}

func (h *Handlers) DeleteApartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", msgApartmentNotFound)
	if !ok {
		return
	}
	report, err := h.svc.DeleteApartment(r.Context(), principal(r), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Apartment deleted successfully",
		"cascade": report,
	})
}

func (h *Handlers) SetAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedApartment(w, r)
	if !ok {
		return
	}
	var req availabilityRequest
	if !h.bind(w, r, &req, "is_available is required") {
		return
	}
	if err := h.svc.SetAvailability(r.Context(), principal(r), id, *req.IsAvailable); err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, "Availability updated")
}

func (h *Handlers) SetFeatured(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedApartment(w, r)
	if !ok {
		return
	}
	var req featuredRequest
	if !h.bind(w, r, &req, "is_featured is required") {
		return
	}
	if err := h.svc.SetFeatured(r.Context(), principal(r), id, *req.IsFeatured); err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, "Featured status updated")
}

func (h *Handlers) ApproveApartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedApartment(w, r)
	if !ok {
		return
	}
	var req approvalRequest
	if !h.bind(w, r, &req, "is_approved is required") {
		return
	}
	if err := h.svc.SetApproval(r.Context(), principal(r), id, *req.IsApproved); err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, "Apartment approval status updated")
}

func (h *Handlers) UploadImages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedApartment(w, r)
	if !ok {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}
	files, err := readUploads(r.MultipartForm.File["images"])
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	images, err := h.svc.AddImages(r.Context(), principal(r), id, files)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Images uploaded successfully",
		"images":  images,
	})
}

func (h *Handlers) UploadVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedApartment(w, r)
	if !ok {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}
	file, err := formFile(r, "video")
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	video, err := h.svc.AddVideo(r.Context(), principal(r), id, file)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Video uploaded successfully",
		"video":   video,
	})
}

func (h *Handlers) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", msgApartmentNotFound)
	if !ok {
		return
	}
	imageID, ok := h.pathID(w, r, "imageID", "Image not found")
	if !ok {
		return
	}
	if err := h.svc.DeleteImage(r.Context(), principal(r), id, imageID); err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, "Image deleted successfully")
}

func (h *Handlers) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", msgApartmentNotFound)
	if !ok {
		return
	}
	videoID, ok := h.pathID(w, r, "videoID", "Video not found")
	if !ok {
		return
	}
	if err := h.svc.DeleteVideo(r.Context(), principal(r), id, videoID); err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, "Video deleted successfully")
}
