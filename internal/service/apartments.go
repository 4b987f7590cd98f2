package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"apartmentng/internal/apperr"
	"apartmentng/internal/auth"
	"apartmentng/internal/authz"
	"apartmentng/internal/media"
	"apartmentng/internal/models"
	"apartmentng/internal/store"
)

const (
	msgApartmentNotFound = "Apartment not found"
	msgImageNotFound     = "Image not found"
	msgVideoNotFound     = "Video not found"
	msgAccountGone       = "Account no longer exists"
)

// ListApartments is the public browse. Admins also see unapproved listings,
// sorted ahead of approved ones.
func (s *Service) ListApartments(ctx context.Context, p *auth.Principal, q models.ApartmentQuery) ([]models.ApartmentSummary, error) {
	q.AgentID = nil
	q.IncludeUnapproved = p != nil && p.IsAdmin()
	out, err := s.st.ListApartments(ctx, q)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *Service) ListAllApartments(ctx context.Context, p auth.Principal) ([]models.ApartmentSummary, error) {
	if err := authz.RequireRole(p, authz.AdminOnly...); err != nil {
		return nil, err
	}
	out, err := s.st.ListApartments(ctx, models.ApartmentQuery{IncludeUnapproved: true, Sort: "newest"})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *Service) ListMyApartments(ctx context.Context, p auth.Principal) ([]models.ApartmentSummary, error) {
	if err := authz.RequireRole(p, authz.AgentOnly...); err != nil {
		return nil, err
	}
	id := p.ID
	out, err := s.st.ListApartments(ctx, models.ApartmentQuery{AgentID: &id, IncludeUnapproved: true, Sort: "newest"})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// ApartmentDetail is a listing with its media.
type ApartmentDetail struct {
	models.Apartment
	Images []models.ApartmentImage `json:"images"`
	Videos []models.ApartmentVideo `json:"videos"`
}

// GetApartment returns an approved listing to anyone. An unapproved listing
// is reported as missing unless the caller is an admin or its owner.
func (s *Service) GetApartment(ctx context.Context, p *auth.Principal, id int64) (ApartmentDetail, error) {
	apt, err := s.st.GetApartment(ctx, id)
	if err != nil {
		return ApartmentDetail{}, storeErr(err, msgApartmentNotFound)
	}
	if !authz.CanView(p, apt) {
		return ApartmentDetail{}, apperr.NotFound(msgApartmentNotFound)
	}
	images, err := s.st.ListApartmentImages(ctx, apt.ID)
	if err != nil {
		return ApartmentDetail{}, apperr.Internal(err)
	}
	videos, err := s.st.ListApartmentVideos(ctx, apt.ID)
	if err != nil {
		return ApartmentDetail{}, apperr.Internal(err)
	}
	return ApartmentDetail{Apartment: apt, Images: images, Videos: videos}, nil
}

func normalizeApartmentInput(in models.ApartmentInput) (models.ApartmentInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.Location == "" {
		return in, apperr.Validation("Title and location are required")
	}
	if in.Bedrooms < 0 || in.Bathrooms < 0 || in.PricePerNight < 0 {
		return in, apperr.Validation("Bedrooms, bathrooms and price must not be negative")
	}
	amenities := make([]string, 0, len(in.Amenities))
	seen := make(map[string]bool, len(in.Amenities))
	for _, a := range in.Amenities {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		amenities = append(amenities, a)
	}
	in.Amenities = amenities
	return in, nil
}

// CreateApartment records the creator's role. Agent listings start
// unapproved and owned by the agent; admin listings are approved and unowned.
func (s *Service) CreateApartment(ctx context.Context, p auth.Principal, in models.ApartmentInput) (models.Apartment, error) {
	if err := authz.RequireRole(p, authz.AdminOrAgent...); err != nil {
		return models.Apartment{}, err
	}
	in, err := normalizeApartmentInput(in)
	if err != nil {
		return models.Apartment{}, err
	}
	var (
		createdBy models.CreatedBy
		agentID   *int64
		approved  bool
	)
	switch p.Role {
	case auth.RoleAdmin:
		createdBy, approved = models.CreatedByAdmin, true
	case auth.RoleAgent:
		id := p.ID
		createdBy, agentID = models.CreatedByAgent, &id
	}
	apt, err := s.st.CreateApartment(ctx, in, createdBy, agentID, approved)
	if errors.Is(err, store.ErrMissingReference) {
		// The token outlived the agent row.
		return models.Apartment{}, apperr.Unauthenticated(msgAccountGone)
	}
	if err != nil {
		return models.Apartment{}, apperr.Internal(err)
	}
	return apt, nil
}

// loadOwned runs the load and ownership steps shared by every mutating
// apartment operation.
func (s *Service) loadOwned(ctx context.Context, p auth.Principal, id int64) (models.Apartment, error) {
	if err := authz.RequireRole(p, authz.AdminOrAgent...); err != nil {
		return models.Apartment{}, err
	}
	apt, err := s.st.GetApartment(ctx, id)
	if err != nil {
		return models.Apartment{}, storeErr(err, msgApartmentNotFound)
	}
	if err := authz.RequireApartmentOwnerOrAdmin(p, apt); err != nil {
		return models.Apartment{}, err
	}
	return apt, nil
}

// AuthorizeApartment reports whether p may manage apartment id. Handlers call
// it before reading a request body so a missing row or a foreign listing is
// reported ahead of any input error.
func (s *Service) AuthorizeApartment(ctx context.Context, p auth.Principal, id int64) error {
	_, err := s.loadOwned(ctx, p, id)
	return err
}

func (s *Service) UpdateApartment(ctx context.Context, p auth.Principal, id int64, in models.ApartmentInput) (models.Apartment, error) {
	apt, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return models.Apartment{}, err
	}
	in, err = normalizeApartmentInput(in)
	if err != nil {
		return models.Apartment{}, err
	}
	if err := s.st.UpdateApartment(ctx, apt.ID, in); err != nil {
		return models.Apartment{}, storeErr(err, msgApartmentNotFound)
	}
	out, err := s.st.GetApartment(ctx, apt.ID)
	if err != nil {
		return models.Apartment{}, storeErr(err, msgApartmentNotFound)
	}
	return out, nil
}

func (s *Service) SetAvailability(ctx context.Context, p auth.Principal, id int64, available bool) error {
	apt, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return err
	}
	return storeErr(s.st.SetApartmentFlag(ctx, apt.ID, store.FlagAvailable, available), msgApartmentNotFound)
}

func (s *Service) SetFeatured(ctx context.Context, p auth.Principal, id int64, featured bool) error {
	if err := authz.RequireRole(p, authz.AdminOnly...); err != nil {
		return err
	}
	return storeErr(s.st.SetApartmentFlag(ctx, id, store.FlagFeatured, featured), msgApartmentNotFound)
}

func (s *Service) SetApproval(ctx context.Context, p auth.Principal, id int64, approved bool) error {
	if err := authz.RequireRole(p, authz.AdminOnly...); err != nil {
		return err
	}
	return storeErr(s.st.SetApartmentFlag(ctx, id, store.FlagApproved, approved), msgApartmentNotFound)
}

// AddImages prepares the whole batch before anything is uploaded, so an
// invalid file rejects the request without leaving hosted objects behind.
// The first image of an apartment becomes its primary image.
func (s *Service) AddImages(ctx context.Context, p auth.Principal, id int64, files []Upload) ([]models.ApartmentImage, error) {
	apt, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperr.Validation("No images provided")
	}
	if len(files) > MaxImagesPerRequest {
		return nil, apperr.Validation(fmt.Sprintf("At most %d images can be uploaded at once", MaxImagesPerRequest))
	}
	objs := make([]media.Object, 0, len(files))
	for _, f := range files {
		obj, err := media.Prepare(models.MediaImage, f.Filename, f.Data, s.limits())
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	out := make([]models.ApartmentImage, 0, len(objs))
	for _, obj := range objs {
		stored, err := s.upload(ctx, obj)
		if err != nil {
			return nil, err
		}
		img, err := s.st.AddApartmentImage(ctx, apt.ID, stored.URL, stored.ID)
		if err != nil {
			s.discardUpload(ctx, models.MediaImage, stored.ID)
			return nil, storeErr(err, msgApartmentNotFound)
		}
		out = append(out, img)
	}
	return out, nil
}

func (s *Service) AddVideo(ctx context.Context, p auth.Principal, id int64, file *Upload) (models.ApartmentVideo, error) {
	apt, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return models.ApartmentVideo{}, err
	}
	if file == nil || len(file.Data) == 0 {
		return models.ApartmentVideo{}, apperr.Validation("No video provided")
	}
	obj, err := media.Prepare(models.MediaVideo, file.Filename, file.Data, s.limits())
	if err != nil {
		return models.ApartmentVideo{}, err
	}
	stored, err := s.upload(ctx, obj)
	if err != nil {
		return models.ApartmentVideo{}, err
	}
	v, err := s.st.AddApartmentVideo(ctx, apt.ID, stored.URL, stored.ID)
	if err != nil {
		s.discardUpload(ctx, models.MediaVideo, stored.ID)
		return models.ApartmentVideo{}, storeErr(err, msgApartmentNotFound)
	}
	return v, nil
}

// DeleteImage removes one image. When it was the primary image the next one
// in display order takes over.
func (s *Service) DeleteImage(ctx context.Context, p auth.Principal, apartmentID, imageID int64) error {
	apt, err := s.loadOwned(ctx, p, apartmentID)
	if err != nil {
		return err
	}
	img, err := s.st.GetApartmentImage(ctx, apt.ID, imageID)
	if err != nil {
		return storeErr(err, msgImageNotFound)
	}
	s.removeMedia(ctx, models.MediaImage, img.MediaID, "image_delete")
	if err := s.st.DeleteApartmentImage(ctx, img.ID); err != nil {
		return storeErr(err, msgImageNotFound)
	}
	if img.IsPrimary {
		if err := s.st.PromoteNextPrimary(ctx, apt.ID); err != nil {
			return apperr.Internal(err)
		}
	}
	return nil
}

func (s *Service) DeleteVideo(ctx context.Context, p auth.Principal, apartmentID, videoID int64) error {
	apt, err := s.loadOwned(ctx, p, apartmentID)
	if err != nil {
		return err
	}
	v, err := s.st.GetApartmentVideo(ctx, apt.ID, videoID)
	if err != nil {
		return storeErr(err, msgVideoNotFound)
	}
	s.removeMedia(ctx, models.MediaVideo, v.MediaID, "video_delete")
	return storeErr(s.st.DeleteApartmentVideo(ctx, v.ID), msgVideoNotFound)
}

// DeleteApartment removes hosted media one object at a time, recording each
// outcome, then deletes the row. Image and video rows go with it through the
// foreign keys.
func (s *Service) DeleteApartment(ctx context.Context, p auth.Principal, id int64) (CascadeReport, error) {
	apt, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return CascadeReport{}, err
	}
	report, err := s.apartmentMediaCascade(ctx, apt.ID, "apartment_delete")
	if err != nil {
		return CascadeReport{}, err
	}
	if err := s.st.DeleteApartment(ctx, apt.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return CascadeReport{}, apperr.NotFound(msgApartmentNotFound)
		}
		return CascadeReport{}, apperr.Internal(err)
	}
	if report.Orphaned > 0 {
		s.log.WithField("apartment_id", apt.ID).WithField("orphaned", report.Orphaned).Warn("apartment deleted with orphaned media")
	}
	return report, nil
}
