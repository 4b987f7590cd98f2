package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"apartmentng/internal/apperr"
	"apartmentng/internal/auth"
	"apartmentng/internal/authz"
	"apartmentng/internal/media"
	"apartmentng/internal/models"
)

type StepOutcome string

const (
	StepSucceeded     StepOutcome = "succeeded"
	StepFailedIgnored StepOutcome = "failed_ignored"
)

// CascadeStep is the outcome of deleting one hosted object ahead of a row
// delete.
type CascadeStep struct {
	Kind    models.MediaKind `json:"kind"`
	MediaID string           `json:"media_id"`
	Outcome StepOutcome      `json:"outcome"`
	Error   string           `json:"error,omitempty"`
}

type CascadeReport struct {
	Steps    []CascadeStep `json:"steps"`
	Orphaned int           `json:"orphaned"`
}

func (r *CascadeReport) merge(other CascadeReport) {
	r.Steps = append(r.Steps, other.Steps...)
	r.Orphaned += other.Orphaned
}

// removeMedia deletes one hosted object. A failure never aborts the caller:
// it is logged, recorded as an orphan for later reconciliation and reported
// as failed_ignored.
func (s *Service) removeMedia(ctx context.Context, kind models.MediaKind, id, source string) CascadeStep {
	step := CascadeStep{Kind: kind, MediaID: id, Outcome: StepSucceeded}
	if id == "" {
		return step
	}
	err := s.media.Delete(ctx, kind, id)
	if err == nil || errors.Is(err, media.ErrNotFound) {
		return step
	}
	step.Outcome = StepFailedIgnored
	step.Error = err.Error()
	s.log.WithError(err).WithFields(logrus.Fields{
		"kind":     kind,
		"media_id": id,
		"source":   source,
	}).Warn("media delete failed; recorded as orphaned")
	if rerr := s.st.RecordOrphanedMedia(ctx, kind, id, source, err.Error()); rerr != nil {
		s.log.WithError(rerr).WithField("media_id", id).Error("record orphaned media failed")
	}
	return step
}

func (s *Service) cascade(ctx context.Context, kind models.MediaKind, ids []string, source string) CascadeReport {
	report := CascadeReport{Steps: make([]CascadeStep, 0, len(ids))}
	for _, id := range ids {
		step := s.removeMedia(ctx, kind, id, source)
		if step.Outcome == StepFailedIgnored {
			report.Orphaned++
		}
		report.Steps = append(report.Steps, step)
	}
	return report
}

// apartmentMediaCascade removes every hosted image and video of an apartment.
func (s *Service) apartmentMediaCascade(ctx context.Context, apartmentID int64, source string) (CascadeReport, error) {
	images, err := s.st.ListApartmentImages(ctx, apartmentID)
	if err != nil {
		return CascadeReport{}, apperr.Internal(err)
	}
	videos, err := s.st.ListApartmentVideos(ctx, apartmentID)
	if err != nil {
		return CascadeReport{}, apperr.Internal(err)
	}
	imageIDs := make([]string, 0, len(images))
	for _, img := range images {
		imageIDs = append(imageIDs, img.MediaID)
	}
	videoIDs := make([]string, 0, len(videos))
	for _, v := range videos {
		videoIDs = append(videoIDs, v.MediaID)
	}
	report := s.cascade(ctx, models.MediaImage, imageIDs, source)
	report.merge(s.cascade(ctx, models.MediaVideo, videoIDs, source))
	return report, nil
}

func (s *Service) ListOrphanedMedia(ctx context.Context, p auth.Principal) ([]models.OrphanedMedia, error) {
	if err := authz.RequireRole(p, authz.AdminOnly...); err != nil {
		return nil, err
	}
	out, err := s.st.ListOrphanedMedia(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

type ReconcileResult struct {
	Attempted int `json:"attempted"`
	Removed   int `json:"removed"`
	Remaining int `json:"remaining"`
}

// ReconcileOrphanedMedia retries every recorded hosted delete. Rows whose
// delete succeeds (or whose object is already gone) are removed; the rest get
// their attempt count bumped.
func (s *Service) ReconcileOrphanedMedia(ctx context.Context) (ReconcileResult, error) {
	rows, err := s.st.ListOrphanedMedia(ctx)
	if err != nil {
		return ReconcileResult{}, apperr.Internal(err)
	}
	var res ReconcileResult
	for _, o := range rows {
		if ctx.Err() != nil {
			break
		}
		res.Attempted++
		derr := s.media.Delete(ctx, o.Kind, o.MediaID)
		if derr == nil || errors.Is(derr, media.ErrNotFound) {
			if err := s.st.DeleteOrphanedMedia(ctx, o.ID); err != nil {
				return res, apperr.Internal(err)
			}
			res.Removed++
			continue
		}
		s.log.WithError(derr).WithField("media_id", o.MediaID).Warn("orphaned media still not deletable")
		if err := s.st.BumpOrphanedMedia(ctx, o.ID, derr.Error()); err != nil {
			return res, apperr.Internal(err)
		}
	}
	res.Remaining = len(rows) - res.Removed
	return res, nil
}

// ReconcileOrphanedMediaAs is the admin-gated form used by the HTTP surface.
func (s *Service) ReconcileOrphanedMediaAs(ctx context.Context, p auth.Principal) (ReconcileResult, error) {
	if err := authz.RequireRole(p, authz.AdminOnly...); err != nil {
		return ReconcileResult{}, err
	}
	return s.ReconcileOrphanedMedia(ctx)
}
