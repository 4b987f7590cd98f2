package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"apartmentng/internal/apperr"
	"apartmentng/internal/models"
)

func TestDeleteApartmentReportsEachStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.approvedAgent(t, "ada@x.com")
	apt := f.apartment(t, p, "Doomed")
	_, err := f.svc.AddImages(ctx, p, apt.ID, []Upload{pngUpload(t, "a.png"), pngUpload(t, "b.png")})
	require.NoError(t, err)
	up := mp4Upload("tour.mp4")
	_, err = f.svc.AddVideo(ctx, p, apt.ID, &up)
	require.NoError(t, err)

	report, err := f.svc.DeleteApartment(ctx, p, apt.ID)
	require.NoError(t, err)
	require.Len(t, report.Steps, 3)
	require.Zero(t, report.Orphaned)
	for _, s := range report.Steps {
		require.Equal(t, StepSucceeded, s.Outcome)
	}
	require.Equal(t, models.MediaVideo, report.Steps[2].Kind)
	require.Zero(t, f.host.count())

	_, err = f.st.GetApartment(ctx, apt.ID)
	require.Error(t, err)
	imgs, err := f.st.ListApartmentImages(ctx, apt.ID)
	require.NoError(t, err)
	require.Empty(t, imgs)
}

func TestDeleteApartmentRecordsOrphansAndReconciles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.apartment(t, f.admin, "Flaky host")
	_, err := f.svc.AddImages(ctx, f.admin, apt.ID, []Upload{pngUpload(t, "a.png")})
	require.NoError(t, err)

	f.host.failDelete = true
	report, err := f.svc.DeleteApartment(ctx, f.admin, apt.ID)
	require.NoError(t, err)
	require.Equal(t, 1, report.Orphaned)
	require.Equal(t, StepFailedIgnored, report.Steps[0].Outcome)
	require.NotEmpty(t, report.Steps[0].Error)

	_, err = f.st.GetApartment(ctx, apt.ID)
	require.Error(t, err)

	orphans, err := f.svc.ListOrphanedMedia(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	require.Equal(t, "apartment_delete", orphans[0].Source)

	res, err := f.svc.ReconcileOrphanedMedia(ctx)
	require.NoError(t, err)
	require.Equal(t, ReconcileResult{Attempted: 1, Removed: 0, Remaining: 1}, res)
	orphans, err = f.svc.ListOrphanedMedia(ctx, f.admin)
	require.NoError(t, err)
	require.Equal(t, 2, orphans[0].Attempts)

	f.host.failDelete = false
	res, err = f.svc.ReconcileOrphanedMediaAs(ctx, f.admin)
	require.NoError(t, err)
	require.Equal(t, ReconcileResult{Attempted: 1, Removed: 1, Remaining: 0}, res)
	require.Zero(t, f.host.count())

	orphans, err = f.svc.ListOrphanedMedia(ctx, f.admin)
	require.NoError(t, err)
	require.Empty(t, orphans)
}

func TestOrphanedMediaIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	p := f.approvedAgent(t, "ada@x.com")
	_, err := f.svc.ListOrphanedMedia(context.Background(), p)
	requireKind(t, err, apperr.KindAuthorization)
	_, err = f.svc.ReconcileOrphanedMediaAs(context.Background(), p)
	requireKind(t, err, apperr.KindAuthorization)
}
