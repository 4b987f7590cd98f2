package store

import (
	"context"
	"database/sql"

	"apartmentng/internal/models"
)

const imageColumns = `id,apartment_id,image_url,media_id,is_primary,display_order,created_at`
const videoColumns = `id,apartment_id,video_url,media_id,created_at`

func scanImage(row rowScanner) (models.ApartmentImage, error) {
	var img models.ApartmentImage
	err := row.Scan(&img.ID, &img.ApartmentID, &img.ImageURL, &img.MediaID, &img.IsPrimary, &img.DisplayOrder, &img.CreatedAt)
	if err == sql.ErrNoRows {
		return models.ApartmentImage{}, ErrNotFound
	}
	return img, err
}

func scanVideo(row rowScanner) (models.ApartmentVideo, error) {
	var v models.ApartmentVideo
	err := row.Scan(&v.ID, &v.ApartmentID, &v.VideoURL, &v.MediaID, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return models.ApartmentVideo{}, ErrNotFound
	}
	return v, err
}

// The derived tables keep these statements legal on MySQL, which refuses a
// direct subquery on the table being written.
const insertImageAutoPrimary = `INSERT INTO apartment_images(apartment_id,image_url,media_id,is_primary,display_order,created_at)
	VALUES(?,?,?,
		CASE WHEN EXISTS (SELECT 1 FROM (SELECT id FROM apartment_images WHERE apartment_id=? AND is_primary=1) AS cur) THEN 0 ELSE 1 END,
		(SELECT COALESCE(MAX(display_order),0)+1 FROM (SELECT display_order FROM apartment_images WHERE apartment_id=?) AS ord),
		?)`

const insertImageSecondary = `INSERT INTO apartment_images(apartment_id,image_url,media_id,is_primary,display_order,created_at)
	VALUES(?,?,?,0,
		(SELECT COALESCE(MAX(display_order),0)+1 FROM (SELECT display_order FROM apartment_images WHERE apartment_id=?) AS ord),
		?)`

// AddApartmentImage appends an image in one statement. The row becomes the
// primary image only when the apartment has none; the partial unique index on
// primary images turns a lost race into a conflict, which is retried as a
// non-primary insert.
func (s *Store) AddApartmentImage(ctx context.Context, apartmentID int64, url, mediaID string) (models.ApartmentImage, error) {
	now := s.now()
	id, err := s.insert(ctx, insertImageAutoPrimary, apartmentID, url, mediaID, apartmentID, apartmentID, now)
	if err == ErrConflict {
		id, err = s.insert(ctx, insertImageSecondary, apartmentID, url, mediaID, apartmentID, now)
	}
	if err != nil {
		return models.ApartmentImage{}, err
	}
	return s.GetApartmentImage(ctx, apartmentID, id)
}

func (s *Store) GetApartmentImage(ctx context.Context, apartmentID, imageID int64) (models.ApartmentImage, error) {
	return scanImage(s.queryRow(ctx,
		`SELECT `+imageColumns+` FROM apartment_images WHERE id=? AND apartment_id=?`, imageID, apartmentID))
}

func (s *Store) ListApartmentImages(ctx context.Context, apartmentID int64) ([]models.ApartmentImage, error) {
	rows, err := s.query(ctx,
		`SELECT `+imageColumns+` FROM apartment_images WHERE apartment_id=? ORDER BY is_primary DESC, display_order ASC, id ASC`, apartmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.ApartmentImage, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (s *Store) DeleteApartmentImage(ctx context.Context, imageID int64) error {
	return s.execOne(ctx, `DELETE FROM apartment_images WHERE id=?`, imageID)
}

// PromoteNextPrimary marks the first remaining image as primary when the
// apartment has none. It is a no-op otherwise.
func (s *Store) PromoteNextPrimary(ctx context.Context, apartmentID int64) error {
	_, err := s.exec(ctx,
		`UPDATE apartment_images SET is_primary=1
		 WHERE id = (SELECT id FROM (SELECT id FROM apartment_images WHERE apartment_id=? ORDER BY display_order ASC, id ASC LIMIT 1) AS nxt)
		 AND NOT EXISTS (SELECT 1 FROM (SELECT id FROM apartment_images WHERE apartment_id=? AND is_primary=1) AS cur)`,
		apartmentID, apartmentID)
	if err = mapWriteErr(err); err == ErrConflict {
		return nil
	}
	return err
}

func (s *Store) AddApartmentVideo(ctx context.Context, apartmentID int64, url, mediaID string) (models.ApartmentVideo, error) {
	v := models.ApartmentVideo{ApartmentID: apartmentID, VideoURL: url, MediaID: mediaID, CreatedAt: s.now()}
	id, err := s.insert(ctx,
		`INSERT INTO apartment_videos(apartment_id,video_url,media_id,created_at) VALUES(?,?,?,?)`,
		v.ApartmentID, v.VideoURL, v.MediaID, v.CreatedAt)
	if err != nil {
		return models.ApartmentVideo{}, err
	}
	v.ID = id
	return v, nil
}

func (s *Store) GetApartmentVideo(ctx context.Context, apartmentID, videoID int64) (models.ApartmentVideo, error) {
	return scanVideo(s.queryRow(ctx,
		`SELECT `+videoColumns+` FROM apartment_videos WHERE id=? AND apartment_id=?`, videoID, apartmentID))
}

func (s *Store) ListApartmentVideos(ctx context.Context, apartmentID int64) ([]models.ApartmentVideo, error) {
	rows, err := s.query(ctx, `SELECT `+videoColumns+` FROM apartment_videos WHERE apartment_id=? ORDER BY id ASC`, apartmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.ApartmentVideo, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) DeleteApartmentVideo(ctx context.Context, videoID int64) error {
	return s.execOne(ctx, `DELETE FROM apartment_videos WHERE id=?`, videoID)
}

func (s *Store) RecordOrphanedMedia(ctx context.Context, kind models.MediaKind, mediaID, source, lastErr string) error {
	now := s.now()
	_, err := s.insert(ctx,
		`INSERT INTO orphaned_media(kind,media_id,source,last_error,attempts,created_at,updated_at) VALUES(?,?,?,?,1,?,?)`,
		kind, mediaID, source, lastErr, now, now)
	return err
}

func (s *Store) ListOrphanedMedia(ctx context.Context) ([]models.OrphanedMedia, error) {
	rows, err := s.query(ctx,
		`SELECT id,kind,media_id,source,last_error,attempts,created_at,updated_at FROM orphaned_media ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.OrphanedMedia, 0)
	for rows.Next() {
		var m models.OrphanedMedia
		if err := rows.Scan(&m.ID, &m.Kind, &m.MediaID, &m.Source, &m.LastError, &m.Attempts, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) DeleteOrphanedMedia(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM orphaned_media WHERE id=?`, id)
}

func (s *Store) BumpOrphanedMedia(ctx context.Context, id int64, lastErr string) error {
	return s.execOne(ctx,
		`UPDATE orphaned_media SET attempts=attempts+1, last_error=?, updated_at=? WHERE id=?`, lastErr, s.now(), id)
}
