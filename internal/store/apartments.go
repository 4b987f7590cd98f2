package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"apartmentng/internal/models"
)

const apartmentColumns = `a.id,a.title,a.description,a.location,a.bedrooms,a.bathrooms,a.price_per_night,a.amenities,a.created_by,a.agent_id,a.is_approved,a.is_available,a.is_featured,a.created_at,a.updated_at`

const summaryColumns = apartmentColumns + `,
	(SELECT i.image_url FROM apartment_images i WHERE i.apartment_id = a.id AND i.is_primary = 1 LIMIT 1) AS primary_image,
	(SELECT COUNT(1) FROM apartment_images i WHERE i.apartment_id = a.id) AS image_count`

func scanApartmentInto(row rowScanner, a *models.Apartment, extra ...any) error {
	var amenities string
	var agentID sql.NullInt64
	dest := []any{&a.ID, &a.Title, &a.Description, &a.Location, &a.Bedrooms, &a.Bathrooms, &a.PricePerNight, &amenities,
		&a.CreatedBy, &agentID, &a.IsApproved, &a.IsAvailable, &a.IsFeatured, &a.CreatedAt, &a.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	a.AgentID = int64Ptr(agentID)
	a.Amenities = decodeAmenities(amenities)
	return nil
}

func scanApartment(row rowScanner) (models.Apartment, error) {
	var a models.Apartment
	err := scanApartmentInto(row, &a)
	if err == sql.ErrNoRows {
		return models.Apartment{}, ErrNotFound
	}
	return a, err
}

func scanSummary(row rowScanner) (models.ApartmentSummary, error) {
	var out models.ApartmentSummary
	var primary sql.NullString
	if err := scanApartmentInto(row, &out.Apartment, &primary, &out.ImageCount); err != nil {
		return models.ApartmentSummary{}, err
	}
	out.PrimaryImage = stringPtr(primary)
	return out, nil
}

// decodeAmenities accepts the JSON list form and falls back to a comma
// separated string for rows written by older clients.
func decodeAmenities(raw string) []string {
	raw = strings.TrimSpace(raw)
	out := []string{}
	if raw == "" {
		return out
	}
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out
		}
		out = []string{}
	}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func encodeAmenities(list []string) string {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func (s *Store) CreateApartment(ctx context.Context, in models.ApartmentInput, createdBy models.CreatedBy, agentID *int64, approved bool) (models.Apartment, error) {
	now := s.now()
	var owner any
	if agentID != nil {
		owner = *agentID
	}
	id, err := s.insert(ctx,
		`INSERT INTO apartments(title,description,location,bedrooms,bathrooms,price_per_night,amenities,created_by,agent_id,is_approved,is_available,is_featured,created_at,updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,1,0,?,?)`,
		in.Title, in.Description, in.Location, in.Bedrooms, in.Bathrooms, in.PricePerNight, encodeAmenities(in.Amenities),
		createdBy, owner, boolToInt(approved), now, now,
	)
	if err != nil {
		return models.Apartment{}, err
	}
	amenities := in.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return models.Apartment{
		ID:            id,
		Title:         in.Title,
		Description:   in.Description,
		Location:      in.Location,
		Bedrooms:      in.Bedrooms,
		Bathrooms:     in.Bathrooms,
		PricePerNight: in.PricePerNight,
		Amenities:     amenities,
		CreatedBy:     createdBy,
		AgentID:       agentID,
		IsApproved:    approved,
		IsAvailable:   true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *Store) GetApartment(ctx context.Context, id int64) (models.Apartment, error) {
	return scanApartment(s.queryRow(ctx, `SELECT `+apartmentColumns+` FROM apartments a WHERE a.id=?`, id))
}

func (s *Store) UpdateApartment(ctx context.Context, id int64, in models.ApartmentInput) error {
	return s.execOne(ctx,
		`UPDATE apartments SET title=?, description=?, location=?, bedrooms=?, bathrooms=?, price_per_night=?, amenities=?, updated_at=? WHERE id=?`,
		in.Title, in.Description, in.Location, in.Bedrooms, in.Bathrooms, in.PricePerNight, encodeAmenities(in.Amenities), s.now(), id)
}

type ApartmentFlag string

const (
	FlagAvailable ApartmentFlag = "is_available"
	FlagFeatured  ApartmentFlag = "is_featured"
	FlagApproved  ApartmentFlag = "is_approved"
)

// SetApartmentFlag writes an explicit boolean; replaying the same value is a no-op.
func (s *Store) SetApartmentFlag(ctx context.Context, id int64, flag ApartmentFlag, value bool) error {
	switch flag {
	case FlagAvailable, FlagFeatured, FlagApproved:
	default:
		return fmt.Errorf("unknown apartment flag %q", flag)
	}
	return s.execOne(ctx, `UPDATE apartments SET `+string(flag)+`=? WHERE id=?`, boolToInt(value), id)
}

func (s *Store) DeleteApartment(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM apartments WHERE id=?`, id)
}

func (s *Store) CountAgentApartments(ctx context.Context, agentID int64) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(1) FROM apartments WHERE agent_id=?`, agentID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) ListApartments(ctx context.Context, q models.ApartmentQuery) ([]models.ApartmentSummary, error) {
	where := []string{"1=1"}
	args := []any{}
	if !q.IncludeUnapproved {
		where = append(where, "a.is_approved = 1")
	}
	if q.AgentID != nil {
		where = append(where, "a.agent_id = ?")
		args = append(args, *q.AgentID)
	}
	if q.Featured != nil {
		where = append(where, "a.is_featured = ?")
		args = append(args, boolToInt(*q.Featured))
	}
	if q.Available != nil {
		where = append(where, "a.is_available = ?")
		args = append(args, boolToInt(*q.Available))
	}
	if loc := strings.TrimSpace(q.Location); loc != "" {
		where = append(where, "LOWER(a.location) LIKE ?")
		args = append(args, "%"+strings.ToLower(loc)+"%")
	}
	if q.MinPrice != nil {
		where = append(where, "a.price_per_night >= ?")
		args = append(args, *q.MinPrice)
	}
	if q.MaxPrice != nil {
		where = append(where, "a.price_per_night <= ?")
		args = append(args, *q.MaxPrice)
	}
	if q.MinBedrooms != nil {
		where = append(where, "a.bedrooms >= ?")
		args = append(args, *q.MinBedrooms)
	}
	if q.MinBathrooms != nil {
		where = append(where, "a.bathrooms >= ?")
		args = append(args, *q.MinBathrooms)
	}

	order := apartmentOrder(q.Sort)
	if q.IncludeUnapproved && q.AgentID == nil {
		order = "a.is_approved ASC, " + order
	}
	rows, err := s.query(ctx,
		`SELECT `+summaryColumns+` FROM apartments a WHERE `+strings.Join(where, " AND ")+` ORDER BY `+order,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.ApartmentSummary, 0)
	for rows.Next() {
		a, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func apartmentOrder(sort string) string {
	switch sort {
	case "price_low":
		return "a.price_per_night ASC, a.created_at DESC, a.id DESC"
	case "price_high":
		return "a.price_per_night DESC, a.created_at DESC, a.id DESC"
	case "newest":
		return "a.created_at DESC, a.id DESC"
	case "bedrooms":
		return "a.bedrooms DESC, a.created_at DESC, a.id DESC"
	default:
		return "a.is_featured DESC, a.created_at DESC, a.id DESC"
	}
}
