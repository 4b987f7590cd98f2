package models

import "time"

type Admin struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}

type Agent struct {
	ID                    int64      `json:"id"`
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	PasswordHash          string     `json:"-"`
	Phone                 *string    `json:"phone"`
	CompanyName           *string    `json:"company_name"`
	IsApproved            bool       `json:"is_approved"`
	EmailVerified         bool       `json:"email_verified"`
	VerificationTokenHash *string    `json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	PendingEmail          *string    `json:"pending_email,omitempty"`
	PendingTokenHash      *string    `json:"-"`
	PendingExpiresAt      *time.Time `json:"-"`
	CreatedAt             time.Time  `json:"created_at"`
}

type CreatedBy string

const (
	CreatedByAdmin CreatedBy = "admin"
	CreatedByAgent CreatedBy = "agent"
)

type Apartment struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	Bedrooms      int       `json:"bedrooms"`
	Bathrooms     int       `json:"bathrooms"`
	PricePerNight float64   `json:"price_per_night"`
	Amenities     []string  `json:"amenities"`
	CreatedBy     CreatedBy `json:"created_by"`
	AgentID       *int64    `json:"agent_id"`
	IsApproved    bool      `json:"is_approved"`
	IsAvailable   bool      `json:"is_available"`
	IsFeatured    bool      `json:"is_featured"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ApartmentSummary is a listing row: the apartment plus its primary image.
type ApartmentSummary struct {
	Apartment
	PrimaryImage *string `json:"primary_image"`
	ImageCount   int     `json:"image_count"`
}

type ApartmentImage struct {
	ID           int64     `json:"id"`
	ApartmentID  int64     `json:"apartment_id"`
	ImageURL     string    `json:"image_url"`
	MediaID      string    `json:"media_id"`
	IsPrimary    bool      `json:"is_primary"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

type ApartmentVideo struct {
	ID          int64     `json:"id"`
	ApartmentID int64     `json:"apartment_id"`
	VideoURL    string    `json:"video_url"`
	MediaID     string    `json:"media_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type DocumentType string

const (
	DocIDCardFront          DocumentType = "id_card_front"
	DocIDCardBack           DocumentType = "id_card_back"
	DocBusinessRegistration DocumentType = "business_registration"
	DocProofOfAddress       DocumentType = "proof_of_address"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocIDCardFront, DocIDCardBack, DocBusinessRegistration, DocProofOfAddress:
		return true
	}
	return false
}

type DocumentStatus string

const (
	DocPending  DocumentStatus = "pending"
	DocApproved DocumentStatus = "approved"
	DocRejected DocumentStatus = "rejected"
)

type AgentDocument struct {
	ID              int64          `json:"id"`
	AgentID         int64          `json:"agent_id"`
	DocumentType    DocumentType   `json:"document_type"`
	FileURL         string         `json:"file_url"`
	MediaID         string         `json:"-"`
	Status          DocumentStatus `json:"status"`
	RejectionReason *string        `json:"rejection_reason"`
	UploadedAt      time.Time      `json:"uploaded_at"`
	VerifiedAt      *time.Time     `json:"verified_at"`
	VerifiedBy      *int64         `json:"verified_by"`
}

type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

type OrphanedMedia struct {
	ID        int64     `json:"id"`
	Kind      MediaKind `json:"kind"`
	MediaID   string    `json:"media_id"`
	Source    string    `json:"source"`
	LastError string    `json:"last_error"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ApartmentQuery struct {
	Featured     *bool
	Available    *bool
	Location     string
	MinPrice     *float64
	MaxPrice     *float64
	MinBedrooms  *int
	MinBathrooms *int
	Sort         string
	// IncludeUnapproved lists every row; without AgentID unapproved rows sort first.
	IncludeUnapproved bool
	AgentID           *int64
}

type ApartmentInput struct {
	Title         string
	Description   string
	Location      string
	Bedrooms      int
	Bathrooms     int
	PricePerNight float64
	Amenities     []string
}

type AgentStats struct {
	TotalApartments     int `json:"total_apartments"`
	ApprovedApartments  int `json:"approved_apartments"`
	PendingApartments   int `json:"pending_apartments"`
	AvailableApartments int `json:"available_apartments"`
	BookedApartments    int `json:"booked_apartments"`
	FeaturedApartments  int `json:"featured_apartments"`
}
