package types

import "time"

// Card represents a digital business card in the cardlink system.
// Every card belongs to exactly one user and is reachable by anyone
// through its UniqueURL, which is the public sharing key.
type Card struct {
	// ID is the unique identifier of the card, assigned by the database.
	ID int64 `json:"id" db:"id"`

	// UserID is the identifier of the owning user. It is set at creation
	// and never changes.
	UserID int64 `json:"user_id" db:"user_id"`

	// Name is the person's display name. It is the only required field.
	Name string `json:"name" db:"name"`

	// Title is the person's job title.
	Title *string `json:"title" db:"title"`

	// Company is the organization the person works for.
	Company *string `json:"company" db:"company"`

	// Email is the contact email printed on the card. Independent of the
	// owning account's sign-in email.
	Email *string `json:"email" db:"email"`

	// PhoneNumber is the contact phone number.
	PhoneNumber *string `json:"phone_number" db:"phone_number"`

	// LinkedinURL links to the person's LinkedIn profile.
	LinkedinURL *string `json:"linkedin_url" db:"linkedin_url"`

	// TwitterURL links to the person's Twitter profile.
	TwitterURL *string `json:"twitter_url" db:"twitter_url"`

	// InstagramURL links to the person's Instagram profile.
	InstagramURL *string `json:"instagram_url" db:"instagram_url"`

	// ProfilePictureURL points at the person's photo.
	ProfilePictureURL *string `json:"profile_picture_url" db:"profile_picture_url"`

	// CompanyLogoURL points at the company logo image.
	CompanyLogoURL *string `json:"company_logo_url" db:"company_logo_url"`

	// UniqueURL is a short opaque slug assigned once at creation.
	// It is globally unique and anyone who knows it may read the card.
	UniqueURL string `json:"unique_url" db:"unique_url"`

	// QRCodeURL is the rendered QR image URL for the card's public link.
	// It stays empty until QR generation is requested and is recomputed
	// on every request (the derivation is deterministic).
	QRCodeURL *string `json:"qr_code_url" db:"qr_code_url"`

	// CreatedAt is the timestamp at which the card was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent mutation of the card.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CardDraft carries the caller-supplied fields for a new card.
// Nil optional fields are stored as NULL.
type CardDraft struct {
	Name              string  `json:"name"`
	Title             *string `json:"title"`
	Company           *string `json:"company"`
	Email             *string `json:"email"`
	PhoneNumber       *string `json:"phone_number"`
	LinkedinURL       *string `json:"linkedin_url"`
	TwitterURL        *string `json:"twitter_url"`
	InstagramURL      *string `json:"instagram_url"`
	ProfilePictureURL *string `json:"profile_picture_url"`
	CompanyLogoURL    *string `json:"company_logo_url"`
}

// CardPatch is a partial update of a card. Each field is tri-state:
// absent from the request body (left unchanged), explicitly null
// (cleared), or set to a value. Name cannot be cleared, only replaced.
type CardPatch struct {
	Name              Optional[string] `json:"name"`
	Title             Optional[string] `json:"title"`
	Company           Optional[string] `json:"company"`
	Email             Optional[string] `json:"email"`
	PhoneNumber       Optional[string] `json:"phone_number"`
	LinkedinURL       Optional[string] `json:"linkedin_url"`
	TwitterURL        Optional[string] `json:"twitter_url"`
	InstagramURL      Optional[string] `json:"instagram_url"`
	ProfilePictureURL Optional[string] `json:"profile_picture_url"`
	CompanyLogoURL    Optional[string] `json:"company_logo_url"`
}

// IsEmpty reports whether no field of the patch was supplied.
func (p CardPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Title.Set && !p.Company.Set && !p.Email.Set &&
		!p.PhoneNumber.Set && !p.LinkedinURL.Set && !p.TwitterURL.Set &&
		!p.InstagramURL.Set && !p.ProfilePictureURL.Set && !p.CompanyLogoURL.Set
}
