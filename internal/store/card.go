package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cardlink/apiserver/types"
)

// cardColumns is the canonical select list; scanCard must stay in sync.
const cardColumns = `id, user_id, name, title, company, email, phone_number,
		linkedin_url, twitter_url, instagram_url, profile_picture_url,
		company_logo_url, unique_url, qr_code_url, created_at, updated_at`

// CardRepository handles persistence for business cards.
//
// Every mutating query filters by both id and user_id, so a card owned
// by someone else is indistinguishable from a missing one. Only the
// read paths GetByID and GetByUniqueURL skip the owner filter.
type CardRepository struct {
	db *sql.DB
}

func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(row scanner) (types.Card, error) {
	var card types.Card
	err := row.Scan(
		&card.ID,
		&card.UserID,
		&card.Name,
		&card.Title,
		&card.Company,
		&card.Email,
		&card.PhoneNumber,
		&card.LinkedinURL,
		&card.TwitterURL,
		&card.InstagramURL,
		&card.ProfilePictureURL,
		&card.CompanyLogoURL,
		&card.UniqueURL,
		&card.QRCodeURL,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	return card, err
}

// Create inserts a new card and returns the stored row. A collision on
// the unique_url index comes back as ErrUniqueURLTaken so the caller
// can regenerate the slug.
func (r *CardRepository) Create(ctx context.Context, ownerID int64, draft types.CardDraft, uniqueURL string) (types.Card, error) {
	now := time.Now()

	const query = `
		INSERT INTO business_cards (
			user_id, name, title, company, email, phone_number,
			linkedin_url, twitter_url, instagram_url, profile_picture_url,
			company_logo_url, unique_url, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + cardColumns
	card, err := scanCard(r.db.QueryRowContext(
		ctx,
		query,
		ownerID,
		draft.Name,
		draft.Title,
		draft.Company,
		draft.Email,
		draft.PhoneNumber,
		draft.LinkedinURL,
		draft.TwitterURL,
		draft.InstagramURL,
		draft.ProfilePictureURL,
		draft.CompanyLogoURL,
		uniqueURL,
		now,
		now,
	))
	if err != nil {
		if isUniqueViolation(err, "business_cards_unique_url_key") {
			return types.Card{}, ErrUniqueURLTaken
		}
		return types.Card{}, err
	}
	return card, nil
}

// ListByOwner returns all cards owned by ownerID, oldest first.
func (r *CardRepository) ListByOwner(ctx context.Context, ownerID int64) ([]types.Card, error) {
	const query = `
		SELECT ` + cardColumns + `
		FROM business_cards
		WHERE user_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := make([]types.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

// GetByID fetches a card without an ownership filter.
func (r *CardRepository) GetByID(ctx context.Context, id int64) (types.Card, error) {
	const query = `
		SELECT ` + cardColumns + `
		FROM business_cards
		WHERE id = $1`
	card, err := scanCard(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Card{}, ErrNotFound
		}
		return types.Card{}, err
	}
	return card, nil
}

// GetByUniqueURL fetches a card by its public slug. This is the sharing
// path and deliberately performs no ownership check.
func (r *CardRepository) GetByUniqueURL(ctx context.Context, uniqueURL string) (types.Card, error) {
	const query = `
		SELECT ` + cardColumns + `
		FROM business_cards
		WHERE unique_url = $1`
	card, err := scanCard(r.db.QueryRowContext(ctx, query, uniqueURL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Card{}, ErrNotFound
		}
		return types.Card{}, err
	}
	return card, nil
}

// GetForOwner fetches a card only if ownerID owns it.
func (r *CardRepository) GetForOwner(ctx context.Context, id, ownerID int64) (types.Card, error) {
	const query = `
		SELECT ` + cardColumns + `
		FROM business_cards
		WHERE id = $1 AND user_id = $2`
	card, err := scanCard(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Card{}, ErrNotFound
		}
		return types.Card{}, err
	}
	return card, nil
}

// Update applies a partial patch to a card owned by ownerID and returns
// the stored row. Only fields present in the patch are written; a field
// set to null is cleared. updated_at is refreshed even for an empty
// patch. A missing or foreign card both come back as ErrNotFound.
func (r *CardRepository) Update(ctx context.Context, id, ownerID int64, patch types.CardPatch) (types.Card, error) {
	set := []string{}
	args := []any{}

	add := func(column string, opt types.Optional[string]) {
		if !opt.Set {
			return
		}
		args = append(args, opt.Value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name.Set {
		args = append(args, patch.Name.Value)
		set = append(set, fmt.Sprintf("name = $%d", len(args)))
	}
	add("title", patch.Title)
	add("company", patch.Company)
	add("email", patch.Email)
	add("phone_number", patch.PhoneNumber)
	add("linkedin_url", patch.LinkedinURL)
	add("twitter_url", patch.TwitterURL)
	add("instagram_url", patch.InstagramURL)
	add("profile_picture_url", patch.ProfilePictureURL)
	add("company_logo_url", patch.CompanyLogoURL)

	args = append(args, time.Now())
	set = append(set, fmt.Sprintf("updated_at = $%d", len(args)))

	args = append(args, id)
	idArg := len(args)
	args = append(args, ownerID)
	ownerArg := len(args)

	query := fmt.Sprintf(`
		UPDATE business_cards
		SET %s
		WHERE id = $%d AND user_id = $%d
		RETURNING `+cardColumns,
		strings.Join(set, ", "), idArg, ownerArg)

	card, err := scanCard(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Card{}, ErrNotFound
		}
		return types.Card{}, err
	}
	return card, nil
}

// Delete removes a card owned by ownerID. It returns false both when
// the card does not exist and when someone else owns it.
func (r *CardRepository) Delete(ctx context.Context, id, ownerID int64) (bool, error) {
	const query = `DELETE FROM business_cards WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SetQRCode stores the rendered QR image URL for a card owned by
// ownerID and refreshes updated_at. Safe to call repeatedly; the last
// write wins.
func (r *CardRepository) SetQRCode(ctx context.Context, id, ownerID int64, qrCodeURL string) (types.Card, error) {
	const query = `
		UPDATE business_cards
		SET qr_code_url = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4
		RETURNING ` + cardColumns
	card, err := scanCard(r.db.QueryRowContext(ctx, query, qrCodeURL, time.Now(), id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Card{}, ErrNotFound
		}
		return types.Card{}, err
	}
	return card, nil
}
