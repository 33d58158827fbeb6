package services

import (
	"context"
	"crypto/rand"
	"errors"
	"net/url"
	"strings"

	"github.com/cardlink/apiserver/config"
	"github.com/cardlink/apiserver/internal/store"
	"github.com/cardlink/apiserver/types"
)

const (
	slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	slugLength   = 10
	// slugAttempts bounds retries on a unique_url collision. With 36^10
	// slugs a second collision in a row means something is badly wrong.
	slugAttempts = 5
)

// CardRepository defines persistence operations for business cards.
// Mutations are owner-scoped: a card that exists but belongs to another
// user behaves exactly like a missing card.
type CardRepository interface {
	Create(ctx context.Context, ownerID int64, draft types.CardDraft, uniqueURL string) (types.Card, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]types.Card, error)
	GetByID(ctx context.Context, id int64) (types.Card, error)
	GetByUniqueURL(ctx context.Context, uniqueURL string) (types.Card, error)
	GetForOwner(ctx context.Context, id, ownerID int64) (types.Card, error)
	Update(ctx context.Context, id, ownerID int64, patch types.CardPatch) (types.Card, error)
	Delete(ctx context.Context, id, ownerID int64) (bool, error)
	SetQRCode(ctx context.Context, id, ownerID int64, qrCodeURL string) (types.Card, error)
}

// CardService encapsulates card use-cases.
type CardService struct {
	repo          CardRepository
	events        *CardEvents
	publicBaseURL string
	qr            config.QRConfig
}

// NewCardService constructs a CardService. events may be nil when no
// broker is configured.
func NewCardService(repo CardRepository, publicBaseURL string, qr config.QRConfig, events *CardEvents) *CardService {
	return &CardService{
		repo:          repo,
		events:        events,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		qr:            qr,
	}
}

// Create stores a new card for ownerID with a freshly generated public
// slug and returns the stored record.
func (s *CardService) Create(ctx context.Context, ownerID int64, draft types.CardDraft) (types.Card, error) {
	draft.Name = strings.TrimSpace(draft.Name)
	if draft.Name == "" {
		return types.Card{}, validationError("name is required")
	}
	if draft.Email != nil && !validEmail(*draft.Email) {
		return types.Card{}, validationError("please enter a valid contact email address")
	}

	var card types.Card
	for attempt := 0; ; attempt++ {
		slug, err := newSlug()
		if err != nil {
			return types.Card{}, err
		}
		card, err = s.repo.Create(ctx, ownerID, draft, slug)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrUniqueURLTaken) && attempt < slugAttempts-1 {
			continue
		}
		return types.Card{}, err
	}

	s.events.Publish(ctx, EventCardCreated, card)
	return card, nil
}

// ListByOwner returns all cards owned by ownerID.
func (s *CardService) ListByOwner(ctx context.Context, ownerID int64) ([]types.Card, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// GetByID fetches a card by id. Public read path, no ownership check.
func (s *CardService) GetByID(ctx context.Context, id int64) (types.Card, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByUniqueURL fetches a card by its public slug. This is the sharing
// path and is open to unauthenticated callers by design.
func (s *CardService) GetByUniqueURL(ctx context.Context, uniqueURL string) (types.Card, error) {
	return s.repo.GetByUniqueURL(ctx, uniqueURL)
}

// Update applies a partial patch to a card owned by ownerID. A field
// absent from the patch stays untouched; an explicit null clears it.
// Name can be replaced but never cleared.
func (s *CardService) Update(ctx context.Context, id, ownerID int64, patch types.CardPatch) (types.Card, error) {
	if patch.Name.Set {
		if patch.Name.Value == nil || strings.TrimSpace(*patch.Name.Value) == "" {
			return types.Card{}, validationError("name is required")
		}
	}
	if patch.Email.Set && patch.Email.Value != nil && !validEmail(*patch.Email.Value) {
		return types.Card{}, validationError("please enter a valid contact email address")
	}

	card, err := s.repo.Update(ctx, id, ownerID, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Card{}, ErrCardNotFound
		}
		return types.Card{}, err
	}

	s.events.Publish(ctx, EventCardUpdated, card)
	return card, nil
}

// Delete removes a card owned by ownerID. It reports false, not an
// error, when nothing matched.
func (s *CardService) Delete(ctx context.Context, id, ownerID int64) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		return false, err
	}
	if deleted {
		s.events.Publish(ctx, EventCardDeleted, types.Card{ID: id, UserID: ownerID})
	}
	return deleted, nil
}

// GenerateQR derives the QR image URL for a card's public link, stores
// it and returns the updated record. The derivation is deterministic,
// so repeated calls overwrite the value with the same result.
func (s *CardService) GenerateQR(ctx context.Context, id, ownerID int64) (types.Card, error) {
	card, err := s.repo.GetForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Card{}, ErrCardNotFound
		}
		return types.Card{}, err
	}

	qrCodeURL := s.buildQRCodeURL(card.UniqueURL)
	card, err = s.repo.SetQRCode(ctx, id, ownerID, qrCodeURL)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Card{}, ErrCardNotFound
		}
		return types.Card{}, err
	}

	s.events.Publish(ctx, EventCardQRGenerated, card)
	return card, nil
}

// ShareURL is the public link rendered inside the QR code.
func (s *CardService) ShareURL(uniqueURL string) string {
	return s.publicBaseURL + "/card/" + uniqueURL
}

func (s *CardService) buildQRCodeURL(uniqueURL string) string {
	q := url.Values{}
	q.Set("size", s.qr.Size)
	q.Set("data", s.ShareURL(uniqueURL))
	return s.qr.ServiceURL + "?" + q.Encode()
}

func newSlug() (string, error) {
	buf := make([]byte, slugLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = slugAlphabet[int(b)%len(slugAlphabet)]
	}
	return string(buf), nil
}
