package services

import (
	"context"
	"sort"
	"time"

	"github.com/cardlink/apiserver/internal/store"
	"github.com/cardlink/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository mirroring the store
// contract: sentinel errors, unique emails.
type fakeUserRepo struct {
	nextID int64
	users  map[int64]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]types.User{}}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, email, passwordHash string) (types.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return types.User{}, store.ErrEmailTaken
		}
	}
	r.nextID++
	now := time.Now()
	user := types.User{
		ID:           r.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[user.ID] = user
	return user, nil
}

// fakeCardRepo is an in-memory CardRepository mirroring the store
// contract, including the owner filter on every mutation.
type fakeCardRepo struct {
	nextID int64
	cards  map[int64]types.Card
	// failCreates forces that many unique_url collisions before an
	// insert succeeds.
	failCreates int
}

func newFakeCardRepo() *fakeCardRepo {
	return &fakeCardRepo{cards: map[int64]types.Card{}}
}

func (r *fakeCardRepo) Create(_ context.Context, ownerID int64, draft types.CardDraft, uniqueURL string) (types.Card, error) {
	if r.failCreates > 0 {
		r.failCreates--
		return types.Card{}, store.ErrUniqueURLTaken
	}
	for _, card := range r.cards {
		if card.UniqueURL == uniqueURL {
			return types.Card{}, store.ErrUniqueURLTaken
		}
	}
	r.nextID++
	now := time.Now()
	card := types.Card{
		ID:                r.nextID,
		UserID:            ownerID,
		Name:              draft.Name,
		Title:             draft.Title,
		Company:           draft.Company,
		Email:             draft.Email,
		PhoneNumber:       draft.PhoneNumber,
		LinkedinURL:       draft.LinkedinURL,
		TwitterURL:        draft.TwitterURL,
		InstagramURL:      draft.InstagramURL,
		ProfilePictureURL: draft.ProfilePictureURL,
		CompanyLogoURL:    draft.CompanyLogoURL,
		UniqueURL:         uniqueURL,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.cards[card.ID] = card
	return card, nil
}

func (r *fakeCardRepo) ListByOwner(_ context.Context, ownerID int64) ([]types.Card, error) {
	cards := []types.Card{}
	for _, card := range r.cards {
		if card.UserID == ownerID {
			cards = append(cards, card)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards, nil
}

func (r *fakeCardRepo) GetByID(_ context.Context, id int64) (types.Card, error) {
	card, ok := r.cards[id]
	if !ok {
		return types.Card{}, store.ErrNotFound
	}
	return card, nil
}

func (r *fakeCardRepo) GetByUniqueURL(_ context.Context, uniqueURL string) (types.Card, error) {
	for _, card := range r.cards {
		if card.UniqueURL == uniqueURL {
			return card, nil
		}
	}
	return types.Card{}, store.ErrNotFound
}

func (r *fakeCardRepo) GetForOwner(_ context.Context, id, ownerID int64) (types.Card, error) {
	card, ok := r.cards[id]
	if !ok || card.UserID != ownerID {
		return types.Card{}, store.ErrNotFound
	}
	return card, nil
}

func (r *fakeCardRepo) Update(_ context.Context, id, ownerID int64, patch types.CardPatch) (types.Card, error) {
	card, ok := r.cards[id]
	if !ok || card.UserID != ownerID {
		return types.Card{}, store.ErrNotFound
	}

	if patch.Name.Set && patch.Name.Value != nil {
		card.Name = *patch.Name.Value
	}
	apply := func(dst **string, opt types.Optional[string]) {
		if opt.Set {
			*dst = opt.Value
		}
	}
	apply(&card.Title, patch.Title)
	apply(&card.Company, patch.Company)
	apply(&card.Email, patch.Email)
	apply(&card.PhoneNumber, patch.PhoneNumber)
	apply(&card.LinkedinURL, patch.LinkedinURL)
	apply(&card.TwitterURL, patch.TwitterURL)
	apply(&card.InstagramURL, patch.InstagramURL)
	apply(&card.ProfilePictureURL, patch.ProfilePictureURL)
	apply(&card.CompanyLogoURL, patch.CompanyLogoURL)

	card.UpdatedAt = time.Now()
	r.cards[id] = card
	return card, nil
}

func (r *fakeCardRepo) Delete(_ context.Context, id, ownerID int64) (bool, error) {
	card, ok := r.cards[id]
	if !ok || card.UserID != ownerID {
		return false, nil
	}
	delete(r.cards, id)
	return true, nil
}

func (r *fakeCardRepo) SetQRCode(_ context.Context, id, ownerID int64, qrCodeURL string) (types.Card, error) {
	card, ok := r.cards[id]
	if !ok || card.UserID != ownerID {
		return types.Card{}, store.ErrNotFound
	}
	card.QRCodeURL = &qrCodeURL
	card.UpdatedAt = time.Now()
	r.cards[id] = card
	return card, nil
}

// recordingBackend captures published messages for assertions.
type recordingBackend struct {
	published []publishedMessage
}

type publishedMessage struct {
	channel string
	data    []byte
	attrs   map[string]string
}

func (b *recordingBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	b.published = append(b.published, publishedMessage{channel: channel, data: data, attrs: attrs})
	return "msg-id", nil
}

func (b *recordingBackend) Close() error {
	return nil
}
