package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/cardlink/apiserver/config"
	"github.com/cardlink/apiserver/internal/auth"
	"github.com/cardlink/apiserver/internal/services"
	"github.com/cardlink/apiserver/internal/storage"
	"github.com/cardlink/apiserver/internal/store"
	"github.com/cardlink/apiserver/types"
)

// testEnv wires real services over in-memory backends behind the same
// routing the server uses.
type testEnv struct {
	router   http.Handler
	userRepo *memUserRepo
	cardRepo *memCardRepo
	objects  *memObjectStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		userRepo: &memUserRepo{users: map[int64]types.User{}},
		cardRepo: &memCardRepo{cards: map[int64]types.Card{}},
		objects:  &memObjectStorage{objects: map[string]memObject{}},
	}

	authService := services.NewAuthService(
		env.userRepo,
		auth.NewBcryptHasher(),
		auth.NewTokenCodec("test-signing-secret"),
		time.Hour,
	)
	qr := config.QRConfig{ServiceURL: "https://api.qrserver.com/v1/create-qr-code/", Size: "200x200"}
	cardService := services.NewCardService(env.cardRepo, "https://cardlink.example.com", qr, nil)

	authHandler := NewAuthHandler(authService)

	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Route("/auth", func(r chi.Router) {
		AuthRouter(r, authService)
	})
	r.Route("/cards", func(r chi.Router) {
		CardRouter(r, cardService, authHandler.RequireAuth)
	})
	r.Route("/uploads", func(r chi.Router) {
		UploadRouter(r, storage.NewStorage(env.objects), authHandler.RequireAuth)
	})

	env.router = r
	return env
}

// do executes a request against the router and returns the recorder.
func (env *testEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(v)
	default:
		payload, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// signup registers an account and returns a session token.
func (env *testEnv) signup(t *testing.T, email, password string) string {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/auth/signup", "", SignupRequest{Email: email, Password: password})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/auth/signin", "", SigninRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[TokenResponse](t, rec).Token
}

// createCard stores a card through the API and returns it.
func (env *testEnv) createCard(t *testing.T, token, name string) types.Card {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/cards/", token, map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[types.Card](t, rec)
}

// multipartImage builds a multipart body with one image part.
func multipartImage(t *testing.T, filename, contentType string, data []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

// memUserRepo is an in-memory services.UserRepository.
type memUserRepo struct {
	nextID int64
	users  map[int64]types.User
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUserRepo) Create(_ context.Context, email, passwordHash string) (types.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return types.User{}, store.ErrEmailTaken
		}
	}
	r.nextID++
	now := time.Now()
	user := types.User{ID: r.nextID, Email: email, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	r.users[user.ID] = user
	return user, nil
}

// memCardRepo is an in-memory services.CardRepository with the same
// owner-filter semantics as the SQL implementation.
type memCardRepo struct {
	nextID int64
	cards  map[int64]types.Card
}

func (r *memCardRepo) Create(_ context.Context, ownerID int64, draft types.CardDraft, uniqueURL string) (types.Card, error) {
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

func (r *memCardRepo) ListByOwner(_ context.Context, ownerID int64) ([]types.Card, error) {
	cards := []types.Card{}
	for _, card := range r.cards {
		if card.UserID == ownerID {
			cards = append(cards, card)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards, nil
}

func (r *memCardRepo) GetByID(_ context.Context, id int64) (types.Card, error) {
	card, ok := r.cards[id]
	if !ok {
		return types.Card{}, store.ErrNotFound
	}
	return card, nil
}

func (r *memCardRepo) GetByUniqueURL(_ context.Context, uniqueURL string) (types.Card, error) {
	for _, card := range r.cards {
		if card.UniqueURL == uniqueURL {
			return card, nil
		}
	}
	return types.Card{}, store.ErrNotFound
}

func (r *memCardRepo) GetForOwner(_ context.Context, id, ownerID int64) (types.Card, error) {
	card, ok := r.cards[id]
	if !ok || card.UserID != ownerID {
		return types.Card{}, store.ErrNotFound
	}
	return card, nil
}

func (r *memCardRepo) Update(_ context.Context, id, ownerID int64, patch types.CardPatch) (types.Card, error) {
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

func (r *memCardRepo) Delete(_ context.Context, id, ownerID int64) (bool, error) {
	card, ok := r.cards[id]
	if !ok || card.UserID != ownerID {
		return false, nil
	}
	delete(r.cards, id)
	return true, nil
}

func (r *memCardRepo) SetQRCode(_ context.Context, id, ownerID int64, qrCodeURL string) (types.Card, error) {
	card, ok := r.cards[id]
	if !ok || card.UserID != ownerID {
		return types.Card{}, store.ErrNotFound
	}
	card.QRCodeURL = &qrCodeURL
	card.UpdatedAt = time.Now()
	r.cards[id] = card
	return card, nil
}

// memObjectStorage is an in-memory storage.ObjectStorage.
type memObject struct {
	data        []byte
	contentType string
}

type memObjectStorage struct {
	objects map[string]memObject
}

func (s *memObjectStorage) EnsureBucket(context.Context) error {
	return nil
}

func (s *memObjectStorage) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = memObject{data: data, contentType: contentType}
	return nil
}

func (s *memObjectStorage) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

func (s *memObjectStorage) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *memObjectStorage) Bucket() string {
	return "test-bucket"
}
