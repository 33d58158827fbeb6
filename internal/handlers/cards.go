package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/cardlink/apiserver/internal/services"
	"github.com/cardlink/apiserver/types"
)

// CardHandler provides HTTP handlers for business cards.
type CardHandler struct {
	cardService *services.CardService
}

// NewCardHandler constructs a handler with the provided service.
func NewCardHandler(cardService *services.CardService) *CardHandler {
	return &CardHandler{cardService: cardService}
}

// CardRouter registers card routes on the given router. Reads by id and
// by public slug are unauthenticated; everything else requires a token.
func CardRouter(r chi.Router, cardService *services.CardService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewCardHandler(cardService)

	r.With(authMiddleware).Post("/", handler.CreateCard)
	r.With(authMiddleware).Get("/", handler.ListCards)
	r.Get("/url/{uniqueURL}", handler.GetCardByUniqueURL)
	r.Route("/{cardID}", func(r chi.Router) {
		r.Get("/", handler.GetCard)
		r.With(authMiddleware).Put("/", handler.UpdateCard)
		r.With(authMiddleware).Delete("/", handler.DeleteCard)
		r.With(authMiddleware).Post("/qr", handler.GenerateQR)
	})
}

// CreateCard stores a new card owned by the caller.
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	ownerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var draft types.CardDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	card, err := h.cardService.Create(r.Context(), ownerID, draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, card)
}

// ListCards returns all cards owned by the caller.
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	ownerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cards, err := h.cardService.ListByOwner(r.Context(), ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list cards")
		return
	}

	writeJSON(w, http.StatusOK, CardListResponse{Items: cards})
}

// GetCard fetches a card by id. Public path, no token required.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	id, err := parseCardID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	card, err := h.cardService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// GetCardByUniqueURL fetches a card by its public slug. This is the
// share-link path and never checks ownership.
func (h *CardHandler) GetCardByUniqueURL(w http.ResponseWriter, r *http.Request) {
	uniqueURL := strings.TrimSpace(chi.URLParam(r, "uniqueURL"))
	if uniqueURL == "" {
		writeError(w, http.StatusBadRequest, "invalid unique url")
		return
	}

	card, err := h.cardService.GetByUniqueURL(r.Context(), uniqueURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// UpdateCard applies a partial update to a card owned by the caller.
// Fields missing from the body are left unchanged; explicit nulls clear.
func (h *CardHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	ownerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseCardID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch types.CardPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	card, err := h.cardService.Update(r.Context(), id, ownerID, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// DeleteCard removes a card owned by the caller. The response mirrors
// the repository contract: success=false for a missing or foreign card,
// never a distinct error.
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	ownerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseCardID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := h.cardService.Delete(r.Context(), id, ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete card")
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: deleted})
}

// GenerateQR computes and stores the QR image URL for a card owned by
// the caller.
func (h *CardHandler) GenerateQR(w http.ResponseWriter, r *http.Request) {
	ownerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseCardID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	card, err := h.cardService.GenerateQR(r.Context(), id, ownerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// CardListResponse is the owner listing payload.
type CardListResponse struct {
	Items []types.Card `json:"items"`
}

func parseCardID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "cardID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid card id")
	}
	return id, nil
}
