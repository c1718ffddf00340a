package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/ahinestrog/mybookstore-cart/internal/domain"
	"github.com/ahinestrog/mybookstore-cart/internal/identity"
	"github.com/ahinestrog/mybookstore-cart/internal/service"
)

const maxBodyBytes = 1 << 20

type CartService interface {
	AddItem(ctx context.Context, userID string, bookID int64, qty int) (int, error)
	RemoveItem(ctx context.Context, userID string, bookID int64) (int, error)
	ClearCart(ctx context.Context, userID string) error
	GetUserCart(ctx context.Context, userID string) (*domain.CartDetails, error)
	GetCartItemCount(ctx context.Context, userID string) (int, error)
}

type CartHandler struct {
	svc      CartService
	identity identity.Resolver
}

func NewCartHandler(svc CartService, res identity.Resolver) *CartHandler {
	return &CartHandler{svc: svc, identity: res}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.GetUserCart(r.Context(), h.identity.Resolve(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toCartView(cart))
}

func (h *CartHandler) GetCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.GetCartItemCount(r.Context(), h.identity.Resolve(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, countResponse{ItemCount: n})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := h.identity.Resolve(r)
	if userID == "" {
		respondServiceError(w, r, service.ErrUnauthenticated)
		return
	}

	var req addItemRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	n, err := h.svc.AddItem(r.Context(), userID, req.BookID, qty)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, countResponse{ItemCount: n})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := h.identity.Resolve(r)
	if userID == "" {
		respondServiceError(w, r, service.ErrUnauthenticated)
		return
	}

	bookID, err := strconv.ParseInt(chi.URLParam(r, "book_id"), 10, 64)
	if err != nil || bookID <= 0 {
		respondError(w, r, http.StatusBadRequest, "invalid_book_id", "book_id must be a positive integer")
		return
	}

	n, err := h.svc.RemoveItem(r.Context(), userID, bookID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, countResponse{ItemCount: n})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearCart(r.Context(), h.identity.Resolve(r)); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, countResponse{ItemCount: 0})
}

func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		respondError(w, r, http.StatusUnauthorized, "unauthenticated", "login required")
	case errors.Is(err, service.ErrInvalidArgument):
		respondError(w, r, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		hlog.FromRequest(r).Error().Err(err).Msg("cart read failed")
		respondError(w, r, http.StatusServiceUnavailable, "unavailable", "cart is temporarily unavailable")
	case errors.Is(err, service.ErrOperationFailed):
		respondError(w, r, http.StatusConflict, "operation_failed", "cart was not changed, please retry")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("unexpected cart error")
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, errorResponse{Error: message, Code: code})
}
