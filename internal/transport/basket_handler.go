package transport

import (
	"errors"
	"net/http"

	"lightning-pos/internal/domain"
	"lightning-pos/internal/middleware"
	"lightning-pos/internal/store"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AddToBasketRequest represents an add-to-basket payload
type AddToBasketRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

// UpdateQuantityRequest represents a set-quantity payload. A quantity of
// zero or below removes the entry.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// BasketResponse represents the basket contents plus the running total
type BasketResponse struct {
	Entries []domain.BasketEntry `json:"entries"`
	Total   int64                `json:"total"`
}

// BasketHandler handles HTTP requests for the basket
type BasketHandler struct {
	basket  *store.BasketStore
	catalog *store.CatalogStore
	logger  *zap.Logger
}

// NewBasketHandler creates a new BasketHandler
func NewBasketHandler(basket *store.BasketStore, catalog *store.CatalogStore, logger *zap.Logger) *BasketHandler {
	return &BasketHandler{
		basket:  basket,
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers basket routes
func (h *BasketHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/basket", func(r chi.Router) {
		r.Get("/", h.GetBasket)
		r.Post("/", h.AddToBasket)
		r.Put("/{id}", h.UpdateQuantity)
		r.Delete("/", h.ClearBasket)
	})
}

// GetBasket returns the basket entries and their total
func (h *BasketHandler) GetBasket(w http.ResponseWriter, r *http.Request) {
	entries, err := h.basket.Get(r.Context())
	if err != nil {
		h.logger.Error("Failed to read basket", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to read basket")
		return
	}

	total, err := h.basket.Total(r.Context())
	if err != nil {
		h.logger.Error("Failed to total basket", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to total basket")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, BasketResponse{Entries: entries, Total: total})
}

// AddToBasket snapshots the referenced catalog item into the basket. The
// snapshot keeps the item's current name and price; later catalog edits do
// not touch it.
func (h *BasketHandler) AddToBasket(w http.ResponseWriter, r *http.Request) {
	var req AddToBasketRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add to basket validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.findItem(r, req.ItemID)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.Error("Failed to look up item", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to read catalog")
		return
	}

	if err := h.basket.Add(r.Context(), item, req.Quantity); err != nil {
		h.logger.Error("Failed to add to basket", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add to basket")
		return
	}

	h.GetBasket(w, r)
}

// UpdateQuantity sets an entry's quantity; zero or below removes it
func (h *BasketHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.basket.UpdateQuantity(r.Context(), id, req.Quantity); err != nil {
		h.logger.Error("Failed to update basket quantity", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update basket")
		return
	}

	h.GetBasket(w, r)
}

// ClearBasket empties the basket
func (h *BasketHandler) ClearBasket(w http.ResponseWriter, r *http.Request) {
	if err := h.basket.Clear(r.Context()); err != nil {
		h.logger.Error("Failed to clear basket", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to clear basket")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *BasketHandler) findItem(r *http.Request, id string) (domain.Item, error) {
	items, err := h.catalog.ListItems(r.Context())
	if err != nil {
		return domain.Item{}, err
	}
	for _, item := range items {
		if item.ID == id {
			return item, nil
		}
	}
	return domain.Item{}, domain.ErrItemNotFound
}
