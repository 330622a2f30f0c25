package transport

import (
	"errors"
	"net/http"

	"lightning-pos/internal/domain"
	"lightning-pos/internal/middleware"
	"lightning-pos/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ItemRequest represents an item create/update payload
type ItemRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required"`
	Price       int64  `json:"price" validate:"gte=0"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	CategoryID  string `json:"category_id"`
}

// CategoryRequest represents a category create/update payload
type CategoryRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// CatalogHandler handles HTTP requests for items and categories
type CatalogHandler struct {
	catalog *store.CatalogStore
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog *store.CatalogStore, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers catalog routes. Reads are public; mutations sit
// behind the operator auth middleware.
func (h *CatalogHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/items", func(r chi.Router) {
		r.Get("/", h.ListItems)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.CreateItem)
			r.Put("/{id}", h.UpdateItem)
			r.Delete("/{id}", h.DeleteItem)
		})
	})

	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.CreateCategory)
			r.Put("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})
	})
}

// ListItems returns all catalog items
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListItems(r.Context())
	if err != nil {
		h.logger.Error("Failed to list items", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, items)
}

// CreateItem creates a new catalog item, minting an identifier when the
// payload omits one
func (h *CatalogHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.respondDecodeError(w, err)
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	item := req.toDomain()
	if err := h.catalog.UpsertItem(r.Context(), item); err != nil {
		h.logger.Error("Failed to create item", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, item)
}

// UpdateItem replaces the item at the path identifier
func (h *CatalogHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.respondDecodeError(w, err)
		return
	}

	req.ID = chi.URLParam(r, "id")

	item := req.toDomain()
	if err := h.catalog.UpsertItem(r.Context(), item); err != nil {
		if errors.Is(err, store.ErrEmptyID) {
			middleware.RespondWithError(w, http.StatusBadRequest, "item id is required")
			return
		}
		h.logger.Error("Failed to update item", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, item)
}

// DeleteItem removes an item from the catalog
func (h *CatalogHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.catalog.DeleteItem(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete item", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListCategories returns all categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// CreateCategory creates a new category
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.respondDecodeError(w, err)
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	category := domain.Category{ID: req.ID, Name: req.Name, Color: req.Color}
	if err := h.catalog.UpsertCategory(r.Context(), category); err != nil {
		h.logger.Error("Failed to create category", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

// UpdateCategory replaces the category at the path identifier
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.respondDecodeError(w, err)
		return
	}

	category := domain.Category{ID: chi.URLParam(r, "id"), Name: req.Name, Color: req.Color}
	if err := h.catalog.UpsertCategory(r.Context(), category); err != nil {
		if errors.Is(err, store.ErrEmptyID) {
			middleware.RespondWithError(w, http.StatusBadRequest, "category id is required")
			return
		}
		h.logger.Error("Failed to update category", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// DeleteCategory removes a category and nulls the category reference on
// items that pointed at it
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete category", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) respondDecodeError(w http.ResponseWriter, err error) {
	h.logger.Debug("Request validation failed", zap.Error(err))

	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}

	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
}

func (r ItemRequest) toDomain() domain.Item {
	return domain.Item{
		ID:          r.ID,
		Name:        r.Name,
		Price:       r.Price,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		CategoryID:  r.CategoryID,
	}
}
