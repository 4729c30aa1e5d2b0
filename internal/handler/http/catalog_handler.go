package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"storefront/internal/catalog"
)

type CatalogHandler struct {
	service catalog.Service
}

func NewCatalogHandler(service catalog.Service) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Get("/products", h.handleListProducts)
	router.Get("/products/{id}", h.handleGetProduct)
	router.Get("/categories", h.handleMenuCategories)
}

func (h *CatalogHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	categorySlug := r.URL.Query().Get("category")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	products, err := h.service.ListProducts(r.Context(), categorySlug, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list products")
		respondWithError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	respondWithJSON(w, http.StatusOK, products)
}

type ProductDetailResponse struct {
	Product *catalog.Product       `json:"product"`
	Images  []catalog.ProductImage `json:"images"`
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Error().Err(err).Msg("Failed to get product")
		respondWithError(w, http.StatusInternalServerError, "Failed to get product")
		return
	}

	images, err := h.service.GetProductImages(r.Context(), product.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load product images")
		images = nil
	}

	respondWithJSON(w, http.StatusOK, ProductDetailResponse{Product: product, Images: images})
}

func (h *CatalogHandler) handleMenuCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.MenuCategories(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list categories")
		respondWithError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}

	respondWithJSON(w, http.StatusOK, categories)
}
