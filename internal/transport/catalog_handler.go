package transport

import (
	"net/http"
	"strconv"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxPageSize = 100

// VariantRequest is one variant in a product write
type VariantRequest struct {
	Size          string          `json:"size"`
	Color         string          `json:"color"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Stock         int             `json:"stock" validate:"gte=0"`
	SKU           string          `json:"sku"`
	CartonSize    int             `json:"carton_size" validate:"gte=0"`
}

// ProductRequest represents the product create/update payload
type ProductRequest struct {
	Title        string           `json:"title" validate:"required,max=200"`
	Brand        string           `json:"brand"`
	Category     string           `json:"category"`
	Description  string           `json:"description"`
	Media        []string         `json:"media" validate:"dive,url"`
	Variants     []VariantRequest `json:"variants" validate:"dive"`
	Price        decimal.Decimal  `json:"price"`
	IsNew        bool             `json:"is_new"`
	IsBestseller bool             `json:"is_bestseller"`
	IsFeatured   bool             `json:"is_featured"`
	IsPublished  bool             `json:"is_published"`
}

func (req ProductRequest) toDomain(id string) *domain.Product {
	p := &domain.Product{
		ID:           id,
		Title:        req.Title,
		Brand:        req.Brand,
		Category:     req.Category,
		Description:  req.Description,
		Media:        req.Media,
		Price:        req.Price,
		IsNew:        req.IsNew,
		IsBestseller: req.IsBestseller,
		IsFeatured:   req.IsFeatured,
		IsPublished:  req.IsPublished,
	}
	for _, v := range req.Variants {
		p.Variants = append(p.Variants, domain.Variant{
			Size:          v.Size,
			Color:         v.Color,
			Price:         v.Price,
			OriginalPrice: v.OriginalPrice,
			Stock:         v.Stock,
			SKU:           v.SKU,
			CartonSize:    v.CartonSize,
		})
	}
	return p
}

// CategoryRequest represents the category create/update payload
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	Position    int    `json:"position" validate:"gte=0"`
}

// BannerRequest represents the banner create/update payload
type BannerRequest struct {
	Title    string `json:"title" validate:"required"`
	ImageURL string `json:"image_url" validate:"required,url"`
	Link     string `json:"link"`
	Position int    `json:"position" validate:"gte=0"`
	IsActive bool   `json:"is_active"`
}

// ProductPage is a page of a product listing
type ProductPage struct {
	Products []*domain.Product `json:"products"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// CatalogHandler serves products, categories and banners
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers the storefront catalog routes and the admin write routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Get("/api/products", h.ListProducts)
	r.Get("/api/products/{id}", h.GetProduct)
	r.Get("/api/categories", h.ListCategories)
	r.Get("/api/banners", h.ListBanners)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, adminMiddleware)

		r.Get("/api/admin/products", h.ListAllProducts)
		r.Post("/api/admin/products", h.CreateProduct)
		r.Put("/api/admin/products/{id}", h.UpdateProduct)
		r.Delete("/api/admin/products/{id}", h.DeleteProduct)

		r.Post("/api/admin/categories", h.CreateCategory)
		r.Put("/api/admin/categories/{id}", h.UpdateCategory)
		r.Delete("/api/admin/categories/{id}", h.DeleteCategory)

		r.Get("/api/admin/banners", h.ListAllBanners)
		r.Post("/api/admin/banners", h.CreateBanner)
		r.Put("/api/admin/banners/{id}", h.UpdateBanner)
		r.Delete("/api/admin/banners/{id}", h.DeleteBanner)
	})
}

// ListProducts lists published products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := productFilter(r)
	filter.PublishedOnly = true
	h.listProducts(w, r, filter)
}

// ListAllProducts lists every product, drafts included
func (h *CatalogHandler) ListAllProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, productFilter(r))
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request, filter repository.ProductFilter) {
	products, total, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, ProductPage{
		Products: products,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

func productFilter(r *http.Request) repository.ProductFilter {
	q := r.URL.Query()
	filter := repository.ProductFilter{
		Category:     q.Get("category"),
		Search:       q.Get("q"),
		FeaturedOnly: q.Get("featured") == "true",
		Limit:        20,
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		filter.Limit = min(n, maxPageSize)
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		filter.Offset = n
	}
	return filter
}

// GetProduct returns a published product with the selected variant resolved
// from the size and color query parameters.
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	display, err := h.catalog.ProductDisplay(r.Context(), chi.URLParam(r, "id"), q.Get("size"), q.Get("color"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if !display.Product.IsPublished {
		respondError(w, h.logger, repository.ErrProductNotFound)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, display)
}

// CreateProduct handles product creation
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	product := req.toDomain(uuid.NewString())
	if err := h.catalog.CreateProduct(r.Context(), product); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.logger.Info("Product created", zap.String("product_id", product.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// UpdateProduct replaces a product
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	product := req.toDomain(chi.URLParam(r, "id"))
	if err := h.catalog.UpdateProduct(r.Context(), product); err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// DeleteProduct handles product deletion
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories lists categories by position
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if categories == nil {
		categories = []*domain.Category{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	category := req.toDomain(uuid.NewString())
	if err := h.catalog.CreateCategory(r.Context(), category); err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	category := req.toDomain(chi.URLParam(r, "id"))
	if err := h.catalog.UpdateCategory(r.Context(), category); err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req CategoryRequest) toDomain(id string) *domain.Category {
	return &domain.Category{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Position:    req.Position,
	}
}

// ListBanners lists the active banners shown on the home screen
func (h *CatalogHandler) ListBanners(w http.ResponseWriter, r *http.Request) {
	h.listBanners(w, r, true)
}

func (h *CatalogHandler) ListAllBanners(w http.ResponseWriter, r *http.Request) {
	h.listBanners(w, r, false)
}

func (h *CatalogHandler) listBanners(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	banners, err := h.catalog.ListBanners(r.Context(), activeOnly)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if banners == nil {
		banners = []*domain.Banner{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, banners)
}

func (h *CatalogHandler) CreateBanner(w http.ResponseWriter, r *http.Request) {
	var req BannerRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	banner := req.toDomain(uuid.NewString())
	if err := h.catalog.CreateBanner(r.Context(), banner); err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, banner)
}

func (h *CatalogHandler) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	var req BannerRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	banner := req.toDomain(chi.URLParam(r, "id"))
	if err := h.catalog.UpdateBanner(r.Context(), banner); err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, banner)
}

func (h *CatalogHandler) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteBanner(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req BannerRequest) toDomain(id string) *domain.Banner {
	return &domain.Banner{
		ID:       id,
		Title:    req.Title,
		ImageURL: req.ImageURL,
		Link:     req.Link,
		Position: req.Position,
		IsActive: req.IsActive,
	}
}

// decodeRequest writes the error response itself and reports whether the
// handler should continue.
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *zap.Logger, dst interface{}) bool {
	if err := middleware.DecodeAndValidate(r, dst); err != nil {
		logger.Debug("Request validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return false
	}
	return true
}
