package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errCartItemNotFound = errors.New("cart item not found")

// CartItemRequest identifies a cart line and the quantity wanted for it
type CartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=99"`
}

// CartLine is a cart item with its resolved prices
type CartLine struct {
	domain.CartItem
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView is the cart as the cart screen shows it
type CartView struct {
	Items []CartLine      `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

func viewCart(store *cart.Store) CartView {
	items := store.Items()
	view := CartView{Items: make([]CartLine, 0, len(items)), Total: store.CartTotal(), Count: store.CartItemsCount()}
	for _, it := range items {
		view.Items = append(view.Items, CartLine{CartItem: it, UnitPrice: it.UnitPrice(), LineTotal: it.LineTotal()})
	}
	return view
}

// CartHandler serves the session cart and favorites of the caller
type CartHandler struct {
	carts   *cart.Registry
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts *cart.Registry, catalog service.CatalogService, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, catalog: catalog, logger: logger}
}

// RegisterRoutes registers the cart and favorites routes
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/api/cart", h.GetCart)
		r.Delete("/api/cart", h.ClearCart)
		r.Post("/api/cart/items", h.AddItem)
		r.Patch("/api/cart/items", h.UpdateItem)
		r.Delete("/api/cart/items", h.RemoveItem)

		r.Get("/api/favorites", h.ListFavorites)
		r.Post("/api/favorites/{productID}", h.ToggleFavorite)
	})
}

func (h *CartHandler) store(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	id, err := identity(r)
	if err != nil {
		respondActionError(w, h.logger, err)
		return nil, false
	}
	return h.carts.For(id.UserID), true
}

// GetCart returns the caller's cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, viewCart(store))
}

// AddItem adds quantity units of a product selection. The resulting line may not
// exceed the stock of the selected variant.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var req CartItemRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	qty := max(req.Quantity, 1)

	product, err := h.purchasable(r.Context(), req.ProductID)
	if err != nil {
		respondActionError(w, h.logger, err)
		return
	}

	held := 0
	if it, found := store.Item(req.ProductID, req.Size, req.Color); found {
		held = it.Quantity
	}
	if err := checkStock(product, req.Size, req.Color, held+qty); err != nil {
		respondActionError(w, h.logger, err)
		return
	}

	store.AddToCart(product, req.Size, req.Color, qty)
	respondAction(w, viewCart(store))
}

// purchasable loads a product that may be added to or raised in a cart. Drafts
// read as not found.
func (h *CartHandler) purchasable(ctx context.Context, id string) (*domain.Product, error) {
	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsPublished {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

// UpdateItem sets the quantity of a line; zero removes it. Lowering a line never
// needs the product, so a line whose product went back to draft can still shrink.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var req CartItemRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	current, found := store.Item(req.ProductID, req.Size, req.Color)
	if !found {
		respondActionError(w, h.logger, errCartItemNotFound)
		return
	}
	if req.Quantity == 0 {
		store.RemoveFromCart(req.ProductID, req.Size, req.Color)
		respondAction(w, viewCart(store))
		return
	}
	if req.Quantity > current.Quantity {
		product, err := h.purchasable(r.Context(), req.ProductID)
		if err != nil {
			respondActionError(w, h.logger, err)
			return
		}
		if err := checkStock(product, req.Size, req.Color, req.Quantity); err != nil {
			respondActionError(w, h.logger, err)
			return
		}
	}

	store.UpdateCartQuantity(req.ProductID, req.Size, req.Color, req.Quantity)
	respondAction(w, viewCart(store))
}

// RemoveItem drops the line named by the product_id, size and color query parameters
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("product_id") == "" {
		respondActionError(w, h.logger, fmt.Errorf("%w: product_id is required", middleware.ErrMalformedBody))
		return
	}
	store.RemoveFromCart(q.Get("product_id"), q.Get("size"), q.Get("color"))
	respondAction(w, viewCart(store))
}

// ClearCart empties the cart and keeps the favorites
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	store.ClearCart()
	respondAction(w, viewCart(store))
}

// ListFavorites returns the favorite product ids
func (h *CartHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string][]string{"favorites": store.Favorites()})
}

// ToggleFavorite flips the favorite flag of a product
func (h *CartHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	productID := chi.URLParam(r, "productID")
	favorite := store.ToggleFavorite(productID)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": productID,
		"favorite":   favorite,
	})
}

// checkStock fails when want units of the selection exceed its stock. Products
// without variants are not stock-tracked.
func checkStock(p *domain.Product, size, color string, want int) error {
	v, ok := domain.ResolveVariant(p, size, color)
	if !ok {
		return domain.ErrVariantNotFound
	}
	if v.StockTracked() && want > v.Stock {
		return fmt.Errorf("%d of %q available: %w", v.Stock, p.Title, domain.ErrInsufficientStock)
	}
	return nil
}
