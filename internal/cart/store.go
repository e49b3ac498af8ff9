package cart

import (
	"sync"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// Store holds one session's cart lines and favorites. Nothing is persisted; the
// contents live as long as the process.
type Store struct {
	mu        sync.RWMutex
	items     []domain.CartItem
	favorites []string
}

// NewStore creates an empty cart
func NewStore() *Store {
	return &Store{}
}

// AddToCart merges into an existing line with the same (product, size, color) key
// or appends a new line holding a snapshot of product. No stock check is made.
func (s *Store) AddToCart(product *domain.Product, size, color string, qty int) {
	if qty < 1 {
		qty = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].SameLine(product.ID, size, color) {
			s.items[i].Quantity += qty
			return
		}
	}

	s.items = append(s.items, domain.CartItem{
		Product:       domain.NewProductSnapshot(product),
		SelectedSize:  size,
		SelectedColor: color,
		Quantity:      qty,
	})
}

// RemoveFromCart drops the matching line; absent keys are a no-op.
func (s *Store) RemoveFromCart(productID, size, color string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0]
	for _, it := range s.items {
		if !it.SameLine(productID, size, color) {
			kept = append(kept, it)
		}
	}
	s.items = kept
}

// UpdateCartQuantity sets the quantity of the matching line as given. Callers
// remove the line instead of passing 0. Returns false if the line is absent.
func (s *Store) UpdateCartQuantity(productID, size, color string, qty int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].SameLine(productID, size, color) {
			s.items[i].Quantity = qty
			return true
		}
	}
	return false
}

// Deduct takes ordered quantities out of the matching lines and drops lines
// that reach zero. Lines added or raised after the order was priced keep the
// difference.
func (s *Store) Deduct(ordered []domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range ordered {
		for i := range s.items {
			if s.items[i].SameLine(o.Product.ID, o.SelectedSize, o.SelectedColor) {
				s.items[i].Quantity -= o.Quantity
				break
			}
		}
	}
	kept := s.items[:0]
	for _, it := range s.items {
		if it.Quantity > 0 {
			kept = append(kept, it)
		}
	}
	s.items = kept
}

// ClearCart empties the cart.
func (s *Store) ClearCart() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

// Item returns a copy of the matching line.
func (s *Store) Item(productID, size, color string) (domain.CartItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, it := range s.items {
		if it.SameLine(productID, size, color) {
			return it.Clone(), true
		}
	}
	return domain.CartItem{}, false
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CartItem, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items) == 0
}

// CartTotal sums unit price times quantity over all lines, using the snapshot each
// line was added with.
func (s *Store) CartTotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// CartItemsCount is the number of distinct lines, not units.
func (s *Store) CartItemsCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// ToggleFavorite adds or removes productID and reports whether it is now a favorite.
func (s *Store) ToggleFavorite(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range s.favorites {
		if id == productID {
			s.favorites = append(s.favorites[:i], s.favorites[i+1:]...)
			return false
		}
	}
	s.favorites = append(s.favorites, productID)
	return true
}

// IsFavorite reports whether productID is a favorite.
func (s *Store) IsFavorite(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.favorites {
		if id == productID {
			return true
		}
	}
	return false
}

// Favorites returns a copy of the favorite ids in the order they were added.
func (s *Store) Favorites() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.favorites))
	copy(out, s.favorites)
	return out
}
