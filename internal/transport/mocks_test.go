package transport

import (
	"context"
	"errors"
	"sort"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/realtime"
	"storefront/internal/repository"
)

type mockProductRepository struct {
	mu       sync.Mutex
	products map[string]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[string]*domain.Product)}
}

func (m *mockProductRepository) Create(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepository) Update(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	cp.Variants = append([]domain.Variant(nil), p.Variants...)
	return &cp, nil
}

func (m *mockProductRepository) List(_ context.Context, f repository.ProductFilter) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Product
	for _, p := range m.products {
		if f.PublishedOnly && !p.IsPublished {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

type mockCategoryRepository struct {
	repository.CategoryRepository
}

func (mockCategoryRepository) List(context.Context) ([]*domain.Category, error) { return nil, nil }

type mockBannerRepository struct {
	repository.BannerRepository
}

func (mockBannerRepository) List(context.Context, bool) ([]*domain.Banner, error) { return nil, nil }

type mockAddressRepository struct {
	mu        sync.Mutex
	addresses []*domain.Address
}

func (m *mockAddressRepository) Create(_ context.Context, a *domain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	first := true
	for _, existing := range m.addresses {
		if existing.UserID == a.UserID {
			first = false
		}
	}
	if first {
		a.IsDefault = true
	} else if a.IsDefault {
		m.clearDefault(a.UserID)
	}
	cp := *a
	m.addresses = append(m.addresses, &cp)
	return nil
}

func (m *mockAddressRepository) Update(_ context.Context, a *domain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.addresses {
		if existing.ID == a.ID && existing.UserID == a.UserID {
			if a.IsDefault {
				m.clearDefault(a.UserID)
			}
			cp := *a
			m.addresses[i] = &cp
			return nil
		}
	}
	return repository.ErrAddressNotFound
}

func (m *mockAddressRepository) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.addresses {
		if a.ID == id && a.UserID == userID {
			m.addresses = append(m.addresses[:i], m.addresses[i+1:]...)
			return nil
		}
	}
	return repository.ErrAddressNotFound
}

func (m *mockAddressRepository) FindByID(_ context.Context, userID, id string) (*domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.addresses {
		if a.ID == id && a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAddressNotFound
}

func (m *mockAddressRepository) ListByUser(_ context.Context, userID string) ([]*domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Address
	for _, a := range m.addresses {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockAddressRepository) SetDefault(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.addresses {
		if a.ID == id && a.UserID == userID {
			m.clearDefault(userID)
			a.IsDefault = true
			return nil
		}
	}
	return repository.ErrAddressNotFound
}

func (m *mockAddressRepository) clearDefault(userID string) {
	for _, a := range m.addresses {
		if a.UserID == userID {
			a.IsDefault = false
		}
	}
}

// mockOrderRepository reserves stock against the product mock, all or nothing.
type mockOrderRepository struct {
	mu       sync.Mutex
	products *mockProductRepository
	orders   []*domain.Order
}

func (m *mockOrderRepository) Create(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products.mu.Lock()
	defer m.products.mu.Unlock()

	staged := make(map[string]*domain.Product)
	for _, it := range o.Items {
		p, ok := staged[it.ProductID]
		if !ok {
			live, found := m.products.products[it.ProductID]
			if !found {
				return repository.ErrProductNotFound
			}
			cp := *live
			cp.Variants = append([]domain.Variant(nil), live.Variants...)
			p = &cp
			staged[it.ProductID] = p
		}
		if err := p.ReserveStock(it.Size, it.Color, it.Quantity); err != nil {
			return err
		}
	}
	for id, p := range staged {
		m.products.products[id] = p
	}
	m.orders = append(m.orders, o.Clone())
	return nil
}

func (m *mockOrderRepository) FindByID(_ context.Context, userID, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id && o.UserID == userID {
			return o.Clone(), nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}

func (m *mockOrderRepository) ListAll(_ context.Context) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o.Clone())
	}
	return out, nil
}

func (m *mockOrderRepository) UpdateStatus(_ context.Context, userID, id string, to domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id && o.UserID == userID {
			if err := domain.ValidateTransition(o.Status, to); err != nil {
				return err
			}
			o.Status = to
			return nil
		}
	}
	return repository.ErrOrderNotFound
}

// mockFeed never reports changes; streams only see their initial snapshot. A
// topic listed in lose reports the subscription as lost right after subscribing.
type mockFeed struct {
	lose map[realtime.Topic]bool
}

func (f mockFeed) Subscribe(_ context.Context, topic realtime.Topic, _ func(), onLost func(error)) (realtime.Unsubscribe, error) {
	if f.lose[topic] && onLost != nil {
		go onLost(errors.New("listener reset"))
	}
	return func() {}, nil
}
