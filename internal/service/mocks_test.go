package service

import (
	"context"
	"sort"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/realtime"
	"storefront/internal/repository"
)

type mockProductRepository struct {
	products map[string]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[string]*domain.Product)}
}

func (m *mockProductRepository) Create(_ context.Context, p *domain.Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepository) Update(_ context.Context, p *domain.Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (m *mockProductRepository) List(_ context.Context, f repository.ProductFilter) ([]*domain.Product, int, error) {
	var out []*domain.Product
	for _, p := range m.products {
		if f.Category == "" || p.Category == f.Category {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

type mockCategoryRepository struct {
	categories map[string]*domain.Category
}

func (m *mockCategoryRepository) Create(_ context.Context, c *domain.Category) error {
	for _, existing := range m.categories {
		if existing.Name == c.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	m.categories[c.ID] = c
	return nil
}

func (m *mockCategoryRepository) Update(_ context.Context, c *domain.Category) error {
	m.categories[c.ID] = c
	return nil
}

func (m *mockCategoryRepository) Delete(_ context.Context, id string) error {
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepository) FindByID(_ context.Context, id string) (*domain.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return c, nil
}

func (m *mockCategoryRepository) List(context.Context) ([]*domain.Category, error) {
	var out []*domain.Category
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out, nil
}

type mockBannerRepository struct {
	banners []*domain.Banner
}

func (m *mockBannerRepository) Create(_ context.Context, b *domain.Banner) error {
	m.banners = append(m.banners, b)
	return nil
}

func (m *mockBannerRepository) Update(context.Context, *domain.Banner) error { return nil }
func (m *mockBannerRepository) Delete(context.Context, string) error         { return nil }

func (m *mockBannerRepository) FindByID(_ context.Context, id string) (*domain.Banner, error) {
	for _, b := range m.banners {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, repository.ErrBannerNotFound
}

func (m *mockBannerRepository) List(_ context.Context, activeOnly bool) ([]*domain.Banner, error) {
	var out []*domain.Banner
	for _, b := range m.banners {
		if !activeOnly || b.IsActive {
			out = append(out, b)
		}
	}
	return out, nil
}

type mockAddressRepository struct {
	addresses []*domain.Address
}

func (m *mockAddressRepository) Create(_ context.Context, a *domain.Address) error {
	if !m.hasAny(a.UserID) {
		a.IsDefault = true
	} else if a.IsDefault {
		m.clearDefaults(a.UserID)
	}
	m.addresses = append(m.addresses, a)
	return nil
}

func (m *mockAddressRepository) hasAny(userID string) bool {
	for _, a := range m.addresses {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

func (m *mockAddressRepository) Update(_ context.Context, a *domain.Address) error {
	for i, existing := range m.addresses {
		if existing.ID == a.ID && existing.UserID == a.UserID {
			if a.IsDefault {
				m.clearDefaults(a.UserID)
			}
			m.addresses[i] = a
			return nil
		}
	}
	return repository.ErrAddressNotFound
}

func (m *mockAddressRepository) Delete(_ context.Context, userID, id string) error {
	for i, a := range m.addresses {
		if a.ID == id && a.UserID == userID {
			m.addresses = append(m.addresses[:i], m.addresses[i+1:]...)
			return nil
		}
	}
	return repository.ErrAddressNotFound
}

func (m *mockAddressRepository) FindByID(_ context.Context, userID, id string) (*domain.Address, error) {
	for _, a := range m.addresses {
		if a.ID == id && a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAddressNotFound
}

func (m *mockAddressRepository) ListByUser(_ context.Context, userID string) ([]*domain.Address, error) {
	var out []*domain.Address
	for _, a := range m.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsDefault && !out[j].IsDefault })
	return out, nil
}

func (m *mockAddressRepository) SetDefault(ctx context.Context, userID, id string) error {
	if _, err := m.FindByID(ctx, userID, id); err != nil {
		return err
	}
	for _, a := range m.addresses {
		if a.UserID == userID {
			a.IsDefault = a.ID == id
		}
	}
	return nil
}

func (m *mockAddressRepository) clearDefaults(userID string) {
	for _, a := range m.addresses {
		if a.UserID == userID {
			a.IsDefault = false
		}
	}
}

type mockOrderRepository struct {
	orders []*domain.Order
}

func (m *mockOrderRepository) Create(_ context.Context, o *domain.Order) error {
	m.orders = append(m.orders, o)
	return nil
}

func (m *mockOrderRepository) FindByID(_ context.Context, userID, id string) (*domain.Order, error) {
	for _, o := range m.orders {
		if o.ID == id && o.UserID == userID {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) ListAll(context.Context) ([]*domain.Order, error) {
	return m.orders, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, userID, id string, status domain.OrderStatus) error {
	o, err := m.FindByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := domain.ValidateTransition(o.Status, status); err != nil {
		return err
	}
	o.Status = status
	return nil
}

// mockFeed fires onChange callbacks synchronously when notify is called.
type mockFeed struct {
	mu   sync.Mutex
	subs map[realtime.Topic][]func()
}

func newMockFeed() *mockFeed {
	return &mockFeed{subs: make(map[realtime.Topic][]func())}
}

func (f *mockFeed) Subscribe(_ context.Context, topic realtime.Topic, onChange func(), _ func(error)) (realtime.Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[topic] = append(f.subs[topic], onChange)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, topic)
	}, nil
}

func (f *mockFeed) notify(topic realtime.Topic) {
	f.mu.Lock()
	subs := append([]func(){}, f.subs[topic]...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
