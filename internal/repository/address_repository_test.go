package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/realtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newAddress(userID string, isDefault bool) *domain.Address {
	return &domain.Address{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      domain.AddressHome,
		Name:      "Asha",
		Address:   "12 MG Road",
		City:      "Pune",
		State:     "MH",
		Pincode:   "411001",
		Phone:     "98200",
		IsDefault: isDefault,
	}
}

func defaults(t *testing.T, repo AddressRepository, userID string) []string {
	t.Helper()
	list, err := repo.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	var ids []string
	for _, a := range list {
		if a.IsDefault {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func TestAddressDefaultIsExclusive(t *testing.T) {
	pub := &recordingPublisher{}
	repo := NewAddressRepository(testDB, pub, zap.NewNop())
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	home := newAddress(userID, true)
	work := newAddress(userID, false)
	work.Type = domain.AddressWork
	for _, a := range []*domain.Address{home, work} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if !pub.saw(realtime.AddressesTopic(userID)) {
		t.Error("Create() did not announce an addresses change")
	}

	if err := repo.SetDefault(ctx, userID, work.ID); err != nil {
		t.Fatalf("SetDefault() error = %v", err)
	}
	if got := defaults(t, repo, userID); len(got) != 1 || got[0] != work.ID {
		t.Errorf("defaults after SetDefault = %v, want [%s]", got, work.ID)
	}

	home.IsDefault = true
	home.City = "Mumbai"
	if err := repo.Update(ctx, home); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := defaults(t, repo, userID); len(got) != 1 || got[0] != home.ID {
		t.Errorf("defaults after Update = %v, want [%s]", got, home.ID)
	}

	third := newAddress(userID, true)
	if err := repo.Create(ctx, third); err != nil {
		t.Fatalf("Create(default) error = %v", err)
	}
	if got := defaults(t, repo, userID); len(got) != 1 || got[0] != third.ID {
		t.Errorf("defaults after Create = %v, want [%s]", got, third.ID)
	}

	list, _ := repo.ListByUser(ctx, userID)
	if list[0].ID != third.ID {
		t.Error("default address is not listed first")
	}
}

func TestAddressOwnership(t *testing.T) {
	repo := NewAddressRepository(testDB, realtime.NopPublisher(), zap.NewNop())
	ctx := context.Background()
	owner, stranger := "user-"+uuid.NewString(), "user-"+uuid.NewString()

	address := newAddress(owner, false)
	if err := repo.Create(ctx, address); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := repo.FindByID(ctx, stranger, address.ID); !errors.Is(err, ErrAddressNotFound) {
		t.Errorf("FindByID(stranger) error = %v", err)
	}
	if err := repo.SetDefault(ctx, stranger, address.ID); !errors.Is(err, ErrAddressNotFound) {
		t.Errorf("SetDefault(stranger) error = %v", err)
	}
	if err := repo.Delete(ctx, stranger, address.ID); !errors.Is(err, ErrAddressNotFound) {
		t.Errorf("Delete(stranger) error = %v", err)
	}

	if err := repo.Delete(ctx, owner, address.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.FindByID(ctx, owner, address.ID); !errors.Is(err, ErrAddressNotFound) {
		t.Errorf("address still present after delete: %v", err)
	}
}

func TestConcurrentFirstAddressesYieldOneDefault(t *testing.T) {
	repo := NewAddressRepository(testDB, realtime.NopPublisher(), zap.NewNop())
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	const n = 6
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Create(ctx, newAddress(userID, false))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	if got := defaults(t, repo, userID); len(got) != 1 {
		t.Errorf("defaults = %v, want exactly one", got)
	}
}
