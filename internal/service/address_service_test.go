package service

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/realtime"

	"go.uber.org/zap"
)

func validAddress(name string) *domain.Address {
	return &domain.Address{Type: domain.AddressHome, Name: name, Address: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001", Phone: "98200"}
}

func TestFirstAddressBecomesDefault(t *testing.T) {
	repo := &mockAddressRepository{}
	svc := NewAddressService(repo, newMockFeed(), zap.NewNop())
	ctx := context.Background()

	first := validAddress("Home")
	if err := svc.Create(ctx, "u1", first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !first.IsDefault || first.ID == "" || first.UserID != "u1" {
		t.Errorf("first address = %+v", first)
	}

	second := validAddress("Office")
	if err := svc.Create(ctx, "u1", second); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if second.IsDefault {
		t.Error("second address became default")
	}

	other := validAddress("Elsewhere")
	if err := svc.Create(ctx, "u2", other); err != nil || !other.IsDefault {
		t.Errorf("other user's first address = %+v, %v", other, err)
	}
}

func TestAddressValidation(t *testing.T) {
	svc := NewAddressService(&mockAddressRepository{}, newMockFeed(), zap.NewNop())

	bad := validAddress("Home")
	bad.Type = "villa"
	if err := svc.Create(context.Background(), "u1", bad); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("bad type error = %v", err)
	}

	missing := validAddress("Home")
	missing.Pincode = " "
	if err := svc.Create(context.Background(), "u1", missing); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("missing pincode error = %v", err)
	}

	untyped := validAddress("Home")
	untyped.Type = ""
	if err := svc.Create(context.Background(), "u1", untyped); err != nil || untyped.Type != domain.AddressHome {
		t.Errorf("untyped address = %q, %v", untyped.Type, err)
	}
}

func TestDeletingDefaultPromotesAnother(t *testing.T) {
	repo := &mockAddressRepository{}
	svc := NewAddressService(repo, newMockFeed(), zap.NewNop())
	ctx := context.Background()

	home, work := validAddress("Home"), validAddress("Work")
	svc.Create(ctx, "u1", home)
	svc.Create(ctx, "u1", work)

	if err := svc.Delete(ctx, "u1", home.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	list, _ := svc.List(ctx, "u1")
	if len(list) != 1 || !list[0].IsDefault {
		t.Errorf("remaining addresses = %+v", list)
	}
}

func TestUpdateKeepsDefaultFlag(t *testing.T) {
	repo := &mockAddressRepository{}
	svc := NewAddressService(repo, newMockFeed(), zap.NewNop())
	ctx := context.Background()

	home := validAddress("Home")
	svc.Create(ctx, "u1", home)

	edit := validAddress("Home (new)")
	edit.ID = home.ID
	if err := svc.Update(ctx, "u1", edit); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !edit.IsDefault {
		t.Error("update cleared the only default")
	}

	if err := svc.Update(ctx, "u2", edit); err == nil {
		t.Error("another user updated the address")
	}
}

func TestWatchAddressesRedeliversOnChange(t *testing.T) {
	repo := &mockAddressRepository{}
	feed := newMockFeed()
	svc := NewAddressService(repo, feed, zap.NewNop())
	ctx := context.Background()

	var snapshots [][]*domain.Address
	unsubscribe, err := svc.Watch(ctx, "u1", func(list []*domain.Address, err error) {
		if err != nil {
			t.Errorf("deliver error = %v", err)
		}
		snapshots = append(snapshots, list)
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer unsubscribe()

	svc.Create(ctx, "u1", validAddress("Home"))
	feed.notify(realtime.AddressesTopic("u1"))

	if len(snapshots) != 2 || len(snapshots[0]) != 0 || len(snapshots[1]) != 1 {
		t.Errorf("snapshots = %v", snapshots)
	}
}
