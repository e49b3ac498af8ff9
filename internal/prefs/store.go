package prefs

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/nacl/secretbox"
)

var ErrUndecryptable = errors.New("stored preferences could not be decrypted")

const nonceSize = 24

// Preferences is the small per-user state the app restores at start.
type Preferences struct {
	OnboardingCompleted bool   `json:"onboarding_completed"`
	SkipLogin           bool   `json:"skip_login"`
	LastLocationID      string `json:"last_location_id,omitempty"`
}

// Store keeps preferences in Redis, sealed with secretbox under a key derived
// from the configured secret.
type Store struct {
	client *redis.Client
	key    [32]byte
}

func NewStore(client *redis.Client, secret string) *Store {
	return &Store{client: client, key: sha256.Sum256([]byte(secret))}
}

func key(userID string) string { return "prefs:" + userID }

// Get returns the user's preferences, or the zero value when none were saved.
func (s *Store) Get(ctx context.Context, userID string) (Preferences, error) {
	raw, err := s.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Preferences{}, nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to read preferences: %w", err)
	}

	if len(raw) < nonceSize+secretbox.Overhead {
		return Preferences{}, ErrUndecryptable
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return Preferences{}, ErrUndecryptable
	}

	var p Preferences
	if err := json.Unmarshal(plain, &p); err != nil {
		return Preferences{}, fmt.Errorf("failed to decode preferences: %w", err)
	}
	return p, nil
}

// Save replaces the user's preferences.
func (s *Store) Save(ctx context.Context, userID string, p Preferences) error {
	plain, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &s.key)

	if err := s.client.Set(ctx, key(userID), sealed, 0).Err(); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
