package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrCancelled        = errors.New("payment cancelled")
	ErrFailed           = errors.New("payment failed")
	ErrIncomplete       = errors.New("payment result is incomplete")
	ErrOrderMismatch    = errors.New("payment belongs to a different gateway order")
	ErrInvalidSignature = errors.New("payment signature is invalid")
)

type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Options are the parameters the client payment sheet is opened with.
type Options struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	OrderID     string  `json:"order_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Prefill     Prefill `json:"prefill"`
	ThemeColor  string  `json:"theme_color,omitempty"`
}

// Result is what a successful payment reports back.
type Result struct {
	PaymentID      string `json:"payment_id" validate:"required"`
	Signature      string `json:"signature" validate:"required"`
	GatewayOrderID string `json:"order_id" validate:"required"`
}

// Complete reports whether every field of the result is present.
func (r Result) Complete() bool {
	return r.PaymentID != "" && r.Signature != "" && r.GatewayOrderID != ""
}

// Collaborator runs the interactive payment for a gateway order.
type Collaborator interface {
	Open(ctx context.Context, opts Options) (Result, error)
}

// CollaboratorFunc adapts a function to Collaborator.
type CollaboratorFunc func(ctx context.Context, opts Options) (Result, error)

func (f CollaboratorFunc) Open(ctx context.Context, opts Options) (Result, error) {
	return f(ctx, opts)
}

// Report is the outcome the mobile client's payment sheet handed back.
type Report struct {
	Result
	Cancelled bool   `json:"cancelled"`
	Error     string `json:"error,omitempty"`
}

// Reported is a Collaborator that replays an outcome the client already
// collected, for the two-step HTTP checkout.
func Reported(rep Report) Collaborator {
	return CollaboratorFunc(func(context.Context, Options) (Result, error) {
		switch {
		case rep.Cancelled:
			return Result{}, ErrCancelled
		case rep.Error != "":
			return Result{}, fmt.Errorf("%w: %s", ErrFailed, rep.Error)
		}
		return rep.Result, nil
	})
}

// Verifier checks payment signatures issued by the gateway.
type Verifier struct {
	secret []byte
}

func NewVerifier(keySecret string) *Verifier {
	return &Verifier{secret: []byte(keySecret)}
}

// Sign returns the hex HMAC-SHA256 of "gatewayOrderID|paymentID".
func (v *Verifier) Sign(gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify accepts r only if it is complete, belongs to gatewayOrderID and
// carries a valid signature.
func (v *Verifier) Verify(gatewayOrderID string, r Result) error {
	if !r.Complete() {
		return ErrIncomplete
	}
	if r.GatewayOrderID != gatewayOrderID {
		return fmt.Errorf("%w: got %s, want %s", ErrOrderMismatch, r.GatewayOrderID, gatewayOrderID)
	}
	want := v.Sign(r.GatewayOrderID, r.PaymentID)
	if !hmac.Equal([]byte(want), []byte(r.Signature)) {
		return ErrInvalidSignature
	}
	return nil
}
