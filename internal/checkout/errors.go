package checkout

import "errors"

var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrAddressRequired       = errors.New("delivery address is required")
	ErrAddressNotFound       = errors.New("delivery address not found")
	ErrPaymentMethodRequired = errors.New("payment method is required")
	ErrInvalidPaymentMethod  = errors.New("unsupported payment method")
	ErrGatewayUnavailable    = errors.New("could not create payment order")
	ErrPaymentFailed         = errors.New("payment was not completed")
	ErrPlaceOrderFailed      = errors.New("failed to place order")
	ErrSessionNotFound       = errors.New("checkout session not found")
	ErrCheckoutInProgress    = errors.New("checkout is already being processed")
	ErrSessionClosed         = errors.New("checkout session is closed")
)

// IsValidation reports whether err was raised before any side effect.
func IsValidation(err error) bool {
	for _, target := range []error{ErrEmptyCart, ErrAddressRequired, ErrAddressNotFound, ErrPaymentMethodRequired, ErrInvalidPaymentMethod} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
