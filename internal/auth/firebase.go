package auth

import (
	"context"
	"fmt"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseVerifier validates Firebase ID tokens. Admins carry either an
// admin: true custom claim or role: "admin".
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	if v == nil || v.client == nil {
		return Identity{}, fmt.Errorf("%w: firebase auth is not configured", ErrInvalidToken)
	}
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		if fbauth.IsIDTokenExpired(err) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return identityFromClaims(token.UID, token.Claims), nil
}

func identityFromClaims(uid string, claims map[string]interface{}) Identity {
	id := Identity{UserID: uid, Role: RoleCustomer}
	id.Email, _ = claims["email"].(string)
	id.DisplayName, _ = claims["name"].(string)
	if admin, _ := claims["admin"].(bool); admin {
		id.Role = RoleAdmin
	}
	if role, _ := claims["role"].(string); role == string(RoleAdmin) {
		id.Role = RoleAdmin
	}
	return id
}

var _ Verifier = (*FirebaseVerifier)(nil)
