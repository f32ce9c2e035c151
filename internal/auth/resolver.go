package auth

import (
	"context"
	"errors"
	"strings"
)

// IdentityResolver turns a bearer access token into the user it was
// issued for.
type IdentityResolver struct {
	store  UserStore
	tokens *TokenCodec
}

func NewIdentityResolver(store UserStore, tokens *TokenCodec) *IdentityResolver {
	return &IdentityResolver{store: store, tokens: tokens}
}

// Resolve reports a bad token and a token for a deleted user identically.
// The wrapped cause tells them apart in logs.
func (r *IdentityResolver) Resolve(ctx context.Context, bearer string) (User, error) {
	claims, err := r.tokens.Decode(TokenAccess, strings.TrimSpace(bearer))
	if err != nil {
		return User{}, unauthorized(MsgInvalidCredentials, err)
	}

	user, err := r.store.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, unauthorized(MsgInvalidCredentials, err)
		}
		return User{}, internalError(err)
	}

	if !user.Confirmed {
		return User{}, unauthorized(MsgEmailNotConfirmed, nil)
	}

	return user, nil
}
