package services

import (
	"context"
	"errors"
	"strings"

	"github.com/webcrawler/backend/internal/models"
	"github.com/webcrawler/backend/internal/utils"
)

// AccessTokenFinder is the part of TokenStore the guard depends on.
type AccessTokenFinder interface {
	FindLiveByAccessToken(ctx context.Context, token string, principalID uint) (*models.Token, error)
}

// AuthGuard verifies access tokens on protected requests.
type AuthGuard struct {
	codec *utils.TokenCodec
	store AccessTokenFinder
}

func NewAuthGuard(codec *utils.TokenCodec, store AccessTokenFinder) *AuthGuard {
	return &AuthGuard{codec: codec, store: store}
}

// Authenticate returns the principal of a valid, live access token. Every
// rejection matches ErrUnauthenticated; any other error is a store failure.
func (g *AuthGuard) Authenticate(ctx context.Context, token string) (Principal, error) {
	const op = "authenticate"

	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, &SessionError{Op: op, Reason: utils.ErrMalformed}
	}

	claims, err := g.codec.Decode(token)
	if err != nil {
		return Principal{}, &SessionError{Op: op, Reason: err}
	}
	if claims.Type != utils.TokenTypeAccess {
		return Principal{}, &SessionError{Op: op, Reason: ErrWrongTokenType}
	}

	if _, err := g.store.FindLiveByAccessToken(ctx, token, claims.UserID); err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return Principal{}, &SessionError{Op: op, Reason: ErrSuperseded}
		}
		return Principal{}, err
	}

	return Principal{UserID: claims.UserID, IsAdmin: claims.IsAdmin}, nil
}
