package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/ilumina-session/internal/config"
	ierrors "github.com/jrsteele09/ilumina-session/internal/errors"
	"github.com/jrsteele09/ilumina-session/users"
)

const Issuer = "ilumina-dev"

// Claims carried by an ILUMINA access token.
type Claims struct {
	Email string         `json:"email"`
	Role  users.RoleType `json:"role"`
	jwt.RegisteredClaims
}

// AccessToken is a freshly signed token and its expiry.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

type IssuerOption func(*AccessIssuer)

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *AccessIssuer) {
		i.nowFunc = now
	}
}

// AccessIssuer creates and verifies access tokens
type AccessIssuer struct {
	signer  Signer
	config  config.TokenConfig
	nowFunc func() time.Time
}

func NewAccessIssuer(signer Signer, cfg config.TokenConfig, options ...IssuerOption) *AccessIssuer {
	i := &AccessIssuer{
		signer:  signer,
		config:  cfg,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// Issue signs an access token for user.
func (i *AccessIssuer) Issue(user *users.User) (*AccessToken, error) {
	now := i.nowFunc()
	exp := now.Add(i.config.GetDefaultAccessTokenExpiry())

	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(),
		},
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return nil, err
	}
	return &AccessToken{Token: signed, ExpiresAt: exp.Truncate(time.Second)}, nil
}

// Verify parses rawToken and returns its claims when the signature and
// expiry check out.
func (i *AccessIssuer) Verify(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ierrors.ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(rawToken, claims, i.signer.GetVerificationKey,
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(i.nowFunc),
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ierrors.ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ierrors.ErrInvalidToken, err)
	case !parsed.Valid:
		return nil, ierrors.ErrInvalidToken
	}
	return claims, nil
}
