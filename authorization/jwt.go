package authorization

import (
	"errors"
	"fmt"
	"time"

	"MamaCare/role"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the verified caller carried by a bearer token.
type Identity struct {
	UID           string            `json:"uid"`
	Email         string            `json:"email"`
	Name          string            `json:"name"`
	EmailVerified bool              `json:"emailVerified"`
	Role          role.Role         `json:"role"`
	Permissions   []role.Permission `json:"permissions"`
	// TokenVersion is the user's token version when the token was issued.
	TokenVersion int64     `json:"-"`
	IssuedAt     time.Time `json:"-"`
}

func (id Identity) Can(p role.Permission) bool {
	return role.Has(id.Permissions, p)
}

type Claims struct {
	jwt.RegisteredClaims
	UID           string   `json:"uid"`
	Email         string   `json:"email"`
	Name          string   `json:"name"`
	EmailVerified bool     `json:"email_verified"`
	Role          string   `json:"role"`
	Permissions   []string `json:"permissions"`
	Version       int64    `json:"ver"`
}

var ErrInvalidToken = errors.New("invalid token")

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (i *Issuer) GenerateJWT(id Identity) (string, time.Time, error) {
	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   id.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:           id.UID,
		Email:         id.Email,
		Name:          id.Name,
		EmailVerified: id.EmailVerified,
		Role:          string(id.Role),
		Permissions:   role.Strings(id.Permissions),
		Version:       id.TokenVersion,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

func (i *Issuer) ParseJWT(tokenString string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UID == "" || claims.UID != claims.Subject {
		return Identity{}, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}
	id := Identity{
		UID:           claims.UID,
		Email:         claims.Email,
		Name:          claims.Name,
		EmailVerified: claims.EmailVerified,
		Role:          role.Parse(claims.Role),
		Permissions:   role.FromStrings(claims.Permissions),
		TokenVersion:  claims.Version,
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	return id, nil
}
