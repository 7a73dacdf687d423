package auth

import (
	"chatrooms/errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const Issuer = "chatrooms"

// Resolver turns a bearer credential into an identity.
type Resolver interface {
	Resolve(credential string) (string, error)
}

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTResolver validates HS256 tokens issued for this backend. Minting is only
// used by tooling and tests; the identity provider itself is external.
type JWTResolver struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

func NewJWTResolver(secret string, duration time.Duration) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), duration: duration, now: time.Now}
}

// GenerateToken creates a signed JWT for a specific user.
func (r *JWTResolver) GenerateToken(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("%w: user id is empty", errors.ErrValidation)
	}
	now := r.now()
	claims := &CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(r.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   userID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// Resolve parses and validates the signature, issuer and expiration of a JWT
// string. A "Bearer " prefix is accepted. Every failure is an ErrAuth.
func (r *JWTResolver) Resolve(credential string) (string, error) {
	tokenString := strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
	if tokenString == "" {
		return "", errors.ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{},
		func(token *jwt.Token) (any, error) {
			return r.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: invalid or expired token: %v", errors.ErrAuth, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("%w: token carries no user", errors.ErrAuth)
	}
	return claims.UserID, nil
}
