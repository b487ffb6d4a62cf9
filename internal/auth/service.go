package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultTokenTTL: expired sessions require a re-login, there is no refresh
const DefaultTokenTTL = time.Hour

var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and verifies signed bearer tokens carrying a user id.
// It is a pure function of the signing key and the clock, it never touches
// the document store.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	// ability to inject the clock (for unit testing expiry)
	NowFunc func() time.Time
}

func NewTokenService(signingKey []byte, ttl time.Duration) *TokenService {
	return &TokenService{
		signingKey: signingKey,
		ttl:        ttl,
		NowFunc:    time.Now,
	}
}

func (s *TokenService) Issue(userID primitive.ObjectID) (string, error) {
	now := s.NowFunc()
	claims := jwt.RegisteredClaims{
		Subject:   userID.Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signedToken, nil
}

// Verify returns the user id embedded in the token, or ErrInvalidToken on a
// bad signature, malformed payload, wrong algorithm or passed expiry.
func (s *TokenService) Verify(tokenString string) (primitive.ObjectID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.NowFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return primitive.NilObjectID, ErrInvalidToken
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidToken
	}

	return userID, nil
}
