// Package authtoken issues the bearer tokens API clients use in place of the
// browser session cookie.
package authtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "courtside"

var (
	ErrExpiredToken = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
)

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for userID that expires after the issuer's TTL.
func (i *Issuer) Issue(userID uuid.UUID) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	claims := &jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Validate returns the user a token was issued for. Every failure is an
// apperr unauthorized error wrapping ErrExpiredToken or ErrInvalidToken.
func (i *Issuer) Validate(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, i.key,
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, unauthorized(ErrExpiredToken)
		}
		return uuid.Nil, unauthorized(ErrInvalidToken)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return uuid.Nil, unauthorized(ErrInvalidToken)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, unauthorized(ErrInvalidToken)
	}
	return id, nil
}

func (i *Issuer) key(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return i.secret, nil
}

func unauthorized(err error) error {
	return &apperr.Error{Kind: apperr.ErrUnauthorized, Message: "Unauthorized", Err: err}
}
