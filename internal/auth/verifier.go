package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ThanhXT2002/api-insurance-sub001/internal"
)

// Claims is the shape of the external provider's access token payload. The
// subject is the provider's opaque user id; email is used for first-login
// account linking.
type Claims struct {
	Email    string         `json:"email"`
	Name     string         `json:"name,omitempty"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates provider tokens locally against the shared HS256
// secret. This is the single verification strategy: no remote introspection
// call and no alternate secret encodings.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (*VerifiedIdentity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken.WithCause(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, internal.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, internal.ErrInvalidToken
	}

	return &VerifiedIdentity{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		Metadata:  claims.Metadata,
	}, nil
}
