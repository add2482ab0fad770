// jwt.go issues and verifies bridge session tokens.
//
// A token is handed out when a document is selected and names that document
// by fingerprint. It carries no user identity: the bridge has exactly one
// user, the extension page that launched it.
package middleware

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
)

// SessionTokenTTL bounds how long a token stays valid.
const SessionTokenTTL = 12 * time.Hour

// SessionClaims extends standard JWT claims with the document binding.
type SessionClaims struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	jwt.RegisteredClaims
}

// GenerateSessionToken creates a token bound to doc.
func GenerateSessionToken(doc *models.Document, secret string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		DocumentID:   doc.Fingerprint,
		DocumentName: doc.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   doc.Fingerprint,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken validates and parses a token string.
func ParseSessionToken(tokenString, secret string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims.DocumentID == "" {
		return nil, fmt.Errorf("%w: token is not bound to a document", jwt.ErrTokenInvalidClaims)
	}
	return claims, nil
}
