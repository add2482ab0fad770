// Package middleware provides HTTP middleware for the bridge.
//
// Go Pattern: Middleware in Go is a function that wraps an HTTP handler.
// In Gin, middleware is a gin.HandlerFunc that calls c.Next() to continue
// the chain, or c.Abort() to stop processing. This is similar to Express.js
// middleware, but with explicit control flow.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/session"
)

// contextKey is a custom type for context keys to avoid collisions.
// Go Pattern: Use unexported types for context keys so other packages
// can't accidentally overwrite your values.
type contextKey string

const documentContextKey contextKey = "document_id"

// SessionAuth returns middleware that validates the bridge session token.
//
// How it works:
// 1. Read the Bearer token from the Authorization header
// 2. Verify its signature and expiry
// 3. Bind the request context to the document the token was issued for
//
// The comparison with the open document happens inside each session call,
// on the event loop, so a selection cannot land between the check and the
// operation. A token for a replaced or closed document gets 409
// document_changed from the handler.
func SessionAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "Missing or invalid Authorization header. Use 'Bearer <token>' from POST /api/v1/session/document",
				Code:    http.StatusUnauthorized,
			})
			c.Abort() // Stop the middleware chain — don't call the handler
			return
		}

		claims, err := ParseSessionToken(strings.TrimPrefix(authHeader, "Bearer "), secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired session token",
				Code:    http.StatusUnauthorized,
			})
			c.Abort()
			return
		}

		// Go Pattern: Gin uses its own context (different from context.Context).
		// c.Set() stores values that handlers can retrieve with c.Get(), while
		// the session reads its binding from the request's context.Context.
		c.Set(string(documentContextKey), claims.DocumentID)
		c.Request = c.Request.WithContext(session.ExpectDocument(c.Request.Context(), claims.DocumentID))
		c.Next()
	}
}

// GetDocumentID retrieves the verified document fingerprint from the request
// context. Call this in handlers after SessionAuth has run.
func GetDocumentID(c *gin.Context) string {
	val, exists := c.Get(string(documentContextKey))
	if !exists {
		return ""
	}
	// Go Pattern: The comma-ok idiom won't panic on a wrong type.
	id, ok := val.(string)
	if !ok {
		return ""
	}
	return id
}
