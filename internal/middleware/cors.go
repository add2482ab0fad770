// cors.go configures Cross-Origin Resource Sharing (CORS).
//
// CORS is needed because the extension UI runs on a chrome-extension:// (or
// moz-extension://) origin and the bridge on http://127.0.0.1. Without CORS
// headers, browsers block the extension from calling the bridge.
package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ExtensionOrigins match any installed extension's pages.
var ExtensionOrigins = []string{"chrome-extension://*", "moz-extension://*"}

// CORS returns configured CORS middleware. Browser-extension origins are
// always accepted; allowedOrigins adds development servers.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	origins := append(append([]string{}, ExtensionOrigins...), allowedOrigins...)
	return cors.New(cors.Config{
		AllowOrigins:           origins,
		AllowWildcard:          true,
		AllowBrowserExtensions: true,
		AllowMethods:           []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:           []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:          []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Content-Length", "Content-Disposition", "X-Page-Index", "X-Page-Scale"},
		AllowCredentials:       false,
		MaxAge:                 12 * time.Hour, // Cache preflight responses
	})
}
