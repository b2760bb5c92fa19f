// Package authenticator declares the session middleware set the router
// consumes, so handler tests can substitute a pass-through implementation.
package authenticator

import "net/http"

// Authenticator is the session surface required by the router.
type Authenticator interface {
	Sessions(h http.Handler) http.Handler
	RequireUser(h http.Handler) http.Handler
	EnsureVisitor(h http.Handler) http.Handler
	IssueSession(response http.ResponseWriter, userID, visitorID string) error
	ClearSession(response http.ResponseWriter)
}
