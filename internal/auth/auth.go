// Package auth provides middleware and helpers for JWT-based sessions.
// A session cookie carries two identities: the authenticated user id (set on
// login or registration) and the anonymous visitor id (minted on the first
// dereference). Tokens are read from the Authorization header or the cookie.
package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/t5krishn/tinyapp/internal/idgen"
	"github.com/t5krishn/tinyapp/internal/logger"
	"github.com/t5krishn/tinyapp/internal/user"
)

type userKeeper interface {
	GetUserByID(ctx context.Context, userID string) (*user.User, bool, error)
}

// Auth handles session parsing, issuing and clearing.
type Auth struct {
	db userKeeper

	// gen mints anonymous visitor ids.
	gen idgen.Generator

	// authCookieName is the name of the cookie used to store the JWT.
	authCookieName string

	// authCookieSigningSecretKey is the key used to sign JWTs.
	authCookieSigningSecretKey []byte
}

// Claims represents the JWT claims used by the system.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id,omitempty"`
	VisitorID string `json:"visitor_id,omitempty"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key holding the authenticated user's id.
const UserIDKey ContextKey = "userID"

// VisitorIDKey is the context key holding the anonymous visitor id.
const VisitorIDKey ContextKey = "visitorID"

// New creates an Auth handler.
func New(
	db userKeeper,
	gen idgen.Generator,
	authCookieName string,
	authCookieSigningSecretKey []byte,
) *Auth {
	return &Auth{
		db:                         db,
		gen:                        gen,
		authCookieName:             authCookieName,
		authCookieSigningSecretKey: authCookieSigningSecretKey,
	}
}

// UserIDFromContext returns the authenticated user id, or "" for
// anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// VisitorIDFromContext returns the anonymous visitor id, or "" when the
// session carries none yet.
func VisitorIDFromContext(ctx context.Context) string {
	visitorID, _ := ctx.Value(VisitorIDKey).(string)
	return visitorID
}

// Sessions is an HTTP middleware that parses the session token and loads both
// identities into the request context. Requests without a valid token pass
// through as anonymous.
func (a *Auth) Sessions(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		claims := a.parseToken(a.tokenStringFromRequest(request))

		ctx := request.Context()

		if claims.UserID != "" {
			_, found, err := a.db.GetUserByID(ctx, claims.UserID)
			if err != nil {
				logger.Log.Debugln("Error calling the `a.db.GetUserByID()`: ", zap.Error(err))
				response.WriteHeader(http.StatusInternalServerError)
				return
			}
			// A session naming a vanished user downgrades to anonymous.
			if found {
				ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			}
		}

		if claims.VisitorID != "" {
			ctx = context.WithValue(ctx, VisitorIDKey, claims.VisitorID)
		}

		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// RequireUser is an HTTP middleware that rejects requests without an
// authenticated user before any resource is looked up.
func (a *Auth) RequireUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if UserIDFromContext(request.Context()) == "" {
			response.Header().Set("Content-Type", "application/json")
			response.WriteHeader(http.StatusUnauthorized)
			_, _ = response.Write([]byte(`{"error":"authentication required"}`))
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// EnsureVisitor is an HTTP middleware that mints an anonymous visitor id when
// the session has none and persists it in a re-issued session cookie. The
// authenticated user identity, if any, is preserved.
func (a *Auth) EnsureVisitor(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if VisitorIDFromContext(request.Context()) != "" {
			h.ServeHTTP(response, request)
			return
		}

		visitorID := a.gen.Generate()
		if err := a.IssueSession(response, UserIDFromContext(request.Context()), visitorID); err != nil {
			logger.Log.Debugln("Error calling the `a.IssueSession()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(request.Context(), VisitorIDKey, visitorID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// IssueSession signs a token carrying both identities and sets it as the
// session cookie and the Authorization header.
func (a *Auth) IssueSession(response http.ResponseWriter, userID, visitorID string) error {
	JWTString, err := a.buildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: uuid.NewString()},
		UserID:           userID,
		VisitorID:        visitorID,
	})
	if err != nil {
		return err
	}

	response.Header().Set("Authorization", JWTString)

	http.SetCookie(
		response,
		&http.Cookie{
			Name:  a.authCookieName,
			Value: JWTString,
			Path:  "/",
		},
	)

	return nil
}

// ClearSession drops the whole session, both identities included.
func (a *Auth) ClearSession(response http.ResponseWriter) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:   a.authCookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		},
	)
}

func (a *Auth) tokenStringFromRequest(request *http.Request) string {
	tokenString := request.Header.Get("Authorization")
	if tokenString != "" {
		return tokenString
	}
	cookie, err := request.Cookie(a.authCookieName)
	if err == nil {
		tokenString = cookie.Value
	}

	return tokenString
}

func (a *Auth) parseToken(tokenString string) *Claims {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.authCookieSigningSecretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return &Claims{}
	}

	return claims
}

func (a *Auth) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.authCookieSigningSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
