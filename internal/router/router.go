// Package router assembles the chi mux and the HTTP handlers of the JSON
// API. Handlers decode and validate payloads, call the service and translate
// its sentinel errors to statuses; all invariants live in the service.
package router

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/t5krishn/tinyapp/internal/auth"
	"github.com/t5krishn/tinyapp/internal/authenticator"
	"github.com/t5krishn/tinyapp/internal/gzippedhttp"
	"github.com/t5krishn/tinyapp/internal/ipchecker"
	"github.com/t5krishn/tinyapp/internal/logger"
	"github.com/t5krishn/tinyapp/internal/models"
	"github.com/t5krishn/tinyapp/internal/service"
)

var validate = validator.New()

// Router bundles the handlers with their collaborators.
type Router struct {
	service *service.Service
	auth    authenticator.Authenticator
}

// New assembles the full HTTP handler: logging, gzip, session parsing and
// the endpoint table.
func New(
	theService *service.Service,
	theAuth authenticator.Authenticator,
	ipChecker *ipchecker.IPChecker,
) *chi.Mux {
	r := &Router{
		service: theService,
		auth:    theAuth,
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		gzippedhttp.UngzipJSONAndTextHTMLRequest,
		theAuth.Sessions,
	)

	// Dereference is public; it only needs a visitor identity.
	router.With(theAuth.EnsureVisitor).Get(`/u/{shortCode}`, r.GetRedirectToLongURL)

	router.Group(func(g chi.Router) {
		g.Use(gzippedhttp.GzipResponse)

		g.Post(`/register`, r.PostRegister)
		g.Post(`/login`, r.PostLogin)
		g.Post(`/logout`, r.PostLogout)
		g.Get(`/ping`, r.GetPing)
		g.With(ipChecker.Gate).Get(`/api/internal/stats`, r.GetInternalStats)

		g.With(theAuth.RequireUser).Route(`/urls`, func(urls chi.Router) {
			urls.Post(`/`, r.PostUrls)
			urls.Get(`/`, r.GetUrls)
			urls.Get(`/{shortCode}`, r.GetURL)
			urls.Put(`/{shortCode}`, r.UpdateURL)
			urls.Post(`/{shortCode}`, r.UpdateURL)
			urls.Delete(`/{shortCode}`, r.DeleteURL)
			urls.Post(`/{shortCode}/delete`, r.DeleteURL)
		})
	})

	return router
}

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error encoding the response: ", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(response http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrLinkNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrEmailTaken),
		errors.Is(err, models.ErrEmptyCredentials),
		errors.Is(err, service.ErrInvalidURL):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrUnknownEmail),
		errors.Is(err, models.ErrWrongPassword):
		// The original app answered both login failures with 403.
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		logger.Log.Debugln("Internal error: ", zap.Error(err))
		writeJSON(response, status, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(response, status, errorResponse{Error: err.Error()})
}

func decodeAndValidate(request *http.Request, payload interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(payload); err != nil {
		return err
	}

	return validate.Struct(payload)
}

// PostRegister handles POST /register.
func (r *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	var payload models.RegisterRequest
	if err := decodeAndValidate(request, &payload); err != nil {
		writeJSON(response, http.StatusBadRequest, errorResponse{Error: "invalid email or password"})
		return
	}

	usr, err := r.service.Register(request.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(response, err)
		return
	}

	// Registration signs the user in right away, keeping any visitor
	// identity the session carried before.
	if err := r.auth.IssueSession(response, usr.ID, auth.VisitorIDFromContext(request.Context())); err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.RegisterResponse{
		ID:    usr.ID,
		Email: usr.Email,
	})
}

// PostLogin handles POST /login.
func (r *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	var payload models.RegisterRequest
	if err := decodeAndValidate(request, &payload); err != nil {
		writeJSON(response, http.StatusBadRequest, errorResponse{Error: "invalid email or password"})
		return
	}

	userID, err := r.service.Authenticate(request.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(response, err)
		return
	}

	if err := r.auth.IssueSession(response, userID, auth.VisitorIDFromContext(request.Context())); err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.RegisterResponse{
		ID:    userID,
		Email: payload.Email,
	})
}

// PostLogout handles POST /logout. The whole session is dropped, the
// anonymous visitor identity included.
func (r *Router) PostLogout(response http.ResponseWriter, request *http.Request) {
	r.auth.ClearSession(response)
	response.WriteHeader(http.StatusNoContent)
}

// GetRedirectToLongURL handles GET /u/{shortCode}: the public dereference.
// Every hit is recorded against the session's visitor identity.
func (r *Router) GetRedirectToLongURL(response http.ResponseWriter, request *http.Request) {
	shortCode := chi.URLParam(request, "shortCode")

	longURL, err := r.service.ResolveURL(
		request.Context(),
		shortCode,
		auth.VisitorIDFromContext(request.Context()),
	)
	if err != nil {
		writeError(response, err)
		return
	}

	http.Redirect(response, request, longURL, http.StatusTemporaryRedirect)
}

// PostUrls handles POST /urls.
func (r *Router) PostUrls(response http.ResponseWriter, request *http.Request) {
	var payload models.ShortenRequest
	if err := decodeAndValidate(request, &payload); err != nil {
		writeError(response, service.ErrInvalidURL)
		return
	}

	link, err := r.service.ShortenURL(
		request.Context(),
		payload.URL,
		auth.UserIDFromContext(request.Context()),
	)
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.ShortenResponse{
		ShortCode: link.ShortCode,
		ShortURL:  r.service.GetShortURL(link.ShortCode),
		LongURL:   link.LongURL,
	})
}

func (r *Router) linkResponse(link *models.Link, withEvents bool) models.LinkResponse {
	result := models.LinkResponse{
		ShortCode:      link.ShortCode,
		ShortURL:       r.service.GetShortURL(link.ShortCode),
		LongURL:        link.LongURL,
		CreatedOn:      link.CreatedOn,
		TotalVisits:    link.Visits.Count,
		UniqueVisitors: link.Visits.UniqueCount(),
	}
	if withEvents {
		result.Visits = link.Visits.Events
	}

	return result
}

// GetUrls handles GET /urls: the acting user's links, analytics summarized.
func (r *Router) GetUrls(response http.ResponseWriter, request *http.Request) {
	links, err := r.service.ListUserLinks(request.Context(), auth.UserIDFromContext(request.Context()))
	if err != nil {
		writeError(response, err)
		return
	}

	result := funk.Map(links, func(link *models.Link) models.LinkResponse {
		return r.linkResponse(link, false)
	}).([]models.LinkResponse)

	writeJSON(response, http.StatusOK, models.UserLinks(result))
}

// GetURL handles GET /urls/{shortCode}: the owner's single-link view with
// the full visit log.
func (r *Router) GetURL(response http.ResponseWriter, request *http.Request) {
	link, err := r.service.GetUserLink(
		request.Context(),
		chi.URLParam(request, "shortCode"),
		auth.UserIDFromContext(request.Context()),
	)
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, r.linkResponse(link, true))
}

// UpdateURL handles PUT /urls/{shortCode} (and its form-POST twin).
func (r *Router) UpdateURL(response http.ResponseWriter, request *http.Request) {
	var payload models.ShortenRequest
	if err := decodeAndValidate(request, &payload); err != nil {
		writeError(response, service.ErrInvalidURL)
		return
	}

	shortCode := chi.URLParam(request, "shortCode")
	err := r.service.UpdateLongURL(
		request.Context(),
		shortCode,
		payload.URL,
		auth.UserIDFromContext(request.Context()),
	)
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.ShortenResponse{
		ShortCode: shortCode,
		ShortURL:  r.service.GetShortURL(shortCode),
		LongURL:   payload.URL,
	})
}

// DeleteURL handles DELETE /urls/{shortCode} (and POST /urls/{shortCode}/delete).
func (r *Router) DeleteURL(response http.ResponseWriter, request *http.Request) {
	err := r.service.DeleteLink(
		request.Context(),
		chi.URLParam(request, "shortCode"),
		auth.UserIDFromContext(request.Context()),
	)
	if err != nil {
		writeError(response, err)
		return
	}

	response.WriteHeader(http.StatusNoContent)
}

// GetPing handles GET /ping: the storage health check.
func (r *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := r.service.Ping(request.Context()); err != nil {
		writeError(response, err)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetInternalStats handles GET /api/internal/stats, reachable only from the
// trusted subnet.
func (r *Router) GetInternalStats(response http.ResponseWriter, request *http.Request) {
	stats, err := r.service.GetInternalStats(request.Context())
	if err != nil {
		writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}
