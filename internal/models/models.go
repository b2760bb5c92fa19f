// Package models holds the link and visit records, the request/response
// payloads of the HTTP API and the sentinel errors shared across layers.
package models

import (
	"errors"
	"maps"
	"slices"
	"time"
)

// ErrEmailTaken is returned on registration with an already-used email.
var ErrEmailTaken = errors.New("email already registered")

// ErrEmptyCredentials is returned on registration with an empty email or password.
var ErrEmptyCredentials = errors.New("email and password must not be empty")

// ErrUnknownEmail is returned on login with an email no user has.
var ErrUnknownEmail = errors.New("unknown email")

// ErrWrongPassword is returned on login when the password does not match.
var ErrWrongPassword = errors.New("wrong password")

// ErrLinkNotFound is returned when no link exists for a short code.
var ErrLinkNotFound = errors.New("link not found")

// ErrForbidden is returned when the acting user is not the link owner.
var ErrForbidden = errors.New("not the owner of the link")

// ErrUnauthenticated is returned when an owner-gated operation is attempted
// without an authenticated session.
var ErrUnauthenticated = errors.New("authentication required")

// Visit is a single dereference event on a link.
type Visit struct {
	VisitorID string    `json:"visitor_id"`
	Time      time.Time `json:"time"`
}

// VisitLog accumulates the dereference history of one link.
// Count always equals len(Events); UniqueVisitors is a true set.
type VisitLog struct {
	Count          int             `json:"count"`
	Events         []Visit         `json:"events"`
	UniqueVisitors map[string]bool `json:"unique_visitors"`
}

// NewVisitLog returns an empty log.
func NewVisitLog() VisitLog {
	return VisitLog{
		Events:         []Visit{},
		UniqueVisitors: map[string]bool{},
	}
}

// AddVisit appends a dereference event and registers the visitor as unique
// on its first appearance.
func (l *VisitLog) AddVisit(visitorID string, at time.Time) {
	l.Events = append(l.Events, Visit{VisitorID: visitorID, Time: at})
	l.Count++
	if l.UniqueVisitors == nil {
		l.UniqueVisitors = map[string]bool{}
	}
	if !l.UniqueVisitors[visitorID] {
		l.UniqueVisitors[visitorID] = true
	}
}

// UniqueCount returns the number of distinct visitors.
func (l *VisitLog) UniqueCount() int {
	return len(l.UniqueVisitors)
}

// Clone returns an independent copy of the log.
func (l *VisitLog) Clone() VisitLog {
	return VisitLog{
		Count:          l.Count,
		Events:         slices.Clone(l.Events),
		UniqueVisitors: maps.Clone(l.UniqueVisitors),
	}
}

// Link is a stored short-code record. OwnerID is immutable after creation;
// LongURL is mutable by the owner only.
type Link struct {
	ShortCode string    `json:"short_code"`
	LongURL   string    `json:"long_url"`
	OwnerID   string    `json:"owner_id"`
	CreatedOn time.Time `json:"created_on"`
	Visits    VisitLog  `json:"visits"`
}

// Clone returns an independent copy of the link, visit log included.
func (l *Link) Clone() *Link {
	clone := *l
	clone.Visits = l.Visits.Clone()
	return &clone
}

// RegisterRequest is the payload of POST /register and POST /login.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterResponse is returned on successful registration.
type RegisterResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ShortenRequest is the payload of POST /urls and PUT /urls/{shortCode}.
type ShortenRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// ShortenResponse is returned on successful link creation.
type ShortenResponse struct {
	ShortCode string `json:"short_code"`
	ShortURL  string `json:"short_url"`
	LongURL   string `json:"long_url"`
}

// LinkResponse is the owner's view of a single link, visit analytics included.
type LinkResponse struct {
	ShortCode      string    `json:"short_code"`
	ShortURL       string    `json:"short_url"`
	LongURL        string    `json:"long_url"`
	CreatedOn      time.Time `json:"created_on"`
	TotalVisits    int       `json:"total_visits"`
	UniqueVisitors int       `json:"unique_visitors"`
	Visits         []Visit   `json:"visits,omitempty"`
}

// UserLinks is the owner's link listing.
type UserLinks []LinkResponse

// InternalStatsResponse carries service-wide counters for the internal API.
type InternalStatsResponse struct {
	Links int64 `json:"urls"`
	Users int64 `json:"users"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)
