// Package storage declares the store abstraction the rest of the application
// is written against, so the authorization and visit-tracking logic stays
// independent of the backing database.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/t5krishn/tinyapp/internal/models"
	"github.com/t5krishn/tinyapp/internal/user"
)

// ErrShortCodeExists is returned by SaveLink when the short code is already
// taken. The check and the insert are atomic inside every backend.
var ErrShortCodeExists = errors.New("short code already exists")

// ErrEmailExists is returned by CreateUser when the email is already
// registered.
var ErrEmailExists = errors.New("email already exists")

// Storage is the full store contract: user directory, link registry,
// visit recording and lifecycle.
type Storage interface {
	CreateUser(ctx context.Context, usr *user.User) error

	GetUserByID(ctx context.Context, userID string) (*user.User, bool, error)

	GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error)

	SaveLink(ctx context.Context, link *models.Link) error

	GetLink(ctx context.Context, shortCode string) (*models.Link, bool, error)

	IsShortCodeTaken(ctx context.Context, shortCode string) (bool, error)

	UpdateLinkURL(ctx context.Context, shortCode, longURL string) error

	DeleteLink(ctx context.Context, shortCode string) error

	// ListLinksByOwner returns the owner's links in insertion order.
	ListLinksByOwner(ctx context.Context, ownerID string) ([]*models.Link, error)

	// RecordVisit appends a dereference event to the link's visit log and
	// registers the visitor as unique on first appearance, atomically with
	// respect to concurrent visits on the same link.
	RecordVisit(ctx context.Context, shortCode, visitorID string, at time.Time) error

	GetNumberOfLinks(ctx context.Context) (int64, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	// Flush persists any in-memory state; a no-op for backends that
	// persist on write.
	Flush(ctx context.Context) error

	Close() error
}
