// Package service implements the application core: the user directory, the
// link registry and the ownership gate every management operation goes
// through. Handlers stay thin; everything with invariants lives here.
package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/t5krishn/tinyapp/internal/db/storage"
	"github.com/t5krishn/tinyapp/internal/hasher"
	"github.com/t5krishn/tinyapp/internal/idgen"
	"github.com/t5krishn/tinyapp/internal/models"
	"github.com/t5krishn/tinyapp/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) error
	GetUserByID(ctx context.Context, userID string) (*user.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error)
}

type linkKeeper interface {
	SaveLink(ctx context.Context, link *models.Link) error
	GetLink(ctx context.Context, shortCode string) (*models.Link, bool, error)
	UpdateLinkURL(ctx context.Context, shortCode, longURL string) error
	DeleteLink(ctx context.Context, shortCode string) error
	ListLinksByOwner(ctx context.Context, ownerID string) ([]*models.Link, error)
}

type visitRecorder interface {
	RecordVisit(ctx context.Context, shortCode, visitorID string, at time.Time) error
}

type statser interface {
	GetNumberOfLinks(ctx context.Context) (int64, error)
	GetNumberOfUsers(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type store interface {
	userKeeper
	linkKeeper
	visitRecorder
	statser
	pinger
}

// ErrInvalidURL is returned when the submitted long URL is not a usable
// http(s) URL.
var ErrInvalidURL = errors.New("there is no valid URL in the request")

// ErrShortCodeSpaceExhausted is returned when minting a fresh short code
// keeps colliding with stored ones.
var ErrShortCodeSpaceExhausted = errors.New("the number of attempts to generate a unique short code has been exceeded")

// triesToGenerateUniqueCode bounds the retry-on-collision loop of ShortenURL.
const triesToGenerateUniqueCode = 10

// Service wires the storage, the identifier generator and the password
// hasher into the application operations.
type Service struct {
	db           store
	gen          idgen.Generator
	hasher       hasher.PasswordHasher
	shortURLBase string
}

// New returns a configured Service.
func New(
	db store,
	gen idgen.Generator,
	passwordHasher hasher.PasswordHasher,
	shortURLBase string,
) *Service {
	return &Service{
		db:           db,
		gen:          gen,
		hasher:       passwordHasher,
		shortURLBase: shortURLBase,
	}
}

// Register creates a new account. The email must be unused; matching is
// case-sensitive. The password is stored only as a salted bcrypt digest.
func (s *Service) Register(ctx context.Context, email, rawPassword string) (*user.User, error) {
	if email == "" || rawPassword == "" {
		return nil, models.ErrEmptyCredentials
	}

	_, taken, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.ErrEmailTaken
	}

	digest, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return nil, err
	}

	usr := &user.User{
		ID:           s.gen.Generate(),
		Email:        email,
		PasswordHash: digest,
	}
	if err := s.db.CreateUser(ctx, usr); err != nil {
		if errors.Is(err, storage.ErrEmailExists) {
			return nil, models.ErrEmailTaken
		}
		return nil, err
	}

	return usr, nil
}

// Authenticate verifies the credentials and returns the user id.
func (s *Service) Authenticate(ctx context.Context, email, rawPassword string) (string, error) {
	usr, found, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if !found {
		return "", models.ErrUnknownEmail
	}

	if !s.hasher.Verify(rawPassword, usr.PasswordHash) {
		return "", models.ErrWrongPassword
	}

	return usr.ID, nil
}

// GetUserByID returns the user with the given id, if any.
func (s *Service) GetUserByID(ctx context.Context, userID string) (*user.User, bool, error) {
	return s.db.GetUserByID(ctx, userID)
}

// ShortenURL mints a short code for longURL and stores the link with an
// empty visit log. Collisions with existing codes are retried a bounded
// number of times; storage enforces uniqueness atomically.
func (s *Service) ShortenURL(ctx context.Context, longURL, ownerID string) (*models.Link, error) {
	if ownerID == "" {
		return nil, models.ErrUnauthenticated
	}
	if !isValidURL(longURL) {
		return nil, ErrInvalidURL
	}

	for i := 0; i < triesToGenerateUniqueCode; i++ {
		link := &models.Link{
			ShortCode: s.gen.Generate(),
			LongURL:   longURL,
			OwnerID:   ownerID,
			CreatedOn: time.Now(),
			Visits:    models.NewVisitLog(),
		}

		err := s.db.SaveLink(ctx, link)
		if errors.Is(err, storage.ErrShortCodeExists) {
			continue
		}
		if err != nil {
			return nil, err
		}

		return link, nil
	}

	return nil, ErrShortCodeSpaceExhausted
}

// ResolveURL dereferences a short code. Dereferencing is public; the visit is
// recorded for the given visitor id regardless of authentication. An unknown
// code mutates nothing.
func (s *Service) ResolveURL(ctx context.Context, shortCode, visitorID string) (string, error) {
	link, found, err := s.db.GetLink(ctx, shortCode)
	if err != nil {
		return "", err
	}
	if !found {
		return "", models.ErrLinkNotFound
	}

	if err := s.db.RecordVisit(ctx, shortCode, visitorID, time.Now()); err != nil {
		return "", err
	}

	return link.LongURL, nil
}

// GetUserLink returns a single link to its owner.
func (s *Service) GetUserLink(ctx context.Context, shortCode, actingUserID string) (*models.Link, error) {
	return s.authorizeOwner(ctx, shortCode, actingUserID)
}

// UpdateLongURL replaces the destination of an owned link.
func (s *Service) UpdateLongURL(ctx context.Context, shortCode, newURL, actingUserID string) error {
	if !isValidURL(newURL) {
		return ErrInvalidURL
	}

	if _, err := s.authorizeOwner(ctx, shortCode, actingUserID); err != nil {
		return err
	}

	return s.db.UpdateLinkURL(ctx, shortCode, newURL)
}

// DeleteLink removes an owned link entirely, its visit log with it.
func (s *Service) DeleteLink(ctx context.Context, shortCode, actingUserID string) error {
	if _, err := s.authorizeOwner(ctx, shortCode, actingUserID); err != nil {
		return err
	}

	return s.db.DeleteLink(ctx, shortCode)
}

// ListUserLinks returns the acting user's links in insertion order.
func (s *Service) ListUserLinks(ctx context.Context, actingUserID string) ([]*models.Link, error) {
	if actingUserID == "" {
		return nil, models.ErrUnauthenticated
	}

	return s.db.ListLinksByOwner(ctx, actingUserID)
}

// GetInternalStats returns service-wide counters.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	links, err := s.db.GetNumberOfLinks(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Links: links,
		Users: users,
	}, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetShortURL renders the public URL of a short code.
func (s *Service) GetShortURL(shortCode string) string {
	return s.shortURLBase + "/u/" + shortCode
}

// authorizeOwner is the three-way gate of every owner-gated operation:
// session presence first, then resource presence, then ownership. The
// ordering keeps existence information from unauthenticated callers.
func (s *Service) authorizeOwner(ctx context.Context, shortCode, actingUserID string) (*models.Link, error) {
	if actingUserID == "" {
		return nil, models.ErrUnauthenticated
	}

	link, found, err := s.db.GetLink(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrLinkNotFound
	}

	if !isOwner(link, actingUserID) {
		return nil, models.ErrForbidden
	}

	return link, nil
}

func isOwner(link *models.Link, userID string) bool {
	return link.OwnerID == userID
}

func isValidURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil &&
		(u.Scheme == "http" || u.Scheme == "https") &&
		u.Host != ""
}
