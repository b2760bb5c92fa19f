// Package mockstorage provides a testify-based mock implementation
// of the storage interface, for unit testing handlers and services
// without a real backend.
package mockstorage

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/t5krishn/tinyapp/internal/models"
	"github.com/t5krishn/tinyapp/internal/user"
)

// StorageMock is a testify mock that implements the full storage contract.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers optionally overrides GetNumberOfUsers without
	// going through testify's generic call matching.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfLinks optionally overrides GetNumberOfLinks.
	OnGetNumberOfLinks func(ctx context.Context) (int64, error)
}

// CreateUser mocks user creation.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) error {
	args := m.Called(ctx, usr)
	return args.Error(0)
}

// GetUserByID mocks fetching a user by id.
func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*user.User, bool, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

// GetUserByEmail mocks fetching a user by email.
func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

// SaveLink mocks inserting a new link.
func (m *StorageMock) SaveLink(ctx context.Context, link *models.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

// GetLink mocks fetching a link by short code.
func (m *StorageMock) GetLink(ctx context.Context, shortCode string) (*models.Link, bool, error) {
	args := m.Called(ctx, shortCode)
	link, _ := args.Get(0).(*models.Link)
	return link, args.Bool(1), args.Error(2)
}

// IsShortCodeTaken mocks the short-code existence check.
func (m *StorageMock) IsShortCodeTaken(ctx context.Context, shortCode string) (bool, error) {
	args := m.Called(ctx, shortCode)
	return args.Bool(0), args.Error(1)
}

// UpdateLinkURL mocks replacing a link's long URL.
func (m *StorageMock) UpdateLinkURL(ctx context.Context, shortCode, longURL string) error {
	args := m.Called(ctx, shortCode, longURL)
	return args.Error(0)
}

// DeleteLink mocks removing a link.
func (m *StorageMock) DeleteLink(ctx context.Context, shortCode string) error {
	args := m.Called(ctx, shortCode)
	return args.Error(0)
}

// ListLinksByOwner mocks the per-owner listing.
func (m *StorageMock) ListLinksByOwner(ctx context.Context, ownerID string) ([]*models.Link, error) {
	args := m.Called(ctx, ownerID)
	links, _ := args.Get(0).([]*models.Link)
	return links, args.Error(1)
}

// RecordVisit mocks appending a dereference event.
func (m *StorageMock) RecordVisit(ctx context.Context, shortCode, visitorID string, at time.Time) error {
	args := m.Called(ctx, shortCode, visitorID, at)
	return args.Error(0)
}

// GetNumberOfLinks returns the total link count as defined by the mock.
func (m *StorageMock) GetNumberOfLinks(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfLinks != nil {
		return m.OnGetNumberOfLinks(ctx)
	}
	return 0, nil
}

// GetNumberOfUsers returns the user count as defined by the mock.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	return 0, nil
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Flush mocks persisting in-memory state.
func (m *StorageMock) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the storage.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
