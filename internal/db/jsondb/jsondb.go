// Package jsondb implements the storage contract on top of an in-memory
// cache that is loaded from and flushed to a JSON file.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/thoas/go-funk"

	"github.com/t5krishn/tinyapp/internal/db/storage"
	"github.com/t5krishn/tinyapp/internal/models"
	"github.com/t5krishn/tinyapp/internal/user"
)

// JSONDB keeps the whole dataset in memory behind a single RWMutex and
// persists it as one JSON document.
type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

// CacheStruct is the serialized shape of the dataset.
type CacheStruct struct {
	Users         map[string]*user.User
	EmailToUserID map[string]string
	Links         map[string]*models.Link

	// LinkOrder preserves insertion order for per-owner listings.
	LinkOrder []string
}

func emptyCache() CacheStruct {
	return CacheStruct{
		Users:         map[string]*user.User{},
		EmailToUserID: map[string]string{},
		Links:         map[string]*models.Link{},
		LinkOrder:     []string{},
	}
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(dbFile, `{
	"Users": {},
	"EmailToUserID": {},
	"Links": {},
	"LinkOrder": []
}`)
	if err != nil {
		return err
	}
	return dbFile.Close()
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %s", err)
	}

	file, err2 := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err2 != nil {
		return fmt.Errorf("error opening file: %s", err2)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %s", err)
	}

	return nil
}

func parseJSONFile(fileName string, cacheMap *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(cacheMap); err != nil {
		return err
	}

	return nil
}

// New loads the dataset from fileName, initializing the file when absent.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    emptyCache(),
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := initDBFile(fileName); err != nil {
			return nil, err
		}
		if err := parseJSONFile(db.fileName, &db.Cache); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// CreateUser stores a new user; the email must be unused.
func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, taken := db.Cache.EmailToUserID[usr.Email]; taken {
		return storage.ErrEmailExists
	}

	db.Cache.Users[usr.ID] = usr
	db.Cache.EmailToUserID[usr.Email] = usr.ID

	return nil
}

// GetUserByID returns the user with the given id, if any.
func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*user.User, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.Cache.Users[userID]

	return usr, found, nil
}

// GetUserByEmail returns the user with the given email. The match is
// case-sensitive, exactly as stored.
func (db *JSONDB) GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	userID, found := db.Cache.EmailToUserID[email]
	if !found {
		return nil, false, nil
	}

	return db.Cache.Users[userID], true, nil
}

// SaveLink stores a new link. The short-code check and the insert happen
// under one lock so concurrent creates can never share a code.
func (db *JSONDB) SaveLink(ctx context.Context, link *models.Link) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, taken := db.Cache.Links[link.ShortCode]; taken {
		return storage.ErrShortCodeExists
	}

	db.Cache.Links[link.ShortCode] = link.Clone()
	db.Cache.LinkOrder = append(db.Cache.LinkOrder, link.ShortCode)

	return nil
}

// GetLink returns an independent copy of the link for the short code.
func (db *JSONDB) GetLink(ctx context.Context, shortCode string) (*models.Link, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	link, found := db.Cache.Links[shortCode]
	if !found {
		return nil, false, nil
	}

	return link.Clone(), true, nil
}

// IsShortCodeTaken reports whether a link exists for the short code.
func (db *JSONDB) IsShortCodeTaken(ctx context.Context, shortCode string) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, taken := db.Cache.Links[shortCode]

	return taken, nil
}

// UpdateLinkURL replaces the long URL of an existing link.
func (db *JSONDB) UpdateLinkURL(ctx context.Context, shortCode, longURL string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	link, found := db.Cache.Links[shortCode]
	if !found {
		return models.ErrLinkNotFound
	}
	link.LongURL = longURL

	return nil
}

// DeleteLink removes the link and its visit log entirely.
func (db *JSONDB) DeleteLink(ctx context.Context, shortCode string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.Links[shortCode]; !found {
		return models.ErrLinkNotFound
	}

	delete(db.Cache.Links, shortCode)
	if position := funk.IndexOfString(db.Cache.LinkOrder, shortCode); position >= 0 {
		db.Cache.LinkOrder = append(db.Cache.LinkOrder[:position], db.Cache.LinkOrder[position+1:]...)
	}

	return nil
}

// ListLinksByOwner returns copies of the owner's links in insertion order.
func (db *JSONDB) ListLinksByOwner(ctx context.Context, ownerID string) ([]*models.Link, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := []*models.Link{}
	for _, shortCode := range db.Cache.LinkOrder {
		link, found := db.Cache.Links[shortCode]
		if found && link.OwnerID == ownerID {
			result = append(result, link.Clone())
		}
	}

	return result, nil
}

// RecordVisit appends a dereference event. The read-check-then-append on the
// unique-visitor set happens under the write lock.
func (db *JSONDB) RecordVisit(ctx context.Context, shortCode, visitorID string, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	link, found := db.Cache.Links[shortCode]
	if !found {
		return models.ErrLinkNotFound
	}
	link.Visits.AddVisit(visitorID, at)

	return nil
}

// GetNumberOfLinks returns the total amount of stored links.
func (db *JSONDB) GetNumberOfLinks(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Links)), nil
}

// GetNumberOfUsers returns the total amount of registered users.
func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

// Ping always succeeds for the file backend.
func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Flush writes the current dataset to the backing file.
func (db *JSONDB) Flush(ctx context.Context) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.fileName == "" {
		return nil
	}

	return writeToJSONFile(db.fileName, db.Cache)
}

// Close flushes the dataset and releases the store.
func (db *JSONDB) Close() error {
	return db.Flush(context.Background())
}
