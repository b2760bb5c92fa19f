package jsondb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t5krishn/tinyapp/internal/db/storage"
	"github.com/t5krishn/tinyapp/internal/models"
	"github.com/t5krishn/tinyapp/internal/user"
)

const testDBFileName = "db_test.json"

func newTestLink(shortCode, ownerID string) *models.Link {
	return &models.Link{
		ShortCode: shortCode,
		LongURL:   "https://example.com/" + shortCode,
		OwnerID:   ownerID,
		CreatedOn: time.Now(),
		Visits:    models.NewVisitLog(),
	}
}

func Test(t *testing.T) {
	t.Run("The base jsondb package test", func(t *testing.T) {
		theStorage, err := New(testDBFileName)
		require.NoError(t, err)
		require.NotNil(t, theStorage)
		defer func() {
			err := theStorage.Close()
			require.NoError(t, err)
			err = os.Remove(testDBFileName)
			require.NoError(t, err)
		}()

		ctx := context.Background()

		err = theStorage.CreateUser(ctx, &user.User{ID: "usr001", Email: "a@x.com", PasswordHash: "digest"})
		assert.NoError(t, err, "The `theStorage.CreateUser()` should not return error")

		err = theStorage.CreateUser(ctx, &user.User{ID: "usr002", Email: "a@x.com"})
		assert.ErrorIs(t, err, storage.ErrEmailExists, "Duplicate email should be rejected")

		usr, found, err := theStorage.GetUserByEmail(ctx, "a@x.com")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "usr001", usr.ID)

		_, found, err = theStorage.GetUserByEmail(ctx, "A@X.COM")
		assert.NoError(t, err)
		assert.False(t, found, "Email matching must be case-sensitive")

		err = theStorage.SaveLink(ctx, newTestLink("abc123", "usr001"))
		assert.NoError(t, err)

		err = theStorage.SaveLink(ctx, newTestLink("abc123", "usr001"))
		assert.ErrorIs(t, err, storage.ErrShortCodeExists, "Duplicate short code should be rejected")

		taken, err := theStorage.IsShortCodeTaken(ctx, "abc123")
		assert.NoError(t, err)
		assert.True(t, taken)

		err = theStorage.RecordVisit(ctx, "abc123", "visitor-1", time.Now())
		assert.NoError(t, err)
		err = theStorage.RecordVisit(ctx, "abc123", "visitor-1", time.Now())
		assert.NoError(t, err)

		link, found, err := theStorage.GetLink(ctx, "abc123")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 2, link.Visits.Count)
		assert.Equal(t, 1, link.Visits.UniqueCount())

		err = theStorage.RecordVisit(ctx, "unknown", "visitor-1", time.Now())
		assert.ErrorIs(t, err, models.ErrLinkNotFound)
	})

	t.Run("Per-owner listing keeps insertion order", func(t *testing.T) {
		theStorage, err := New(testDBFileName)
		require.NoError(t, err)
		defer func() {
			require.NoError(t, theStorage.Close())
			require.NoError(t, os.Remove(testDBFileName))
		}()

		ctx := context.Background()

		require.NoError(t, theStorage.SaveLink(ctx, newTestLink("first1", "owner-a")))
		require.NoError(t, theStorage.SaveLink(ctx, newTestLink("other1", "owner-b")))
		require.NoError(t, theStorage.SaveLink(ctx, newTestLink("second", "owner-a")))

		links, err := theStorage.ListLinksByOwner(ctx, "owner-a")
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, "first1", links[0].ShortCode)
		assert.Equal(t, "second", links[1].ShortCode)

		require.NoError(t, theStorage.DeleteLink(ctx, "first1"))
		links, err = theStorage.ListLinksByOwner(ctx, "owner-a")
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "second", links[0].ShortCode)

		err = theStorage.DeleteLink(ctx, "first1")
		assert.ErrorIs(t, err, models.ErrLinkNotFound)
	})

	t.Run("Dataset survives a close and reopen", func(t *testing.T) {
		theStorage, err := New(testDBFileName)
		require.NoError(t, err)

		ctx := context.Background()

		require.NoError(t, theStorage.CreateUser(ctx, &user.User{ID: "usr001", Email: "a@x.com", PasswordHash: "digest"}))
		require.NoError(t, theStorage.SaveLink(ctx, newTestLink("abc123", "usr001")))
		require.NoError(t, theStorage.RecordVisit(ctx, "abc123", "visitor-1", time.Now()))
		require.NoError(t, theStorage.Close())

		reopened, err := New(testDBFileName)
		require.NoError(t, err)
		defer func() {
			require.NoError(t, reopened.Close())
			require.NoError(t, os.Remove(testDBFileName))
		}()

		link, found, err := reopened.GetLink(ctx, "abc123")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "usr001", link.OwnerID)
		assert.Equal(t, 1, link.Visits.Count)
		assert.True(t, link.Visits.UniqueVisitors["visitor-1"])

		usr, found, err := reopened.GetUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "digest", usr.PasswordHash, "credentials must survive a restart")

		count, err := reopened.GetNumberOfUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
