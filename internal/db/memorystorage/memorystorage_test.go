package memorystorage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t5krishn/tinyapp/internal/models"
)

func TestConcurrentVisitsKeepUniquenessInvariant(t *testing.T) {
	theStorage, err := New()
	require.NoError(t, err)
	defer func() {
		require.NoError(t, theStorage.Close())
	}()

	ctx := context.Background()

	require.NoError(t, theStorage.SaveLink(ctx, &models.Link{
		ShortCode: "abc123",
		LongURL:   "https://example.com",
		OwnerID:   "owner-1",
		CreatedOn: time.Now(),
		Visits:    models.NewVisitLog(),
	}))

	const visitors = 8
	const visitsPerVisitor = 25

	var wg sync.WaitGroup
	for v := 0; v < visitors; v++ {
		visitorID := fmt.Sprintf("visitor-%d", v)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < visitsPerVisitor; i++ {
				assert.NoError(t, theStorage.RecordVisit(ctx, "abc123", visitorID, time.Now()))
			}
		}()
	}
	wg.Wait()

	link, found, err := theStorage.GetLink(ctx, "abc123")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, visitors*visitsPerVisitor, link.Visits.Count)
	assert.Len(t, link.Visits.Events, visitors*visitsPerVisitor)
	assert.Equal(t, visitors, link.Visits.UniqueCount(), "a visitor must be counted unique exactly once")
}

func TestConcurrentSaveLinkNeverSharesACode(t *testing.T) {
	theStorage, err := New()
	require.NoError(t, err)
	defer func() {
		require.NoError(t, theStorage.Close())
	}()

	ctx := context.Background()

	const writers = 16
	results := make(chan error, writers)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- theStorage.SaveLink(ctx, &models.Link{
				ShortCode: "samecd",
				LongURL:   "https://example.com",
				OwnerID:   "owner-1",
				CreatedOn: time.Now(),
				Visits:    models.NewVisitLog(),
			})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent create may win a code")
}
