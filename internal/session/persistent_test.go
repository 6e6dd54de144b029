package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"

	"github.com/omarluq/authgate/internal/session"
)

func newPersistent(repo session.Repository, clock abtime.AbstractTime, d time.Duration) *session.PersistentStore {
	exp := session.NewExpiringStore(session.NewMemoryStore(), d, session.WithClock(clock))
	return session.NewPersistentStore(exp, repo)
}

func TestPersistentStore_CreateSavesRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeRepository()
	clock := abtime.NewManualAtTime(epoch)
	store := newPersistent(repo, clock, time.Hour)

	token, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	rec, ok := repo.records[token]
	require.True(t, ok)
	assert.Equal(t, session.Record{Token: token, UserID: "user-1", CreatedAt: epoch}, rec)
	assert.Equal(t, "user-1", store.Lookup(ctx, token).OrEmpty())
}

func TestPersistentStore_CreateRollsBackOnSaveFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeRepository()
	repo.saveErr = errBackendDown
	store := newPersistent(repo, abtime.NewManualAtTime(epoch), time.Hour)

	token, err := store.Create(ctx, "user-1")
	require.ErrorIs(t, err, session.ErrPersistenceFailure)
	require.ErrorIs(t, err, errBackendDown)
	assert.Empty(t, token)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 1, repo.saves)
}

func TestPersistentStore_CreateRejectsEmptyUserID(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	store := newPersistent(repo, abtime.NewManualAtTime(epoch), time.Hour)

	_, err := store.Create(context.Background(), "")
	require.ErrorIs(t, err, session.ErrInvalidUserID)
	assert.Equal(t, 0, repo.saves)
}

func TestPersistentStore_LookupRequiresRepositoryRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeRepository()
	store := newPersistent(repo, abtime.NewManualAtTime(epoch), time.Hour)

	token, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	// Purged out of band: memory still holds it, the repository does not.
	delete(repo.records, token)
	assert.True(t, store.Lookup(ctx, token).IsAbsent())
	assert.Equal(t, 1, store.Len())
}

func TestPersistentStore_LookupTreatsRepositoryErrorAsAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeRepository()
	store := newPersistent(repo, abtime.NewManualAtTime(epoch), time.Hour)

	token, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	repo.findErr = errBackendDown
	assert.True(t, store.Lookup(ctx, token).IsAbsent())
	assert.True(t, store.Lookup(ctx, "").IsAbsent())
}

func TestPersistentStore_ExpiryIsDecidedInMemoryLayer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeRepository()
	clock := abtime.NewManualAtTime(epoch)
	store := newPersistent(repo, clock, time.Minute)

	token, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	clock.Advance(time.Minute - time.Second)
	assert.True(t, store.Lookup(ctx, token).IsPresent())

	clock.Advance(time.Second)
	assert.True(t, store.Lookup(ctx, token).IsAbsent())
	// The repository keeps the record; it never judges expiry.
	assert.Equal(t, 1, repo.len())
}

func TestPersistentStore_DestroyDeletesDurableFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeRepository()
	store := newPersistent(repo, abtime.NewManualAtTime(epoch), time.Hour)

	token, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	repo.deleteErr = errBackendDown
	removed, err := store.Destroy(ctx, token)
	require.ErrorIs(t, err, session.ErrPersistenceFailure)
	assert.False(t, removed)
	// Nothing was purged, so the session still resolves.
	assert.Equal(t, "user-1", store.Lookup(ctx, token).OrEmpty())

	repo.deleteErr = nil
	removed, err = store.Destroy(ctx, token)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, repo.len())

	removed, err = store.Destroy(ctx, token)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.True(t, store.Lookup(ctx, token).IsAbsent())
}

func TestPersistentStore_SurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeRepository()
	clock := abtime.NewManualAtTime(epoch)

	token, err := newPersistent(repo, clock, time.Hour).Create(ctx, "user-1")
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	restarted := newPersistent(repo, clock, time.Hour)
	assert.Equal(t, 0, restarted.Len())
	assert.Equal(t, "user-1", restarted.Lookup(ctx, token).OrEmpty())
	assert.Equal(t, 1, restarted.Len())

	// The original creation time travels with the record.
	clock.Advance(time.Minute)
	assert.True(t, restarted.Lookup(ctx, token).IsAbsent())
}

func TestPersistentStore_ConcurrentFirstLookupAfterRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeRepository()
	clock := abtime.NewManualAtTime(epoch)

	token, err := newPersistent(repo, clock, time.Hour).Create(ctx, "user-1")
	require.NoError(t, err)

	for round := 0; round < 200; round++ {
		restarted := newPersistent(repo, clock, time.Hour)

		const readers = 8
		results := make([]string, readers)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := range readers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				results[i] = restarted.Lookup(ctx, token).OrEmpty()
			}()
		}
		close(start)
		wg.Wait()

		for i, got := range results {
			require.Equal(t, "user-1", got, "round %d reader %d", round, i)
		}
		assert.Equal(t, 1, restarted.Len())
	}
}

func TestPersistentStore_SweepReclaimsRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := listingRepository{newFakeRepository()}
	clock := abtime.NewManualAtTime(epoch)

	// Left behind by an earlier process and never looked up since.
	require.NoError(t, repo.Save(ctx, session.Record{Token: "orphan", UserID: "user-0", CreatedAt: epoch}))

	store := newPersistent(repo, clock, time.Minute)
	old, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	clock.Advance(45 * time.Second)
	fresh, err := store.Create(ctx, "user-2")
	require.NoError(t, err)
	clock.Advance(30 * time.Second)

	assert.Equal(t, 2, store.Sweep(ctx))
	assert.Equal(t, 1, repo.len())
	assert.True(t, store.Lookup(ctx, old).IsAbsent())
	assert.True(t, store.Lookup(ctx, "orphan").IsAbsent())
	assert.Equal(t, "user-2", store.Lookup(ctx, fresh).OrEmpty())
	assert.Equal(t, 1, store.Len())
}

func TestPersistentStore_SweepKeepsMemoryWhenRepositoryFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeRepository()
	clock := abtime.NewManualAtTime(epoch)
	store := newPersistent(repo, clock, time.Minute)

	_, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	clock.Advance(time.Minute)

	repo.mu.Lock()
	repo.deleteErr = errBackendDown
	repo.mu.Unlock()

	assert.Equal(t, 0, store.Sweep(ctx))
	assert.Equal(t, 1, repo.len())
	assert.Equal(t, 1, store.Len())
}

func TestPersistentStore_Hydrate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := listingRepository{newFakeRepository()}
	clock := abtime.NewManualAtTime(epoch)

	first := newPersistent(repo, clock, 0)
	tokens := make([]string, 0, 3)
	for _, user := range []string{"a", "b", "c"} {
		tok, err := first.Create(ctx, user)
		require.NoError(t, err)
		tokens = append(tokens, tok)
	}

	restarted := newPersistent(repo, clock, 0)
	loaded, err := restarted.Hydrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded)
	assert.Equal(t, 3, restarted.Len())
	assert.Equal(t, "b", restarted.Lookup(ctx, tokens[1]).OrEmpty())

	// Hydrating twice loads nothing new.
	loaded, err = restarted.Hydrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded)
}

func TestPersistentStore_HydrateWithoutListerIsNoop(t *testing.T) {
	t.Parallel()

	store := newPersistent(newFakeRepository(), abtime.NewManualAtTime(epoch), 0)
	loaded, err := store.Hydrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, loaded)
}

func TestStores_RoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	ctx := context.Background()
	clock := abtime.NewManualAtTime(epoch)
	stores := map[string]session.Store{
		"memory":     session.NewMemoryStore(),
		"expiring":   session.NewExpiringStore(session.NewMemoryStore(), time.Hour, session.WithClock(clock)),
		"persistent": newPersistent(newFakeRepository(), clock, time.Hour),
	}

	for name, store := range stores {
		properties.Property(name+": create then lookup returns the user", prop.ForAll(
			func(userID string) bool {
				token, err := store.Create(ctx, userID)
				if err != nil {
					return false
				}
				return store.Lookup(ctx, token).OrEmpty() == userID
			},
			gen.AnyString().SuchThat(func(s string) bool { return s != "" }),
		))

		properties.Property(name+": destroy succeeds exactly once", prop.ForAll(
			func(userID string) bool {
				token, err := store.Create(ctx, userID)
				if err != nil {
					return false
				}
				first, err1 := store.Destroy(ctx, token)
				second, err2 := store.Destroy(ctx, token)
				return err1 == nil && err2 == nil && first && !second && store.Lookup(ctx, token).IsAbsent()
			},
			gen.Identifier(),
		))

		properties.Property(name+": unknown tokens resolve to none", prop.ForAll(
			func(token string) bool {
				return store.Lookup(ctx, "never-issued-"+token).IsAbsent()
			},
			gen.AlphaString(),
		))
	}

	properties.TestingRun(t)
}
