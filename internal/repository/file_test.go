package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/authgate/internal/repository"
	"github.com/omarluq/authgate/internal/session"
)

func TestFileRepository_SurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.json")

	repo, err := repository.OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, session.Record{Token: "tok", UserID: "user-1", CreatedAt: createdAt}))
	require.NoError(t, repo.Close())

	reopened, err := repository.OpenFile(path)
	require.NoError(t, err)
	found, err := reopened.FindByToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "user-1", found.MustGet().UserID)

	records, err := reopened.All(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFileRepository_TokensWithPathCharacters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := repository.OpenFile(filepath.Join(t.TempDir(), "sessions.json"))
	require.NoError(t, err)

	tokens := []string{"a.b", "a*b", "plain-token_1"}
	for _, tok := range tokens {
		require.NoError(t, repo.Save(ctx, session.Record{Token: tok, UserID: "u-" + tok, CreatedAt: createdAt}))
	}
	for _, tok := range tokens {
		found, err := repo.FindByToken(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, "u-"+tok, found.MustGet().UserID, tok)
	}

	deleted, err := repo.DeleteByToken(ctx, "a.b")
	require.NoError(t, err)
	assert.True(t, deleted)

	other, err := repo.FindByToken(ctx, "a*b")
	require.NoError(t, err)
	assert.True(t, other.IsPresent())
}

func TestFileRepository_RejectsNonObjectDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2,3]`), 0o600))

	_, err := repository.OpenFile(path)
	require.ErrorIs(t, err, repository.ErrCorruptRecord)
}

func TestFileRepository_EmptyToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := repository.OpenFile(filepath.Join(t.TempDir(), "sessions.json"))
	require.NoError(t, err)

	found, err := repo.FindByToken(ctx, "")
	require.NoError(t, err)
	assert.True(t, found.IsAbsent())

	deleted, err := repo.DeleteByToken(ctx, "")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestFileRepository_CancelledContext(t *testing.T) {
	t.Parallel()

	repo, err := repository.OpenFile(filepath.Join(t.TempDir(), "sessions.json"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, repo.Save(ctx, session.Record{Token: "t", UserID: "u"}), context.Canceled)
	require.ErrorIs(t, repo.Ping(ctx), context.Canceled)
}
