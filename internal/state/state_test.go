package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	apperrors "github.com/dtg01100/systemctl-manager/internal/errors"
	"github.com/dtg01100/systemctl-manager/internal/logger"
)

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)

	set, order, err := s.LoadFavorites()
	require.NoError(t, err)
	assert.Empty(t, set)
	assert.Empty(t, order)
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("favoriteServices: [a, b"), 0644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestOpen_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Empty(t, s.Get(KeyFavorites))
}

func TestFavoritesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.yaml")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveFavorites([]string{"nginx", "cron", "sshd"}, []string{"sshd", "nginx", "cron"}))

	reopened, err := Open(path)
	require.NoError(t, err)
	set, order, err := reopened.LoadFavorites()
	require.NoError(t, err)

	assert.Equal(t, []string{"cron", "nginx", "sshd"}, set)
	assert.Equal(t, []string{"sshd", "nginx", "cron"}, order)
}

func TestUpdate_KeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lastSearch:\n  - ngi\n"), 0644))

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveFavorites([]string{"a"}, []string{"a"}))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ngi"}, reopened.Get("lastSearch"))
	assert.Equal(t, []string{"a"}, reopened.Get(KeyFavoritesOrder))
}

func TestUpdate_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "state.yaml"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveFavorites([]string{"x"}, []string{"x"}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.yaml", entries[0].Name())
}

func TestUpdate_FailureKeepsMemory(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "state")
	s, err := Open(filepath.Join(parent, "state.yaml"))
	require.NoError(t, err)

	// A regular file where the state directory should be makes MkdirAll fail.
	require.NoError(t, os.WriteFile(parent, []byte("file"), 0644))

	err = s.SaveFavorites([]string{"a"}, []string{"a"})
	assert.Error(t, err)
	assert.Equal(t, []string{"a"}, s.Get(KeyFavoritesOrder))
}

func TestGet_ReturnsCopy(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)
	require.NoError(t, s.SaveFavorites([]string{"a", "b"}, []string{"a", "b"}))

	got := s.Get(KeyFavoritesOrder)
	got[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, s.Get(KeyFavoritesOrder))
}

func TestLoad_CorruptFileDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("favoriteServices: [unterminated"), 0644))

	core, logs := observer.New(zapcore.ErrorLevel)
	s := Load(path, logger.FromZap(zap.New(core)))
	require.NotNil(t, s)

	set, order, err := s.LoadFavorites()
	require.NoError(t, err)
	assert.Empty(t, set)
	assert.Empty(t, order)

	entries := logs.FilterMessage("state file unusable, starting without favorites").All()
	require.Len(t, entries, 1)
	logged, ok := entries[0].ContextMap()["error"].(string)
	require.True(t, ok)
	assert.Contains(t, logged, apperrors.ErrStatePersist.Code)

	// the store is usable and the next save replaces the bad file
	require.NoError(t, s.SaveFavorites([]string{"cron"}, []string{"cron"}))
	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"cron"}, reopened.Get(KeyFavoritesOrder))
}

func TestLoad_UnreadablePathDegrades(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0644))

	s := Load(filepath.Join(blocker, "state.yaml"), nil)
	require.NotNil(t, s)
	assert.Empty(t, s.Get(KeyFavorites))
	assert.Equal(t, filepath.Join(blocker, "state.yaml"), s.Path())
}

func TestLoad_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("favoriteServicesOrder:\n  - ssh\n"), 0644))

	s := Load(path, logger.NewNop())
	assert.Equal(t, []string{"ssh"}, s.Get(KeyFavoritesOrder))
}
