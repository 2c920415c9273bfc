package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/pkg/adapters/file"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

var (
	_ ports.TrackerStore   = (*file.Store)(nil)
	_ ports.WorkflowLoader = (*file.Loader)(nil)
)

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hello: {class: start}\n"), 0o644))

	l, err := file.NewLoader(path)
	require.NoError(t, err)
	assert.Equal(t, path, l.Source())

	data, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(data), "class: start")
}

func TestLoader_Errors(t *testing.T) {
	_, err := file.NewLoader("flow.txt")
	assert.Error(t, err)

	l, err := file.NewLoader(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	_, err = l.Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_Contract(t *testing.T) {
	ports.RunTrackerStoreContract(t, file.NewStore(t.TempDir()))
}

func TestStore_ListIgnoresStrayFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.NewStore(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "b", domain.NewTracker(domain.TrackerSeed{SessionID: "b"})))
	require.NoError(t, store.Save(ctx, "a", domain.NewTracker(domain.TrackerSeed{SessionID: "a"})))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-c-1.json"), nil, 0o644))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	assert.Error(t, store.Save(ctx, "../escape", domain.Tracker{}))
}

func TestStore_ListMissingDir(t *testing.T) {
	store := file.NewStore(filepath.Join(t.TempDir(), "nope"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
