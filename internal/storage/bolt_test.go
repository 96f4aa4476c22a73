package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docindex/internal/common"
)

func newTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "data", "objects.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoltStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestBoltStore(t)
	payload := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff, 0x10}

	path, err := s.Put(ctx, "documents/2024/06/05/a_1.pdf", payload, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "documents/2024/06/05/a_1.pdf", path)

	got, obj, err := s.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, "application/pdf", obj.ContentType)
	assert.Equal(t, int64(len(payload)), obj.Size)
	assert.Equal(t, "a_1.pdf", obj.Filename)
	assert.False(t, obj.UpdatedAt.IsZero())
}

func TestBoltStoreGetMissing(t *testing.T) {
	_, _, err := newTestBoltStore(t).Get(context.Background(), "documents/nope.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestBoltStoreListByPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestBoltStore(t)
	for _, p := range []string{"documents/2024/06/05/a.txt", "documents/2024/07/01/b.txt", "other/c.txt"} {
		_, err := s.Put(ctx, p, []byte("x"), "text/plain")
		require.NoError(t, err)
	}

	all, err := s.List(ctx, DefaultPrefix)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	june, err := s.List(ctx, "documents/2024/06/")
	require.NoError(t, err)
	require.Len(t, june, 1)
	assert.Equal(t, "documents/2024/06/05/a.txt", june[0].Path)
	assert.Equal(t, int64(1), june[0].Size)

	none, err := s.List(ctx, "missing/")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestBoltStoreRejectsTraversal(t *testing.T) {
	_, err := newTestBoltStore(t).Put(context.Background(), "../escape.txt", []byte("x"), "text/plain")
	require.Error(t, err)
	assert.Equal(t, 400, common.HTTPStatus(err))
}
