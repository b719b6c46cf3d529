package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_PutGetRename(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	key, err := s.Put("model.gob", strings.NewReader("v1"))
	require.NoError(t, err)
	assert.Equal(t, "model.gob", key)

	ok, err := s.Exists("model.gob")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Rename("model.gob", "model.gob.backup"))
	ok, err = s.Exists("model.gob")
	require.NoError(t, err)
	assert.False(t, ok)

	rc, err := s.Get("model.gob.backup")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(b))

	assert.True(t, strings.HasPrefix(s.URL("model.gob"), "file://"))
}

func TestFSStore_Errors(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put("", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = s.Get("absent")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Rename("absent", "other"), ErrNotFound)
}

func TestFSStore_KeysStayUnderBase(t *testing.T) {
	base := t.TempDir()
	s, err := NewFSStore(base)
	require.NoError(t, err)

	_, err = s.Put("../escape.gob", strings.NewReader("x"))
	require.NoError(t, err)
	ok, err := s.Exists("escape.gob")
	require.NoError(t, err)
	assert.True(t, ok)
}
