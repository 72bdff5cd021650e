package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsVideo(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"fight.mp4", true},
		{"FIGHT.MOV", true},
		{"/inbox/clip.avi", true},
		{"notes.txt", false},
		{".fight.mp4", false},
		{"noext", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, isVideo(tc.name), tc.name)
	}
}

func TestOutputFor(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "yard"), outputFor("out", "/inbox/yard.mp4"))
	assert.Equal(t, filepath.Join("out", "a.b"), outputFor("out", "a.b.avi"))
}

func TestPendingOldestFirst(t *testing.T) {
	dir := t.TempDir()

	now := time.Now()
	files := map[string]time.Time{
		"second.mp4": now.Add(-time.Minute),
		"first.avi":  now.Add(-time.Hour),
		"skip.txt":   now.Add(-2 * time.Hour),
	}

	for name, mod := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(path, mod, mod))
	}

	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.mp4"), 0o755))

	got, err := pending(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "first.avi"),
		filepath.Join(dir, "second.mp4"),
	}, got)

	_, err = pending(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestSettle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	require.NoError(t, settle(context.Background(), path))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	empty := filepath.Join(t.TempDir(), "empty.mp4")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	assert.ErrorIs(t, settle(ctx, empty), context.Canceled)

	assert.Error(t, settle(context.Background(), filepath.Join(t.TempDir(), "missing.mp4")))
}
