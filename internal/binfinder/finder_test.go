package binfinder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFinder(t *testing.T, goos string) (*Finder, string) {
	t.Helper()

	dir := t.TempDir()
	f := NewFinder(dir, nil)
	f.goos = goos
	f.lookPath = func(string) (string, error) { return "", errors.New("not in PATH") }
	return f, dir
}

func TestFind_Bundled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		goos   string
		suffix string
	}{
		{"linux", ".lin"},
		{"darwin", ".mac"},
		{"windows", ".exe"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			t.Parallel()

			f, dir := newTestFinder(t, tt.goos)
			path := filepath.Join(dir, "cwebp"+tt.suffix)
			require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0644))

			info, err := f.Find("cwebp")
			require.NoError(t, err)
			assert.Equal(t, path, info.Path)
			assert.True(t, info.Bundled)

			if tt.goos != "windows" {
				st, err := os.Stat(path)
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(0755), st.Mode().Perm())
			}
		})
	}
}

func TestFind_PathBeforeBundled(t *testing.T) {
	t.Parallel()

	f, dir := newTestFinder(t, "linux")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ffmpeg.lin"), nil, 0644))
	f.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }

	info, err := f.Find("ffmpeg")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/ffmpeg", info.Path)
	assert.False(t, info.Bundled)
}

func TestFind_CustomPath(t *testing.T) {
	t.Parallel()

	f, dir := newTestFinder(t, "linux")
	custom := filepath.Join(dir, "my-cwebp")
	require.NoError(t, os.WriteFile(custom, nil, 0755))
	f.Custom["cwebp"] = custom

	info, err := f.Find("cwebp")
	require.NoError(t, err)
	assert.Equal(t, custom, info.Path)

	f.Custom["ffmpeg"] = filepath.Join(dir, "missing")
	_, err = f.Find("ffmpeg")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFind_NotFoundAndCache(t *testing.T) {
	t.Parallel()

	f, dir := newTestFinder(t, "linux")

	_, err := f.Find("cwebp")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	// Найденный результат кэшируется, даже если файл затем исчезнет
	path := filepath.Join(dir, "cwebp.lin")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	_, err = f.Find("cwebp")
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))
	info, err := f.Find("cwebp")
	require.NoError(t, err)
	assert.Equal(t, path, info.Path)
}

func TestParseVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "6.1.1", parseVersion("ffmpeg", "ffmpeg version 6.1.1 Copyright (c) 2000-2023\nbuilt with gcc"))
	assert.Equal(t, "1.3.2", parseVersion("cwebp", "1.3.2\n"))
}
