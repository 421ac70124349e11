package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFile_MapKey(t *testing.T) {
	t.Parallel()

	m := map[LocalFile]int{}
	m[Image("a.png")]++
	m[Image("a.png")]++
	m[Audio("a.png")]++
	m[Image("A.png")]++

	assert.Equal(t, 2, m[Image("a.png")])
	assert.Equal(t, 1, m[Audio("a.png")])
	assert.Equal(t, 1, m[Image("A.png")])
	assert.Len(t, m, 3)
}

func TestExt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".jpg", Ext("Photo.JPG"))
	assert.Equal(t, "", Ext("noext"))
	assert.Equal(t, ".webp", Image("x.y.WebP").Ext())
}

func TestKindHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAudioFile("song.MP3"))
	assert.False(t, IsAudioFile("pic.png"))
	assert.True(t, MayBeAnimated("cat.gif"))
	assert.False(t, MayBeAnimated("cat.jpg"))
}

func TestDetectAnimated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	gifAsPNG := filepath.Join(dir, "paste.png")
	require.NoError(t, os.WriteFile(gifAsPNG, []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), 0644))
	plainPNG := filepath.Join(dir, "still.png")
	require.NoError(t, os.WriteFile(plainPNG, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0644))

	assert.True(t, DetectAnimated(gifAsPNG))
	assert.False(t, DetectAnimated(plainPNG))
	assert.True(t, DetectAnimated(filepath.Join(dir, "missing.webm")))
	assert.False(t, DetectAnimated(filepath.Join(dir, "missing.jpg")))
}
