package scanner

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemshloyda/mediaconverter/internal/config"
	"github.com/artemshloyda/mediaconverter/internal/media"
)

const mixedImages = `<img src="1.webp"><img src="2.jpg"><img src="3.avif"><img src="4.png"><img src="5.svg">`

func newScanner(mutate func(c *config.Config)) *Scanner {
	cfg := config.DefaultConfig()
	cfg.ExcludedImageContainers = "svg,webp,avif"
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg)
}

func TestImages_DefaultExclusions(t *testing.T) {
	t.Parallel()

	s := newScanner(nil)

	assert.Equal(t, []string{"2.jpg", "4.png"}, slices.Collect(s.Images(mixedImages, false)))
	assert.Equal(t, []string{"1.webp", "2.jpg", "4.png"}, slices.Collect(s.Images(mixedImages, true)))
}

func TestImages_EmptyExclusionStillExcludesTarget(t *testing.T) {
	t.Parallel()

	s := newScanner(func(c *config.Config) {
		c.ExcludedImageContainers = ""
		c.ImageFormat = config.FormatAVIF
	})

	got := slices.Collect(s.Images(mixedImages, false))
	assert.ElementsMatch(t, []string{"1.webp", "2.jpg", "4.png", "5.svg"}, got)
	assert.NotContains(t, got, "3.avif")

	assert.Contains(t, slices.Collect(s.Images(mixedImages, true)), "3.avif")
}

func TestImages_Patterns(t *testing.T) {
	t.Parallel()

	s := newScanner(nil)

	tests := []struct {
		name string
		html string
		want []string
	}{
		{name: "no images", html: "plain text", want: nil},
		{name: "upper case tag", html: `<IMG SRC="a.png">`, want: []string{"a.png"}},
		{name: "attributes around src", html: `<img class="x" src="b c.jpg" alt="y">`, want: []string{"b c.jpg"}},
		{name: "single quotes", html: `<img src='q.png'>`, want: []string{"q.png"}},
		{name: "duplicates kept", html: `<img src="d.png"><img src="d.png">`, want: []string{"d.png", "d.png"}},
		{name: "data-src ignored", html: `<img data-src="lazy.png">`, want: nil},
		{name: "excluded upper ext", html: `<img src="x.WEBP">`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, slices.Collect(s.Images(tt.html, false)))
		})
	}
}

func TestAudio(t *testing.T) {
	t.Parallel()

	s := newScanner(nil)
	html := `[sound:a.mp3] text [SOUND:b.ogg] [sound:c.opus] [sound:d e.wav]`

	assert.Equal(t, []string{"a.mp3", "d e.wav"}, slices.Collect(s.Audio(html, false)))
	assert.Equal(t, []string{"a.mp3", "b.ogg", "d e.wav"}, slices.Collect(s.Audio(html, true)))
}

func TestImages_Restartable(t *testing.T) {
	t.Parallel()

	s := newScanner(nil)
	seq := s.Images(mixedImages, false)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)

	// Ранний выход не ломает следующие проходы
	for range seq {
		break
	}
	assert.Equal(t, first, slices.Collect(seq))
}

func TestFiles(t *testing.T) {
	t.Parallel()

	html := `<img src="pic.jpg"><img src="pic.webp">[sound:voice.mp3]`

	s := newScanner(nil)
	assert.Equal(t, []media.LocalFile{media.Image("pic.jpg"), media.Audio("voice.mp3")}, slices.Collect(s.Files(html)))

	reconvert := newScanner(func(c *config.Config) { c.BulkReconvert = true })
	assert.Contains(t, slices.Collect(reconvert.Files(html)), media.Image("pic.webp"))

	noAudio := newScanner(func(c *config.Config) { c.EnableAudioConversion = false })
	assert.Equal(t, []media.LocalFile{media.Image("pic.jpg")}, slices.Collect(noAudio.Files(html)))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	s := newScanner(nil)

	tests := []struct {
		name   string
		want   media.LocalFile
		wantOK bool
	}{
		{name: "a.png", want: media.Image("a.png"), wantOK: true},
		{name: "a.webp"},
		{name: "a.mp3", want: media.Audio("a.mp3"), wantOK: true},
		{name: "a.ogg"},
		{name: "notes.txt"},
	}

	for _, tt := range tests {
		got, ok := s.Classify(tt.name)
		assert.Equal(t, tt.wantOK, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestListMediaAndHash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("abc"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_template.css"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	files, err := ListMedia(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.png", files[0].Name)
	assert.EqualValues(t, 3, files[0].Size)

	sum, err := ComputeSHA256(files[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
}
