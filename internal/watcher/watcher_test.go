package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemshloyda/mediaconverter/internal/config"
	"github.com/artemshloyda/mediaconverter/internal/media"
	"github.com/artemshloyda/mediaconverter/internal/notestore"
)

func TestWatch_EmitsConvertibleFiles(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.MediaDir = t.TempDir()
	cfg.BulkReconvert = true

	w, err := New(cfg, logger.New())
	require.NoError(t, err)
	w.SetDebounceTime(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, err := w.Watch(ctx)
	require.NoError(t, err)

	for _, name := range []string{"done.webp", "notes.txt", "cat.png", "voice.mp3"} {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.MediaDir, name), []byte("data"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(cfg.MediaDir, "sub.png"), 0755))

	var got []media.LocalFile
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case batch, ok := <-batches:
			require.True(t, ok)
			got = append(got, batch...)
		case <-timeout:
			t.Fatalf("файлы не получены, есть: %v", got)
		}
	}

	assert.ElementsMatch(t, []media.LocalFile{media.Image("cat.png"), media.Audio("voice.mp3")}, got)

	cancel()
	for range batches {
	}
}

func TestTakeReady_Debounce(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.MediaDir = t.TempDir()

	w, err := New(cfg, logger.New())
	require.NoError(t, err)
	defer func() { _ = w.Close() }()
	w.SetDebounceTime(time.Second)

	now := time.Now()
	path := filepath.Join(cfg.MediaDir, "b.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	w.pending[path] = pendingFile{file: media.Image("b.png"), at: now}
	w.pending[filepath.Join(cfg.MediaDir, "gone.png")] = pendingFile{file: media.Image("gone.png"), at: now.Add(-time.Hour)}

	assert.Empty(t, w.takeReady(now.Add(500*time.Millisecond)))
	assert.Len(t, w.pending, 1)

	assert.Equal(t, []media.LocalFile{media.Image("b.png")}, w.takeReady(now.Add(2*time.Second)))
	assert.Empty(t, w.pending)
}

// fakeConverter записывает файл с расширением .webp или .ogg.
type fakeConverter struct {
	dir   string
	mu    sync.Mutex
	calls []string
}

func (c *fakeConverter) Convert(_ context.Context, file media.LocalFile, _ *notestore.Note, _ int) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, file.Name)
	c.mu.Unlock()

	ext := ".webp"
	if file.Kind == media.KindAudio {
		ext = ".ogg"
	}
	name := strings.TrimSuffix(file.Name, filepath.Ext(file.Name)) + ext
	return name, os.WriteFile(filepath.Join(c.dir, name), []byte("x"), 0644)
}

func TestHandler_ConvertsReferencingNotes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.MediaDir = t.TempDir()
	cfg.BulkReconvert = true

	store, err := notestore.Open(filepath.Join(t.TempDir(), "notes.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	nt, err := store.AddNotetype(ctx, "Basic", []string{"Front", "Back"}, 0)
	require.NoError(t, err)
	n1, err := store.AddNote(ctx, nt, []string{`<img src="cat.png"><img src="old.webp">`, ``})
	require.NoError(t, err)
	n2, err := store.AddNote(ctx, nt, []string{`no media`, ``})
	require.NoError(t, err)

	for _, name := range []string{"cat.png", "old.webp"} {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.MediaDir, name), []byte("data"), 0644))
	}

	conv := &fakeConverter{dir: cfg.MediaDir}
	h := NewHandler(store, cfg, conv, logger.New())

	report, err := h.Handle(ctx, []media.LocalFile{media.Image("cat.png")})
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Len(t, report.Converted, 1)
	assert.Equal(t, 1, report.NotesUpdated)
	assert.Equal(t, []string{"cat.png"}, conv.calls)

	note, err := store.GetNote(ctx, n1.ID)
	require.NoError(t, err)
	assert.Equal(t, `<img src="cat.webp"><img src="old.webp">`, note.Values()[0])

	note, err = store.GetNote(ctx, n2.ID)
	require.NoError(t, err)
	assert.Equal(t, `no media`, note.Values()[0])

	report, err = h.Handle(ctx, []media.LocalFile{media.Image("unused.png")})
	require.NoError(t, err)
	assert.Nil(t, report)
}
