package dedup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemshloyda/mediaconverter/internal/notestore"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

func TestCollect(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"cat.png":       "CAT",
		"cat-copy.png":  "CAT",
		"cat (1).png":   "CAT",
		"dog.png":       "DOG",
		"bird.png":      "BIRD",
		"bird2.png":     "BIRD",
		"_template.png": "CAT",
		".hidden.png":   "CAT",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	d := New(nil, dir, 4, logger.New())
	groups, err := d.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "bird.png", groups[0].Original.Name)
	require.Len(t, groups[0].Copies, 1)
	assert.Equal(t, "bird2.png", groups[0].Copies[0].Name)

	assert.Equal(t, "cat.png", groups[1].Original.Name)
	require.Len(t, groups[1].Copies, 2)
	assert.Equal(t, "cat (1).png", groups[1].Copies[0].Name)
	assert.Equal(t, "cat-copy.png", groups[1].Copies[1].Name)

	assert.Equal(t, 3, CopyCount(groups))
}

func TestDeduplicate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.png":     "SAME",
		"a-2.png":   "SAME",
		"s.mp3":     "SOUND",
		"s-old.mp3": "SOUND",
	})

	store, err := notestore.Open(filepath.Join(t.TempDir(), "notes.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	nt, err := store.AddNotetype(ctx, "Basic", []string{"Front", "Back"}, 0)
	require.NoError(t, err)
	n1, err := store.AddNote(ctx, nt, []string{`<img src="a-2.png">`, `[sound:s-old.mp3]`})
	require.NoError(t, err)
	n2, err := store.AddNote(ctx, nt, []string{`<img src='a-2.png'> mentions a-2.png`, ``})
	require.NoError(t, err)
	n3, err := store.AddNote(ctx, nt, []string{`<img src="a.png">`, ``})
	require.NoError(t, err)

	d := New(store, dir, 2, logger.New())
	groups, err := d.Collect(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	changes, err := d.Deduplicate(ctx, groups)
	require.NoError(t, err)
	assert.Equal(t, 2, changes.Notes)

	get := func(id notestore.NoteID) []string {
		n, err := store.GetNote(ctx, id)
		require.NoError(t, err)
		return n.Values()
	}
	assert.Equal(t, []string{`<img src="a.png">`, `[sound:s.mp3]`}, get(n1.ID))
	assert.Equal(t, []string{`<img src='a.png'> mentions a-2.png`, ``}, get(n2.ID))
	assert.Equal(t, []string{`<img src="a.png">`, ``}, get(n3.ID))

	label, _, err := store.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Replace media links to 2 files in notes", label)
	assert.Equal(t, []string{`<img src="a-2.png">`, `[sound:s-old.mp3]`}, get(n1.ID))

	assert.Equal(t, 2, d.RemoveCopies(groups))
	_, err = os.Stat(filepath.Join(dir, "a-2.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(dir, "a.png"))
	assert.NoError(t, err)
}

func TestDeduplicate_NoGroups(t *testing.T) {
	t.Parallel()

	d := New(nil, t.TempDir(), 1, logger.New())
	changes, err := d.Deduplicate(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, changes.Notes)
}
