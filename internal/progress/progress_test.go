package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBar_SetIsMonotonic(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	b := New(Options{Total: 5, Writer: &buf})

	on := b.Handler()
	on(0)
	on(2)
	on(1)
	on(3)

	done, total := b.Done()
	assert.Equal(t, 3, done)
	assert.Equal(t, 5, total)

	b.Canceling()
	b.Canceling()
	b.Finish()
	assert.NotEmpty(t, buf.String())
}

func TestBar_Disabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	b := New(Options{Total: 3, Disabled: true, Writer: &buf})
	assert.True(t, b.IsDisabled())

	b.Set(3)
	b.Finish()
	assert.Empty(t, buf.String())

	b.WriteMessage("✅ %s\n", "a.png")
	assert.Equal(t, "✅ a.png\n", buf.String())
}
