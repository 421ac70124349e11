package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplaceReferences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		old, new string
		want     string
	}{
		{
			name: "double quotes",
			text: `<img src="cat.png">`,
			old:  "cat.png", new: "cat.webp",
			want: `<img src="cat.webp">`,
		},
		{
			name: "single quotes and attributes",
			text: `<img class="x" SRC='cat.png' alt="cat.png">`,
			old:  "cat.png", new: "cat.webp",
			want: `<img class="x" SRC='cat.webp' alt="cat.png">`,
		},
		{
			name: "sound marker",
			text: `[sound:a.mp3] text a.mp3 [SOUND:a.mp3]`,
			old:  "a.mp3", new: "b.ogg",
			want: `[sound:b.ogg] text a.mp3 [SOUND:b.ogg]`,
		},
		{
			name: "shared prefix untouched",
			text: `<img src="cat.png"><img src="bigcat.png"><img src="cat.png.bak">`,
			old:  "cat.png", new: "x.webp",
			want: `<img src="x.webp"><img src="bigcat.png"><img src="cat.png.bak">`,
		},
		{
			name: "regexp metacharacters and dollar",
			text: `<img src="a+(1).png">`,
			old:  "a+(1).png", new: "$1.webp",
			want: `<img src="$1.webp">`,
		},
		{
			name: "case sensitive file name",
			text: `<img src="Cat.png">`,
			old:  "cat.png", new: "x.webp",
			want: `<img src="Cat.png">`,
		},
		{
			name: "no reference",
			text: `plain`,
			old:  "cat.png", new: "x.webp",
			want: `plain`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ReplaceReferences(tt.text, tt.old, tt.new)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, ReplaceReferences(got, tt.old, tt.new))
		})
	}
}
