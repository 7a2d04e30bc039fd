package spot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	src := "Old town walk.\r\n\r\n[Food]\nRamen at Ichiran\n  \n[ Hours ]\n09:00-18:00\n\n[]\n[Tips]\n"

	c := Parse(src)

	assert.Equal(t, "Old town walk.", c.Preamble)
	require.Len(t, c.Sections, 3)
	assert.Equal(t, Section{Name: "Food", Body: "Ramen at Ichiran"}, c.Sections[0])
	assert.Equal(t, Section{Name: "Hours", Body: "09:00-18:00\n\n[]"}, c.Sections[1])
	assert.Equal(t, Section{Name: "Tips", Body: ""}, c.Sections[2])
}

func TestParse_NoSections(t *testing.T) {
	c := Parse("  just some notes \n")
	assert.Equal(t, "just some notes", c.Preamble)
	assert.Empty(t, c.Sections)

	assert.Equal(t, Content{}, Parse(""))
}

func TestContent_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		want    string
	}{
		{
			name: "preamble and sections",
			content: Content{
				Preamble: "Intro",
				Sections: []Section{{Name: "Food", Body: "Ramen\nSushi"}, {Name: "Empty"}},
			},
			want: "Intro\n\n[Food]\nRamen\nSushi\n\n[Empty]",
		},
		{
			name:    "sections only",
			content: Content{Sections: []Section{{Name: "Access", Body: "Line 3"}}},
			want:    "[Access]\nLine 3",
		},
		{
			name:    "preamble only",
			content: Content{Preamble: "Nothing else"},
			want:    "Nothing else",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.content.Validate())
			out := tt.content.String()
			assert.Equal(t, tt.want, out)
			assert.Equal(t, tt.content, Parse(out))
		})
	}
}

func TestContent_Section(t *testing.T) {
	c := Parse("[Food]\nRamen\n[Hours]\nall day")

	s, ok := c.Section("  food ")
	require.True(t, ok)
	assert.Equal(t, "Ramen", s.Body)

	_, ok = c.Section("parking")
	assert.False(t, ok)
}

func TestContent_Validate(t *testing.T) {
	assert.ErrorIs(t, Content{Sections: []Section{{Name: " "}}}.Validate(), ErrEmptySectionName)
	assert.ErrorIs(t, Content{Sections: []Section{{Name: "a]b"}}}.Validate(), ErrInvalidSection)
	assert.ErrorIs(t, Content{Sections: []Section{{Name: "Food", Body: "ok\n[Drinks]\nbeer"}}}.Validate(), ErrInvalidSection)
	assert.ErrorIs(t, Content{Preamble: "[Food]"}.Validate(), ErrInvalidSection)
}

func TestLinks(t *testing.T) {
	src := "See [the map](https://maps.example.com/spot?id=7) and https://example.org/menu.\n" +
		"Mail info@example.org, or <https://example.org/menu>. Ignore ftp://files.example.com/x " +
		"and [relative](/local)."

	assert.Equal(t, []string{
		"https://maps.example.com/spot?id=7",
		"https://example.org/menu",
	}, Links(src))

	assert.Empty(t, Links("no links here"))
}
