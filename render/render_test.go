package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "missing_alt.txt"),
		[]byte("@{{ account }} please add alt text to your media."), 0644)
	require.NoError(t, err)

	r, err := NewRenderer(dir)
	require.NoError(t, err)
	out, err := r.Render("missing_alt.txt", map[string]any{"account": "alice@example.social"})
	require.NoError(t, err)
	assert.Equal("@alice@example.social please add alt text to your media.", out)
}

func TestRenderMissingTemplate(t *testing.T) {
	assert := assert.New(t)

	r, err := NewRenderer(t.TempDir())
	require.NoError(t, err)
	_, err = r.Render("nope.txt", nil)
	require.Error(t, err)

	var te *TemplateError
	require.ErrorAs(t, err, &te)
	assert.Equal("nope.txt", te.Name)
}
