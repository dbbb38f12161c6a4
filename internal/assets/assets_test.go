package assets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadBundle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "images", "banner.jpg"), "banner")
	writeFile(t, filepath.Join(dir, "fonts", "EncodeSans-Regular.ttf"), "font")

	b := LoadBundle(dir, logger.Discard())

	assert.Equal(t, "data:image/jpeg;base64,YmFubmVy", b.Banner)
	assert.Equal(t, "data:font/ttf;base64,Zm9udA==", b.FontRegular)
	assert.Empty(t, b.Footer)
	assert.Empty(t, b.FontBold)
}

func TestFinderImagesFromProjectFolder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "OTRAS-1", "a.jpg"), "a")
	writeFile(t, filepath.Join(root, "OTRAS-1", "principal.png"), "p")
	writeFile(t, filepath.Join(root, "OTRAS-1", "notas.txt"), "x")
	writeFile(t, filepath.Join(root, "OTRAS-1_2.jpg"), "b")
	writeFile(t, filepath.Join(root, "OTRAS-10.jpg"), "other")

	images := NewFinder(root, logger.Discard()).Images("OTRAS-1")

	assert.True(t, strings.HasPrefix(images.Principal, "data:image/png;base64,"))
	assert.Len(t, images.Extra, 2)
}

func TestFinderFirstFileIsPrincipalByDefault(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "CONVE-7.jpg"), "one")

	images := NewFinder(root, logger.Discard()).Images("CONVE-7")

	assert.Equal(t, "data:image/jpeg;base64,b25l", images.Principal)
	assert.Empty(t, images.Extra)
	assert.NotNil(t, images.Extra)
}

func TestFinderWithoutImages(t *testing.T) {
	images := NewFinder(t.TempDir(), logger.Discard()).Images("OTRAS-404")
	assert.Empty(t, images.Principal)
	assert.Empty(t, images.Extra)

	images = NewFinder("", logger.Discard()).Images("OTRAS-1")
	assert.Empty(t, images.Principal)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "OTRAS-1A", SafeName(`OTRAS-1/A`))
	assert.Equal(t, "abc", SafeName(`a<b>c?*|:"\`))
}
