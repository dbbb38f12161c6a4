package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetters(t *testing.T) {
	t.Setenv("INFORMES_TEST_STR", "informes")
	t.Setenv("INFORMES_TEST_INT", "42")
	t.Setenv("INFORMES_TEST_BAD_INT", "x")
	t.Setenv("INFORMES_TEST_BOOL", "true")
	t.Setenv("INFORMES_TEST_LIST", "ID, UVI Restante ,,")

	assert.Equal(t, "informes", GetString("INFORMES_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", GetString("INFORMES_TEST_MISSING", "fallback"))
	assert.Equal(t, 42, GetInt("INFORMES_TEST_INT", 1))
	assert.Equal(t, 1, GetInt("INFORMES_TEST_BAD_INT", 1))
	assert.True(t, GetBool("INFORMES_TEST_BOOL", false))
	assert.Equal(t, []string{"ID", "UVI Restante"}, GetList("INFORMES_TEST_LIST", nil))
	assert.Equal(t, []string{"a"}, GetList("INFORMES_TEST_MISSING", []string{"a"}))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("INFORMES_DOTENV_KEY=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("INFORMES_DOTENV_KEY") })

	require.NoError(t, Load(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", GetString("INFORMES_DOTENV_KEY", ""))
}
