package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		path     string
		expected string
	}{
		{name: "no prefix", prefix: "", path: "informes/informe_OTRAS-1.pdf", expected: "informe_OTRAS-1.pdf"},
		{name: "prefix", prefix: "obras/2024", path: "informes/informe_OTRAS-1.pdf", expected: "obras/2024/informe_OTRAS-1.pdf"},
		{name: "slashes trimmed", prefix: "/obras/", path: "informe_CONVE-2.pdf", expected: "obras/informe_CONVE-2.pdf"},
		{name: "windows prefix", prefix: `obras\2024`, path: "informe.pdf", expected: "obras/2024/informe.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ObjectName(tt.prefix, tt.path))
		})
	}
}

func TestPublicURL(t *testing.T) {
	cfg := Config{Endpoint: "localhost:9000", Bucket: "informes"}
	assert.Equal(t, "http://localhost:9000/informes/a.pdf", PublicURL(cfg, "a.pdf"))

	cfg.UseSSL = true
	assert.Equal(t, "https://localhost:9000/informes/a.pdf", PublicURL(cfg, "a.pdf"))
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{Endpoint: "localhost:9000"}.Enabled())
	assert.True(t, Config{Endpoint: "localhost:9000", Bucket: "informes"}.Enabled())
}

func TestPublishUnreachableEndpoint(t *testing.T) {
	u, err := NewUploader(Config{Endpoint: "127.0.0.1:1", Bucket: "informes", AccessKey: "k", SecretKey: "s"}, logger.Discard())
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "informe.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.4"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = u.Publish(ctx, file)
	assert.Error(t, err)
}
