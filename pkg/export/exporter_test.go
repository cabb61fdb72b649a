package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"document_name", "status"},
		Rows: []map[string]string{
			{"document_name": "Protocol, v2", "status": "current"},
			{"document_name": "=HYPERLINK(\"x\")", "status": "missing"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "document_name,status\n\"Protocol, v2\",current\n\"'=HYPERLINK(\"\"x\"\")\",missing\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := Dataset{Headers: []string{"a", "b", "c", "d", "e", "f", "g"}}
	for i := 0; i < 80; i++ {
		data.Rows = append(data.Rows, map[string]string{"a": "Investigator brochure with a very long title that needs truncating"})
	}
	out, err := NewPDFExporter().Render(data, "Document inventory")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 40))
	assert.Equal(t, "abcdefghi...", truncate("abcdefghijklmnopqrstuvwxyz", 20))
}
