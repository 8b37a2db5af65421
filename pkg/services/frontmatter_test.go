package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-cms/pkg/services"
)

func TestParseFrontMatter(t *testing.T) {
	tests := []struct {
		name    string
		content string
		format  string
		title   string
		body    string
	}{
		{name: "yaml", content: "---\ntitle: Hello\n---\nBody text\n", format: services.FormatYAML, title: "Hello", body: "Body text"},
		{name: "yaml crlf", content: "---\r\ntitle: Hello\r\n---\r\nBody\r\n", format: services.FormatYAML, title: "Hello", body: "Body"},
		{name: "toml", content: "+++\ntitle = \"Hello\"\n+++\nBody\n", format: services.FormatTOML, title: "Hello", body: "Body"},
		{name: "json", content: "{\"title\": \"Hello\"}\nBody\n", format: services.FormatJSON, title: "Hello", body: "Body"},
		{name: "json only", content: "{\"title\": \"Hello\"}", format: services.FormatJSON, title: "Hello", body: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, format, err := services.ParseFrontMatter([]byte(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, tt.title, fm["title"])
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestParseFrontMatter_Unknown(t *testing.T) {
	_, _, _, err := services.ParseFrontMatter([]byte("just text"))
	assert.ErrorIs(t, err, services.ErrUnknownFrontMatter)
}

func TestConstructFileContent_RoundTrip(t *testing.T) {
	for _, format := range []string{services.FormatYAML, services.FormatTOML, services.FormatJSON} {
		t.Run(format, func(t *testing.T) {
			out, err := services.ConstructFileContent(map[string]interface{}{"title": "Hi"}, "Body", format)
			require.NoError(t, err)
			fm, body, got, err := services.ParseFrontMatter(out)
			require.NoError(t, err)
			assert.Equal(t, format, got)
			assert.Equal(t, "Hi", fm["title"])
			assert.Equal(t, "Body", body)
		})
	}
}

func TestApplyCollectionDefaults(t *testing.T) {
	fm := map[string]interface{}{"_status": "published"}
	services.ApplyCollectionDefaults(fm, map[string]interface{}{"_status": "draft", "hero": "x"})
	assert.Equal(t, "published", fm["_status"])
	assert.Equal(t, "x", fm["hero"])
}

func TestSafeJoin(t *testing.T) {
	assert.Equal(t, "/data/media/a.png", services.SafeJoin("/data", "media", "a.png"))
	assert.Equal(t, "", services.SafeJoin("/data", "media", "../etc/passwd"))
}
