package storage

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchkit-dev/launchkit/internal/config"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "report.pdf", expected: "report.pdf"},
		{name: "spaces and unicode", input: "my résumé.pdf", expected: "my_r_sum_.pdf"},
		{name: "unix path", input: "../../etc/passwd", expected: "passwd"},
		{name: "windows path", input: `C:\Users\me\photo.png`, expected: "photo.png"},
		{name: "dots only", input: "...", expected: "file"},
		{name: "empty", input: "", expected: "file"},
		{name: "hidden file", input: ".env", expected: "env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilename_TruncatesKeepingExtension(t *testing.T) {
	long := strings.Repeat("a", 150) + ".txt"

	got := SanitizeFilename(long)

	assert.Len(t, got, maxFilenameLength)
	assert.True(t, strings.HasSuffix(got, ".txt"))
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("user-1", "hello world.txt")

	pattern := regexp.MustCompile(`^users/user-1/[0-9A-HJKMNP-TV-Z]{26}-hello_world\.txt$`)
	assert.Regexp(t, pattern, key)
	assert.NotEqual(t, key, ObjectKey("user-1", "hello world.txt"))
}

func TestDetectContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	assert.Equal(t, "image/png", DetectContentType(png, ""))
	assert.Equal(t, "image/png", DetectContentType(png, "application/octet-stream"))
	assert.Equal(t, "text/csv", DetectContentType(png, "text/csv"))
	assert.True(t, strings.HasPrefix(DetectContentType([]byte("hello"), ""), "text/plain"))
}

func TestNewMinIO(t *testing.T) {
	store, err := NewMinIO(config.StorageConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "uploads",
	})
	require.NoError(t, err)
	assert.Equal(t, "uploads", store.Bucket())
}
