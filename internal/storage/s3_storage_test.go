package storage

import (
	"strings"
	"testing"

	"github.com/madness-store/madness-backend/config"
	"github.com/stretchr/testify/assert"
)

func newTestStorage(baseURL string) *S3Storage {
	return NewS3Storage(config.S3Config{
		Region:          "ap-southeast-1",
		Bucket:          "madness-test",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		BaseURL:         baseURL,
	})
}

func TestS3Storage_URL(t *testing.T) {
	cdn := newTestStorage("https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/products/a.png", cdn.URL("products/a.png"))
	assert.Equal(t, "", cdn.URL(""))
	assert.Equal(t, "https://elsewhere.com/x.png", cdn.URL("https://elsewhere.com/x.png"))

	direct := newTestStorage("")
	assert.Equal(t, "https://madness-test.s3.ap-southeast-1.amazonaws.com/products/a.png", direct.URL("products/a.png"))
}

func TestNewKey(t *testing.T) {
	key := NewKey("products", "Shirt.PNG")
	assert.True(t, strings.HasPrefix(key, "products/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, NewKey("products", "Shirt.PNG"))
}

func TestValidation(t *testing.T) {
	assert.NoError(t, ValidateContentType("image/png", ImageContentTypes))
	assert.Error(t, ValidateContentType("application/pdf", ImageContentTypes))
	assert.NoError(t, ValidateFileSize(MaxImageSize, MaxImageSize))
	assert.Error(t, ValidateFileSize(MaxImageSize+1, MaxImageSize))
}
