package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvatarExtension(t *testing.T) {
	ext, ok := AvatarExtension(" Image/PNG ")
	assert.True(t, ok)
	assert.Equal(t, "png", ext)

	_, ok = AvatarExtension("application/pdf")
	assert.False(t, ok)
}

func TestAvatarObjectKey(t *testing.T) {
	a := AvatarObjectKey("u1", "jpg")
	b := AvatarObjectKey("u1", "jpg")

	assert.True(t, strings.HasPrefix(a, "avatars/u1/"))
	assert.True(t, strings.HasSuffix(a, ".jpg"))
	assert.NotEqual(t, a, b)
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://minio:9000", endpointURL("minio:9000", false))
	assert.Equal(t, "https://s3.example.com", endpointURL("s3.example.com", true))
	assert.Equal(t, "http://minio:9000", endpointURL("http://minio:9000", true))
}
