package storage

import (
	"testing"

	"MeetScribe/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore() *AudioStore {
	return NewAudioStore(nil, &config.Config{
		MinioEndpoint: "minio.local:9000",
		MinioBucket:   "meetscribe",
	})
}

func TestNormalizeKeyBare(t *testing.T) {
	s := testStore()

	key, err := s.NormalizeKey("123/abc")
	require.NoError(t, err)
	assert.Equal(t, "123/abc", key)
}

func TestNormalizeKeyFullURL(t *testing.T) {
	s := testStore()

	key, err := s.NormalizeKey("http://minio.local:9000/meetscribe/123/abc")
	require.NoError(t, err)
	assert.Equal(t, "123/abc", key)
}

func TestNormalizeKeyURLWithoutBucket(t *testing.T) {
	s := testStore()

	key, err := s.NormalizeKey("https://host/u123/abc")
	require.NoError(t, err)
	assert.Equal(t, "u123/abc", key)
}

func TestNormalizeKeyLeadingSlash(t *testing.T) {
	s := testStore()

	key, err := s.NormalizeKey("/123/abc")
	require.NoError(t, err)
	assert.Equal(t, "123/abc", key)
}

func TestNormalizeKeyEmpty(t *testing.T) {
	s := testStore()

	_, err := s.NormalizeKey("")
	assert.Error(t, err)

	_, err = s.NormalizeKey("http://minio.local:9000/")
	assert.Error(t, err)
}
