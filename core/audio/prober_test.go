package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	out := []byte(`{"format":{"duration":"123.456000","size":"1048576"}}`)
	duration, err := ParseDuration(out)
	require.NoError(t, err)
	assert.InDelta(t, 123.456, duration, 0.001)
}

func TestParseDurationMissing(t *testing.T) {
	_, err := ParseDuration([]byte(`{"format":{}}`))
	assert.Error(t, err)
}

func TestParseDurationBadJSON(t *testing.T) {
	_, err := ParseDuration([]byte(`not json at all`))
	assert.Error(t, err)
}

func TestParseDurationBadNumber(t *testing.T) {
	_, err := ParseDuration([]byte(`{"format":{"duration":"N/A"}}`))
	assert.Error(t, err)
}
