package domain

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMarkers(t *testing.T) {
	cause := errors.New("connection reset")
	err := errors.Wrap(MarkTransient(cause), "list objects")

	assert.True(t, IsTransientRemote(err))
	assert.False(t, IsPerObject(err))
	assert.True(t, errors.Is(err, cause))

	assert.True(t, IsPerObject(MarkPerObject(errors.New("bad json"))))
	assert.True(t, IsProcessing(MarkProcessing(errors.New("boom"))))
	assert.True(t, IsConfiguration(ConfigError("%s is required", "DATA_BUCKET")))
	assert.Contains(t, ConfigError("%s is required", "DATA_BUCKET").Error(), "DATA_BUCKET is required")

	assert.Nil(t, MarkTransient(nil))
	assert.True(t, IsNotFound(errors.Wrap(ErrNotFound, "get key")))
}
