// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPopularityRecordFailed(t *testing.T) {
	assert.False(t, PopularityRecord{Dataset: "iris", Count: 3}.Failed())
	assert.True(t, PopularityRecord{Dataset: "iris", Err: errors.New("boom")}.Failed())
}

func TestConfigError(t *testing.T) {
	base := errors.New("no such file")
	err := fmt.Errorf("loading: %w", WrapConfig("reading catalog", base))

	assert.True(t, IsConfigError(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "loading: configuration error: reading catalog: no such file", err.Error())

	assert.Nil(t, WrapConfig("unused", nil))
	assert.False(t, IsConfigError(base))
	assert.EqualError(t, Configf("missing %s", "token"), "configuration error: missing token")
}
