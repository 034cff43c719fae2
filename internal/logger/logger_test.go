package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitSetsServiceLogger(t *testing.T) {
	Init("pizzeria-test", "prod", "warn")
	assert.NotNil(t, L())
	assert.False(t, L().Core().Enabled(-1))
	assert.True(t, L().Core().Enabled(1))
	assert.NotNil(t, S())
	Sync()
}
