package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLoggerRestores(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	restore := SetLogger(zap.New(core))

	Named("wrapper").Debug("registered", zap.String("kind", "value"))

	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "wrapper", logs.All()[0].LoggerName)

	restore()
	L().Debug("dropped")
	assert.Equal(t, 1, logs.Len())
}

func TestSetLoggerNil(t *testing.T) {
	restore := SetLogger(nil)
	defer restore()
	assert.NotNil(t, L())
}
