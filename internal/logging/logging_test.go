package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("chatty").GetLevel())

	formatter, ok := New("warn").Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
	assert.True(t, formatter.FullTimestamp)
}

func TestLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, "info", Level(false, "info"))
	assert.Equal(t, "debug", Level(true, "info"))

	t.Setenv("LOG_LEVEL", "error")
	assert.Equal(t, "error", Level(true, "info"))
}
