package log

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, LevelFromString("debug"), LevelDebug)
	assert.Equal(t, LevelFromString("warning"), LevelWarning)
	assert.Equal(t, LevelFromString("error"), LevelError)
	assert.Equal(t, LevelFromString("bogus"), LevelInfo)
}

func TestNewAndClose(t *testing.T) {
	l := New(LevelWarning, false)
	l.Close()
}
