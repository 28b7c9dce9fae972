package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltersBelowConfigured(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelWarn, Output: &buf})

	l.Debug("too quiet to show")
	l.Info("still too quiet")
	l.Warn("this one shows", "queue", 3)

	out := buf.String()
	assert.NotContains(t, out, "too quiet")
	assert.Contains(t, out, "[WARN] this one shows queue=3")
}

func TestDefaultIsReplaceable(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New(&Config{Level: LevelDebug, Output: &buf}))
	defer SetDefault(nil)

	Default().Infof("completions=%d", 5)
	assert.True(t, strings.Contains(buf.String(), "completions=5"))
}
