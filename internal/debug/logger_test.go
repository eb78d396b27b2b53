package debug

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitWriter(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(func() { Init(false) })

	InitWriter(true, &buf)
	assert.True(t, Enabled())
	Debug("loaded schema", "key", "eppm:24.12")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "key=eppm:24.12")

	buf.Reset()
	InitWriter(false, &buf)
	assert.False(t, Enabled())
	Warn("dropped")
	assert.Empty(t, buf.String())
}
