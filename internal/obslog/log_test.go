package obslog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultsNilWriterToStdout(t *testing.T) {
	l := New("test", nil)
	assert.NotNil(t, l.out)
}

func TestInfofWritesPrefixedLine(t *testing.T) {
	defer SetLevel(LevelInfo)
	SetLevel(LevelInfo)

	var buf bytes.Buffer
	l := New("comp", &buf)
	l.Infof("hello %d", 42)

	out := buf.String()
	assert.Contains(t, out, "Info")
	assert.Contains(t, out, "comp")
	assert.Contains(t, out, "hello 42")
}

func TestSetLevelSuppressesLowerLevels(t *testing.T) {
	defer SetLevel(LevelInfo)
	SetLevel(LevelError)

	var buf bytes.Buffer
	l := New("comp", &buf)
	l.Infof("should not appear")
	l.Warnf("should not appear either")
	l.Errorf("should appear")

	out := buf.String()
	assert.False(t, strings.Contains(out, "should not appear"))
	assert.Contains(t, out, "should appear")
}

func TestSetLevelAboveNoPrintIsIgnored(t *testing.T) {
	defer SetLevel(LevelInfo)
	SetLevel(LevelInfo)
	SetLevel(levelNoPrint + 1)

	var buf bytes.Buffer
	l := New("comp", &buf)
	l.Infof("still visible")
	assert.Contains(t, buf.String(), "still visible")
}
