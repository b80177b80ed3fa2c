// Package obslog is a small leveled logger in the teacher's
// plugin/debug.go style: colored level prefixes, one logger per
// component, level controlled by an environment variable.
package obslog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

const (
	LevelTrace = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	levelNoPrint
)

var (
	magenta = string([]byte{27, 91, 57, 53, 109})
	green   = string([]byte{27, 91, 57, 50, 109})
	blue    = string([]byte{27, 91, 57, 52, 109})
	yellow  = string([]byte{27, 91, 57, 51, 109})
	red     = string([]byte{27, 91, 57, 49, 109})
	reset   = string([]byte{27, 91, 48, 109})

	colors    = []string{magenta, green, blue, yellow, red}
	levelName = []string{"Trace", "Debug", "Info", "Warn", "Error"}
)

var globalLevel = LevelInfo

func init() {
	if v := os.Getenv("SHMRPC_LOG_LEVEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n <= levelNoPrint {
			globalLevel = n
		}
	}
}

// SetLevel changes the package-wide minimum level. The process env
// SHMRPC_LOG_LEVEL is read once at init and can be overridden by this.
func SetLevel(l int) {
	if l <= levelNoPrint {
		globalLevel = l
	}
}

// Logger writes leveled, prefixed lines to an io.Writer.
type Logger struct {
	name string
	out  io.Writer
}

// New creates a component logger. A nil out defaults to os.Stdout.
func New(name string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{name: name, out: out}
}

func (l *Logger) log(level int, format string, a ...interface{}) {
	if globalLevel > level {
		return
	}
	var buf bytes.Buffer
	buf.WriteString(colors[level])
	buf.WriteString(levelName[level])
	buf.WriteByte(' ')
	buf.WriteString(time.Now().Format("2006-01-02 15:04:05.999999"))
	buf.WriteByte(' ')
	buf.WriteString(l.name)
	buf.WriteByte(' ')
	fmt.Fprintf(&buf, format, a...)
	buf.WriteString(reset)
	buf.WriteByte('\n')
	_, _ = l.out.Write(buf.Bytes())
}

func (l *Logger) Tracef(format string, a ...interface{}) { l.log(LevelTrace, format, a...) }
func (l *Logger) Debugf(format string, a ...interface{}) { l.log(LevelDebug, format, a...) }
func (l *Logger) Infof(format string, a ...interface{})  { l.log(LevelInfo, format, a...) }
func (l *Logger) Warnf(format string, a ...interface{})  { l.log(LevelWarn, format, a...) }
func (l *Logger) Errorf(format string, a ...interface{}) { l.log(LevelError, format, a...) }
