package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
)

// Log levels constants.
const (
	None = iota
	Error
	Warning
	Info
	Debug
)

// Logger writes leveled, timestamped lines to one or more sinks.
// It is safe for concurrent use.
type Logger struct {
	level atomic.Int32
	std   *log.Logger

	mu   sync.Mutex
	file *os.File // Optional sink opened by Setup.
}

// New returns a Logger writing to w at the given level.
func New(w io.Writer, level int) *Logger {
	l := &Logger{std: log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds)}
	l.level.Store(int32(clamp(level)))
	return l
}

// Discard returns a Logger that drops everything. Handy in tests.
func Discard() *Logger {
	return New(io.Discard, None)
}

func clamp(level int) int {
	if level < None {
		return None
	}
	if level > Debug {
		return Debug
	}
	return level
}

// SetLevel sets the logging level, clamped to [None, Debug].
func (l *Logger) SetLevel(level int) {
	level = clamp(level)
	l.level.Store(int32(level))
	if level >= Debug {
		l.logf(Debug, "Log level set to %d", level)
	}
}

// Level returns the current logging level.
func (l *Logger) Level() int {
	return int(l.level.Load())
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level int) bool {
	return int32(level) <= l.level.Load()
}

// ParseLevel converts a log level string (case-insensitive) to its integer representation.
// Returns Info level and an error if the string is invalid.
func ParseLevel(levelStr string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "none":
		return None, nil
	case "error":
		return Error, nil
	case "warn", "warning":
		return Warning, nil
	case "info", "":
		return Info, nil
	case "debug":
		return Debug, nil
	default:
		return Info, fmt.Errorf("invalid log level string: '%s'", levelStr)
	}
}

// Setup builds the process logger: console output on w, plus the file at
// path when path is non-empty. An invalid level string falls back to Info
// with a warning.
func Setup(w io.Writer, levelStr, path string) (*Logger, error) {
	level, levelErr := ParseLevel(levelStr)

	var f *os.File
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log directory %s: %w", dir, err)
			}
		}
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		w = io.MultiWriter(w, f)
	}

	l := New(w, level)
	l.file = f
	if levelErr != nil {
		l.Logf(Warning, "Invalid log level '%s' provided, defaulting to 'info'. Error: %v", levelStr, levelErr)
	}
	return l, nil
}

// Flush commits pending file output to disk.
func (l *Logger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Sync()
}

// Close flushes and releases the file sink, if any. Safe to call more than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	_ = l.file.Sync()
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) logf(level int, format string, v ...interface{}) {
	if !l.Enabled(level) {
		return
	}

	var levelPrefix string
	switch level {
	case Error:
		levelPrefix = "[ERROR] "
	case Warning:
		levelPrefix = "[WARN] "
	case Info:
		levelPrefix = "[INFO] "
	case Debug:
		levelPrefix = "[DEBUG] "
	default:
		levelPrefix = "[UNKN] "
	}

	fullPrefix := levelPrefix
	if level == Debug {
		// Caller of the public method.
		pc, file, line, ok := runtime.Caller(2)
		if ok {
			funcName := "???"
			if f := runtime.FuncForPC(pc); f != nil {
				funcName = filepath.Base(f.Name())
			}
			fullPrefix = fmt.Sprintf("%s%s:%d:%s ", levelPrefix, filepath.Base(file), line, funcName)
		} else {
			fullPrefix = fmt.Sprintf("%s???:0:??? ", levelPrefix)
		}
	}

	l.write(fullPrefix + fmt.Sprintf(format, v...))
}

func (l *Logger) write(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.std.Println(line)
}

// Logf logs a formatted message if level is enabled.
func (l *Logger) Logf(level int, format string, v ...interface{}) {
	l.logf(level, format, v...)
}

// Successf logs a completion message. It is shown whenever Info is enabled.
func (l *Logger) Successf(format string, v ...interface{}) {
	if !l.Enabled(Info) {
		return
	}
	l.write("[SUCCESS] " + fmt.Sprintf(format, v...))
}
