// Package logger is a small level-gated wrapper over the standard log
// package, the same shape the teacher's server uses, pointed instead at the
// agent's diagnostic log file and taught to redact the reconnect secret.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"
)

type LogLevel int

const (
	LevelError LogLevel = iota
	LevelInfo
	LevelDebug
)

var (
	currentLevel LogLevel = LevelInfo
	std                   = log.New(os.Stderr, "", log.LstdFlags)
)

// Init points the logger at path (creating/appending to it) and sets the
// level from levelStr ("debug", "info", or "error"; anything else is
// treated as "info"). An empty path leaves logging on stderr, which is
// what tests and interactive runs use.
func Init(path, levelStr string) (io.Closer, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		currentLevel = LevelDebug
	case "error":
		currentLevel = LevelError
	default:
		currentLevel = LevelInfo
	}

	if path == "" {
		std = log.New(os.Stderr, "", log.LstdFlags)
		return io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	std = log.New(f, "", log.LstdFlags)
	return f, nil
}

// secretPattern matches "name=value" pairs where name mentions "secret",
// covering the reconnect secret however a caller happens to format it.
// redact operates on the fully-formatted message, not the format string,
// so it catches the substituted value too.
var secretPattern = regexp.MustCompile(`(?i)([\w.]*secret[\w.]*)=\S+`)

func redact(msg string) string {
	return secretPattern.ReplaceAllString(msg, "$1=[REDACTED]")
}

func Debug(format string, v ...interface{}) {
	if currentLevel >= LevelDebug {
		std.Print("[DEBUG] " + redact(fmt.Sprintf(format, v...)))
	}
}

func Info(format string, v ...interface{}) {
	if currentLevel >= LevelInfo {
		std.Print("[INFO] " + redact(fmt.Sprintf(format, v...)))
	}
}

func Error(format string, v ...interface{}) {
	std.Print("[ERROR] " + redact(fmt.Sprintf(format, v...)))
}
