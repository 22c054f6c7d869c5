package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat/go-file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

const (
	defaultRotationTime = 24 * time.Hour
	defaultMaxAge       = 7 * 24 * time.Hour
)

// NewFileRotateHooker returns a hook that writes every entry to a daily
// rotated file under path. age is the number of days a rotated file is kept,
// zero keeps the default of one week.
func NewFileRotateHooker(path, filename string, age uint32, formatter logrus.Formatter) logrus.Hook {
	if len(path) == 0 {
		panic("empty log directory")
	}
	if !filepath.IsAbs(path) {
		path, _ = filepath.Abs(path)
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		panic(fmt.Sprintf("failed to create log directory %s: %v", path, err))
	}

	maxAge := defaultMaxAge
	if age > 0 {
		maxAge = time.Duration(age) * 24 * time.Hour
	}

	baseLogPath := filepath.Join(path, filename)
	writer, err := rotatelogs.New(
		baseLogPath+"-%Y%m%d.log",
		rotatelogs.WithLinkName(baseLogPath),
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(defaultRotationTime),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create rotate logs: %v", err))
	}

	return lfshook.NewHook(lfshook.WriterMap{
		logrus.TraceLevel: writer,
		logrus.DebugLevel: writer,
		logrus.InfoLevel:  writer,
		logrus.WarnLevel:  writer,
		logrus.ErrorLevel: writer,
		logrus.FatalLevel: writer,
		logrus.PanicLevel: writer,
	}, formatter)
}

// functionHook stamps each entry with the file, line and function that
// called into this package.
type functionHook struct{}

// LoadFunctionHooker adds the caller hook to l.
func LoadFunctionHooker(l *logrus.Logger) {
	l.Hooks.Add(functionHook{})
}

func (functionHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (functionHook) Fire(entry *logrus.Entry) error {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(4, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !isLoggingFrame(frame.Function) {
			entry.Data["file"] = fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
			entry.Data["func"] = shortFuncName(frame.Function)
			return nil
		}
		if !more {
			return nil
		}
	}
}

func isLoggingFrame(fn string) bool {
	return strings.Contains(fn, "github.com/sirupsen/logrus") ||
		strings.Contains(fn, "mass-secretstore/logging.")
}

func shortFuncName(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	return fn
}
