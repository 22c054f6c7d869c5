package logging

import (
	"bytes"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

// const
const (
	PanicLevel = "panic"
	FatalLevel = "fatal"
	ErrorLevel = "error"
	WarnLevel  = "warn"
	InfoLevel  = "info"
	DebugLevel = "debug"
	TraceLevel = "trace"
)
const (
	//PANIC log level
	PANIC uint32 = iota
	//FATAL has list msg
	FATAL
	//ERROR has list msg
	ERROR
	//WARN only log
	WARN
	//INFO only log
	INFO
	//DEBUG only log
	DEBUG
	//TRACE only log
	TRACE
)

//LogFormat is to log format
type LogFormat = map[string]interface{}

type emptyWriter struct{}

func (ew emptyWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

var (
	clog   *logrus.Logger
	vlog   *logrus.Logger
	initMu sync.Mutex
)

func convertLevel(level string) logrus.Level {
	switch level {
	case PanicLevel:
		return logrus.PanicLevel
	case FatalLevel:
		return logrus.FatalLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case WarnLevel:
		return logrus.WarnLevel
	case InfoLevel:
		return logrus.InfoLevel
	case DebugLevel:
		return logrus.DebugLevel
	case TraceLevel:
		return logrus.TraceLevel
	default:
		return logrus.InfoLevel
	}
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	switch level {
	case PanicLevel, FatalLevel, ErrorLevel, WarnLevel, InfoLevel, DebugLevel, TraceLevel:
		return true
	}
	return false
}

// Init loggers
func Init(path, filename string, level string, age uint32) {
	initMu.Lock()
	defer initMu.Unlock()

	fileHooker := NewFileRotateHooker(path, filename, age, nil)

	clog = logrus.New()
	LoadFunctionHooker(clog)
	clog.Hooks.Add(fileHooker)
	clog.Out = os.Stdout
	clog.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	clog.Level = convertLevel(level)

	vlog = logrus.New()
	LoadFunctionHooker(vlog)
	vlog.Hooks.Add(fileHooker)
	vlog.Out = &emptyWriter{}
	vlog.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	vlog.Level = convertLevel(level)

	vlog.WithFields(logrus.Fields{
		"path":  path,
		"level": level,
	}).Info("Logger Configuration.")
}

// InitDiscard sets up loggers that drop every entry. Intended for tests and
// embedders that route nothing to disk.
func InitDiscard() {
	initMu.Lock()
	defer initMu.Unlock()

	clog = logrus.New()
	clog.Out = &emptyWriter{}
	clog.Level = logrus.PanicLevel

	vlog = logrus.New()
	vlog.Out = &emptyWriter{}
	vlog.Level = logrus.PanicLevel
}

// loggers returns the configured loggers. Before Init, entries go to
// stdout only and nothing is written to disk.
func loggers() (*logrus.Logger, *logrus.Logger) {
	initMu.Lock()
	defer initMu.Unlock()

	if clog == nil || vlog == nil {
		clog = logrus.New()
		LoadFunctionHooker(clog)
		clog.Out = os.Stdout
		clog.Formatter = &logrus.TextFormatter{FullTimestamp: true}
		clog.Level = convertLevel(InfoLevel)

		vlog = logrus.New()
		vlog.Out = &emptyWriter{}
		vlog.Level = logrus.PanicLevel
	}
	return clog, vlog
}

//GetGID return gid
func GetGID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]
	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}

func output(l *logrus.Logger, level uint32, msg string, data LogFormat) {
	fields := make(logrus.Fields, len(data)+1)
	for k, v := range data {
		fields[k] = v
	}
	fields["tid"] = GetGID()
	entry := l.WithFields(fields)

	switch level {
	case PANIC:
		entry.Panic(msg)
	case FATAL:
		entry.Fatal(msg)
	case ERROR:
		entry.Error(msg)
	case WARN:
		entry.Warn(msg)
	case INFO:
		entry.Info(msg)
	case DEBUG:
		entry.Debug(msg)
	case TRACE:
		entry.Trace(msg)
	default:
		entry.Error(msg)
	}
}

//CPrint into stdout + log
func CPrint(level uint32, msg string, data LogFormat) {
	c, _ := loggers()
	output(c, level, msg, data)
}

//VPrint into log
func VPrint(level uint32, msg string, data LogFormat) {
	_, v := loggers()
	output(v, level, msg, data)
}
