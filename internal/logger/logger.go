package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Setup.
type Options struct {
	Level string
	// Dir receives cmlist.log; empty disables the file log.
	Dir string
}

type Logger struct {
	*logrus.Logger
	fileLogger *logrus.Logger
}

var defaultLogger = newDefault()

func newDefault() *Logger {
	consoleLogger := logrus.New()
	consoleLogger.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	consoleLogger.SetOutput(os.Stdout)
	consoleLogger.SetLevel(logrus.InfoLevel)

	fileLogger := logrus.New()
	fileLogger.SetOutput(io.Discard)
	return &Logger{Logger: consoleLogger, fileLogger: fileLogger}
}

// Setup configures the console level and, when opts.Dir is set, a rotating
// JSON file log.
func Setup(opts Options) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		lvl, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return err
		}
		level = lvl
	}
	defaultLogger.Logger.SetLevel(level)

	if opts.Dir == "" {
		defaultLogger.fileLogger.SetOutput(io.Discard)
		return nil
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return err
	}
	fileLogger := logrus.New()
	fileLogger.SetFormatter(&logrus.JSONFormatter{
		PrettyPrint:     false,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	fileLogger.SetLevel(level)
	fileLogger.SetOutput(&lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, "cmlist.log"),
		MaxSize:    10,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
	})
	defaultLogger.fileLogger = fileLogger
	return nil
}

// FieldLogger returns a logger that writes to both console and file, for
// injection into services.
func FieldLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(defaultLogger.Logger.GetLevel())
	l.AddHook(&teeHook{})
	return l
}

// teeHook forwards entries to the package loggers so injected loggers share
// their formatters and outputs.
type teeHook struct{}

func (teeHook) Levels() []logrus.Level { return logrus.AllLevels }

func (teeHook) Fire(e *logrus.Entry) error {
	defaultLogger.Logger.WithFields(e.Data).Log(e.Level, e.Message)
	defaultLogger.fileLogger.WithFields(e.Data).Log(e.Level, e.Message)
	return nil
}

func Infof(format string, args ...any) {
	defaultLogger.Logger.Infof(format, args...)
	defaultLogger.fileLogger.Infof(format, args...)
}

func Warnf(format string, args ...any) {
	defaultLogger.Logger.Warnf(format, args...)
	defaultLogger.fileLogger.Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	defaultLogger.Logger.Errorf(format, args...)
	defaultLogger.fileLogger.Errorf(format, args...)
}

func Fatalf(format string, args ...any) {
	defaultLogger.fileLogger.Errorf(format, args...)
	defaultLogger.Logger.Fatalf(format, args...)
}

func Debugf(format string, args ...any) {
	defaultLogger.Logger.Debugf(format, args...)
	defaultLogger.fileLogger.Debugf(format, args...)
}
