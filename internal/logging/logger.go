package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level mirrors logrus.Level under our own name so call sites never import
// logrus directly outside this package.
type Level = logrus.Level

const (
	DebugLevel = logrus.DebugLevel
	InfoLevel  = logrus.InfoLevel
	WarnLevel  = logrus.WarnLevel
	ErrorLevel = logrus.ErrorLevel
	FatalLevel = logrus.FatalLevel
)

// Options configures a Logger; cmd/webserv fills it from its --log-level
// and --log-format flags.
type Options struct {
	Level  Level
	JSON   bool
	Output io.Writer
}

// Logger is the structured logger interface every subsystem is handed.
type Logger interface {
	WithFields(f Fields) Logger
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)
}

type logger struct {
	l *logrus.Entry
}

// New builds a Logger from Options, defaulting to text output on stderr
// at info level when Options is the zero value.
func New(o Options) Logger {
	base := logrus.New()

	if o.Output != nil {
		base.SetOutput(o.Output)
	} else {
		base.SetOutput(os.Stderr)
	}

	if o.JSON {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if o.Level == 0 {
		base.SetLevel(InfoLevel)
	} else {
		base.SetLevel(o.Level)
	}

	return &logger{l: logrus.NewEntry(base)}
}

func (l *logger) WithFields(f Fields) Logger {
	return &logger{l: l.l.WithFields(f.logrus())}
}

func (l *logger) Debug(msg string) { l.l.Debug(msg) }
func (l *logger) Info(msg string)  { l.l.Info(msg) }
func (l *logger) Warn(msg string)  { l.l.Warn(msg) }
func (l *logger) Error(msg string) { l.l.Error(msg) }
func (l *logger) Fatal(msg string) { l.l.Fatal(msg) }
