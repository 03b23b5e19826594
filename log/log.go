// Copyright (c) 2017-2018 The qitmeer developers

package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	elog "github.com/ethereum/go-ethereum/log"
	"github.com/jrick/logrotate/rotator"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Logger is the logging interface handed out to the individual service
// packages. Each package owns a module-scoped child logger created with
// New(Ctx{"module": ...}).
type Logger = elog.Logger

// Ctx is a map-style context for New.
type Ctx = elog.Ctx

// Lvl is a log verbosity level.
type Lvl = elog.Lvl

const (
	LvlCrit  = elog.LvlCrit
	LvlError = elog.LvlError
	LvlWarn  = elog.LvlWarn
	LvlInfo  = elog.LvlInfo
	LvlDebug = elog.LvlDebug
	LvlTrace = elog.LvlTrace
)

var (
	glogger *elog.GlogHandler

	logWrite *logWriter
)

// logWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type logWriter struct {
	// logRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	// Use for color terminal
	colorableWrite io.Writer
}

func (lw *logWriter) Init() {
	// init a colorful logger if possible
	usecolor := isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"

	if usecolor {
		lw.colorableWrite = colorable.NewColorableStderr()
	}
}

func (lw *logWriter) Close() {
	if lw.logRotator != nil {
		lw.logRotator.Close()
	}
}

func (lw *logWriter) IsUseColor() bool {
	return lw.colorableWrite != nil
}

func (lw *logWriter) Write(p []byte) (n int, err error) {
	if lw.logRotator != nil {
		lw.logRotator.Write(p)
	}

	if lw.colorableWrite != nil {
		lw.colorableWrite.Write(p)
	} else {
		os.Stderr.Write(p)
	}
	return len(p), nil
}

func init() {
	// output set to Stderr
	// it's easier to handle when run as a daemon through systemd or supervisord,
	// and Go runtime exceptions are printed to stderr as well.
	logWrite = &logWriter{}
	logWrite.Init()
	glogger = elog.NewGlogHandler(elog.StreamHandler(io.Writer(logWrite),
		elog.TerminalFormat(logWrite.IsUseColor())))

	elog.Root().SetHandler(glogger)

	glogger.Verbosity(elog.LvlInfo)
}

// New returns a child logger of the process root with the given context
// attached to every record.
func New(ctx ...interface{}) Logger {
	return elog.Root().New(ctx...)
}

// Root returns the process-wide root logger.
func Root() Logger {
	return elog.Root()
}

// Trace logs a message at the trace level on the root logger.
func Trace(msg string, ctx ...interface{}) {
	elog.Trace(msg, ctx...)
}

// Debug logs a message at the debug level on the root logger.
func Debug(msg string, ctx ...interface{}) {
	elog.Debug(msg, ctx...)
}

// Info logs a message at the info level on the root logger.
func Info(msg string, ctx ...interface{}) {
	elog.Info(msg, ctx...)
}

// Warn logs a message at the warn level on the root logger.
func Warn(msg string, ctx ...interface{}) {
	elog.Warn(msg, ctx...)
}

// Error logs a message at the error level on the root logger.
func Error(msg string, ctx ...interface{}) {
	elog.Error(msg, ctx...)
}

// Crit logs a message at the crit level on the root logger.
func Crit(msg string, ctx ...interface{}) {
	elog.Crit(msg, ctx...)
}

// LvlFromString parses a verbosity name ("trace" ... "crit").
func LvlFromString(lvlString string) (Lvl, error) {
	return elog.LvlFromString(lvlString)
}

// Verbosity sets the level at the process-wide glog handler.
func Verbosity(level Lvl) {
	glogger.Verbosity(level)
}

// InitLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory.  It must be called before the
// package-global log rotater variables are used.
func InitLogRotator(logFile string) {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n", err)
		os.Exit(1)
	}

	logWrite.logRotator = r
}

func LogWrite() *logWriter {
	return logWrite
}
