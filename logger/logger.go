package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logDir      = "log"
	logFilename = "userhub.log"
)

var Logger zerolog.Logger
var HttpLogger zerolog.Logger
var logFilePath string
var Writer io.Writer

// numeric config levels, Panic=0 ... Trace=6
var levels = []zerolog.Level{
	zerolog.PanicLevel,
	zerolog.FatalLevel,
	zerolog.ErrorLevel,
	zerolog.WarnLevel,
	zerolog.InfoLevel,
	zerolog.DebugLevel,
	zerolog.TraceLevel,
}

// Init configures the console logger. Request logs are discarded until
// AddFileLogger is called.
func Init(logLevel string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := ParseLevel(logLevel)
	zerolog.SetGlobalLevel(level)

	Writer = newConsoleWriter()
	Logger = newLogger(Writer, level)
	HttpLogger = newLogger(io.Discard, level)

	if level <= zerolog.DebugLevel {
		buildInfo, _ := debug.ReadBuildInfo()
		Logger = Logger.With().
			Caller().
			Interface("build_info", buildInfo).
			Logger()
		Logger.Debug().Msg("Zerolog caller reporting enabled in debug mode")
	}
}

// ParseLevel maps the numeric config level onto zerolog's scale. Anything
// else falls back to Info.
func ParseLevel(logLevel string) zerolog.Level {
	level, err := strconv.Atoi(logLevel)
	if err != nil || level < 0 || level >= len(levels) {
		return zerolog.InfoLevel
	}
	return levels[level]
}

// AddFileLogger tees the application log into a rotating file under
// workdir and sends request logs there only. The current level is kept.
func AddFileLogger(workdir string) error {
	dir := filepath.Join(workdir, logDir)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logFilePath = filepath.Join(dir, logFilename)
	fileLogger := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxAge:     3,
		MaxBackups: 3,
	}

	level := Logger.GetLevel()
	Writer = zerolog.MultiLevelWriter(newConsoleWriter(), fileLogger)
	Logger = newLogger(Writer, level)
	HttpLogger = newLogger(fileLogger, level)

	return nil
}

func GetLogFilePath() string {
	return logFilePath
}

func newConsoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.DateTime,
	}
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		With().
		Timestamp().
		Logger().
		Level(level)
}
