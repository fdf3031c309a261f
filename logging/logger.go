package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/crytic/bytereactor/logging/colors"
	"github.com/rs/zerolog"
)

// GlobalLogger describes a Logger that is disabled by default and is instantiated when the reactor is created. Each
// module/package should create its own sub-logger. This allows to create unique logging instances depending on the use
// case.
var GlobalLogger = NewLogger(zerolog.Disabled)

// Logger describes a custom logging object that can log events to any arbitrary channel in structured, unstructured, or
// unstructured and colorized format.
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// context holds the key-value pairs every event of this logger is annotated with.
	context [][2]string

	// structuredLogger describes a logger that will be used to output structured logs to any arbitrary channel.
	structuredLogger zerolog.Logger

	// structuredWriters describes the various channels that the output from the structuredLogger will go to.
	structuredWriters []io.Writer

	// unstructuredLogger describes a logger that will be used to output unstructured logs to any arbitrary channel.
	unstructuredLogger zerolog.Logger

	// unstructuredWriters describes the various channels that the output from the unstructuredLogger will go to.
	unstructuredWriters []io.Writer

	// unstructuredColorLogger describes a logger that will be used to output unstructured, colorized output to any
	// arbitrary channel.
	unstructuredColorLogger zerolog.Logger

	// unstructuredColorWriters describes the various channels that the output from the unstructuredColorLogger will
	// go to.
	unstructuredColorWriters []io.Writer
}

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// NewLogger will create a new Logger object with a specific log level. By default, a logger that is instantiated
// with this function is not usable until a log channel is added. To add or remove channels that the logger
// streams logs to, call the Logger.AddWriter and Logger.RemoveWriter functions.
func NewLogger(level zerolog.Level) *Logger {
	return &Logger{
		level:                    level,
		structuredLogger:         zerolog.Nop(),
		structuredWriters:        make([]io.Writer, 0),
		unstructuredLogger:       zerolog.Nop(),
		unstructuredWriters:      make([]io.Writer, 0),
		unstructuredColorLogger:  zerolog.Nop(),
		unstructuredColorWriters: make([]io.Writer, 0),
	}
}

// NewSubLogger will create a new Logger with unique context in the form of a key-value pair. The expected use of this
// function is for each package to have their own unique logger so that parsing of logs is "grep-able" based on some key
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	subLogger := &Logger{
		level:                    l.level,
		context:                  append(append([][2]string(nil), l.context...), [2]string{key, value}),
		structuredWriters:        append([]io.Writer(nil), l.structuredWriters...),
		unstructuredWriters:      append([]io.Writer(nil), l.unstructuredWriters...),
		unstructuredColorWriters: append([]io.Writer(nil), l.unstructuredColorWriters...),
	}
	subLogger.rebuild()
	return subLogger
}

// AddWriter will add a writer to the list of channels where log output will be sent. Unstructured writers may
// optionally be colorized. Adding a writer which is already registered for the same format is a no-op.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writersFor(format, colored)

	// Check to see if the writer is already in the array of writers
	for _, w := range *writers {
		if writer == w {
			return
		}
	}

	// Add it to the list of writers and update the underlying logger
	*writers = append(*writers, writer)
	l.rebuild()
}

// RemoveWriter will remove a writer from the list of writers that the logger manages. If the writer does not exist,
// this function is a no-op
func (l *Logger) RemoveWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writersFor(format, colored)

	// Iterate through the writers
	for i, w := range *writers {
		if writer == w {
			// Create a new slice without the writer at index i
			*writers = append((*writers)[:i], (*writers)[i+1:]...)
			l.rebuild()
			return
		}
	}
}

// writersFor returns the list of writers responsible for the given format.
func (l *Logger) writersFor(format LogFormat, colored bool) *[]io.Writer {
	if format == STRUCTURED {
		return &l.structuredWriters
	}
	if colored {
		return &l.unstructuredColorWriters
	}
	return &l.unstructuredWriters
}

// rebuild recreates the underlying zerolog loggers from the current writers, level and context.
func (l *Logger) rebuild() {
	l.structuredLogger = zerolog.Nop()
	if len(l.structuredWriters) > 0 {
		l.structuredLogger = l.withContext(zerolog.New(zerolog.MultiLevelWriter(l.structuredWriters...)).With().Timestamp()).Level(l.level)
	}

	l.unstructuredLogger = zerolog.Nop()
	if len(l.unstructuredWriters) > 0 {
		writers := make([]io.Writer, 0, len(l.unstructuredWriters))
		for _, w := range l.unstructuredWriters {
			writers = append(writers, setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: true}, l.level, false))
		}
		l.unstructuredLogger = l.withContext(zerolog.New(zerolog.MultiLevelWriter(writers...)).With()).Level(l.level)
	}

	l.unstructuredColorLogger = zerolog.Nop()
	if len(l.unstructuredColorWriters) > 0 {
		writers := make([]io.Writer, 0, len(l.unstructuredColorWriters))
		for _, w := range l.unstructuredColorWriters {
			writers = append(writers, setupDefaultFormatting(zerolog.ConsoleWriter{Out: w}, l.level, true))
		}
		l.unstructuredColorLogger = l.withContext(zerolog.New(zerolog.MultiLevelWriter(writers...)).With()).Level(l.level)
	}
}

// withContext adds the logger's key-value context to the provided zerolog context.
func (l *Logger) withContext(ctx zerolog.Context) zerolog.Logger {
	for _, kv := range l.context {
		ctx = ctx.Str(kv[0], kv[1])
	}
	return ctx.Logger()
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel will update the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.rebuild()
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	l.log(zerolog.TraceLevel, l.level <= zerolog.DebugLevel, args...)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	l.log(zerolog.DebugLevel, l.level <= zerolog.DebugLevel, args...)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	l.log(zerolog.InfoLevel, l.level <= zerolog.DebugLevel, args...)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	l.log(zerolog.WarnLevel, l.level <= zerolog.DebugLevel, args...)
}

// Error is a wrapper function that will log an error event.
func (l *Logger) Error(args ...any) {
	l.log(zerolog.ErrorLevel, l.level <= zerolog.DebugLevel, args...)
}

// Panic is a wrapper function that will log a panic event and then panic with the message
func (l *Logger) Panic(args ...any) {
	msg := l.log(zerolog.PanicLevel, true, args...)
	panic(msg)
}

// log builds the messages from the provided arguments and sends an event of the given level to every channel. The
// non-colorized message is returned.
func (l *Logger) log(level zerolog.Level, withStack bool, args ...any) string {
	// Build the messages and retrieve any error or associated structured log info
	colorMsg, noColorMsg, err, info := buildMsgs(args...)

	// Instantiate log events
	structuredLog := l.structuredLogger.WithLevel(level)
	unstructuredLog := l.unstructuredLogger.WithLevel(level)
	unstructuredColoredLog := l.unstructuredColorLogger.WithLevel(level)

	// Chain the error
	chainError([]*zerolog.Event{structuredLog, unstructuredLog, unstructuredColoredLog}, err, withStack)

	// Chain the structured log info and messages and send off the logs
	chainStructuredLogInfoAndMsgs(structuredLog, unstructuredLog, unstructuredColoredLog, info, colorMsg, noColorMsg)
	return noColorMsg
}

// buildMsgs describes a function that takes in a variadic list of arguments of any type and returns two strings and,
// optionally, an error and a StructuredLogInfo object. The first string will be a colorized-string that can be used for
// console logging while the second string will be a non-colorized one that can be used for file/structured logging.
// The error and the StructuredLogInfo can be used to add additional context to log messages
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	// Guard clause
	if len(args) == 0 {
		return "", "", nil, nil
	}

	// Initialize the base color context, the string buffers and the structured log info object
	colorCtx := colors.Reset
	colorMsg := make([]string, 0)
	noColorMsg := make([]string, 0)
	var info StructuredLogInfo
	var err error

	// Iterate through each argument in the list and switch on type
	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			// If the argument is a color function, switch the current color context
			colorCtx = t
		case StructuredLogInfo:
			// Note that only one structured log info can be provided for each log message
			info = t
		case error:
			// Note that only one error can be provided for each log message
			err = t
		default:
			// In the base case, append the object to the two string buffers. The colored string buffer will have the
			// current color context applied to it.
			colorMsg = append(colorMsg, colorCtx(t))
			noColorMsg = append(noColorMsg, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(colorMsg, ""), strings.Join(noColorMsg, ""), err, info
}

// chainError is a helper function that takes in a list of events and chains an error to every event. If debug is
// true, then a stack trace is added to every event as well.
func chainError(events []*zerolog.Event, err error, debug bool) {
	if err == nil {
		return
	}
	for _, event := range events {
		// Note that calling Err on a disabled (nil) event is safe
		event.Err(err)

		// If we are in debug mode or below, then we will add the stack traces as well for debugging
		if debug {
			event.Stack()
		}
	}
}

// chainStructuredLogInfoAndMsgs is a helper function that chains any StructuredLogInfo to the provided events, adds
// the associated messages, and sends out the logs to their respective channels.
func chainStructuredLogInfoAndMsgs(structuredLog *zerolog.Event, unstructuredLog *zerolog.Event,
	unstructuredColoredLog *zerolog.Event, info StructuredLogInfo, colorMsg string, noColorMsg string) {
	// If we are provided a structured log info object, add that as a key-value pair to the events
	if info != nil {
		structuredLog.Any("info", info)
		unstructuredLog.Any("info", info)
		unstructuredColoredLog.Any("info", info)
	}

	// Append the messages to each event. This will also result in the log events being sent out to their respective
	// streams.
	structuredLog.Msg(noColorMsg)
	unstructuredLog.Msg(noColorMsg)
	unstructuredColoredLog.Msg(colorMsg)
}

// setupDefaultFormatting will update the console writer's formatting to the project standard
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level, colored bool) zerolog.ConsoleWriter {
	// Get rid of the timestamp for console output
	writer.FormatTimestamp = func(i any) string {
		return ""
	}

	// Messages are colorized by the caller, if at all
	writer.FormatMessage = func(i any) string {
		if i == nil {
			return ""
		}
		return fmt.Sprintf("%v", i)
	}

	// We will define a custom format for each level
	writer.FormatLevel = func(i any) string {
		// Create a level object for better switch logic
		levelStr, _ := i.(string)
		level, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			return levelStr
		}

		// Switch on the level and return a custom string, colored if requested
		paint := func(color colors.ColorFunc, s string) string {
			if !colored {
				return s
			}
			return color(s)
		}
		switch level {
		case zerolog.TraceLevel:
			return paint(colors.CyanBold, zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return paint(colors.BlueBold, zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return paint(colors.GreenBold, colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return paint(colors.YellowBold, zerolog.LevelWarnValue)
		case zerolog.ErrorLevel:
			return paint(colors.RedBold, zerolog.LevelErrorValue)
		case zerolog.FatalLevel:
			return paint(colors.RedBold, zerolog.LevelFatalValue)
		case zerolog.PanicLevel:
			return paint(colors.RedBold, zerolog.LevelPanicValue)
		default:
			return levelStr
		}
	}

	// If we are above debug level, we want to get rid of the `module` component when logging to console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module"}
	}

	return writer
}
