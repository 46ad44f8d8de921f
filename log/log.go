package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// This won't be as verbose as tracing, which is likely for testing only.
var VerboseEnabled = false

func Fverbosef(w io.Writer, format string, v ...interface{}) {
	if VerboseEnabled {
		fmt.Fprintf(w, format, v...)
	}
}

var tracingLoaded = false

// Tags enabled. Value ignored
var TraceSetting = map[string]bool{}

var traceLogger = newTraceLogger(os.Stderr)

func newTraceLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}}).
		Level(zerolog.TraceLevel)
}

// SetTraceOutput redirects trace lines, mostly for tests.
func SetTraceOutput(w io.Writer) {
	traceLogger = newTraceLogger(w)
}

// Supply the TRACE environment variable with a comma-separated list of
// trace tags to enable. "all" enables every tag.
func LoadTraceSetting() {
	tracingLoaded = true
	traceVar := os.Getenv("TRACE")
	if traceVar != "" {
		tags := strings.Split(traceVar, ",")
		for _, tag := range tags {
			TraceSetting[strings.TrimSpace(tag)] = true
		}
	}
}

func MaybeLoadTraceSetting() {
	if !tracingLoaded {
		LoadTraceSetting()
	}
}

func TraceEnabled(tag string) bool {
	MaybeLoadTraceSetting()
	return TraceSetting[tag] || TraceSetting["all"]
}

func Tracef(tag string, format string, v ...interface{}) {
	if TraceEnabled(tag) {
		traceLogger.Trace().Str("tag", tag).Msgf(format, v...)
	}
}

type ErrorPrinter interface {
	Ln(v ...interface{})
	F(format string, v ...interface{})
}

// The default ErrorPrinter
type StderrErrorPrinter struct{}

func (p *StderrErrorPrinter) Ln(v ...interface{}) {
	fmt.Fprintln(os.Stderr, v...)
}

func (p *StderrErrorPrinter) F(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, format, v...)
}
