// Package logging splits plain process logging from an optional
// file-backed debug trace, so library code never calls log.Fatal:
// Msg/Msgf go to the process log as before, but the compiler itself only
// ever returns errors. A Logger additionally carries an optional
// file-backed Debugger for a per-instruction compilation trace,
// gated on the --debug flag.
package logging

import (
	"fmt"
	"log"
	"os"
)

// Logger is a Msg/Msgf sink plus an optional Debugger.
type Logger struct {
	Dbg *Debugger
}

// New returns a Logger with debug tracing disabled.
func New() *Logger {
	return &Logger{Dbg: &Debugger{}}
}

// Msg logs a plain message.
func (l *Logger) Msg(msg string) {
	log.Println(msg)
}

// Msgf logs a formatted message.
func (l *Logger) Msgf(format string, args ...interface{}) {
	log.Printf(format, args...)
}

// Debugf writes a formatted trace line to the debug sink, if enabled.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l == nil || l.Dbg == nil {
		return
	}
	l.Dbg.Msgf(format+"\n", args...)
}

// Debugger writes debug messages to a file, or discards them if unset.
type Debugger struct {
	file    *os.File
	console bool
}

// EnableFile points the Debugger at a file path ("-" means stdout).
func (l *Logger) EnableFile(path string) error {
	if path == "" {
		l.Dbg = &Debugger{}
		return nil
	}
	if path == "-" {
		l.Dbg = &Debugger{file: os.Stdout, console: true}
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create debug file %q: %w", path, err)
	}
	l.Dbg = &Debugger{file: f}
	return nil
}

// Close releases the debug file, if one was opened.
func (l *Logger) Close() {
	if l.Dbg != nil && l.Dbg.file != nil && !l.Dbg.console {
		l.Dbg.file.Close()
	}
}

// Msg writes a plain message to the debugger file, if any.
func (d *Debugger) Msg(msg string) {
	if d != nil && d.file != nil {
		d.file.WriteString(msg + "\n")
	}
}

// Msgf writes a formatted message to the debugger file, if any.
func (d *Debugger) Msgf(format string, args ...interface{}) {
	if d != nil && d.file != nil {
		fmt.Fprintf(d.file, format, args...)
	}
}
