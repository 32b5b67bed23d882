// Copyright 2024 The gopow Authors
// This file is part of the gopow library.
//
// The gopow library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gopow library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the gopow library. If not, see <http://www.gnu.org/licenses/>.
//
// This file is derived from common/cache.go's log.NewModuleLogger idiom
// (2018/06/04). Modified and improved for the gopow development.

// Package log provides the leveled, module-scoped logger used throughout
// gopow. Every package keeps its own `logger` package variable instead of
// calling a global logging function directly, so log lines can always be
// traced back to the module that emitted them.
package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
)

// Lvl is a log severity level, ordered from most to least severe.
type Lvl int

const (
	LvlError Lvl = iota
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

// Module identifies the subsystem a logger belongs to, mirroring the
// teacher's log.Common/log.P2P/... module constants.
type Module string

const (
	Chain     Module = "chain"
	TxPool    Module = "txpool"
	Worker    Module = "worker"
	Scheduler Module = "scheduler"
	P2P       Module = "p2p"
	API       Module = "api"
	Consensus Module = "consensus"
	Node      Module = "node"
	Common    Module = "common"
)

var (
	mu       sync.Mutex
	minLevel = LvlInfo
	out      io.Writer = colorable.NewColorableStdout()

	levelColor = map[Lvl]*color.Color{
		LvlError: color.New(color.FgRed, color.Bold),
		LvlWarn:  color.New(color.FgYellow),
		LvlInfo:  color.New(color.FgGreen),
		LvlDebug: color.New(color.FgCyan),
		LvlTrace: color.New(color.FgWhite),
	}
	levelName = map[Lvl]string{
		LvlError: "ERROR",
		LvlWarn:  "WARN ",
		LvlInfo:  "INFO ",
		LvlDebug: "DEBUG",
		LvlTrace: "TRACE",
	}
)

// SetLevel adjusts the process-wide minimum level logged (LvlInfo by
// default).
func SetLevel(l Lvl) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// SetOutput redirects where log lines are written, e.g. to capture output
// instead of writing to stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Logger writes leveled, key/value structured lines for a single module.
type Logger struct {
	module Module
}

// NewModuleLogger returns a Logger scoped to the given module. Call sites
// typically assign the result to a package-level `logger` variable.
func NewModuleLogger(m Module) *Logger {
	return &Logger{module: m}
}

func (l *Logger) Error(msg string, ctx ...interface{}) { l.log(LvlError, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.log(LvlWarn, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.log(LvlInfo, msg, ctx) }
func (l *Logger) Debug(msg string, ctx ...interface{}) { l.log(LvlDebug, msg, ctx) }
func (l *Logger) Trace(msg string, ctx ...interface{}) { l.log(LvlTrace, msg, ctx) }

func (l *Logger) log(lvl Lvl, msg string, ctx []interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if lvl > minLevel {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteByte(' ')
	b.WriteString(levelColor[lvl].Sprint(levelName[lvl]))
	b.WriteByte(' ')
	b.WriteByte('[')
	b.WriteString(string(l.module))
	b.WriteString("] ")
	b.WriteString(msg)

	for i := 0; i+1 < len(ctx); i += 2 {
		fmt.Fprintf(&b, " %v=%v", ctx[i], ctx[i+1])
	}
	if len(ctx)%2 == 1 {
		fmt.Fprintf(&b, " %v=MISSING", ctx[len(ctx)-1])
	}
	if lvl == LvlError {
		fmt.Fprintf(&b, " caller=%+v", stack.Caller(2))
	}
	b.WriteByte('\n')

	io.WriteString(out, b.String())
}
