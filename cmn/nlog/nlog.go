// Package nlog is a small leveled, buffered logger in the style of
// aistore's own logger: no external logging dependency, a handful of
// package-level functions, and a caller-supplied file:line header.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var sevChar = [...]byte{sevInfo: 'I', sevWarn: 'W', sevErr: 'E'}

var (
	mu  sync.Mutex
	out = bufio.NewWriterSize(os.Stderr, 4*1024)
)

// SetOutput redirects all subsequent log lines; tests use this to capture
// output instead of writing to stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out.Flush()
	out = bufio.NewWriterSize(w, 4*1024)
}

// Flush forces any buffered line out to the current writer.
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	out.Flush()
}

func Infof(format string, args ...any)    { log(sevInfo, format, args...) }
func Infoln(args ...any)                  { logln(sevInfo, args...) }
func Warningf(format string, args ...any) { log(sevWarn, format, args...) }
func Warningln(args ...any)               { logln(sevWarn, args...) }
func Errorf(format string, args ...any)   { log(sevErr, format, args...) }
func Errorln(args ...any)                 { logln(sevErr, args...) }

func log(sev severity, format string, args ...any) {
	write(sev, fmt.Sprintf(format, args...))
}

func logln(sev severity, args ...any) {
	write(sev, fmt.Sprintln(args...))
}

func write(sev severity, msg string) {
	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file, line = "???", 0
	}
	now := time.Now()

	mu.Lock()
	out.WriteByte(sevChar[sev])
	out.WriteByte(' ')
	out.WriteString(now.Format("15:04:05.000000"))
	out.WriteByte(' ')
	out.WriteString(file)
	out.WriteByte(':')
	out.WriteString(strconv.Itoa(line))
	out.WriteByte(' ')
	out.WriteString(msg)
	if len(msg) == 0 || msg[len(msg)-1] != '\n' {
		out.WriteByte('\n')
	}
	if sev >= sevWarn {
		out.Flush()
	}
	mu.Unlock()
}
