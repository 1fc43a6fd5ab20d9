/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package errors provides a tagged-code error type: the config
// lexer/parser/validator (through ConfigError) and the HTTP request parser
// return it instead of bare strings, so the request handler can map a
// failure to an HTTP status by code instead of by string matching.
package errors

import (
	"fmt"
	"runtime"
)

// Code classifies an error the way an HTTP status code does; it is not
// itself an HTTP status, though many of ours are chosen to line up with one.
type Code uint16

const (
	Unknown     Code = 0
	BadRequest  Code = 400
	Forbidden   Code = 403
	NotFound    Code = 404
	MethodNA    Code = 405
	HeaderSize  Code = 431
	BodyTooBig  Code = 413
	NotImpl     Code = 501
	BadGateway  Code = 502
	Internal    Code = 500
	ConfigLex   Code = 1000
	ConfigParse Code = 1001
	ConfigValid Code = 1002
)

// Error is the interface every internal fallible operation returns.
type Error interface {
	error
	Code() Code
	Parent() Error
	Trace() string
}

type ers struct {
	code Code
	msg  string
	par  error
	frm  runtime.Frame
}

// New builds an Error with the given code and message, capturing the
// caller's frame for diagnostics.
func New(code Code, msg string) Error {
	return &ers{code: code, msg: msg, frm: caller(2)}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(code Code, format string, args ...interface{}) Error {
	return &ers{code: code, msg: fmt.Sprintf(format, args...), frm: caller(2)}
}

// Wrap attaches a parent error to a new Error of the given code.
func Wrap(code Code, msg string, parent error) Error {
	return &ers{code: code, msg: msg, par: parent, frm: caller(2)}
}

func caller(skip int) runtime.Frame {
	pc := make([]uintptr, 1)
	n := runtime.Callers(skip+1, pc)
	if n == 0 {
		return runtime.Frame{}
	}
	frm, _ := runtime.CallersFrames(pc[:n]).Next()
	return frm
}

func (e *ers) Code() Code {
	if e == nil {
		return Unknown
	}
	return e.code
}

func (e *ers) Parent() Error {
	if e == nil || e.par == nil {
		return nil
	}
	if p, ok := e.par.(Error); ok {
		return p
	}
	return &ers{code: Unknown, msg: e.par.Error()}
}

func (e *ers) Trace() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d (%s)", e.frm.File, e.frm.Line, e.frm.Function)
}

func (e *ers) Error() string {
	if e == nil {
		return ""
	}
	if e.par != nil {
		return fmt.Sprintf("[%d] %s: %s", e.code, e.msg, e.par.Error())
	}
	return fmt.Sprintf("[%d] %s", e.code, e.msg)
}

func (e *ers) Unwrap() error {
	if e == nil || e.par == nil {
		return nil
	}
	return e.par
}

// IsCode reports whether err (or any parent in its chain) carries code c.
func IsCode(err error, c Code) bool {
	for err != nil {
		e, ok := err.(Error)
		if !ok {
			return false
		}
		if e.Code() == c {
			return true
		}
		p := e.Parent()
		if p == nil {
			return false
		}
		err = p
	}
	return false
}
