// Package xerrors attaches call-site information to errors. New and Newf
// record a full stack; Wrap and Wrapf record the single frame that wrapped.
// The logger renders both.
package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

const maxStackDepth = 64

type stacked struct {
	err error
	pcs []uintptr
}

func (s *stacked) Error() string       { return s.err.Error() }
func (s *stacked) Unwrap() error       { return s.err }
func (s *stacked) StackPCs() []uintptr { return s.pcs }

// withStack records the stack above its caller's caller.
func withStack(err error) error {
	pcs := make([]uintptr, maxStackDepth)
	// skip runtime.Callers, withStack and the exported constructor
	n := runtime.Callers(3, pcs)
	return &stacked{err: err, pcs: pcs[:n]}
}

func New(msg string) error { return withStack(errors.New(msg)) }

func Newf(format string, args ...any) error { return withStack(fmt.Errorf(format, args...)) }

// EnsureTrace adds a stack to err unless something in its chain already
// carries one.
func EnsureTrace(err error) error {
	if err == nil {
		return nil
	}
	var hs interface{ StackPCs() []uintptr }
	if errors.As(err, &hs) && len(hs.StackPCs()) > 0 {
		return err
	}
	return withStack(err)
}

type wrapped struct {
	err error
	msg string
	pc  uintptr
}

func (w *wrapped) Error() string { return w.msg + ": " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }
func (w *wrapped) PC() uintptr   { return w.pc }

func wrap(err error, msg string) error {
	var pcs [1]uintptr
	// skip runtime.Callers, wrap and the exported wrapper
	runtime.Callers(3, pcs[:])
	return &wrapped{err: err, msg: msg, pc: pcs[0]}
}

// Wrap prefixes err with msg. A nil err stays nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return wrap(err, msg)
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return wrap(err, fmt.Sprintf(format, args...))
}
