package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// PanicError is a recovered panic, typically from a classifier's Fit or
// PredictProba while the bench scores a fold.
type PanicError struct {
	Operation  string      // e.g. "bench.fold[2]"
	PanicValue interface{} // value passed to panic()
	StackTrace string      // debug.Stack() at recovery
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// String は Error にスタックトレースを付けたものを返す。
func (e *PanicError) String() string {
	return e.Error() + "\nStack trace:\n" + e.StackTrace
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PanicError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Interface("panic_value", e.PanicValue).
		Str("type", "PanicError")
}

// NewPanicError captures the current stack for operation.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		Operation:  operation,
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
	}
}

// Recover turns a panic into an error stored in *err. Call it deferred:
//
//	func fitFold(i int) (err error) {
//	    defer errors.Recover(&err, fmt.Sprintf("bench.fold[%d]", i))
//	    ...
//	}
//
// 既に *err にエラーがある場合はそれを原因として包み、errors.Is で辿れるようにする。
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	if *err != nil {
		*err = errors.Wrapf(*err, "panic in %s: %v", operation, r)
		return
	}
	*err = NewPanicError(operation, r)
}

// SafeExecute runs fn, converting a panic into a PanicError.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
