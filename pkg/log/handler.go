package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrFmtHandler decorates records that carry an error under ErrAttrKey.
// スタックトレース(StacktraceAttrKey)と、pkg/errors の型名(ErrorTypeKey)を追加する。
type ErrFmtHandler struct {
	next slog.Handler
}

// WrapByErrFmtHandler wraps next with ErrFmtHandler.
func WrapByErrFmtHandler(next slog.Handler) slog.Handler {
	return &ErrFmtHandler{next: next}
}

func (h *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var found error
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == ErrAttrKey {
			found, _ = attr.Value.Any().(error)
			return false
		}
		return true
	})
	if found == nil {
		return h.next.Handle(ctx, r)
	}

	if typ := errorType(found); typ != "" {
		r.AddAttrs(slog.String(ErrorTypeKey, typ))
	}
	if stack := stacktrace(found); stack != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, stack))
	}
	return h.next.Handle(ctx, r)
}

func (h *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{next: h.next.WithGroup(g)}
}

// stacktrace returns the stack captured by errors.WithStack, which
// cockroachdb/errors exposes as the first safe detail.
func stacktrace(err error) string {
	details := errors.GetSafeDetails(err).SafeDetails
	if len(details) == 0 {
		return ""
	}
	return details[0]
}

// errorType names the innermost cause when it is one of the pkg/errors
// types, e.g. "SchemaError". Other causes yield "".
func errorType(err error) string {
	name := fmt.Sprintf("%T", errors.UnwrapAll(err))
	if !strings.HasPrefix(name, "*errors.") {
		return ""
	}
	return strings.TrimPrefix(name, "*errors.")
}
