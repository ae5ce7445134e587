// Where: internal/stream/execute.go
// What: Run a handler against a fresh adapter and pick the final response.
// Why: Keep streaming, buffered, fallback, and failure outcomes in one place.
package stream

import (
	"context"
	"runtime/debug"

	"github.com/poruru-code/opennext-azure/internal/event"
)

// Execute renders ev through h. Streaming output wins over a returned result;
// a handler producing neither gets Fallback; errors and panics become
// ErrorResponse (stack traces only when dev is set).
func Execute(ctx context.Context, h event.Handler, ev *event.InternalEvent, dev bool, opts ...Option) *event.Response {
	adapter := New(opts...)

	result, err := invoke(ctx, h, ev, adapter)
	if err != nil {
		return ErrorResponse(err, dev)
	}

	if adapter.Started() {
		resp, err := adapter.Wait(ctx)
		if err != nil {
			return ErrorResponse(err, dev)
		}
		return resp
	}

	if result != nil {
		resp, err := Render(result)
		if err != nil {
			return ErrorResponse(err, dev)
		}
		return resp
	}
	return Fallback()
}

func invoke(ctx context.Context, h event.Handler, ev *event.InternalEvent, adapter *Adapter) (result *event.InternalResult, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = nil
			err = &PanicError{Value: recovered, Stack: debug.Stack()}
		}
	}()
	return h.Handle(ctx, ev, adapter)
}
