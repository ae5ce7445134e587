// Where: internal/stream/adapter.go
// What: Response stream adapter state machine.
// Why: Handlers stream headers then body chunks; the host needs one buffered response.
package stream

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/poruru-code/opennext-azure/internal/event"
)

var (
	// ErrHeadersAlreadyWritten is returned by sinks handed out after the first prelude.
	ErrHeadersAlreadyWritten = errors.New("stream: headers already written")
	// ErrStreamClosed is returned when writing to a finalized stream.
	ErrStreamClosed = errors.New("stream: write after close")
)

type state int

const (
	stateUninitialized state = iota
	stateHeadersWritten
	stateFinalizing
	stateFinalized
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateHeadersWritten:
		return "headers-written"
	case stateFinalizing:
		return "finalizing"
	case stateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBase64 decides per prelude whether the collected body is emitted as
// base64. The default encodes binary content types only.
func WithBase64(decide func(event.Prelude) bool) Option {
	return func(a *Adapter) {
		if decide != nil {
			a.encodeBase64 = decide
		}
	}
}

// Adapter implements event.StreamCreator and collects one response.
type Adapter struct {
	mu           sync.Mutex
	state        state
	prelude      event.Prelude
	buf          bytes.Buffer
	response     *event.Response
	encodeBase64 func(event.Prelude) bool

	done     chan struct{}
	doneOnce sync.Once
}

// New returns an adapter in the uninitialized state.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		done:         make(chan struct{}),
		encodeBase64: binaryPrelude,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WriteHeaders commits the prelude and returns the body sink. Null-body
// statuses finalize immediately and get a sink that discards writes.
func (a *Adapter) WriteHeaders(prelude event.Prelude) io.WriteCloser {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != stateUninitialized {
		return errorSink{err: ErrHeadersAlreadyWritten}
	}
	a.prelude = prelude
	a.state = stateHeadersWritten

	if event.IsNullBodyStatus(prelude.StatusCode) {
		a.finalizeLocked(false)
		return discardSink{}
	}
	return &bufferSink{adapter: a}
}

// Started reports whether a prelude has been received.
func (a *Adapter) Started() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state != stateUninitialized
}

// Done is closed once the response is finalized.
func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the stream is finalized or ctx ends.
func (a *Adapter) Wait(ctx context.Context) (*event.Response, error) {
	select {
	case <-a.done:
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.response, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Adapter) write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != stateHeadersWritten {
		return 0, ErrStreamClosed
	}
	return a.buf.Write(p)
}

func (a *Adapter) close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != stateHeadersWritten {
		return nil
	}
	a.finalizeLocked(true)
	return nil
}

func (a *Adapter) finalizeLocked(withBody bool) {
	a.state = stateFinalizing

	resp := &event.Response{
		StatusCode: a.prelude.StatusCode,
		Headers:    mergeHeaders(a.prelude.Headers, a.prelude.Cookies),
		Cookies:    append([]string(nil), a.prelude.Cookies...),
	}
	if withBody {
		raw := a.buf.Bytes()
		var body string
		if a.encodeBase64(a.prelude) {
			body = base64.StdEncoding.EncodeToString(raw)
			resp.IsBase64Encoded = true
		} else {
			body = string(raw)
		}
		resp.Body = &body
	}
	a.buf.Reset()
	a.response = resp

	a.state = stateFinalized
	a.doneOnce.Do(func() { close(a.done) })
}

// mergeHeaders copies headers and folds cookies into one Set-Cookie value.
func mergeHeaders(headers map[string]string, cookies []string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for name, value := range headers {
		if len(cookies) > 0 && strings.EqualFold(name, "set-cookie") {
			continue
		}
		out[name] = value
	}
	if len(cookies) > 0 {
		out["set-cookie"] = strings.Join(cookies, ", ")
	}
	return out
}

type bufferSink struct {
	adapter *Adapter
}

func (s *bufferSink) Write(p []byte) (int, error) {
	return s.adapter.write(p)
}

func (s *bufferSink) Close() error {
	return s.adapter.close()
}

type discardSink struct{}

func (discardSink) Write(p []byte) (int, error) { return len(p), nil }
func (discardSink) Close() error                { return nil }

type errorSink struct {
	err error
}

func (s errorSink) Write([]byte) (int, error) { return 0, s.err }
func (s errorSink) Close() error              { return nil }
