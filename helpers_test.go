package goform_test

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/reoring/goform"
)

// fakeInput is an in-memory host element.
type fakeInput struct {
	mu       sync.Mutex
	value    any
	writes   int
	focused  int
	listener func(goform.EventType)
}

func newInput(v any) *fakeInput { return &fakeInput{value: v} }

func (e *fakeInput) ReadValue(goform.FieldKind) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

func (e *fakeInput) WriteValue(v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = v
	e.writes++
}

func (e *fakeInput) Focus() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focused++
}

func (e *fakeInput) AddChangeListener(fn func(goform.EventType)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.listener = nil
	}
}

// typeValue simulates the user typing v.
func (e *fakeInput) typeValue(v any) {
	e.mu.Lock()
	e.value = v
	fn := e.listener
	e.mu.Unlock()
	if fn != nil {
		fn(goform.EventChange)
	}
}

func (e *fakeInput) blur() {
	e.mu.Lock()
	fn := e.listener
	e.mu.Unlock()
	if fn != nil {
		fn(goform.EventBlur)
	}
}

func (e *fakeInput) current() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

func (e *fakeInput) focusCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focused
}

func (e *fakeInput) listening() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listener != nil
}

// diagSink collects usage errors.
type diagSink struct {
	mu  sync.Mutex
	got []*goform.UsageError
}

func (d *diagSink) option() goform.Option { return goform.WithDiagnostics(d.add) }

func (d *diagSink) add(ue *goform.UsageError) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, ue)
}

func (d *diagSink) codes() []goform.UsageCode {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]goform.UsageCode, 0, len(d.got))
	for _, ue := range d.got {
		out = append(out, ue.Code)
	}
	return out
}

// seqKeys generates k1, k2, ...
func seqKeys() goform.Option {
	var n atomic.Int64
	return goform.WithKeyFunc(func() string { return fmt.Sprintf("k%d", n.Add(1)) })
}
