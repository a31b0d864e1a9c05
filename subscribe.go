package goform

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/reoring/goform/fieldpath"
)

// event is one notification pass. A nil names slice concerns the whole form.
type event struct {
	names []string
	keys  StateKey
	typ   EventType
}

// SubscribeOptions describes a subscriber. Keys is the declared read-set; keys
// read through the FormState handed to Callback (or returned by State) are
// added to it as they are used.
//
// Callback runs once per operation, except that validation and submission also
// announce their start in a separate pass (see Subscribe).
type SubscribeOptions struct {
	Name     string
	Names    []string
	Exact    bool
	Keys     StateKey
	Callback func(*FormState)
}

// Subscription is an active subscriber.
type Subscription struct {
	form   *Form
	names  []string
	exact  bool
	keys   StateKey
	read   atomic.Uint32
	fn     func(*FormState)
	closed atomic.Bool
}

// State returns a proxy whose reads extend the subscription's read-set.
func (s *Subscription) State() *FormState { return &FormState{f: s.form, sub: s} }

// Unsubscribe stops delivery. It is safe to call more than once and from
// inside the callback.
func (s *Subscription) Unsubscribe() {
	if s.closed.CompareAndSwap(false, true) {
		s.form.bus.remove(s)
	}
}

func (s *Subscription) interest() StateKey { return s.keys | StateKey(s.read.Load()) }

func (s *Subscription) track(k StateKey) {
	if s.keys&k != k {
		s.read.Or(uint32(k))
	}
}

func (s *Subscription) accepts(ev event) bool {
	if s.fn == nil || s.closed.Load() || !s.interest().Intersects(ev.keys) {
		return false
	}
	if len(s.names) == 0 || len(ev.names) == 0 {
		return true
	}
	for _, w := range s.names {
		for _, c := range ev.names {
			if fieldpath.Matches(w, c, s.exact) {
				return true
			}
		}
	}
	return false
}

// Subscribe registers an observer. It is called once per operation whose
// changes intersect its read-set and name scope. Operations that validate or
// submit publish one more pass when they start, so that IsValidating and
// IsSubmitting can be seen as true: a subscriber reading those keys gets two
// callbacks for such an operation.
func (f *Form) Subscribe(opts SubscribeOptions) *Subscription {
	return f.bus.add(f, opts)
}

// Watch calls fn with the current values whenever values at names change
// (any value when names is empty).
func (f *Form) Watch(names []string, fn func(values map[string]any, name string, ev EventType)) *Subscription {
	return f.Subscribe(SubscribeOptions{
		Names: names,
		Keys:  KeyValues,
		Callback: func(st *FormState) {
			fn(st.Values(), st.Name(), st.Type())
		},
	})
}

// bus delivers events to subscribers. Events published while a pass is being
// delivered are queued and delivered afterwards by the same goroutine.
type bus struct {
	mu       sync.Mutex
	subs     []*Subscription
	queue    []event
	draining bool
	report   func(*UsageError)
}

func newBus(report func(*UsageError)) *bus { return &bus{report: report} }

func (b *bus) add(f *Form, opts SubscribeOptions) *Subscription {
	s := &Subscription{form: f, exact: opts.Exact, keys: opts.Keys, fn: opts.Callback}
	if opts.Name != "" {
		s.names = append(s.names, fieldpath.Normalize(opts.Name))
	}
	for _, n := range opts.Names {
		s.names = append(s.names, fieldpath.Normalize(n))
	}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s
}

func (b *bus) remove(s *Subscription) {
	b.mu.Lock()
	b.subs = slices.DeleteFunc(b.subs, func(x *Subscription) bool { return x == s })
	b.mu.Unlock()
}

func (b *bus) publish(ev event) {
	if ev.keys == 0 {
		return
	}
	b.mu.Lock()
	b.queue = append(b.queue, ev)
	if b.draining {
		b.mu.Unlock()
		return
	}
	b.draining = true
	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue = b.queue[1:]
		subs := slices.Clone(b.subs)
		b.mu.Unlock()
		for _, s := range subs {
			if s.accepts(next) {
				b.deliver(s, next)
			}
		}
		b.mu.Lock()
	}
	b.draining = false
	b.mu.Unlock()
}

func (b *bus) deliver(s *Subscription, ev event) {
	defer func() {
		if r := recover(); r != nil {
			name := ""
			if len(ev.names) > 0 {
				name = ev.names[0]
			}
			b.report(&UsageError{Code: CodeCallbackPanic, Op: "notify", Path: name, Err: fmt.Errorf("%v", r)})
		}
	}()
	s.fn(&FormState{f: s.form, sub: s, ev: ev})
}

// wants reports whether any subscriber, including the root proxy, reads k.
func (b *bus) wants(k StateKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if !s.closed.Load() && s.interest().Intersects(k) {
			return true
		}
	}
	return false
}

func (b *bus) watches(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.fn == nil || s.closed.Load() || !s.interest().Intersects(KeyValues) {
			continue
		}
		if len(s.names) == 0 {
			return true
		}
		for _, w := range s.names {
			if fieldpath.Matches(w, path, s.exact) {
				return true
			}
		}
	}
	return false
}
