// Package event implements publish/subscribe primitives in the same shape
// as go-ethereum's event package: TypeMux, whose subscribers register for a
// type of interest and read off a Subscription's Chan(), and Feed. The
// coordinator does not use it: its loop reads the Network event channel and
// its own command queue directly.
package event

import (
	"errors"
	"reflect"
	"sync"
)

var ErrMuxClosed = errors.New("event: mux closed")

// MuxEvent wraps a posted value, in the shape of event.TypeMuxEvent; it
// carries no delivery time.
type MuxEvent struct {
	Data interface{}
}

// TypeMux dispatches published values to subscribers registered for that
// value's concrete type.
type TypeMux struct {
	mu       sync.RWMutex
	subm     map[reflect.Type][]*TypeMuxSubscription
	stopped  bool
}

// NewTypeMux returns a ready-to-use mux.
func NewTypeMux() *TypeMux {
	return &TypeMux{subm: make(map[reflect.Type][]*TypeMuxSubscription)}
}

// Subscribe registers for events whose concrete type matches any of types.
func (mux *TypeMux) Subscribe(types ...interface{}) *TypeMuxSubscription {
	sub := newsub(mux)
	mux.mu.Lock()
	defer mux.mu.Unlock()
	if mux.stopped {
		sub.closed = true
		close(sub.postC)
		return sub
	}
	if mux.subm == nil {
		mux.subm = make(map[reflect.Type][]*TypeMuxSubscription)
	}
	for _, t := range types {
		rtyp := reflect.TypeOf(t)
		mux.subm[rtyp] = append(mux.subm[rtyp], sub)
	}
	return sub
}

// Post delivers ev to every subscriber registered for its concrete type.
func (mux *TypeMux) Post(ev interface{}) error {
	rtyp := reflect.TypeOf(ev)
	mux.mu.RLock()
	if mux.stopped {
		mux.mu.RUnlock()
		return ErrMuxClosed
	}
	subs := mux.subm[rtyp]
	mux.mu.RUnlock()

	e := &MuxEvent{Data: ev}
	for _, sub := range subs {
		sub.deliver(e)
	}
	return nil
}

// Stop closes every subscription and refuses further Post/Subscribe calls.
func (mux *TypeMux) Stop() {
	mux.mu.Lock()
	defer mux.mu.Unlock()
	for _, subs := range mux.subm {
		for _, sub := range subs {
			sub.closewait()
		}
	}
	mux.subm = nil
	mux.stopped = true
}

// TypeMuxSubscription is returned by TypeMux.Subscribe.
type TypeMuxSubscription struct {
	mux     *TypeMux
	closeMu sync.Mutex
	closing chan struct{}
	closed  bool
	postMu  sync.RWMutex
	postC   chan *MuxEvent
}

func newsub(mux *TypeMux) *TypeMuxSubscription {
	return &TypeMuxSubscription{
		mux:     mux,
		closing: make(chan struct{}),
		postC:   make(chan *MuxEvent),
	}
}

func (s *TypeMuxSubscription) Chan() <-chan *MuxEvent {
	return s.postC
}

func (s *TypeMuxSubscription) Unsubscribe() {
	s.closewait()
}

func (s *TypeMuxSubscription) closewait() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	close(s.closing)
	s.closed = true
	s.postMu.Lock()
	close(s.postC)
	s.postMu.Unlock()
}

func (s *TypeMuxSubscription) deliver(e *MuxEvent) {
	s.postMu.RLock()
	defer s.postMu.RUnlock()
	select {
	case s.postC <- e:
	case <-s.closing:
	}
}

// Subscription represents a stream of events produced by a Feed, following
// go-ethereum's event.Subscription/Feed contract.
type Subscription interface {
	Err() <-chan error
	Unsubscribe()
}

// Feed implements one-to-many notification with no history: each
// subscriber sees only events posted after it subscribes.
type Feed struct {
	once      sync.Once
	sendLock  chan struct{}
	removeSub chan interface{}
	sendCases caseList

	mu     sync.Mutex
	inbox  caseList
	etype  reflect.Type
	closed bool
}

type feedSub struct {
	feed    *Feed
	channel reflect.Value
	errC    chan error
}

func (f *Feed) init(etype reflect.Type) {
	f.etype = etype
	f.sendLock = make(chan struct{}, 1)
	f.sendLock <- struct{}{}
	f.removeSub = make(chan interface{})
	f.sendCases = caseList{{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(f.removeSub)}}
}

// Subscribe adds a channel to the feed. Future sends on the feed will be
// delivered on the provided channel until the subscription is canceled.
func (f *Feed) Subscribe(channel interface{}) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	chanval := reflect.ValueOf(channel)
	chantyp := chanval.Type()
	if chantyp.Kind() != reflect.Chan || chantyp.ChanDir()&reflect.SendDir == 0 {
		panic("event: Subscribe argument does not have sendable channel type")
	}
	etype := chantyp.Elem()
	f.once.Do(func() { f.init(etype) })
	if etype != f.etype {
		panic("event: Subscribe channel type does not match Feed")
	}

	sub := &feedSub{feed: f, channel: chanval, errC: make(chan error, 1)}
	f.inbox = append(f.inbox, reflect.SelectCase{Dir: reflect.SelectSend, Chan: chanval})
	return sub
}

func (sub *feedSub) Unsubscribe() {
	f, ch := sub.feed, sub.channel.Interface()
	f.mu.Lock()
	if i := f.inbox.find(ch); i != -1 {
		f.inbox = f.inbox.delete(i)
		f.mu.Unlock()
	} else {
		f.mu.Unlock()
		select {
		case f.removeSub <- ch: // a Send in progress drops it
		case <-f.sendLock:
			if i := f.sendCases.find(ch); i != -1 {
				f.sendCases = f.sendCases.delete(i)
			}
			f.sendLock <- struct{}{}
		}
	}
	sub.errC <- nil
	<-sub.errC
}

func (sub *feedSub) Err() <-chan error { return sub.errC }

// Send delivers v to all current subscribers, blocking until every one has
// either received it or unsubscribed.
func (f *Feed) Send(value interface{}) (nsent int) {
	rvalue := reflect.ValueOf(value)

	<-f.sendLock
	f.mu.Lock()
	f.sendCases = append(f.sendCases, f.inbox...)
	f.inbox = nil
	f.mu.Unlock()

	for i := 1; i < len(f.sendCases); i++ {
		f.sendCases[i].Send = rvalue
	}

	cases := f.sendCases
	for {
		for i := 1; i < len(cases); i++ {
			if cases[i].Chan.TrySend(rvalue) {
				nsent++
				cases = cases.deactivate(i)
				i--
			}
		}
		if len(cases) == 1 {
			break
		}
		chosen, recv, _ := reflect.Select(cases)
		if chosen == 0 {
			index := f.sendCases.find(recv.Interface())
			if index >= 0 {
				f.sendCases = f.sendCases.delete(index)
				if index < len(cases) {
					cases = f.sendCases[:len(cases)-1]
				}
			}
			continue
		}
		cases = cases.deactivate(chosen)
		nsent++
	}

	for i := range f.sendCases {
		f.sendCases[i].Send = reflect.Value{}
	}
	f.sendLock <- struct{}{}
	return nsent
}

type caseList []reflect.SelectCase

func (cs caseList) find(channel interface{}) int {
	for i, cas := range cs {
		if cas.Chan.Interface() == channel {
			return i
		}
	}
	return -1
}

func (cs caseList) delete(index int) caseList {
	return append(cs[:index], cs[index+1:]...)
}

func (cs caseList) deactivate(index int) caseList {
	last := len(cs) - 1
	cs[index], cs[last] = cs[last], cs[index]
	return cs[:last]
}
