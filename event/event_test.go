package event

import (
	"testing"
	"time"
)

type testEventA struct{ N int }
type testEventB struct{ S string }

func TestTypeMuxDeliversByConcreteType(t *testing.T) {
	mux := NewTypeMux()
	subA := mux.Subscribe(testEventA{})
	subB := mux.Subscribe(testEventB{})
	defer subA.Unsubscribe()
	defer subB.Unsubscribe()

	go func() {
		_ = mux.Post(testEventA{N: 42})
	}()

	select {
	case ev := <-subA.Chan():
		got, ok := ev.Data.(testEventA)
		if !ok || got.N != 42 {
			t.Errorf("unexpected event on subA: %+v", ev.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for testEventA")
	}

	select {
	case ev := <-subB.Chan():
		t.Fatalf("subB should not have received an event, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTypeMuxPostAfterStopReturnsError(t *testing.T) {
	mux := NewTypeMux()
	mux.Stop()
	if err := mux.Post(testEventA{}); err != ErrMuxClosed {
		t.Fatalf("expected ErrMuxClosed, got %v", err)
	}
}

func TestTypeMuxSubscribeAfterStopReturnsClosedChannel(t *testing.T) {
	mux := NewTypeMux()
	mux.Stop()
	sub := mux.Subscribe(testEventA{})
	select {
	case _, ok := <-sub.Chan():
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out reading from post-stop subscription")
	}
}

func TestFeedSendToMultipleSubscribers(t *testing.T) {
	var feed Feed
	chA := make(chan int, 1)
	chB := make(chan int, 1)
	subA := feed.Subscribe(chA)
	subB := feed.Subscribe(chB)
	defer subA.Unsubscribe()
	defer subB.Unsubscribe()

	n := feed.Send(7)
	if n != 2 {
		t.Fatalf("expected 2 sends, got %d", n)
	}
	if got := <-chA; got != 7 {
		t.Fatalf("chA got %d, want 7", got)
	}
	if got := <-chB; got != 7 {
		t.Fatalf("chB got %d, want 7", got)
	}
}

func TestFeedSendAfterUnsubscribe(t *testing.T) {
	var feed Feed
	ch := make(chan int, 1)
	sub := feed.Subscribe(ch)
	sub.Unsubscribe()

	n := feed.Send(1)
	if n != 0 {
		t.Fatalf("expected 0 sends after unsubscribe, got %d", n)
	}
}

func TestFeedSubscribeWrongTypePanics(t *testing.T) {
	var feed Feed
	ch := make(chan int, 1)
	feed.Subscribe(ch)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic subscribing a mismatched channel type")
		}
	}()
	chWrong := make(chan string, 1)
	feed.Subscribe(chWrong)
}
