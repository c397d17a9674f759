package hub

import (
	"context"
	"sync"
	"testing"
	"time"
)

func fixedHub(buffer int) *Hub {
	h := New(buffer)
	h.now = func() time.Time { return time.UnixMilli(1760000000000) }
	return h
}

func TestPublishFanOut(t *testing.T) {
	h := fixedHub(1)
	subs := []*Subscription{h.Subscribe(), h.Subscribe(), h.Subscribe()}

	ev := h.Publish("board")
	if ev.Type != "board" || ev.Timestamp != 1760000000000 {
		t.Fatalf("unexpected event %+v", ev)
	}
	for i, s := range subs {
		select {
		case got := <-s.Events():
			if got != ev {
				t.Fatalf("subscriber %d got %+v", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d received nothing", i)
		}
	}
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	h := fixedHub(1)
	h.Publish("board")
	s := h.Subscribe()
	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected replay %+v", ev)
	default:
	}
}

func TestUnsubscribedReceivesNothing(t *testing.T) {
	h := fixedHub(1)
	gone := h.Subscribe()
	live := h.Subscribe()
	h.Unsubscribe(gone)

	if n := h.Broadcast(Event{Type: "all"}); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if _, ok := <-gone.Events(); ok {
		t.Fatalf("expected closed channel for removed subscriber")
	}
	if ev := <-live.Events(); ev.Type != "all" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	h := fixedHub(1)
	s := h.Subscribe()
	h.Unsubscribe(s)
	h.Unsubscribe(s)
	if h.Count() != 0 {
		t.Fatalf("expected no subscribers, got %d", h.Count())
	}
}

func TestSlowSubscriberDropped(t *testing.T) {
	h := fixedHub(1)
	slow := h.Subscribe()
	fast := h.Subscribe()

	h.Publish("one")
	<-fast.Events()

	done := make(chan int, 1)
	go func() { done <- h.Broadcast(Event{Type: "two"}) }()
	select {
	case n := <-done:
		if n != 1 {
			t.Fatalf("expected only the fast subscriber to receive, got %d", n)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}

	if h.Count() != 1 {
		t.Fatalf("expected slow subscriber removed, have %d", h.Count())
	}
	if ev := <-fast.Events(); ev.Type != "two" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev := <-slow.Events(); ev.Type != "one" {
		t.Fatalf("expected buffered event before close, got %+v", ev)
	}
	if _, ok := <-slow.Events(); ok {
		t.Fatalf("expected slow subscriber channel closed")
	}
}

func TestConcurrentSubscribePublish(t *testing.T) {
	h := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s := h.Subscribe()
			h.Unsubscribe(s)
		}()
		go func() {
			defer wg.Done()
			_ = h.Notify(context.Background(), "board")
		}()
	}
	wg.Wait()
	if h.Clients() != 0 {
		t.Fatalf("expected all subscribers gone, have %d", h.Clients())
	}
}

func TestClose(t *testing.T) {
	h := fixedHub(1)
	s := h.Subscribe()
	h.Close()
	if _, ok := <-s.Events(); ok {
		t.Fatalf("expected channel closed")
	}
	h.Unsubscribe(s)
}
