package watch

import (
	"testing"
	"time"
)

func TestHub_NotifyReachesSubscribers(t *testing.T) {
	hub := NewHub()

	a := hub.Subscribe()
	b := hub.Subscribe()
	if hub.Count() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", hub.Count())
	}

	hub.Notify(42)

	for _, ch := range []chan int64{a, b} {
		select {
		case marker := <-ch:
			if marker != 42 {
				t.Errorf("expected marker 42, got %d", marker)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for marker")
		}
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe()
	hub.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}
	if hub.Count() != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.Count())
	}

	// Unsubscribing twice must not panic.
	hub.Unsubscribe(ch)
}

func TestHub_SlowSubscriberAlwaysGetsLatest(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe()
	for i := int64(1); i <= 20; i++ {
		hub.Notify(i)
	}

	// Old markers are evicted when the buffer overflows, so after draining
	// the last received value is the latest write.
	var last int64
	for {
		select {
		case marker := <-ch:
			last = marker
			continue
		default:
		}
		break
	}
	if last != 20 {
		t.Errorf("expected latest marker 20 after draining, got %d", last)
	}
}

func TestHub_IgnoresNonIncreasingMarkers(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe()
	hub.Notify(5)
	hub.Notify(3)
	hub.Notify(5)

	select {
	case marker := <-ch:
		if marker != 5 {
			t.Errorf("expected marker 5, got %d", marker)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for marker")
	}

	select {
	case marker := <-ch:
		t.Errorf("expected stale markers to be ignored, received %d", marker)
	default:
	}
}
