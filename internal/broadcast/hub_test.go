package broadcast

import (
	"encoding/json"
	"testing"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	first := hub.Subscribe()
	second := hub.Subscribe()
	if hub.SubscriberCount() != 2 {
		t.Fatalf("subscribers = %d, want 2", hub.SubscriberCount())
	}

	if err := hub.Publish(EventTelemetryData, map[string]float64{"speed": 212.4}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, sub := range []*Subscriber{first, second} {
		select {
		case frame := <-sub.Frames():
			if frame.Event != EventTelemetryData {
				t.Fatalf("event = %q, want %q", frame.Event, EventTelemetryData)
			}
			var data map[string]float64
			if err := json.Unmarshal(frame.Data, &data); err != nil {
				t.Fatalf("decode frame: %v", err)
			}
			if data["speed"] != 212.4 {
				t.Fatalf("speed = %v, want 212.4", data["speed"])
			}
		default:
			t.Fatal("expected a buffered frame")
		}
	}
}

func TestSlowSubscriberDropsFrames(t *testing.T) {
	hub := NewHub(1)
	defer hub.Close()

	sub := hub.Subscribe()
	for i := 0; i < 3; i++ {
		if err := hub.Publish(EventTelemetryData, i); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	// Buffer holds only the first frame; the rest were dropped, and the
	// publisher never blocked.
	frame := <-sub.Frames()
	var got int
	if err := json.Unmarshal(frame.Data, &got); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if got != 0 {
		t.Fatalf("frame = %d, want 0", got)
	}
	select {
	case extra, ok := <-sub.Frames():
		if ok {
			t.Fatalf("unexpected extra frame %v", extra)
		}
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	sub := hub.Subscribe()
	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub) // second removal is a no-op

	if _, ok := <-sub.Frames(); ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
	if hub.SubscriberCount() != 0 {
		t.Fatalf("subscribers = %d, want 0", hub.SubscriberCount())
	}
}

func TestCloseRejectsNewSubscribers(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe()
	hub.Close()

	if _, ok := <-sub.Frames(); ok {
		t.Fatal("expected closed channel after hub close")
	}
	if hub.Subscribe() != nil {
		t.Fatal("expected nil subscriber after close")
	}
	if err := hub.Publish(EventTelemetryData, 1); err != nil {
		t.Fatalf("publish after close: %v", err)
	}
}
