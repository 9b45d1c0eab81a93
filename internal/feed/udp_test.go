package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/seddaluca/racing-analytics/internal/domain"
)

func dialFeed(t *testing.T, source *UDPSource) net.Conn {
	t.Helper()
	conn, err := net.Dial("udp", source.Addr().String())
	if err != nil {
		t.Fatalf("dial feed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestUDPSourceDeliversSamples(t *testing.T) {
	source, err := ListenUDP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = source.Close() })
	conn := dialFeed(t, source)

	sent := domain.Sample{
		CarSpeed:  59,
		EngineRPM: 7200,
		Flags:     domain.Flags{CarOnTrack: true},
	}
	payload, err := json.Marshal(sent)
	if err != nil {
		t.Fatalf("marshal sample: %v", err)
	}
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("write datagram: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := source.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got.CarSpeed != 59 || got.EngineRPM != 7200 {
		t.Fatalf("sample = %+v, want speed 59 rpm 7200", got)
	}
	if got.ReceivedAt.IsZero() {
		t.Fatal("expected arrival timestamp to be stamped")
	}
}

func TestUDPSourceSkipsUndecodableDatagrams(t *testing.T) {
	source, err := ListenUDP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = source.Close() })
	conn := dialFeed(t, source)

	if _, err := conn.Write([]byte("not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	payload, err := json.Marshal(domain.Sample{CarSpeed: 10})
	if err != nil {
		t.Fatalf("marshal sample: %v", err)
	}
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("write datagram: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := source.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got.CarSpeed != 10 {
		t.Fatalf("sample speed = %v, want 10", got.CarSpeed)
	}
	if source.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", source.Dropped())
	}
}

func TestUDPSourceNextHonorsContext(t *testing.T) {
	source, err := ListenUDP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = source.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := source.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestUDPSourceCloseUnblocksNext(t *testing.T) {
	source, err := ListenUDP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	result := make(chan error, 1)
	go func() {
		_, err := source.Next(context.Background())
		result <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := source.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case err := <-result:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("next did not return after close")
	}
}
