package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/seddaluca/racing-analytics/internal/domain"
)

// maxDatagramSize bounds one JSON-encoded sample.
const maxDatagramSize = 64 * 1024

// UDPSource reads JSON-encoded samples arriving as UDP datagrams. Datagrams
// that fail to decode are counted and skipped; the stream keeps going.
type UDPSource struct {
	conn    net.PacketConn
	dropped atomic.Int64
}

var _ Source = (*UDPSource)(nil)

// ListenUDP binds a UDP source to the given address, e.g. ":33740".
func ListenUDP(addr string) (*UDPSource, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen telemetry feed: %w", err)
	}
	return &UDPSource{conn: conn}, nil
}

// Addr reports the bound listen address.
func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Dropped reports how many undecodable datagrams were skipped.
func (s *UDPSource) Dropped() int64 {
	return s.dropped.Load()
}

// Next blocks until a decodable datagram arrives. Samples missing a receive
// timestamp are stamped on arrival.
func (s *UDPSource) Next(ctx context.Context) (*domain.Sample, error) {
	buf := make([]byte, maxDatagramSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Short read deadline so context cancellation is noticed promptly.
		if err := s.conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
			return nil, fmt.Errorf("set feed read deadline: %w", err)
		}

		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("read telemetry feed: %w", err)
		}

		var sample domain.Sample
		if err := json.Unmarshal(buf[:n], &sample); err != nil {
			s.dropped.Add(1)
			continue
		}
		if sample.ReceivedAt.IsZero() {
			sample.ReceivedAt = time.Now().UTC()
		}
		return &sample, nil
	}
}

// Close shuts the listener down; a blocked Next returns ErrClosed.
func (s *UDPSource) Close() error {
	return s.conn.Close()
}
