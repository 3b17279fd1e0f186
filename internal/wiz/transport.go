package wiz

import (
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/guidoenr/wizsync/internal/lighting"
)

// DefaultMinInterval is the floor between sends to one bulb, tuned to what
// consumer WiZ bulbs keep up with (~28 commands per second).
const DefaultMinInterval = time.Second / 28

// TransportConfig controls Transport behavior.
type TransportConfig struct {
	// MinInterval is the minimum time between sends per target address.
	MinInterval time.Duration
	Log         *log.Logger
}

// Transport dispatches lighting states as fire-and-forget UDP datagrams. It
// never waits for a response and never retries: freshness beats reliability
// for this payload class. States arriving faster than MinInterval per target
// are coalesced (only the latest is sent).
type Transport struct {
	conn        *net.UDPConn
	minInterval time.Duration
	log         *log.Logger
	now         func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
	resolved map[string]*net.UDPAddr
}

// NewTransport opens the shared UDP socket.
func NewTransport(cfg TransportConfig) (*Transport, error) {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stderr, "[wiz] ", log.LstdFlags)
	}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("open udp socket: %w", err)
	}
	return &Transport{
		conn:        conn,
		minInterval: cfg.MinInterval,
		log:         cfg.Log,
		now:         time.Now,
		lastSent:    make(map[string]time.Time),
		resolved:    make(map[string]*net.UDPAddr),
	}, nil
}

// Close releases the socket.
func (t *Transport) Close() error {
	return t.conn.Close()
}

// Send dispatches a setPilot command for the state to addr (IP or ip:port;
// the WiZ port is added when missing). Returns true when a datagram actually
// left, false when the send was coalesced away or failed. Failures are logged
// and discarded; Send never blocks the pipeline.
func (t *Transport) Send(addr string, s lighting.State) bool {
	t.mu.Lock()
	now := t.now()
	if last, ok := t.lastSent[addr]; ok && now.Sub(last) < t.minInterval {
		t.mu.Unlock()
		return false
	}
	t.mu.Unlock()

	if err := t.write(addr, SetPilot(s)); err != nil {
		// The window stays open: a failed frame must not coalesce away the
		// next valid one.
		t.log.Printf("drop frame for %s: %v", addr, err)
		return false
	}

	t.mu.Lock()
	t.lastSent[addr] = now
	t.mu.Unlock()
	return true
}

// SendNow dispatches a state immediately, bypassing the rate limiter. The
// session uses it for the final blackout on stop, which would otherwise land
// inside the last tick's coalescing window and never reach the bulbs.
func (t *Transport) SendNow(addr string, s lighting.State) error {
	if err := t.write(addr, SetPilot(s)); err != nil {
		return fmt.Errorf("send state to %s: %w", addr, err)
	}
	t.mu.Lock()
	t.lastSent[addr] = t.now()
	t.mu.Unlock()
	return nil
}

// SendPower switches a bulb on or off, bypassing the rate limiter. Used at
// session start/stop, not on the hot path.
func (t *Transport) SendPower(addr string, on bool) error {
	if err := t.write(addr, SetPower(on)); err != nil {
		return fmt.Errorf("send power to %s: %w", addr, err)
	}
	return nil
}

func (t *Transport) write(addr string, cmd Command) error {
	target, err := t.resolve(addr)
	if err != nil {
		return err
	}
	payload, err := cmd.Encode()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(10 * time.Millisecond))
	if _, err := t.conn.WriteToUDP(payload, target); err != nil {
		return err
	}
	return nil
}

// resolve caches address resolution per target. It owns the lock: callers on
// any goroutine share the cache safely.
func (t *Transport) resolve(addr string) (*net.UDPAddr, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cached, ok := t.resolved[addr]; ok {
		return cached, nil
	}
	full := addr
	if !strings.Contains(addr, ":") {
		full = fmt.Sprintf("%s:%d", addr, DefaultPort)
	}
	target, err := net.ResolveUDPAddr("udp4", full)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	t.resolved[addr] = target
	return target, nil
}
