package wiz

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Bulb is one discovered light.
type Bulb struct {
	Addr  string
	On    bool
	MAC   string
	Scene int
}

type pilotResponse struct {
	Result struct {
		Mac     string `json:"mac"`
		State   bool   `json:"state"`
		SceneID int    `json:"sceneId"`
	} `json:"result"`
}

// Discover broadcasts a getPilot probe and collects replies until the timeout
// elapses or ctx is canceled.
func Discover(ctx context.Context, timeout time.Duration) ([]Bulb, error) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("open discovery socket: %w", err)
	}
	defer conn.Close()

	probe, err := GetPilot().Encode()
	if err != nil {
		return nil, err
	}
	broadcast := &net.UDPAddr{IP: net.IPv4bcast, Port: DefaultPort}
	if _, err := conn.WriteToUDP(probe, broadcast); err != nil {
		return nil, fmt.Errorf("broadcast probe: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	var bulbs []Bulb
	seen := make(map[string]bool)
	buf := make([]byte, 1024)
	for {
		if ctx.Err() != nil {
			return bulbs, ctx.Err()
		}
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return bulbs, nil
			}
			return bulbs, fmt.Errorf("read discovery reply: %w", err)
		}

		var resp pilotResponse
		if err := json.Unmarshal(buf[:n], &resp); err != nil {
			continue // not a bulb reply
		}
		ip := from.IP.String()
		if seen[ip] {
			continue
		}
		seen[ip] = true
		bulbs = append(bulbs, Bulb{
			Addr:  ip,
			On:    resp.Result.State,
			MAC:   resp.Result.Mac,
			Scene: resp.Result.SceneID,
		})
	}
}
