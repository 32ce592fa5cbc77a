// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package notifier

import (
	"context"
	"net"
	"time"
)

// Prober answers whether the network is worth trying.
type Prober interface {
	Reachable(ctx context.Context) bool
}

// TCPProbe dials Address. An empty address is always reachable.
type TCPProbe struct {
	Address string
	Timeout time.Duration
}

func (p TCPProbe) Reachable(ctx context.Context) bool {
	if p.Address == "" {
		return true
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
