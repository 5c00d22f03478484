package net

import (
	"net"
	"time"
)

// Transport carries Messages between the nodes of a Federation. Every Send is
// a request that waits for one reply.
type Transport interface {
	// Listen accepts inbound requests and delivers them on Consumer until the
	// transport is closed.
	Listen()

	// Consumer yields inbound requests. Each must be answered with Respond.
	Consumer() <-chan RPC

	LocalAddr() string

	// AdvertiseAddr is the address other Organizations reach this node at.
	AdvertiseAddr() string

	// Send delivers msg to the target node and waits for its reply, which
	// may be nil.
	Send(target string, msg *Message) (*Message, error)

	// Close stops Listen and releases pooled connections. Send fails
	// afterwards.
	Close() error
}

// StreamLayer provides the connections a NetworkTransport frames Messages on.
type StreamLayer interface {
	net.Listener

	Dial(address string, timeout time.Duration) (net.Conn, error)

	AdvertiseAddr() string
}
