package net

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

const (
	bufSize = 64 * 1024
)

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")
)

/*
NetworkTransport provides a network based transport that can be used to
communicate with fedledger nodes on remote machines. It requires an underlying
stream layer to provide a stream abstraction, such as plain TCP.

Each request is framed by sending a byte that indicates the message type,
followed by the msgpack encoded Message. The response is an error string
followed by the reply Message, which may be nil, both encoded with msgpack.
*/
type NetworkTransport struct {
	logger *logrus.Entry

	connPool     map[string][]*netConn
	connPoolLock sync.Mutex
	maxPool      int

	consumeCh chan RPC

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	stream StreamLayer

	timeout         time.Duration
	validateTimeout time.Duration
}

type netConn struct {
	target string
	conn   net.Conn
	r      *bufio.Reader
	w      *bufio.Writer
	dec    *codec.Decoder
	enc    *codec.Encoder
}

// Release closes the underlying connection
func (n *netConn) Release() error {
	return n.conn.Close()
}

// NewNetworkTransport creates a new network transport with the given stream
// layer. The maxPool controls how many connections we will pool per target.
// The timeout is used to apply I/O deadlines; ValidationRequests use the
// longer validateTimeout because the receiver waits for a quorum before
// replying.
func NewNetworkTransport(
	stream StreamLayer,
	maxPool int,
	timeout time.Duration,
	validateTimeout time.Duration,
	logger *logrus.Entry,
) *NetworkTransport {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &NetworkTransport{
		connPool:        make(map[string][]*netConn),
		consumeCh:       make(chan RPC),
		logger:          logger,
		maxPool:         maxPool,
		shutdownCh:      make(chan struct{}),
		stream:          stream,
		timeout:         timeout,
		validateTimeout: validateTimeout,
	}
}

// Close is used to stop the network transport.
func (n *NetworkTransport) Close() error {
	n.shutdownLock.Lock()
	defer n.shutdownLock.Unlock()

	if !n.shutdown {
		close(n.shutdownCh)
		n.stream.Close()
		n.shutdown = true

		n.connPoolLock.Lock()
		for target, conns := range n.connPool {
			for _, c := range conns {
				c.Release()
			}
			delete(n.connPool, target)
		}
		n.connPoolLock.Unlock()
	}
	return nil
}

// Consumer implements the Transport interface.
func (n *NetworkTransport) Consumer() <-chan RPC {
	return n.consumeCh
}

// LocalAddr implements the Transport interface.
func (n *NetworkTransport) LocalAddr() string {
	addr := n.stream.Addr()

	if addr != nil {
		return addr.String()
	}

	return ""
}

// AdvertiseAddr implements the Transport interface.
func (n *NetworkTransport) AdvertiseAddr() string {
	return n.stream.AdvertiseAddr()
}

// IsShutdown is used to check if the transport is shutdown.
func (n *NetworkTransport) IsShutdown() bool {
	select {
	case <-n.shutdownCh:
		return true
	default:
		return false
	}
}

// getPooledConn is used to grab a pooled connection.
func (n *NetworkTransport) getPooledConn(target string) *netConn {
	n.connPoolLock.Lock()
	defer n.connPoolLock.Unlock()

	conns, ok := n.connPool[target]
	if !ok || len(conns) == 0 {
		return nil
	}

	var conn *netConn
	num := len(conns)
	conn, conns[num-1] = conns[num-1], nil
	n.connPool[target] = conns[:num-1]
	return conn
}

// getConn is used to get a connection from the pool.
func (n *NetworkTransport) getConn(target string, timeout time.Duration) (*netConn, error) {
	if conn := n.getPooledConn(target); conn != nil {
		return conn, nil
	}

	conn, err := n.stream.Dial(target, timeout)
	if err != nil {
		return nil, err
	}

	netConn := &netConn{
		target: target,
		conn:   conn,
		r:      bufio.NewReaderSize(conn, bufSize),
		w:      bufio.NewWriterSize(conn, bufSize),
	}
	netConn.dec = codec.NewDecoder(netConn.r, msgpackHandle())
	netConn.enc = codec.NewEncoder(netConn.w, msgpackHandle())

	return netConn, nil
}

// returnConn returns a connection back to the pool.
func (n *NetworkTransport) returnConn(conn *netConn) {
	n.connPoolLock.Lock()
	defer n.connPoolLock.Unlock()

	key := conn.target
	conns := n.connPool[key]

	if !n.IsShutdown() && len(conns) < n.maxPool {
		n.connPool[key] = append(conns, conn)
	} else {
		conn.Release()
	}
}

// pooled returns the number of idle connections to target.
func (n *NetworkTransport) pooled(target string) int {
	n.connPoolLock.Lock()
	defer n.connPoolLock.Unlock()
	return len(n.connPool[target])
}

// Send implements the Transport interface.
func (n *NetworkTransport) Send(target string, msg *Message) (*Message, error) {
	if n.IsShutdown() {
		return nil, ErrTransportShutdown
	}

	timeout := n.timeout
	if msg.Type == ValidationRequest && n.validateTimeout > timeout {
		timeout = n.validateTimeout
	}

	return n.genericRPC(target, timeout, msg)
}

// genericRPC handles a simple request/response RPC.
func (n *NetworkTransport) genericRPC(target string, timeout time.Duration, msg *Message) (*Message, error) {
	conn, err := n.getConn(target, timeout)
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		conn.conn.SetDeadline(time.Now().Add(timeout))
	}

	if err = sendRPC(conn, msg); err != nil {
		return nil, err
	}

	resp, canReturn, err := decodeResponse(conn)
	if canReturn {
		n.returnConn(conn)
	}

	return resp, err
}

// sendRPC is used to encode and send the RPC.
func sendRPC(conn *netConn, msg *Message) error {
	if err := conn.w.WriteByte(byte(msg.Type)); err != nil {
		conn.Release()
		return err
	}

	if err := conn.enc.Encode(msg); err != nil {
		conn.Release()
		return err
	}

	if err := conn.w.Flush(); err != nil {
		conn.Release()
		return err
	}
	return nil
}

// decodeResponse is used to decode an RPC response and reports whether the
// connection can be reused.
func decodeResponse(conn *netConn) (*Message, bool, error) {
	var rpcError string
	if err := conn.dec.Decode(&rpcError); err != nil {
		conn.Release()
		return nil, false, err
	}

	var resp *Message
	if err := conn.dec.Decode(&resp); err != nil {
		conn.Release()
		return nil, false, err
	}

	if rpcError != "" {
		return resp, true, errors.New(rpcError)
	}
	return resp, true, nil
}

// Listen opens the stream and handles incoming connections.
func (n *NetworkTransport) Listen() {
	for {
		conn, err := n.stream.Accept()
		if err != nil {
			if n.IsShutdown() {
				return
			}
			n.logger.WithField("error", err).Error("Failed to accept connection")
			continue
		}
		n.logger.WithFields(logrus.Fields{
			"node": conn.LocalAddr(),
			"from": conn.RemoteAddr(),
		}).Debug("accepted connection")

		go n.handleConn(conn)
	}
}

// handleConn is used to handle an inbound connection for its lifespan.
func (n *NetworkTransport) handleConn(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReaderSize(conn, bufSize)
	w := bufio.NewWriterSize(conn, bufSize)
	dec := codec.NewDecoder(r, msgpackHandle())
	enc := codec.NewEncoder(w, msgpackHandle())

	for {
		if err := n.handleCommand(r, dec, enc); err != nil {
			if err == ErrTransportShutdown {
				n.logger.WithField("error", err).Warn("Failed to decode incoming command")
			} else if err != io.EOF {
				n.logger.WithField("error", err).Error("Failed to decode incoming command")
			}
			return
		}
		if err := w.Flush(); err != nil {
			n.logger.WithField("error", err).Error("Failed to flush response")
			return
		}
	}
}

// handleCommand is used to decode and dispatch a single command.
func (n *NetworkTransport) handleCommand(r *bufio.Reader, dec *codec.Decoder, enc *codec.Encoder) error {
	b, err := r.ReadByte()
	if err != nil {
		return err
	}

	msgType := MessageType(b)
	if !msgType.valid() {
		return fmt.Errorf("unknown rpc type %d", b)
	}

	var msg Message
	if err := dec.Decode(&msg); err != nil {
		return err
	}
	if msg.Type != msgType {
		return fmt.Errorf("rpc type %s does not match message type %s", msgType, msg.Type)
	}

	respCh := make(chan RPCResponse, 1)
	rpc := RPC{
		Command:  &msg,
		RespChan: respCh,
	}

	select {
	case n.consumeCh <- rpc:
	case <-n.shutdownCh:
		return ErrTransportShutdown
	}

	select {
	case resp := <-respCh:
		respErr := ""
		if resp.Error != nil {
			respErr = resp.Error.Error()
		}
		if err := enc.Encode(respErr); err != nil {
			return err
		}

		if err := enc.Encode(resp.Response); err != nil {
			return err
		}
	case <-n.shutdownCh:
		return ErrTransportShutdown
	}

	return nil
}
