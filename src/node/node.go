package node

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fedledger/fedledger/src/ledger"
	"github.com/fedledger/fedledger/src/net"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Node defines a fedledger node
type Node struct {
	state

	conf   *Config
	logger *logrus.Entry

	ledger *ledger.Ledger

	trans net.Transport
	netCh <-chan net.RPC

	peerLock sync.RWMutex
	peers    []string

	limiter *rate.Limiter

	shutdownCh chan struct{}

	start              time.Time
	txRequests         uint64
	txDropped          uint64
	validationRequests uint64
}

// NewNode is a factory method that returns a Node instance
func NewNode(conf *Config, l *ledger.Ledger, trans net.Transport) *Node {
	logger := conf.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	return &Node{
		conf: conf,
		logger: logger.WithFields(logrus.Fields{
			"federation": l.Federation().Handle(),
			"addr":       trans.AdvertiseAddr(),
		}),
		ledger:     l,
		trans:      trans,
		netCh:      trans.Consumer(),
		limiter:    conf.limiter(),
		shutdownCh: make(chan struct{}),
		start:      time.Now(),
	}
}

// RunAsync calls Run in a separate goroutine
func (n *Node) RunAsync() {
	go n.Run()
}

// Run starts the transport and processes incoming RPCs until Shutdown.
func (n *Node) Run() {
	go n.trans.Listen()

	n.logger.Debug("Run")
	n.doBackgroundWork()
}

func (n *Node) doBackgroundWork() {
	for {
		select {
		case rpc := <-n.netCh:
			work := func() {
				n.logger.WithField("cmd", rpc.Command).Debug("Processing RPC")
				n.processRPC(rpc)
			}
			if !n.goFunc(work) {
				work()
			}
		case <-n.shutdownCh:
			return
		}
	}
}

// Shutdown shuts down the node
func (n *Node) Shutdown() {
	if n.getState() != Shutdown {
		n.logger.Debug("Shutdown")
		n.logStats()

		n.setState(Shutdown)

		close(n.shutdownCh)

		n.waitRoutines()

		// transport and store should only be closed once all concurrent
		// operations are finished
		n.trans.Close()

		if err := n.ledger.Close(); err != nil {
			n.logger.WithError(err).Error("Closing store")
		}
	}
}

// GetState returns the current State.
func (n *Node) GetState() State {
	return n.getState()
}

// Ledger ...
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// SetPeers replaces the addresses of the nodes that accepted transactions
// are announced to.
func (n *Node) SetPeers(addrs []string) {
	n.peerLock.Lock()
	defer n.peerLock.Unlock()
	n.peers = append([]string(nil), addrs...)
}

// Peers ...
func (n *Node) Peers() []string {
	n.peerLock.RLock()
	defer n.peerLock.RUnlock()
	return append([]string(nil), n.peers...)
}

// Addr returns the address other nodes use to reach this one.
func (n *Node) Addr() string {
	return n.trans.AdvertiseAddr()
}

// GetStats returns stats
func (n *Node) GetStats() map[string]string {
	ls := n.ledger.Stats()
	fed := n.ledger.Federation()

	uptime := time.Since(n.start)

	var txPerSecond float64
	if uptime > 0 {
		txPerSecond = float64(ls.Pushed+ls.Confirmed+ls.Promoted) / uptime.Seconds()
	}

	return map[string]string{
		"state":               n.getState().String(),
		"addr":                n.Addr(),
		"federation":          fed.Identifier().Local(),
		"organizations":       strconv.Itoa(fed.Len()),
		"graph_size":          strconv.Itoa(ls.GraphSize),
		"pending":             strconv.Itoa(ls.Pending),
		"window":              fmt.Sprintf("%d/%d", ls.WindowLen, ls.WindowSize),
		"pushed":              strconv.FormatUint(ls.Pushed, 10),
		"confirmed":           strconv.FormatUint(ls.Confirmed, 10),
		"rejected":            strconv.FormatUint(ls.Rejected, 10),
		"deferred":            strconv.FormatUint(ls.Deferred, 10),
		"promoted":            strconv.FormatUint(ls.Promoted, 10),
		"peers":               strconv.Itoa(len(n.Peers())),
		"tx_requests":         strconv.FormatUint(atomic.LoadUint64(&n.txRequests), 10),
		"tx_dropped":          strconv.FormatUint(atomic.LoadUint64(&n.txDropped), 10),
		"validation_requests": strconv.FormatUint(atomic.LoadUint64(&n.validationRequests), 10),
		"tx_per_second":       strconv.FormatFloat(txPerSecond, 'f', 2, 64),
		"uptime":              uptime.Truncate(time.Second).String(),
	}
}

func (n *Node) logStats() {
	stats := n.GetStats()

	fields := logrus.Fields{}
	for k, v := range stats {
		fields[k] = v
	}
	n.logger.WithFields(fields).Debug("Stats")
}
