// Package fedledger wires the components of a node together: the Federation
// read from the peer directory, the transaction store, the ledger, the TCP
// transport, the node and the optional HTTP service.
package fedledger

import (
	"errors"
	"fmt"
	"os"

	"github.com/fedledger/fedledger/src/config"
	"github.com/fedledger/fedledger/src/dag"
	"github.com/fedledger/fedledger/src/federation"
	"github.com/fedledger/fedledger/src/ident"
	"github.com/fedledger/fedledger/src/ledger"
	"github.com/fedledger/fedledger/src/net"
	"github.com/fedledger/fedledger/src/node"
	"github.com/fedledger/fedledger/src/peers"
	"github.com/fedledger/fedledger/src/quorum"
	"github.com/fedledger/fedledger/src/service"
	"github.com/fedledger/fedledger/src/tx"
	"github.com/sirupsen/logrus"
)

// FedLedger is a fully initialised node.
type FedLedger struct {
	Config       *config.Config
	Generator    *ident.Generator
	Directory    *peers.Directory
	Federation   *federation.Federation
	Organization *federation.Organization
	Store        dag.Store
	Ledger       *ledger.Ledger
	Transport    net.Transport
	Node         *node.Node
	Service      *service.Service
	logger       *logrus.Entry
}

// NewFedLedger is a factory method to produce a FedLedger instance.
func NewFedLedger(c *config.Config) *FedLedger {
	return &FedLedger{
		Config:    c,
		Generator: ident.NewSeededGenerator(c.Seed),
		logger:    c.Logger(),
	}
}

// Init initialises the FedLedger based on its configuration. It reads or
// creates the peer directory, opens the store and starts listening.
func (f *FedLedger) Init() error {
	f.logger.Debug("validating configuration")

	if _, err := f.Config.Policy(); err != nil {
		return err
	}

	if err := f.initPeers(); err != nil {
		f.logger.WithError(err).Error("fedledger.go:Init() initPeers")
		return err
	}

	if err := f.initStore(); err != nil {
		f.logger.WithError(err).Error("fedledger.go:Init() initStore")
		return err
	}

	if err := f.initLedger(); err != nil {
		f.logger.WithError(err).Error("fedledger.go:Init() initLedger")
		f.closeStore()
		return err
	}

	if err := f.initTransport(); err != nil {
		f.logger.WithError(err).Error("fedledger.go:Init() initTransport")
		f.closeStore()
		return err
	}

	f.initNode()

	f.initService()

	return nil
}

// initPeers loads federation.json from the data directory. When the file does
// not exist yet, a Federation is created from the configuration, with this
// node's Organization if one is named, and the file is written.
func (f *FedLedger) initPeers() error {
	store := peers.NewJSONDirectory(f.Config.DataDir)

	dir, err := store.Directory()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if dir == nil {
		f.logger.WithField("path", store.Path()).Debug("Creating peer directory")

		if dir, err = f.newDirectory(); err != nil {
			return err
		}
		if err := os.MkdirAll(f.Config.DataDir, 0700); err != nil {
			return err
		}
		if err := store.Write(dir); err != nil {
			return err
		}
	}

	fed, err := dir.Build()
	if err != nil {
		return err
	}

	f.Directory = dir
	f.Federation = fed

	if f.Config.Organization != "" {
		org, ok := fed.FindOrganization(f.Config.Organization)
		if !ok {
			return fmt.Errorf("organization %q not found in %s", f.Config.Organization, store.Path())
		}
		f.Organization = org
	}

	f.logger.WithFields(logrus.Fields{
		"federation":    fed.Identifier().Local(),
		"organizations": fed.Len(),
		"organization":  f.Config.Organization,
	}).Debug("Federation")

	return nil
}

func (f *FedLedger) newDirectory() (*peers.Directory, error) {
	fed, err := federation.NewFederation(f.Generator, f.Config.Federation)
	if err != nil {
		return nil, err
	}

	addrs := map[string]string{}
	if h := f.Config.Organization; h != "" {
		if _, err := fed.NewOrganization(f.Generator, h, ""); err != nil {
			return nil, err
		}
		addr := f.Config.AdvertiseAddr
		if addr == "" {
			addr = f.Config.BindAddr
		}
		addrs[h] = addr
	}

	return peers.NewDirectory(fed, addrs), nil
}

func (f *FedLedger) initStore() error {
	if !f.Config.Store {
		f.Store = dag.NewInmemStore()
		f.logger.Debug("created new in-mem store")
		return nil
	}

	f.logger.WithField("path", f.Config.DatabaseDir).Debug("Attempting to load or create database")

	store, err := dag.LoadOrCreateBadgerStore(f.Config.DatabaseDir, f.logger)
	if err != nil {
		return err
	}
	f.Store = store

	return nil
}

// closeStore releases the store of a failed Init so that the database can be
// opened again.
func (f *FedLedger) closeStore() {
	if f.Store == nil {
		return
	}
	if err := f.Store.Close(); err != nil {
		f.logger.WithError(err).Error("Closing store")
	}
	f.Store = nil
	f.Ledger = nil
}

func (f *FedLedger) initLedger() error {
	policy, err := f.Config.Policy()
	if err != nil {
		return err
	}

	graph := dag.NewGraph(f.Store, policy, f.Config.DeferTTL, f.logger)

	validator := quorum.NewValidator(
		f.Federation,
		quorum.SameFederation(f.Federation),
		f.Config.PeerTimeout,
		f.logger,
	)

	f.Ledger = ledger.New(graph, validator, f.Config.WindowSize, f.logger)

	if n := f.Ledger.Reload(); n > 0 {
		f.logger.WithFields(logrus.Fields{
			"graph":  graph.Len(),
			"window": n,
		}).Debug("loaded ledger from existing database")
	}

	return nil
}

func (f *FedLedger) initTransport() error {
	transport, err := net.NewTCPTransport(
		f.Config.BindAddr,
		f.Config.AdvertiseAddr,
		f.Config.MaxPool,
		f.Config.TCPTimeout,
		f.Config.ValidateTimeout,
		f.logger,
	)
	if err != nil {
		return err
	}

	f.Transport = transport

	return nil
}

func (f *FedLedger) initNode() {
	conf := node.NewConfig(f.Config.TxRate, f.Config.TxBurst, f.logger)
	f.Node = node.NewNode(conf, f.Ledger, f.Transport)
	f.Node.SetPeers(f.Peers())
}

func (f *FedLedger) initService() {
	if !f.Config.NoService {
		f.Service = service.NewService(f.Config.ServiceAddr, f.Node, f.logger)
	}
}

// Run starts the service, if any, and the node. It blocks until Shutdown.
func (f *FedLedger) Run() {
	if f.Service != nil {
		go f.Service.Serve()
	}

	f.Node.Run()
}

// Shutdown stops the node and closes the transport and the store.
func (f *FedLedger) Shutdown() {
	if f.Node != nil {
		f.Node.Shutdown()
	}
}

// Peers returns the addresses of the other nodes of the Federation.
func (f *FedLedger) Peers() []string {
	self := ""
	if f.Organization != nil {
		self = f.Organization.Handle()
	}
	return f.Directory.Addrs(self)
}

// Submit hands t to the Organization with handle org for validation. This
// node's own Organization pushes locally; any other is reached at its
// address in the peer directory.
func (f *FedLedger) Submit(t *tx.Transaction, org string) error {
	o, ok := f.Federation.FindOrganization(org)
	if !ok {
		return fmt.Errorf("organization %q not found", org)
	}

	if f.Organization != nil && f.Organization.Handle() == org {
		return f.Node.Push(t, o.Identifier())
	}

	p, ok := f.Directory.ByHandle(org)
	if !ok || p.NetAddr == "" {
		return fmt.Errorf("no address for organization %q", org)
	}

	f.logger.WithFields(logrus.Fields{
		"tx":   t.ID,
		"org":  org,
		"addr": p.NetAddr,
	}).Debug("Submitting transaction")

	return f.Node.SubmitTx(p.NetAddr, t, o.Identifier())
}

// Propose runs a distributed validation of t through the other nodes of the
// Federation and confirms it everywhere when a quorum accepts it.
func (f *FedLedger) Propose(t *tx.Transaction) (bool, error) {
	return f.Node.Propose(t)
}
