// Package net implements the transports used by fedledger nodes to exchange
// ledger messages.
//
// Every request is a Message: a transaction to push (Tx), a request to run a
// distributed validation (ValidationRequest), or the outcome of one
// (ValidationResponse). The Transport interface delivers incoming requests on
// a channel of RPCs and sends outgoing ones with Send. There are two
// implementations:
//
// - Inmem: in-memory transport used for testing
//
// - TCP: communicating over plain TCP
//
// TCP
//
// To use a TCP transport, set the following configuration options in the
// Config object (cf config package):
//
// - BindAddr: the IP:PORT of the TCP socket that the node binds to.
//
// - AdvertiseAddr: (optional) The address that is advertised to other nodes.
// If BindAddr is a local address not reachable by other peers, it is useful to
// set AdvertiseAddr to the reachable public address.
package net
