// Package node implements the reactive component of a fedledger node.
//
// A Node consumes the RPCs delivered by its Transport and applies them to a
// Ledger. There are three commands, carried by net.Message:
//
// Tx
//
// A transaction together with the Organization that issues it. The node pushes
// it into its ledger only if both the sender and the receiver belong to the
// node's Federation; cross-federation transactions are logged and dropped.
// Incoming transactions are throttled by a token bucket (TxRate, TxBurst).
//
// ValidationRequest
//
// The node runs a distributed validation over the Organizations of its
// Federation and replies with a ValidationResponse carrying the outcome.
//
// ValidationResponse
//
// A positive response confirms the transaction into the ledger: it is attested
// if needed, inserted into the graph with the parents already known, and
// appended to the window. A negative response is ignored.
//
// The client side of the protocol is exposed by SubmitTx, RequestValidation
// and AnnounceValidation.
package node
