// Package peers describes the Organizations of a Federation and where their
// nodes can be reached.
//
// A Directory is persisted in the data directory as federation.json:
//
//  {
//    "federation": {"handle": "test", "id": "a1"},
//    "peers": [
//      {"handle": "Alice", "id": "b2", "symbol": "ALICE", "addr": "10.0.0.1:1337"},
//      {"handle": "Bob", "id": "c3", "symbol": "BOB", "addr": "10.0.0.2:1337"}
//    ]
//  }
//
// Nodes of the same Federation must share the same identifiers, so the file is
// generated once (see the CLI's run command) and copied to every node.
package peers
