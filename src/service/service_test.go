package service

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fedledger/fedledger/src/common"
	"github.com/fedledger/fedledger/src/dag"
	"github.com/fedledger/fedledger/src/federation"
	"github.com/fedledger/fedledger/src/ident"
	"github.com/fedledger/fedledger/src/ledger"
	"github.com/fedledger/fedledger/src/net"
	"github.com/fedledger/fedledger/src/node"
	"github.com/fedledger/fedledger/src/quorum"
	"github.com/fedledger/fedledger/src/tx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	service *Service
	ledger  *ledger.Ledger
	fed     *federation.Federation
	txs     []*tx.Transaction
}

// newFixture pushes a chain of three transactions into a fresh node.
func newFixture(t *testing.T) *fixture {
	gen := ident.NewGenerator(rand.NewSource(11))
	logger := common.NewTestEntry(t)

	fed, err := federation.NewFederation(gen, "test")
	require.NoError(t, err)
	alice, err := fed.NewOrganization(gen, "Alice", "")
	require.NoError(t, err)
	bob, err := fed.NewOrganization(gen, "Bob", "")
	require.NoError(t, err)
	sender, err := alice.NewUser(gen, "User1")
	require.NoError(t, err)
	receiver, err := bob.NewUser(gen, "User2")
	require.NoError(t, err)

	graph := dag.NewGraph(dag.NewInmemStore(), dag.AcceptOrphan, 0, logger)
	l := ledger.New(graph, quorum.NewValidator(fed, nil, 0, logger), 2, logger)

	f := &fixture{ledger: l, fed: fed}

	var prev []*tx.Transaction
	for i := 0; i < 3; i++ {
		x := tx.New(gen, sender, receiver, tx.Amount{Symbol: alice.Symbol(), Value: uint64(i + 1)}, prev...)
		require.NoError(t, l.Push(x, alice.Identifier()))
		f.txs = append(f.txs, x)
		prev = []*tx.Transaction{x}
	}

	_, trans := net.NewInmemTransport("")
	n := node.NewNode(node.TestConfig(t), l, trans)
	f.service = NewService("127.0.0.1:0", n, logger)

	return f
}

func (f *fixture) get(t *testing.T, path string, v interface{}) int {
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	f.service.Handler().ServeHTTP(rec, req)

	if rec.Code == http.StatusOK && v != nil {
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
	}
	return rec.Code
}

func TestGetStats(t *testing.T) {
	f := newFixture(t)

	var stats map[string]string
	require.Equal(t, http.StatusOK, f.get(t, "/stats", &stats))

	assert.Equal(t, "3", stats["graph_size"])
	assert.Equal(t, "2/2", stats["window"])
	assert.Equal(t, "3", stats["pushed"])
}

func TestGetWindow(t *testing.T) {
	f := newFixture(t)

	var window []tx.Transaction
	require.Equal(t, http.StatusOK, f.get(t, "/window", &window))

	require.Len(t, window, 2)
	assert.Equal(t, f.txs[1].ID, window[0].ID)
	assert.Equal(t, f.txs[2].ID, window[1].ID)
}

func TestGetTransaction(t *testing.T) {
	f := newFixture(t)

	var got tx.Transaction
	require.Equal(t, http.StatusOK, f.get(t, "/tx/"+string(f.txs[1].ID), &got))
	assert.Equal(t, f.txs[1].ID, got.ID)
	assert.Equal(t, f.txs[1].Amount, got.Amount)
	assert.Equal(t, f.txs[1].Signature, got.Signature)

	var parents []tx.Transaction
	require.Equal(t, http.StatusOK, f.get(t, "/tx/"+string(f.txs[1].ID)+"/parents", &parents))
	require.Len(t, parents, 1)
	assert.Equal(t, f.txs[0].ID, parents[0].ID)

	var ancestors []tx.Transaction
	require.Equal(t, http.StatusOK, f.get(t, "/tx/"+string(f.txs[2].ID)+"/ancestors", &ancestors))
	require.Len(t, ancestors, 2)
	assert.Equal(t, f.txs[1].ID, ancestors[0].ID)
	assert.Equal(t, f.txs[0].ID, ancestors[1].ID)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/tx/nope", nil))
	assert.Equal(t, http.StatusNotFound, f.get(t, "/tx/nope/parents", nil))
}

func TestGetFederation(t *testing.T) {
	f := newFixture(t)

	var info FederationInfo
	require.Equal(t, http.StatusOK, f.get(t, "/federation", &info))

	assert.Equal(t, f.fed.Identifier().Global(), info.Identifier)
	require.Len(t, info.Organizations, 2)
	assert.Equal(t, "ALICE", info.Organizations[0].Symbol)
	assert.Equal(t, 1, info.Organizations[0].Users)
}
