package dag

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/fedledger/fedledger/src/common"
	"github.com/fedledger/fedledger/src/federation"
	"github.com/fedledger/fedledger/src/ident"
	"github.com/fedledger/fedledger/src/tx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	gen        *ident.Generator
	alice, bob *federation.OrganizationUser
}

func newFixture(t *testing.T) *fixture {
	gen := ident.NewGenerator(rand.NewSource(99))

	fed, err := federation.NewFederation(gen, "F1")
	require.NoError(t, err)
	org, err := fed.NewOrganization(gen, "acme", "")
	require.NoError(t, err)
	alice, err := org.NewUser(gen, "alice")
	require.NoError(t, err)
	bob, err := org.NewUser(gen, "bob")
	require.NoError(t, err)

	return &fixture{gen: gen, alice: alice, bob: bob}
}

func (f *fixture) tx(value uint64, parents ...*tx.Transaction) *tx.Transaction {
	return tx.New(f.gen, f.alice, f.bob, tx.Amount{Symbol: "ACME", Value: value}, parents...)
}

func ids(txs []*tx.Transaction) []tx.TxID {
	res := make([]tx.TxID, len(txs))
	for i, t := range txs {
		res[i] = t.ID
	}
	return res
}

func newTestGraph(t *testing.T, policy ParentPolicy, ttl time.Duration) *Graph {
	return NewGraph(NewInmemStore(), policy, ttl, common.NewTestEntry(t))
}

func TestInsertLinksParents(t *testing.T) {
	f := newFixture(t)
	g := newTestGraph(t, AcceptOrphan, 0)

	a := f.tx(1)
	b := f.tx(2)
	c := f.tx(3, b, a)

	for _, x := range []*tx.Transaction{a, b, c} {
		inserted, err := g.Insert(x, x.Parents)
		require.NoError(t, err)
		assert.Equal(t, []tx.TxID{x.ID}, ids(inserted))
	}

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, []tx.TxID{b.ID, a.ID}, ids(g.Parents(c.ID)))
	assert.Equal(t, []tx.TxID{c.ID}, ids(g.Children(a.ID)))
	assert.Empty(t, g.Parents(a.ID))
	assert.Empty(t, g.Parents("unknown"))
	assert.Equal(t, []tx.TxID{a.ID, b.ID, c.ID}, ids(g.Transactions()))
}

func TestAncestors(t *testing.T) {
	f := newFixture(t)
	g := newTestGraph(t, AcceptOrphan, 0)

	a := f.tx(1)
	b := f.tx(2, a)
	c := f.tx(3, a)
	d := f.tx(4, b, c)

	for _, x := range []*tx.Transaction{a, b, c, d} {
		_, err := g.Insert(x, x.Parents)
		require.NoError(t, err)
	}

	assert.Equal(t, []tx.TxID{b.ID, c.ID, a.ID}, ids(g.Ancestors(d.ID)))
}

func TestInsertDuplicate(t *testing.T) {
	f := newFixture(t)
	g := newTestGraph(t, AcceptOrphan, 0)

	a := f.tx(1)
	_, err := g.Insert(a, nil)
	require.NoError(t, err)

	_, err = g.Insert(a, nil)
	assert.True(t, errors.Is(err, ErrDuplicateTransaction))
	assert.Equal(t, 1, g.Len())
}

func TestAcceptOrphan(t *testing.T) {
	f := newFixture(t)
	g := newTestGraph(t, AcceptOrphan, 0)

	ghost := f.tx(1)
	c := f.tx(2, ghost)

	inserted, err := g.Insert(c, c.Parents)
	require.NoError(t, err)
	assert.Len(t, inserted, 1)
	assert.True(t, g.Contains(c.ID))
	assert.Empty(t, g.Parents(c.ID))
}

func TestRejectDangling(t *testing.T) {
	f := newFixture(t)
	g := newTestGraph(t, RejectDangling, 0)

	ghost := f.tx(1)
	c := f.tx(2, ghost)

	_, err := g.Insert(c, c.Parents)

	var dangling *DanglingParentError
	require.True(t, errors.As(err, &dangling))
	assert.Equal(t, []tx.TxID{ghost.ID}, dangling.Missing)
	assert.Equal(t, 0, g.Len())
}

func TestDeferDangling(t *testing.T) {
	f := newFixture(t)
	g := newTestGraph(t, DeferDangling, time.Minute)

	a := f.tx(1)
	b := f.tx(2)
	c := f.tx(3, a, b)
	d := f.tx(4, c)

	_, err := g.Insert(b, nil)
	require.NoError(t, err)

	_, err = g.Insert(c, c.Parents)
	assert.Equal(t, ErrDeferred, err)

	_, err = g.Insert(d, d.Parents)
	assert.Equal(t, ErrDeferred, err)

	assert.Equal(t, 2, g.Pending())
	assert.Equal(t, 1, g.Len())

	_, err = g.Insert(c, c.Parents)
	assert.True(t, errors.Is(err, ErrDuplicateTransaction))

	inserted, err := g.Insert(a, nil)
	require.NoError(t, err)
	assert.Equal(t, []tx.TxID{a.ID, c.ID, d.ID}, ids(inserted))

	assert.Equal(t, 0, g.Pending())
	assert.Equal(t, 4, g.Len())
	assert.Equal(t, []tx.TxID{a.ID, b.ID}, ids(g.Parents(c.ID)))
	assert.Equal(t, []tx.TxID{c.ID}, ids(g.Parents(d.ID)))
}

func TestDeferExpires(t *testing.T) {
	f := newFixture(t)
	g := newTestGraph(t, DeferDangling, 20*time.Millisecond)

	a := f.tx(1)
	c := f.tx(2, a)

	_, err := g.Insert(c, c.Parents)
	assert.Equal(t, ErrDeferred, err)

	time.Sleep(100 * time.Millisecond)

	inserted, err := g.Insert(a, nil)
	require.NoError(t, err)
	assert.Equal(t, []tx.TxID{a.ID}, ids(inserted))
	assert.False(t, g.Contains(c.ID))
}

func TestDeferExpiresForgetsWaiting(t *testing.T) {
	const n = 200
	f := newFixture(t)
	g := newTestGraph(t, DeferDangling, 20*time.Millisecond)

	for i := 0; i < n; i++ {
		ghost := f.tx(uint64(i + 1))
		c := f.tx(uint64(i+1), ghost)
		_, err := g.Insert(c, c.Parents)
		require.Equal(t, ErrDeferred, err)
	}

	waiting := func() int {
		g.l.Lock()
		defer g.l.Unlock()
		return len(g.waiting)
	}
	assert.Equal(t, n, waiting())

	require.Eventually(t, func() bool {
		return g.Pending() == 0 && waiting() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []ParentPolicy{AcceptOrphan, RejectDangling, DeferDangling} {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := ParsePolicy("whatever")
	assert.Error(t, err)
}
