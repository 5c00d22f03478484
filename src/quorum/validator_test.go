package quorum

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fedledger/fedledger/src/common"
	"github.com/fedledger/fedledger/src/federation"
	"github.com/fedledger/fedledger/src/ident"
	"github.com/fedledger/fedledger/src/tx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Votes may land after a test returns, so these tests log nowhere.
func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.Out = io.Discard
	return logrus.NewEntry(l)
}

type fakePeer struct {
	name  string
	ok    bool
	err   error
	delay time.Duration
}

func (p *fakePeer) Name() string { return p.name }

func (p *fakePeer) Check(ctx context.Context, t *tx.Transaction) (bool, error) {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	return p.ok, p.err
}

type setup struct {
	gen  *ident.Generator
	fed  *federation.Federation
	orgs []*federation.Organization
	tx   *tx.Transaction
}

var seeds int64

func newSetup(t *testing.T, nOrgs int) *setup {
	gen := ident.NewGenerator(rand.NewSource(atomic.AddInt64(&seeds, 1)))

	fed, err := federation.NewFederation(gen, "F1")
	require.NoError(t, err)

	s := &setup{gen: gen, fed: fed}
	for i := 0; i < nOrgs; i++ {
		o, err := fed.NewOrganization(gen, "org"+string(rune('a'+i)), "")
		require.NoError(t, err)
		s.orgs = append(s.orgs, o)
	}

	holder := s.orgs
	if len(holder) == 0 {
		o, err := federation.NewOrganization(gen, fed.Identifier(), "outsider", "")
		require.NoError(t, err)
		holder = []*federation.Organization{o}
	}
	alice, err := holder[0].NewUser(gen, "alice")
	require.NoError(t, err)
	bob, err := holder[0].NewUser(gen, "bob")
	require.NoError(t, err)

	s.tx = tx.New(gen, alice, bob, tx.Amount{Symbol: holder[0].Symbol(), Value: 1})
	return s
}

// withVotes installs fake peers, one per Organization, in order.
func withVotes(v *Validator, orgs []*federation.Organization, peers ...*fakePeer) {
	byHandle := map[string]*fakePeer{}
	for i, o := range orgs {
		peers[i].name = o.Handle()
		byHandle[o.Handle()] = peers[i]
	}
	v.SetPeerResolver(func(o *federation.Organization) Peer {
		return byHandle[o.Handle()]
	})
}

func TestValidate(t *testing.T) {
	s := newSetup(t, 2)
	v := NewValidator(s.fed, nil, 0, common.NewTestEntry(t))

	sig, err := v.Validate(s.tx, s.orgs[1].Identifier())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sig, s.orgs[1].Identifier().Local()))
	assert.Contains(t, sig, string(s.tx.ID))

	stranger, err := s.gen.New(ident.Organization, "stranger", s.fed.Identifier())
	require.NoError(t, err)

	_, err = v.Validate(s.tx, stranger)
	assert.True(t, IsRejected(err))
	assert.True(t, errors.Is(err, ErrOrganizationNotFound))
}

func TestValidatePolicyRejects(t *testing.T) {
	s := newSetup(t, 1)
	deny := errors.New("limit exceeded")
	v := NewValidator(s.fed, PolicyFunc(func(*tx.Transaction, *federation.Organization) error {
		return deny
	}), 0, common.NewTestEntry(t))

	_, err := v.Validate(s.tx, s.orgs[0].Identifier())
	assert.True(t, IsRejected(err))
	assert.True(t, errors.Is(err, deny))
}

func TestSameFederationPolicy(t *testing.T) {
	s := newSetup(t, 1)

	foreignID := "zz"
	if s.fed.ID() == foreignID {
		foreignID = "yy"
	}
	foreign := federation.FederationFromIdentifier(&ident.Identifier{
		Kind:   ident.Federation,
		ID:     foreignID,
		Handle: "F2",
	})
	org, err := foreign.NewOrganization(s.gen, "remote", "")
	require.NoError(t, err)
	carol, err := org.NewUser(s.gen, "carol")
	require.NoError(t, err)

	v := NewValidator(s.fed, SameFederation(s.fed), 0, common.NewTestEntry(t))

	_, err = v.Validate(s.tx, s.orgs[0].Identifier())
	assert.NoError(t, err)

	cross := tx.New(s.gen, carol, carol, tx.Amount{Symbol: org.Symbol(), Value: 1})
	_, err = v.Validate(cross, s.orgs[0].Identifier())
	assert.True(t, IsRejected(err))
}

func TestValidateDistributedNoOrganizations(t *testing.T) {
	s := newSetup(t, 0)
	v := NewValidator(s.fed, nil, 0, discardLogger())

	out := v.ValidateDistributed(context.Background(), s.tx)
	assert.False(t, out.Accepted)
	assert.Equal(t, 0, out.Total)
	assert.ErrorIs(t, out.Err(), ErrNoQuorum)
}

func TestValidateDistributedLocalPeers(t *testing.T) {
	s := newSetup(t, 3)
	v := NewValidator(s.fed, nil, 0, discardLogger())

	out := v.ValidateDistributed(context.Background(), s.tx)
	assert.True(t, out.Accepted)
	assert.Equal(t, 2, out.Threshold)
	assert.NoError(t, out.Err())
}

func TestValidateDistributedThreshold(t *testing.T) {
	cases := []struct {
		name     string
		votes    []bool
		accepted bool
	}{
		{"unanimous", []bool{true, true, true}, true},
		{"majority of three", []bool{true, false, true}, true},
		{"minority of three", []bool{false, false, true}, false},
		{"tie of four", []bool{true, true, false, false}, false},
		{"three of four", []bool{true, true, true, false}, true},
		{"single no", []bool{false}, false},
		{"single yes", []bool{true}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := newSetup(t, len(c.votes))
			v := NewValidator(s.fed, nil, 0, discardLogger())

			peers := make([]*fakePeer, len(c.votes))
			for i, ok := range c.votes {
				peers[i] = &fakePeer{ok: ok}
			}
			withVotes(v, s.orgs, peers...)

			out := v.ValidateDistributed(context.Background(), s.tx)
			assert.Equal(t, c.accepted, out.Accepted)
			assert.Equal(t, len(c.votes)/2+1, out.Threshold)
		})
	}
}

func TestValidateDistributedShortCircuits(t *testing.T) {
	s := newSetup(t, 3)
	v := NewValidator(s.fed, nil, 2*time.Second, discardLogger())

	withVotes(v, s.orgs,
		&fakePeer{ok: true},
		&fakePeer{ok: true, delay: 10 * time.Millisecond},
		&fakePeer{ok: true, delay: time.Second},
	)

	start := time.Now()
	out := v.ValidateDistributed(context.Background(), s.tx)

	assert.True(t, out.Accepted)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, Pending, out.Votes[2])
}

func TestValidateDistributedTimeoutCountsAsNo(t *testing.T) {
	s := newSetup(t, 3)
	v := NewValidator(s.fed, nil, 50*time.Millisecond, discardLogger())

	withVotes(v, s.orgs,
		&fakePeer{ok: true},
		&fakePeer{ok: true, delay: time.Second},
		&fakePeer{ok: true, delay: time.Second},
	)

	start := time.Now()
	out := v.ValidateDistributed(context.Background(), s.tx)

	assert.False(t, out.Accepted)
	assert.Equal(t, 1, out.Yes)
	assert.Equal(t, 2, out.No)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestValidateDistributedPeerError(t *testing.T) {
	s := newSetup(t, 2)
	v := NewValidator(s.fed, nil, 0, discardLogger())

	withVotes(v, s.orgs,
		&fakePeer{ok: true},
		&fakePeer{ok: true, err: errors.New("unreachable")},
	)

	out := v.ValidateDistributed(context.Background(), s.tx)
	assert.False(t, out.Accepted)
	assert.Equal(t, 1, out.No)
}
