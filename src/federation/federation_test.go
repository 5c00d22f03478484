package federation

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/fedledger/fedledger/src/ident"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGen() *ident.Generator {
	return ident.NewGenerator(rand.NewSource(11))
}

func TestFederationOrganizations(t *testing.T) {
	gen := newGen()

	fed, err := NewFederation(gen, "F1")
	require.NoError(t, err)

	o1, err := fed.NewOrganization(gen, "org1", "")
	require.NoError(t, err)
	assert.Equal(t, "ORG1", o1.Symbol())
	assert.True(t, o1.Identifier().Parent.Equal(fed.Identifier()))

	o2, err := fed.NewOrganization(gen, "org2", "TKN")
	require.NoError(t, err)
	assert.Equal(t, "TKN", o2.Symbol())

	found, ok := fed.FindOrganization("org2")
	require.True(t, ok)
	assert.Same(t, o2, found)

	_, ok = fed.FindOrganization("nope")
	assert.False(t, ok)

	assert.Equal(t, 2, fed.Len())
	assert.True(t, fed.Contains(o1.Identifier()))
}

func TestDuplicateHandlesFirstMatchWins(t *testing.T) {
	gen := newGen()

	fed, err := NewFederation(gen, "F1")
	require.NoError(t, err)

	first, err := fed.NewOrganization(gen, "dup", "")
	require.NoError(t, err)
	second, err := fed.NewOrganization(gen, "dup", "")
	require.NoError(t, err)

	assert.Equal(t, 2, fed.Len())
	assert.NotSame(t, first, second)

	found, ok := fed.FindOrganization("dup")
	require.True(t, ok)
	assert.Same(t, first, found)
}

func TestGetOrCreate(t *testing.T) {
	gen := newGen()

	fed, err := NewFederation(gen, "F1")
	require.NoError(t, err)

	o1, err := fed.GetOrCreateOrganization(gen, "acme")
	require.NoError(t, err)
	o2, err := fed.GetOrCreateOrganization(gen, "acme")
	require.NoError(t, err)
	assert.Same(t, o1, o2)

	u1, err := o1.GetOrCreateUser(gen, "alice")
	require.NoError(t, err)
	u2, err := o1.GetOrCreateUser(gen, "alice")
	require.NoError(t, err)
	assert.Same(t, u1, u2)
	assert.True(t, o1.HasUser("alice"))
	assert.False(t, o1.HasUser("bob"))

	_, err = o1.GetOrCreateUser(gen, "x")
	assert.True(t, ident.Is(err, ident.InvalidHandle))
}

func TestConstructorsRequireParent(t *testing.T) {
	gen := newGen()

	_, err := NewOrganization(gen, nil, "acme", "")
	assert.True(t, ident.Is(err, ident.InvalidParent))

	_, err = NewOrganizationUser(gen, nil, "alice")
	assert.True(t, ident.Is(err, ident.InvalidParent))
}

func TestBalance(t *testing.T) {
	gen := newGen()

	fed, _ := NewFederation(gen, "F1")
	org, _ := fed.NewOrganization(gen, "acme", "")
	user, err := org.NewUser(gen, "alice")
	require.NoError(t, err)

	assert.Equal(t, uint64(10), user.AddBalance("ACME", 10))

	left, err := user.SubBalance("ACME", 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), left)

	_, err = user.SubBalance("ACME", 7)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, map[string]uint64{"ACME": 6}, user.Balances())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user.AddBalance("ACME", 2)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(106), user.Balance("ACME").Get())
	assert.Equal(t, []string{"ACME"}, user.Symbols())
}
