package commands

import (
	"bytes"
	"io/ioutil"
	"net"
	"os"
	"testing"

	"github.com/fedledger/fedledger/src/config"
	"github.com/fedledger/fedledger/src/fedledger"
	"github.com/fedledger/fedledger/src/peers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startOrg1 runs an engine for Org1 of a two-Organization Federation whose
// directory is written in dir. Org2 has no address.
func startOrg1(t *testing.T, dir string) *fedledger.FedLedger {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	d := &peers.Directory{
		Federation: peers.FederationInfo{Handle: "F1", ID: "ab"},
		Peers: []*peers.Peer{
			{Handle: "Org1", ID: "cd", NetAddr: addr},
			{Handle: "Org2", ID: "ef"},
		},
	}
	require.NoError(t, peers.NewJSONDirectory(dir).Write(d))

	c := config.NewDefaultConfig()
	c.LogLevel = "error"
	c.SetDataDir(dir)
	c.BindAddr = addr
	c.NoService = true
	c.Organization = "Org1"

	engine := fedledger.NewFedLedger(c)
	require.NoError(t, engine.Init())
	go engine.Run()
	t.Cleanup(engine.Shutdown)

	return engine
}

func testSubmitConfig(dir string) *SubmitConfig {
	conf := NewDefaultSubmitConfig()
	conf.DataDir = dir
	conf.From = "Org1/alice"
	conf.To = "Org2/bob"
	conf.Amount = 3
	conf.LogLevel = "error"
	return conf
}

func TestSubmit(t *testing.T) {
	dir, err := ioutil.TempDir("", "fedledger-submit")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	engine := startOrg1(t, dir)

	var out bytes.Buffer
	require.NoError(t, submit(&out, testSubmitConfig(dir)))
	assert.Contains(t, out.String(), "validated by Org1")
	assert.Equal(t, 1, engine.Ledger.Graph().Len())

	window := engine.Ledger.Window()
	require.Len(t, window, 1)
	assert.Equal(t, uint64(3), window[0].Amount.Value)
	assert.True(t, window[0].Attested())

	conf := testSubmitConfig(dir)
	conf.Validate = true
	conf.Parents = []string{string(window[0].ID)}
	out.Reset()
	require.NoError(t, submit(&out, conf))
	assert.Contains(t, out.String(), "confirmed by quorum")
	assert.Equal(t, 2, engine.Ledger.Graph().Len())

	conf = testSubmitConfig(dir)
	conf.Issuer = "Org2"
	assert.Error(t, submit(&out, conf), "Org2 has no address")
}

func TestSubmitErrors(t *testing.T) {
	dir, err := ioutil.TempDir("", "fedledger-submit")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	var out bytes.Buffer
	assert.Error(t, submit(&out, testSubmitConfig(dir)), "no federation.json")

	startOrg1(t, dir)

	cases := map[string]func(*SubmitConfig){
		"zero amount":    func(c *SubmitConfig) { c.Amount = 0 },
		"malformed from": func(c *SubmitConfig) { c.From = "alice" },
		"unknown to":     func(c *SubmitConfig) { c.To = "Org9/bob" },
		"unknown issuer": func(c *SubmitConfig) { c.Issuer = "Org9" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			conf := testSubmitConfig(dir)
			mutate(conf)
			assert.Error(t, submit(&out, conf))
		})
	}
}

func TestSplitParty(t *testing.T) {
	org, user, err := splitParty("Org1/alice")
	require.NoError(t, err)
	assert.Equal(t, "Org1", org)
	assert.Equal(t, "alice", user)

	for _, s := range []string{"", "Org1", "Org1/", "/alice", "a/b/c"} {
		_, _, err := splitParty(s)
		assert.Error(t, err, s)
	}
}
