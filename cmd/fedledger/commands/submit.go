package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fedledger/fedledger/src/config"
	"github.com/fedledger/fedledger/src/dag"
	"github.com/fedledger/fedledger/src/federation"
	"github.com/fedledger/fedledger/src/fedledger"
	"github.com/fedledger/fedledger/src/peers"
	"github.com/fedledger/fedledger/src/tx"
	"github.com/spf13/cobra"
)

// SubmitConfig describes one transaction sent to a running Federation.
type SubmitConfig struct {
	DataDir         string
	From            string
	To              string
	Amount          uint64
	Issuer          string
	Parents         []string
	Validate        bool
	Timeout         time.Duration
	ValidateTimeout time.Duration
	LogLevel        string
}

// NewDefaultSubmitConfig ...
func NewDefaultSubmitConfig() *SubmitConfig {
	return &SubmitConfig{
		DataDir:         config.DefaultDataDir(),
		Amount:          1,
		Timeout:         config.DefaultTCPTimeout,
		ValidateTimeout: config.DefaultValidateTimeout,
		LogLevel:        "warn",
	}
}

var _submitConfig = NewDefaultSubmitConfig()

//NewSubmitCmd returns the command that sends a transaction to the nodes of a
//Federation
func NewSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Send a transaction to the nodes listed in federation.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(cmd.OutOrStdout(), _submitConfig)
		},
	}
	AddSubmitFlags(cmd)
	return cmd
}

//AddSubmitFlags adds flags to the Submit command
func AddSubmitFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&_submitConfig.DataDir, "datadir", _submitConfig.DataDir, "Directory holding federation.json")
	cmd.Flags().StringVar(&_submitConfig.From, "from", _submitConfig.From, "Sender as ORGANIZATION/USER")
	cmd.Flags().StringVar(&_submitConfig.To, "to", _submitConfig.To, "Receiver as ORGANIZATION/USER")
	cmd.Flags().Uint64Var(&_submitConfig.Amount, "amount", _submitConfig.Amount, "Amount to transfer")
	cmd.Flags().StringVar(&_submitConfig.Issuer, "issuer", _submitConfig.Issuer, "Organization issuing the currency and validating (defaults to the sender's)")
	cmd.Flags().StringSliceVar(&_submitConfig.Parents, "parent", _submitConfig.Parents, "Id of a parent transaction (repeatable)")
	cmd.Flags().BoolVar(&_submitConfig.Validate, "validate", _submitConfig.Validate, "Ask for a distributed validation instead of a single Organization")
	cmd.Flags().DurationVarP(&_submitConfig.Timeout, "timeout", "t", _submitConfig.Timeout, "TCP Timeout")
	cmd.Flags().DurationVar(&_submitConfig.ValidateTimeout, "validate-timeout", _submitConfig.ValidateTimeout, "Timeout of validation requests")
	cmd.Flags().StringVar(&_submitConfig.LogLevel, "log", _submitConfig.LogLevel, "debug, info, warn, error, fatal, panic")
}

// submit starts a transient engine that speaks for no Organization, builds
// the transaction and hands it to the Federation.
func submit(w io.Writer, conf *SubmitConfig) error {
	if conf.Amount == 0 {
		return errors.New("amount must be positive")
	}

	dir, err := peers.NewJSONDirectory(conf.DataDir).Directory()
	if err != nil {
		return fmt.Errorf("reading peer directory: %w", err)
	}
	if dir == nil {
		return fmt.Errorf("empty peer directory in %s", conf.DataDir)
	}

	c := config.NewDefaultConfig()
	c.SetDataDir(conf.DataDir)
	c.LogLevel = conf.LogLevel
	c.Organization = ""
	c.BindAddr = "127.0.0.1:0"
	c.NoService = true
	c.Store = false
	c.TCPTimeout = conf.Timeout
	c.ValidateTimeout = conf.ValidateTimeout

	engine := fedledger.NewFedLedger(c)
	if err := engine.Init(); err != nil {
		return err
	}
	defer engine.Shutdown()

	t, issuer, err := buildTx(engine, conf)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "tx %s: %s -> %s %s\n", t.ID, conf.From, conf.To, t.Amount)

	if conf.Validate {
		valid, err := engine.Propose(t)
		if err != nil {
			return err
		}
		if !valid {
			return fmt.Errorf("transaction %s denied by the quorum", t.ID)
		}
		fmt.Fprintln(w, "confirmed by quorum")
		return nil
	}

	err = engine.Submit(t, issuer)
	switch {
	case err == nil:
		fmt.Fprintf(w, "validated by %s\n", issuer)
	case errors.Is(err, dag.ErrDeferred):
		fmt.Fprintf(w, "deferred by %s\n", issuer)
	default:
		return err
	}
	return nil
}

func buildTx(engine *fedledger.FedLedger, conf *SubmitConfig) (*tx.Transaction, string, error) {
	sender, err := resolveUser(engine, conf.From)
	if err != nil {
		return nil, "", err
	}
	receiver, err := resolveUser(engine, conf.To)
	if err != nil {
		return nil, "", err
	}

	issuer := conf.Issuer
	if issuer == "" {
		issuer, _, _ = splitParty(conf.From)
	}
	org, ok := engine.Federation.FindOrganization(issuer)
	if !ok {
		return nil, "", fmt.Errorf("organization %q not found", issuer)
	}

	t := tx.New(engine.Generator, sender, receiver, tx.Amount{Symbol: org.Symbol(), Value: conf.Amount})
	for _, p := range conf.Parents {
		t.Parents = append(t.Parents, tx.TxID(p))
	}

	return t, issuer, nil
}

func resolveUser(engine *fedledger.FedLedger, party string) (*federation.OrganizationUser, error) {
	orgHandle, userHandle, err := splitParty(party)
	if err != nil {
		return nil, err
	}
	org, ok := engine.Federation.FindOrganization(orgHandle)
	if !ok {
		return nil, fmt.Errorf("organization %q not found", orgHandle)
	}
	return org.GetOrCreateUser(engine.Generator, userHandle)
}

// splitParty reads ORGANIZATION/USER.
func splitParty(s string) (string, string, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%q is not ORGANIZATION/USER", s)
	}
	return parts[0], parts[1], nil
}
