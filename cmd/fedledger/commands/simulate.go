package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fedledger/fedledger/src/config"
	"github.com/fedledger/fedledger/src/dag"
	"github.com/fedledger/fedledger/src/federation"
	"github.com/fedledger/fedledger/src/ident"
	"github.com/fedledger/fedledger/src/ledger"
	"github.com/fedledger/fedledger/src/quorum"
	"github.com/fedledger/fedledger/src/tx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

// SimulateConfig drives the in-process demonstration loop.
type SimulateConfig struct {
	Federation    string
	Organizations []string
	Users         int
	MaxAmount     uint64
	Count         int
	Interval      time.Duration
	WindowSize    int
	ParentPolicy  string
	Seed          int64
	LogLevel      string
}

// NewDefaultSimulateConfig reproduces the two-organization demo.
func NewDefaultSimulateConfig() *SimulateConfig {
	return &SimulateConfig{
		Federation:    "test",
		Organizations: []string{"Alice", "Bob"},
		Users:         10,
		MaxAmount:     100,
		Count:         0,
		Interval:      2600 * time.Millisecond,
		WindowSize:    config.DefaultWindowSize,
		ParentPolicy:  config.DefaultParentPolicy,
		LogLevel:      "info",
	}
}

var _simConfig = NewDefaultSimulateConfig()

//NewSimulateCmd returns the command that runs the demonstration loop
func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Push random transactions through an in-process ledger",
		RunE:  runSimulate,
	}
	AddSimulateFlags(cmd)
	return cmd
}

//AddSimulateFlags adds flags to the Simulate command
func AddSimulateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&_simConfig.Federation, "federation", "f", _simConfig.Federation, "Federation handle")
	cmd.Flags().StringSliceVarP(&_simConfig.Organizations, "organizations", "o", _simConfig.Organizations, "Organization handles")
	cmd.Flags().IntVarP(&_simConfig.Users, "users", "u", _simConfig.Users, "Users per Organization")
	cmd.Flags().Uint64Var(&_simConfig.MaxAmount, "max-amount", _simConfig.MaxAmount, "Largest amount of a transaction")
	cmd.Flags().IntVarP(&_simConfig.Count, "count", "n", _simConfig.Count, "Number of transactions (0 runs until interrupted)")
	cmd.Flags().DurationVarP(&_simConfig.Interval, "interval", "i", _simConfig.Interval, "Time between transactions")
	cmd.Flags().IntVar(&_simConfig.WindowSize, "window-size", _simConfig.WindowSize, "Number of confirmed transactions kept in the window")
	cmd.Flags().StringVar(&_simConfig.ParentPolicy, "parent-policy", _simConfig.ParentPolicy, "accept-orphan, reject or defer")
	cmd.Flags().Int64Var(&_simConfig.Seed, "seed", _simConfig.Seed, "Random seed (0 seeds from the clock)")
	cmd.Flags().StringVar(&_simConfig.LogLevel, "log", _simConfig.LogLevel, "debug, info, warn, error, fatal, panic")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	logger := logrus.New()
	logger.Level = config.LogLevel(_simConfig.LogLevel)
	entry := logger.WithField("prefix", "simulate")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sim, err := NewSimulation(_simConfig, entry)
	if err != nil {
		return err
	}
	defer sim.Close()

	if err := sim.Run(ctx); err != nil {
		return err
	}

	sim.Report()

	return nil
}

// Simulation fabricates transactions between the users of a Federation and
// pushes them into a ledger.
type Simulation struct {
	conf    *SimulateConfig
	gen     *ident.Generator
	rnd     *rand.Rand
	fed     *federation.Federation
	orgs    []*federation.Organization
	users   map[string][]*federation.OrganizationUser
	ledger  *ledger.Ledger
	limiter *rate.Limiter
	logger  *logrus.Entry
}

// NewSimulation builds the Federation, its Organizations and users, and an
// in-memory ledger.
func NewSimulation(conf *SimulateConfig, logger *logrus.Entry) (*Simulation, error) {
	if len(conf.Organizations) == 0 {
		return nil, errors.New("at least one organization is required")
	}
	if conf.Users < 1 {
		return nil, errors.New("at least one user per organization is required")
	}
	if conf.MaxAmount < 1 {
		return nil, errors.New("max-amount must be positive")
	}

	policy, err := dag.ParsePolicy(conf.ParentPolicy)
	if err != nil {
		return nil, err
	}

	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := ident.NewSeededGenerator(seed)

	fed, err := federation.NewFederation(gen, conf.Federation)
	if err != nil {
		return nil, err
	}

	sim := &Simulation{
		conf:   conf,
		gen:    gen,
		rnd:    rand.New(rand.NewSource(seed)),
		fed:    fed,
		users:  make(map[string][]*federation.OrganizationUser),
		logger: logger,
	}

	for _, h := range conf.Organizations {
		org, err := fed.NewOrganization(gen, h, "")
		if err != nil {
			return nil, err
		}
		for i := 1; i <= conf.Users; i++ {
			u, err := org.NewUser(gen, fmt.Sprintf("User%d", i))
			if err != nil {
				return nil, err
			}
			sim.users[h] = append(sim.users[h], u)
		}
		sim.orgs = append(sim.orgs, org)
	}

	graph := dag.NewGraph(dag.NewInmemStore(), policy, config.DefaultDeferTTL, logger)
	validator := quorum.NewValidator(fed, quorum.SameFederation(fed), quorum.DefaultPeerTimeout, logger)
	sim.ledger = ledger.New(graph, validator, conf.WindowSize, logger)

	limit := rate.Inf
	if conf.Interval > 0 {
		limit = rate.Every(conf.Interval)
	}
	sim.limiter = rate.NewLimiter(limit, 1)

	logger.WithFields(logrus.Fields{
		"federation":    fed.Identifier().Local(),
		"organizations": fed.Len(),
		"users":         conf.Users,
	}).Info("Simulation ready")

	return sim, nil
}

// Run pushes transactions until Count is reached or ctx is done. A
// cancelled context ends the run without error.
func (s *Simulation) Run(ctx context.Context) error {
	for i := 0; s.conf.Count == 0 || i < s.conf.Count; i++ {
		if err := s.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step fabricates and pushes one transaction. The receiver is credited when
// the ledger accepts it. Rejections and deferrals are logged, not returned.
func (s *Simulation) Step() error {
	from := s.orgs[s.rnd.Intn(len(s.orgs))]
	to := s.orgs[s.rnd.Intn(len(s.orgs))]
	issuer := from
	if s.rnd.Intn(2) == 1 {
		issuer = to
	}

	sender := s.pickUser(from)
	receiver := s.pickUser(to)

	amount := tx.Amount{
		Symbol: issuer.Symbol(),
		Value:  uint64(s.rnd.Int63n(int64(s.conf.MaxAmount))) + 1,
	}

	var parents []*tx.Transaction
	if w := s.ledger.Window(); len(w) > 0 {
		parents = append(parents, w[len(w)-1])
	}

	t := tx.New(s.gen, sender, receiver, amount, parents...)

	err := s.ledger.Push(t, issuer.Identifier())
	switch {
	case err == nil:
		receiver.AddBalance(amount.Symbol, amount.Value)
	case errors.Is(err, dag.ErrDeferred):
		s.logger.WithField("tx", t.ID).Info("Transaction deferred")
		return nil
	case quorum.IsRejected(err):
		return nil
	default:
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"tx":       t.ID,
		"sender":   sender.Identifier().ParentInclusive(),
		"receiver": receiver.Identifier().ParentInclusive(),
		"amount":   amount.String(),
		"dag":      s.ledger.Graph().Len(),
		"window":   s.ledger.WindowLen(),
	}).Info("Transaction pushed")

	return nil
}

func (s *Simulation) pickUser(org *federation.Organization) *federation.OrganizationUser {
	users := s.users[org.Handle()]
	return users[s.rnd.Intn(len(users))]
}

// Ledger ...
func (s *Simulation) Ledger() *ledger.Ledger {
	return s.ledger
}

// Federation ...
func (s *Simulation) Federation() *federation.Federation {
	return s.fed
}

// Report logs the ledger counters, the window and the non-zero balances.
func (s *Simulation) Report() {
	stats := s.ledger.Stats()
	s.logger.WithFields(logrus.Fields{
		"pushed":   stats.Pushed,
		"rejected": stats.Rejected,
		"deferred": stats.Deferred,
		"dag":      stats.GraphSize,
		"pending":  stats.Pending,
		"window":   fmt.Sprintf("%d/%d", stats.WindowLen, stats.WindowSize),
	}).Info("Simulation done")

	for _, t := range s.ledger.Window() {
		s.logger.WithFields(logrus.Fields{
			"tx":      t.ID,
			"amount":  t.Amount.String(),
			"parents": len(t.Parents),
		}).Debug("Window")
	}

	for _, org := range s.orgs {
		for _, u := range s.users[org.Handle()] {
			b := u.Balances()
			if len(b) == 0 {
				continue
			}
			s.logger.WithFields(logrus.Fields{
				"user":     u.Identifier().ParentInclusive(),
				"balances": b,
			}).Info("Balance")
		}
	}
}

// Close releases the ledger store.
func (s *Simulation) Close() error {
	return s.ledger.Close()
}
