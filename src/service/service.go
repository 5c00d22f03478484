package service

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/fedledger/fedledger/src/ledger"
	"github.com/fedledger/fedledger/src/node"
	"github.com/fedledger/fedledger/src/tx"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Service exposes the state of a node over HTTP.
type Service struct {
	sync.Mutex

	bindAddress string
	node        *node.Node
	router      *mux.Router
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, n *node.Node, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		node:        n,
		router:      mux.NewRouter(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")
	s.router.HandleFunc("/stats", s.makeHandler(s.GetStats)).Methods("GET")
	s.router.HandleFunc("/window", s.makeHandler(s.GetWindow)).Methods("GET")
	s.router.HandleFunc("/federation", s.makeHandler(s.GetFederation)).Methods("GET")
	s.router.HandleFunc("/tx/{id}", s.makeHandler(s.GetTransaction)).Methods("GET")
	s.router.HandleFunc("/tx/{id}/parents", s.makeHandler(s.GetParents)).Methods("GET")
	s.router.HandleFunc("/tx/{id}/ancestors", s.makeHandler(s.GetAncestors)).Methods("GET")
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the router, for embedding in another server.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	err := http.ListenAndServe(s.bindAddress, s.router)
	if err != nil {
		s.logger.Error(err)
	}
}

func (s *Service) ledger() *ledger.Ledger {
	return s.node.Ledger()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// lookup writes a 404 and returns nil when the transaction in the route is
// unknown.
func (s *Service) lookup(w http.ResponseWriter, r *http.Request) *tx.Transaction {
	id := tx.TxID(mux.Vars(r)["id"])

	t, ok := s.ledger().Graph().Get(id)
	if !ok {
		s.logger.WithField("tx", id).Debug("Unknown transaction")
		http.Error(w, "transaction not found", http.StatusNotFound)
		return nil
	}
	return t
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.node.GetStats())
}

// GetWindow returns the confirmed transactions of the window, oldest first.
func (s *Service) GetWindow(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ledger().Window())
}

// GetTransaction ...
func (s *Service) GetTransaction(w http.ResponseWriter, r *http.Request) {
	if t := s.lookup(w, r); t != nil {
		writeJSON(w, t)
	}
}

// GetParents returns the parents of a transaction known to the graph.
func (s *Service) GetParents(w http.ResponseWriter, r *http.Request) {
	if t := s.lookup(w, r); t != nil {
		writeJSON(w, s.ledger().Graph().Parents(t.ID))
	}
}

// GetAncestors returns every ancestor of a transaction, nearest first.
func (s *Service) GetAncestors(w http.ResponseWriter, r *http.Request) {
	if t := s.lookup(w, r); t != nil {
		writeJSON(w, s.ledger().Graph().Ancestors(t.ID))
	}
}

// OrganizationInfo is the public view of an Organization.
type OrganizationInfo struct {
	Identifier string `json:"identifier"`
	Symbol     string `json:"symbol"`
	Users      int    `json:"users"`
}

// FederationInfo is the public view of the node's Federation.
type FederationInfo struct {
	Identifier    string             `json:"identifier"`
	Organizations []OrganizationInfo `json:"organizations"`
}

// GetFederation ...
func (s *Service) GetFederation(w http.ResponseWriter, r *http.Request) {
	fed := s.ledger().Federation()

	res := FederationInfo{
		Identifier:    fed.Identifier().Global(),
		Organizations: []OrganizationInfo{},
	}
	for _, o := range fed.Organizations() {
		res.Organizations = append(res.Organizations, OrganizationInfo{
			Identifier: o.Identifier().ParentInclusive(),
			Symbol:     o.Symbol(),
			Users:      len(o.Users()),
		})
	}

	writeJSON(w, res)
}
