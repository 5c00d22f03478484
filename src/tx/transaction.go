package tx

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/fedledger/fedledger/src/ident"
	"github.com/ugorji/go/codec"
)

// IDLen is the length of a transaction id.
const IDLen = 16

var (
	// ErrAlreadyAttested is returned when attaching a second attestation.
	ErrAlreadyAttested = errors.New("transaction already attested")
	// ErrEmptyAttestation is returned when attaching an empty attestation.
	ErrEmptyAttestation = errors.New("empty attestation")
)

// TxID is a random alphanumeric transaction id.
type TxID string

// Amount is a quantity of one currency symbol.
type Amount struct {
	Symbol string `json:"symbol"`
	Value  uint64 `json:"value"`
}

// String ...
func (a Amount) String() string {
	return fmt.Sprintf("%d %s", a.Value, a.Symbol)
}

// Party is anything that can send or receive value.
type Party interface {
	Identifier() *ident.Identifier
}

// Transaction moves an Amount from Sender to Receiver. Parents lists the ids
// of the transactions it causally depends on, in declaration order. Once
// confirmed, only the Signature may change, and only once.
type Transaction struct {
	ID        TxID              `json:"id"`
	Sender    *ident.Identifier `json:"sender"`
	Receiver  *ident.Identifier `json:"receiver"`
	Amount    Amount            `json:"amount"`
	Timestamp time.Time         `json:"timestamp"`
	Signature string            `json:"signature,omitempty"`
	Contract  []byte            `json:"contract,omitempty"`
	Parents   []TxID            `json:"parents,omitempty"`
}

// New creates a transaction with a fresh id. The identifiers of sender and
// receiver are copied.
func New(gen *ident.Generator, sender, receiver Party, amount Amount, parents ...*Transaction) *Transaction {
	ids := make([]TxID, 0, len(parents))
	for _, p := range parents {
		ids = append(ids, p.ID)
	}

	return &Transaction{
		ID:        NewID(gen),
		Sender:    sender.Identifier().Clone(),
		Receiver:  receiver.Identifier().Clone(),
		Amount:    amount,
		Timestamp: time.Now().UTC(),
		Parents:   ids,
	}
}

// NewID draws a transaction id from gen.
func NewID(gen *ident.Generator) TxID {
	return TxID(gen.Token(IDLen))
}

// WithContract attaches an opaque contract payload.
func (t *Transaction) WithContract(c []byte) *Transaction {
	t.Contract = c
	return t
}

// Attest sets the signature. It fails if one is already present.
func (t *Transaction) Attest(sig string) error {
	if sig == "" {
		return ErrEmptyAttestation
	}
	if t.Signature != "" {
		return ErrAlreadyAttested
	}
	t.Signature = sig
	return nil
}

// WithAttestation returns a copy of t carrying sig, leaving t untouched. It
// fails like Attest.
func (t *Transaction) WithAttestation(sig string) (*Transaction, error) {
	c := *t
	if err := c.Attest(sig); err != nil {
		return nil, err
	}
	return &c, nil
}

// Attested reports whether a signature is attached.
func (t *Transaction) Attested() bool {
	return t.Signature != ""
}

// FederationIDs returns the Federation ids of sender and receiver.
func (t *Transaction) FederationIDs() (sender string, receiver string) {
	if f, ok := t.Sender.Ancestor(ident.Federation); ok {
		sender = f.ID
	}
	if f, ok := t.Receiver.Ancestor(ident.Federation); ok {
		receiver = f.ID
	}
	return sender, receiver
}

// SameFederation reports whether sender and receiver share a Federation id.
func (t *Transaction) SameFederation() bool {
	s, r := t.FederationIDs()
	return s != "" && s == r
}

// String ...
func (t *Transaction) String() string {
	return fmt.Sprintf("Tx{%s %s -> %s %s parents=%v}",
		t.ID, t.Sender.Local(), t.Receiver.Local(), t.Amount, t.Parents)
}

// Marshal returns the canonical JSON encoding of the transaction.
func (t *Transaction) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(t); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal decodes the output of Marshal.
func (t *Transaction) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(t)
}
