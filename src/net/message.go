package net

import (
	"bytes"
	"fmt"

	"github.com/fedledger/fedledger/src/ident"
	"github.com/fedledger/fedledger/src/tx"
	"github.com/ugorji/go/codec"
)

// MessageType identifies the kind of a Message. It is also the leading byte of
// every request on the wire.
type MessageType uint8

const (
	// TxMessage carries a transaction to push into the receiver's ledger.
	TxMessage MessageType = iota
	// ValidationRequest asks the receiver to run a distributed validation.
	ValidationRequest
	// ValidationResponse carries the outcome of a distributed validation.
	ValidationResponse
)

func (t MessageType) String() string {
	switch t {
	case TxMessage:
		return "Tx"
	case ValidationRequest:
		return "ValidationRequest"
	case ValidationResponse:
		return "ValidationResponse"
	default:
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
}

func (t MessageType) valid() bool {
	return t <= ValidationResponse
}

// Message is the envelope exchanged between nodes. Org is the issuing
// Organization of a TxMessage. Valid is only meaningful in a
// ValidationResponse.
type Message struct {
	Type  MessageType       `codec:"type"`
	Tx    *tx.Transaction   `codec:"tx"`
	Org   *ident.Identifier `codec:"org,omitempty"`
	Valid bool              `codec:"valid,omitempty"`
}

// NewTxMessage ...
func NewTxMessage(t *tx.Transaction, org *ident.Identifier) *Message {
	return &Message{Type: TxMessage, Tx: t, Org: org}
}

// NewValidationRequest ...
func NewValidationRequest(t *tx.Transaction) *Message {
	return &Message{Type: ValidationRequest, Tx: t}
}

// NewValidationResponse ...
func NewValidationResponse(t *tx.Transaction, valid bool) *Message {
	return &Message{Type: ValidationResponse, Tx: t, Valid: valid}
}

func (m *Message) String() string {
	id := tx.TxID("")
	if m.Tx != nil {
		id = m.Tx.ID
	}
	if m.Type == ValidationResponse {
		return fmt.Sprintf("%s(%s, %t)", m.Type, id, m.Valid)
	}
	return fmt.Sprintf("%s(%s)", m.Type, id)
}

// msgpackHandle is shared by the message codec and the NetworkTransport.
func msgpackHandle() *codec.MsgpackHandle {
	mh := &codec.MsgpackHandle{}
	mh.WriteExt = true
	return mh
}

// Marshal encodes the message with msgpack.
func (m *Message) Marshal() ([]byte, error) {
	var b bytes.Buffer

	enc := codec.NewEncoder(&b, msgpackHandle())
	if err := enc.Encode(m); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal decodes a message produced by Marshal.
func (m *Message) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)

	dec := codec.NewDecoder(b, msgpackHandle())
	if err := dec.Decode(m); err != nil {
		return err
	}

	if !m.Type.valid() {
		return fmt.Errorf("unknown message type %d", m.Type)
	}
	return nil
}

// copyMessage returns a deep copy of m, as the receiving end of a wire would
// see it.
func copyMessage(m *Message) (*Message, error) {
	if m == nil {
		return nil, nil
	}

	data, err := m.Marshal()
	if err != nil {
		return nil, err
	}

	res := new(Message)
	if err := res.Unmarshal(data); err != nil {
		return nil, err
	}
	return res, nil
}
