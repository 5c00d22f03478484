package net

import (
	"errors"
	"testing"
	"time"

	"github.com/fedledger/fedledger/src/common"
)

const (
	INMEM = iota
	TCP
	numTestTransports // NOTE: must be last
)

func NewTestTransport(ttype int, addr string, t *testing.T) Transport {
	switch ttype {
	case INMEM:
		_, it := NewInmemTransport(addr)
		return it
	case TCP:
		tt, err := NewTCPTransport(addr, "", 2, time.Second, 2*time.Second, common.NewTestEntry(t))
		if err != nil {
			t.Fatal(err)
		}
		go tt.Listen()
		return tt
	default:
		panic("Unknown transport type")
	}
}

// pair returns a consumer and a sender transport of the given type, connected
// if they live in memory.
func pair(ttype int, t *testing.T) (Transport, Transport) {
	trans1 := NewTestTransport(ttype, "127.0.0.1:0", t)
	trans2 := NewTestTransport(ttype, "127.0.0.1:0", t)

	if ttype == INMEM {
		ConnectAll(trans1.(*InmemTransport), trans2.(*InmemTransport))
	}
	return trans1, trans2
}

// serve answers one request from trans with the result of handler.
func serve(t *testing.T, trans Transport, handler func(*Message) (*Message, error)) chan *Message {
	received := make(chan *Message, 1)
	go func() {
		select {
		case rpc := <-trans.Consumer():
			received <- rpc.Command
			rpc.Respond(handler(rpc.Command))
		case <-time.After(time.Second):
			t.Errorf("timeout")
			close(received)
		}
	}()
	return received
}

func TestTransport_StartStop(t *testing.T) {
	for ttype := 0; ttype < numTestTransports; ttype++ {
		trans := NewTestTransport(ttype, "127.0.0.1:0", t)
		if err := trans.Close(); err != nil {
			t.Fatalf("err: %v", err)
		}
	}
}

func TestTransport_Tx(t *testing.T) {
	for ttype := 0; ttype < numTestTransports; ttype++ {
		trans1, trans2 := pair(ttype, t)

		trx, org := testTx(t, 3)
		received := serve(t, trans1, func(*Message) (*Message, error) {
			return nil, nil
		})

		resp, err := trans2.Send(trans1.AdvertiseAddr(), NewTxMessage(trx, org.Identifier()))
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if resp != nil {
			t.Fatalf("Tx should get no reply, not %v", resp)
		}

		req := <-received
		if req.Type != TxMessage {
			t.Fatalf("Type should be %s, not %s", TxMessage, req.Type)
		}
		checkTx(t, req.Tx, trx)
		if !req.Org.Equal(org.Identifier()) {
			t.Fatalf("Org should be %v, not %v", org.Identifier(), req.Org)
		}

		trans1.Close()
		trans2.Close()
	}
}

func TestTransport_Validation(t *testing.T) {
	for ttype := 0; ttype < numTestTransports; ttype++ {
		trans1, trans2 := pair(ttype, t)

		trx, _ := testTx(t, 4)
		serve(t, trans1, func(m *Message) (*Message, error) {
			return NewValidationResponse(m.Tx, true), nil
		})

		resp, err := trans2.Send(trans1.AdvertiseAddr(), NewValidationRequest(trx))
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if resp == nil || resp.Type != ValidationResponse || !resp.Valid {
			t.Fatalf("reply should be a positive ValidationResponse, not %v", resp)
		}
		checkTx(t, resp.Tx, trx)

		trans1.Close()
		trans2.Close()
	}
}

func TestTransport_Error(t *testing.T) {
	for ttype := 0; ttype < numTestTransports; ttype++ {
		trans1, trans2 := pair(ttype, t)

		trx, org := testTx(t, 5)
		serve(t, trans1, func(*Message) (*Message, error) {
			return nil, errors.New("cross-federation transaction")
		})

		_, err := trans2.Send(trans1.AdvertiseAddr(), NewTxMessage(trx, org.Identifier()))
		if err == nil || err.Error() != "cross-federation transaction" {
			t.Fatalf("err should be the remote error, not %v", err)
		}

		trans1.Close()
		trans2.Close()
	}
}

func TestTransport_UnknownTarget(t *testing.T) {
	_, trans := NewInmemTransport("")
	defer trans.Close()

	trx, _ := testTx(t, 6)
	if _, err := trans.Send("nowhere", NewValidationRequest(trx)); err == nil {
		t.Fatalf("sending to an unknown peer should fail")
	}
}

func TestInmemTransport_Timeout(t *testing.T) {
	_, trans1 := NewInmemTransport("")
	_, trans2 := NewInmemTransport("")
	defer trans1.Close()
	defer trans2.Close()
	ConnectAll(trans1, trans2)
	trans2.SetTimeout(20 * time.Millisecond)

	go func() {
		<-trans1.Consumer()
	}()

	trx, _ := testTx(t, 7)
	if _, err := trans2.Send(trans1.LocalAddr(), NewValidationRequest(trx)); err == nil {
		t.Fatalf("a request that is never answered should time out")
	}
}

func TestInmemTransport_Copy(t *testing.T) {
	trans1, trans2 := pair(INMEM, t)
	defer trans1.Close()
	defer trans2.Close()

	trx, _ := testTx(t, 8)
	received := serve(t, trans1, func(m *Message) (*Message, error) {
		return nil, m.Tx.Attest("remote")
	})

	if _, err := trans2.Send(trans1.LocalAddr(), NewValidationRequest(trx)); err != nil {
		t.Fatalf("err: %v", err)
	}
	<-received

	if trx.Attested() {
		t.Fatalf("the receiver should not share the sender's transaction")
	}
}

func TestNetworkTransport_PooledConn(t *testing.T) {
	trans1 := NewTestTransport(TCP, "127.0.0.1:0", t).(*NetworkTransport)
	defer trans1.Close()

	go func() {
		for rpc := range trans1.Consumer() {
			rpc.Respond(NewValidationResponse(rpc.Command.Tx, true), nil)
		}
	}()

	trans2, err := NewTCPTransport("127.0.0.1:0", "", 3, time.Second, 2*time.Second, common.NewTestEntry(t))
	if err != nil {
		t.Fatal(err)
	}
	defer trans2.Close()

	trx, _ := testTx(t, 9)
	target := trans1.AdvertiseAddr()

	for i := 0; i < 5; i++ {
		resp, err := trans2.Send(target, NewValidationRequest(trx))
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if !resp.Valid {
			t.Fatalf("reply %d should be valid", i)
		}
	}

	if n := trans2.pooled(target); n != 1 {
		t.Fatalf("sequential requests should reuse one connection, pool has %d", n)
	}
}

func TestNetworkTransport_SendAfterClose(t *testing.T) {
	trans := NewTestTransport(TCP, "127.0.0.1:0", t)
	trans.Close()

	trx, _ := testTx(t, 10)
	if _, err := trans.Send("127.0.0.1:1", NewValidationRequest(trx)); err != ErrTransportShutdown {
		t.Fatalf("err should be %v, not %v", ErrTransportShutdown, err)
	}
}
