package tx

import (
	"math/rand"
	"testing"

	"github.com/fedledger/fedledger/src/federation"
	"github.com/fedledger/fedledger/src/ident"
)

func newUsers(t *testing.T) (*ident.Generator, *federation.OrganizationUser, *federation.OrganizationUser) {
	gen := ident.NewGenerator(rand.NewSource(21))

	fed, err := federation.NewFederation(gen, "F1")
	if err != nil {
		t.Fatal(err)
	}
	org, err := fed.NewOrganization(gen, "acme", "")
	if err != nil {
		t.Fatal(err)
	}
	alice, err := org.NewUser(gen, "alice")
	if err != nil {
		t.Fatal(err)
	}
	bob, err := org.NewUser(gen, "bob")
	if err != nil {
		t.Fatal(err)
	}
	return gen, alice, bob
}

func TestNewTransaction(t *testing.T) {
	gen, alice, bob := newUsers(t)

	p1 := New(gen, alice, bob, Amount{"ACME", 1})
	p2 := New(gen, bob, alice, Amount{"ACME", 2})
	tx := New(gen, alice, bob, Amount{"ACME", 3}, p1, p2)

	if len(tx.ID) != IDLen {
		t.Fatalf("id length should be %d, not %d", IDLen, len(tx.ID))
	}

	if len(tx.Parents) != 2 || tx.Parents[0] != p1.ID || tx.Parents[1] != p2.ID {
		t.Fatalf("parents should be [%s %s], not %v", p1.ID, p2.ID, tx.Parents)
	}

	if !tx.SameFederation() {
		t.Fatalf("sender and receiver share a federation")
	}

	if tx.Sender == alice.Identifier() {
		t.Fatalf("sender identifier should be a copy")
	}
}

func TestAttestOnce(t *testing.T) {
	gen, alice, bob := newUsers(t)
	tx := New(gen, alice, bob, Amount{"ACME", 1})

	if err := tx.Attest(""); err != ErrEmptyAttestation {
		t.Fatalf("empty attestation should fail with ErrEmptyAttestation, not %v", err)
	}
	if err := tx.Attest("ok"); err != nil {
		t.Fatal(err)
	}
	if err := tx.Attest("again"); err != ErrAlreadyAttested {
		t.Fatalf("second attestation should fail with ErrAlreadyAttested, not %v", err)
	}
	if tx.Signature != "ok" {
		t.Fatalf("signature should be 'ok', not '%s'", tx.Signature)
	}
}

func TestMarshal(t *testing.T) {
	gen, alice, bob := newUsers(t)
	parent := New(gen, alice, bob, Amount{"ACME", 1})
	tx := New(gen, alice, bob, Amount{"ACME", 5}, parent).WithContract([]byte("pay"))
	tx.Attest("sig")

	data, err := tx.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	var out Transaction
	if err := out.Unmarshal(data); err != nil {
		t.Fatal(err)
	}

	if out.ID != tx.ID || out.Signature != tx.Signature || out.Amount != tx.Amount {
		t.Fatalf("decoded transaction should be %v, not %v", tx, &out)
	}
	if !out.Sender.Equal(tx.Sender) || !out.Receiver.Equal(tx.Receiver) {
		t.Fatalf("decoded parties should match")
	}
	if !out.Timestamp.Equal(tx.Timestamp) {
		t.Fatalf("timestamp should be %v, not %v", tx.Timestamp, out.Timestamp)
	}
	if string(out.Contract) != "pay" || len(out.Parents) != 1 || out.Parents[0] != parent.ID {
		t.Fatalf("contract and parents should survive encoding")
	}
}
