package common

import (
	"fmt"
	"testing"
)

func TestIsStore(t *testing.T) {
	err := NewStoreErr("Transaction", KeyNotFound, "abc")

	if !IsStore(err, KeyNotFound) {
		t.Fatalf("IsStore(KeyNotFound) should be true")
	}

	if IsStore(err, KeyAlreadyExists) {
		t.Fatalf("IsStore(KeyAlreadyExists) should be false")
	}

	wrapped := fmt.Errorf("loading: %w", err)
	if !IsStore(wrapped, KeyNotFound) {
		t.Fatalf("IsStore should see through wrapped errors")
	}

	if IsStore(fmt.Errorf("other"), KeyNotFound) {
		t.Fatalf("IsStore should be false for foreign errors")
	}

	if err.Error() != "Transaction, abc, Not Found" {
		t.Fatalf("Error() should be 'Transaction, abc, Not Found', not '%s'", err.Error())
	}
}
