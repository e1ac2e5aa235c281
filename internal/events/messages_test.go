package events

import (
	"strings"
	"testing"
)

func TestTransactionEventWireFormat(t *testing.T) {
	e := NewTransactionEvent("u1", "tx1", ActionCreated)
	if e.OccurredAt.IsZero() {
		t.Fatal("event should be stamped with the current time")
	}

	data, err := e.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	// Consumers in other services rely on these exact field names.
	for _, field := range []string{`"userId"`, `"transactionId"`, `"action"`, `"occurredAt"`} {
		if !strings.Contains(string(data), field) {
			t.Fatalf("payload missing %s: %s", field, data)
		}
	}

	decoded, err := TransactionEventFromJSON(data)
	if err != nil {
		t.Fatalf("TransactionEventFromJSON: %v", err)
	}
	if decoded.UserID != "u1" || decoded.TransactionID != "tx1" || decoded.Action != ActionCreated {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestTransactionEventFromJSONRejectsGarbage(t *testing.T) {
	if _, err := TransactionEventFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
