package id

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDGenerator_NewID(t *testing.T) {
	got, err := NewUUIDGenerator().NewID()
	if err != nil {
		t.Fatalf("NewID error: %v", err)
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("expected uuid, got %q: %v", got, err)
	}
}

func TestSequence_NewID(t *testing.T) {
	seq := &Sequence{Prefix: "run-"}
	first, _ := seq.NewID()
	second, _ := seq.NewID()
	if first != "run-1" || second != "run-2" {
		t.Fatalf("unexpected ids: %s %s", first, second)
	}
}
