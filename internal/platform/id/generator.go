package id

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates identifiers for runs and audit records.
type Generator interface {
	NewID() (string, error)
}

type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	v, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return v.String(), nil
}

// Sequence yields predictable ids, for tests and dry runs.
type Sequence struct {
	Prefix string
	n      int
}

func (s *Sequence) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("%s%d", s.Prefix, s.n), nil
}
