package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vsinha/craftsman/pkg/domain/entities"
	"github.com/vsinha/craftsman/pkg/domain/repositories"
)

// DefaultCodePrefix is used when no prefix is configured
const DefaultCodePrefix = "WO"

// CodeGenerator produces work order codes like WO-2026-00042 from a
// per-year sequence
type CodeGenerator struct {
	sequences repositories.SequenceRepository
	prefix    string
	now       func() time.Time
}

// NewCodeGenerator creates a generator. An empty prefix falls back to WO.
func NewCodeGenerator(sequences repositories.SequenceRepository, prefix string, now func() time.Time) *CodeGenerator {
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	if now == nil {
		now = time.Now
	}
	return &CodeGenerator{sequences: sequences, prefix: prefix, now: now}
}

// SequencePrefix returns the counter key for the current year
func (g *CodeGenerator) SequencePrefix() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.now().Year())
}

// Next reserves the next code. A consumed value is never handed out again.
func (g *CodeGenerator) Next(ctx context.Context) (string, error) {
	prefix := g.SequencePrefix()
	value, err := g.sequences.NextValue(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to allocate code for %s: %w", prefix, err)
	}
	return entities.FormatCode(prefix, value), nil
}
