// Package reference issues the human-facing codes that correlate every record
// of one logical operation: "REF" plus six digits for transfers, payments and
// trades, "MD-YYYYMMDD-" plus six digits for mobile deposits.
package reference

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

// Kind records which operation family claimed a reference.
type Kind string

const (
	KindOperation Kind = "operation"
	KindDeposit   Kind = "mobile_deposit"
)

const (
	operationPrefix = "REF"
	depositPrefix   = "MD"
	digitSpace      = 1_000_000
)

var (
	// ErrReferenceTaken is returned by a Registry when the code was issued before.
	ErrReferenceTaken = errors.New("reference already issued")
	// ErrExhausted means every attempt collided with an issued reference.
	ErrExhausted = errors.New("could not issue a unique reference")

	operationPattern = regexp.MustCompile(`^REF\d{6}$`)
	depositPattern   = regexp.MustCompile(`^MD-\d{8}-\d{6}$`)
)

// Registry durably claims references so that a code is never issued twice.
type Registry interface {
	Claim(ctx context.Context, reference string, kind Kind) error
}

// Generator issues references and claims them in the registry.
type Generator struct {
	registry    Registry
	maxAttempts int
	digits      func() (int64, error)
	now         func() time.Time
}

// NewGenerator creates a Generator that retries collisions up to maxAttempts times.
func NewGenerator(registry Registry, maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Generator{
		registry:    registry,
		maxAttempts: maxAttempts,
		digits:      randomDigits,
		now:         time.Now,
	}
}

// Next issues a REF###### reference.
func (g *Generator) Next(ctx context.Context) (string, error) {
	return g.issue(ctx, KindOperation, func(n int64) string {
		return FormatOperation(n)
	})
}

// NextDeposit issues an MD-YYYYMMDD-###### reference seeded with today's UTC date.
func (g *Generator) NextDeposit(ctx context.Context) (string, error) {
	day := g.now().UTC()
	return g.issue(ctx, KindDeposit, func(n int64) string {
		return FormatDeposit(day, n)
	})
}

func (g *Generator) issue(ctx context.Context, kind Kind, format func(int64) string) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := g.digits()
		if err != nil {
			return "", fmt.Errorf("failed to draw reference digits: %w", err)
		}

		candidate := format(n)
		err = g.registry.Claim(ctx, candidate, kind)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, ErrReferenceTaken) {
			return "", fmt.Errorf("failed to claim reference %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrExhausted, g.maxAttempts)
}

// FormatOperation renders n as REF######.
func FormatOperation(n int64) string {
	return fmt.Sprintf("%s%06d", operationPrefix, n%digitSpace)
}

// FormatDeposit renders n as MD-YYYYMMDD-######.
func FormatDeposit(day time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%06d", depositPrefix, day.Format("20060102"), n%digitSpace)
}

// IsOperation reports whether s has the REF###### shape.
func IsOperation(s string) bool {
	return operationPattern.MatchString(s)
}

// IsDeposit reports whether s has the MD-YYYYMMDD-###### shape.
func IsDeposit(s string) bool {
	return depositPattern.MatchString(s)
}

func randomDigits() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(digitSpace))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}
