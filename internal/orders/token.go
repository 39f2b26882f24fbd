package orders

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/joao-fontenele/canteen/internal/domain"
)

const (
	DefaultTokenPrefix   = "TKN-"
	DefaultTokenDigits   = 4
	DefaultTokenAttempts = 5
)

type TokenChecker interface {
	TokenExists(ctx context.Context, token string) (bool, error)
}

// TokenGenerator hands out short pickup tokens such as TKN-0427. The check
// against existing tokens only narrows the race; the unique index on
// orders.token_number is the final word.
type TokenGenerator struct {
	checker     TokenChecker
	prefix      string
	digits      int
	maxAttempts int
	intN        func(n int) int
}

type TokenOption func(*TokenGenerator)

func WithTokenPrefix(prefix string) TokenOption {
	return func(g *TokenGenerator) {
		g.prefix = prefix
	}
}

func WithTokenDigits(digits int) TokenOption {
	return func(g *TokenGenerator) {
		if digits > 0 && digits <= 9 {
			g.digits = digits
		}
	}
}

func WithTokenAttempts(n int) TokenOption {
	return func(g *TokenGenerator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// withTokenSource swaps the random source; tests use it to force collisions.
func withTokenSource(intN func(n int) int) TokenOption {
	return func(g *TokenGenerator) {
		g.intN = intN
	}
}

func NewTokenGenerator(checker TokenChecker, opts ...TokenOption) *TokenGenerator {
	g := &TokenGenerator{
		checker:     checker,
		prefix:      DefaultTokenPrefix,
		digits:      DefaultTokenDigits,
		maxAttempts: DefaultTokenAttempts,
		intN:        rand.IntN,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a candidate token without consulting storage.
func (g *TokenGenerator) Generate() string {
	limit := 1
	for i := 0; i < g.digits; i++ {
		limit *= 10
	}
	n := strconv.Itoa(g.intN(limit))
	return g.prefix + strings.Repeat("0", g.digits-len(n)) + n
}

// Next returns a token that was unused at the time of the check.
func (g *TokenGenerator) Next(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		token := g.Generate()
		exists, err := g.checker.TokenExists(ctx, token)
		if err != nil {
			return "", fmt.Errorf("check token: %w", err)
		}
		if !exists {
			return token, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", domain.ErrTokenExhausted, g.maxAttempts)
}
