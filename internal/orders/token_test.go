package orders

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/joao-fontenele/canteen/internal/domain"
)

type tokenSet map[string]bool

func (s tokenSet) TokenExists(_ context.Context, token string) (bool, error) {
	return s[token], nil
}

func sequence(values ...int) func(int) int {
	i := 0
	return func(int) int {
		v := values[i%len(values)]
		i++
		return v
	}
}

func TestTokenGenerator(t *testing.T) {
	t.Run("format", func(t *testing.T) {
		g := NewTokenGenerator(tokenSet{})
		pattern := regexp.MustCompile(`^TKN-\d{4}$`)
		for i := 0; i < 200; i++ {
			if token := g.Generate(); !pattern.MatchString(token) {
				t.Fatalf("unexpected token format: %q", token)
			}
		}
	})

	t.Run("zero padded", func(t *testing.T) {
		g := NewTokenGenerator(tokenSet{}, withTokenSource(sequence(7)))
		if got := g.Generate(); got != "TKN-0007" {
			t.Errorf("expected TKN-0007, got %s", got)
		}
	})

	t.Run("custom prefix and digits", func(t *testing.T) {
		g := NewTokenGenerator(tokenSet{}, WithTokenPrefix("A"), WithTokenDigits(6), withTokenSource(sequence(42)))
		if got := g.Generate(); got != "A000042" {
			t.Errorf("expected A000042, got %s", got)
		}
	})

	t.Run("skips tokens in use", func(t *testing.T) {
		used := tokenSet{"TKN-0001": true, "TKN-0002": true}
		g := NewTokenGenerator(used, withTokenSource(sequence(1, 2, 3)))

		token, err := g.Next(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "TKN-0003" {
			t.Errorf("expected TKN-0003, got %s", token)
		}
	})

	t.Run("attempt budget is configurable", func(t *testing.T) {
		used := tokenSet{"TKN-0001": true, "TKN-0002": true}

		short := NewTokenGenerator(used, WithTokenAttempts(2), withTokenSource(sequence(1, 2, 3)))
		if _, err := short.Next(context.Background()); !errors.Is(err, domain.ErrTokenExhausted) {
			t.Errorf("expected ErrTokenExhausted with 2 attempts, got %v", err)
		}

		ignored := NewTokenGenerator(used, WithTokenAttempts(0), withTokenSource(sequence(1, 2, 3)))
		if token, err := ignored.Next(context.Background()); err != nil || token != "TKN-0003" {
			t.Errorf("expected default attempts to reach TKN-0003, got %q, %v", token, err)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		used := tokenSet{"TKN-0001": true}
		g := NewTokenGenerator(used, withTokenSource(sequence(1)))

		_, err := g.Next(context.Background())
		if !errors.Is(err, domain.ErrTokenExhausted) {
			t.Errorf("expected ErrTokenExhausted, got %v", err)
		}
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})
}
