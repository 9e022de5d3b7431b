package service

import (
	"context"
	"errors"

	"atelier/internal/models"
	"atelier/internal/observability"
	"atelier/internal/shortcode"
)

// allocateCode runs the short code allocator against a store existence check
// and records how many rounds the allocation took.
func allocateCode(ctx context.Context, exists shortcode.ExistsFunc) (string, error) {
	attempts := 0
	counted := func(ctx context.Context, code string) (bool, error) {
		attempts++
		return exists(ctx, code)
	}

	code, err := shortcode.AllocateUnique(ctx, counted)
	if err != nil {
		if errors.Is(err, shortcode.ErrExhausted) {
			observability.CodeAllocationExhausted.Inc()
			return "", models.NewAllocationExhaustedError(err)
		}
		return "", err
	}

	observability.CodeAllocationAttempts.Observe(float64(attempts))
	return code, nil
}
