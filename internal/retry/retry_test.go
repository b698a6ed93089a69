package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/zizcon/zizcon-api/internal/retry"
)

// fastPolicy keeps test runtime negligible
func fastPolicy(maxRetries int) retry.Policy {
	return retry.Policy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	attempts := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestDo_RetriesTransientFailures(t *testing.T) {
	attempts := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	wantErr := fmt.Errorf("still broken")
	err := fastPolicy(2).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected the last error, got: %v", err)
	}
	// Initial attempt plus two retries
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestDo_PermanentShortCircuits(t *testing.T) {
	attempts := 0
	wantErr := fmt.Errorf("401 unauthorized")
	err := fastPolicy(5).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return retry.Permanent(wantErr)
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected the wrapped error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Permanent failure must not be retried, got %d attempts", attempts)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := retry.Policy{
		MaxRetries:   10,
		InitialDelay: time.Hour,
		MaxDelay:     time.Hour,
		Multiplier:   2,
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := policy.Do(ctx, func(ctx context.Context) error {
		return fmt.Errorf("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context cancellation, got: %v", err)
	}
}

func TestPermanent_NilPassthrough(t *testing.T) {
	if retry.Permanent(nil) != nil {
		t.Error("Permanent(nil) must stay nil")
	}
}
