package media

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/circuitbreaker"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/metrics"
)

// BreakerStore guards a Store with a circuit breaker. Calls rejected by an
// open breaker fail with ErrUnavailable.
type BreakerStore struct {
	next    Store
	breaker *circuitbreaker.CircuitBreaker
}

func NewBreakerStore(next Store, logger logger.Logger) *BreakerStore {
	breaker := circuitbreaker.New(circuitbreaker.Settings{
		Name:        "media",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsNotFound(err)
		},
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.SetCircuitBreakerState(name, int(to))
			logger.Warn("Circuit breaker state changed", map[string]interface{}{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})
	metrics.SetCircuitBreakerState("media", int(circuitbreaker.StateClosed))
	return &BreakerStore{next: next, breaker: breaker}
}

func (s *BreakerStore) Store(ctx context.Context, file io.Reader, kind Kind, owner string) (*StoredMedia, error) {
	stored, err := circuitbreaker.Execute(ctx, s.breaker, func(ctx context.Context) (*StoredMedia, error) {
		return s.next.Store(ctx, file, kind, owner)
	})
	return stored, unavailable(err)
}

func (s *BreakerStore) Delete(ctx context.Context, publicID string) error {
	return unavailable(s.breaker.Do(ctx, func(ctx context.Context) error {
		return s.next.Delete(ctx, publicID)
	}))
}

func (s *BreakerStore) State() circuitbreaker.State {
	return s.breaker.State()
}

func unavailable(err error) error {
	if circuitbreaker.Unavailable(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
