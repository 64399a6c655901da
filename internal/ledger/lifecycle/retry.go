package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
)

// retry executa fn até MaxAttempts vezes enquanto o erro for ErrStoreConflict.
// fn deve reler o estado a cada tentativa.
func (m *Manager) retry(ctx context.Context, op string, fn func() error) error {
	attempts := m.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); !domain.Retryable(err) {
			return err
		}
		if m.OnConflict != nil {
			m.OnConflict(op)
		}
		m.Log.Debug("store conflict", zap.String("op", op), zap.Int("attempt", i+1))

		if i == attempts-1 {
			break
		}
		// backoff linear simples
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * m.Backoff):
		}
	}
	return err
}

func (m *Manager) observe(op string, err error) {
	if m.OnResult != nil {
		m.OnResult(op, domain.Kind(err))
	}
}
