package reconcile

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/domain/repositories"
)

// Schedule runs a pass immediately and then every interval until ctx is
// done. Failed passes are logged and retried on the next tick.
func (e *Engine) Schedule(ctx context.Context, interval time.Duration, source repositories.ERPSource) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		e.runLogged(ctx, source)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) runLogged(ctx context.Context, source repositories.ERPSource) {
	_, err := e.Run(ctx, source)
	switch {
	case err == nil:
	case errors.Is(err, entities.ErrConflict):
		e.logger.Info("reconcile pass skipped; another pass holds the lease", zap.Error(err))
	case errors.Is(err, entities.ErrTransientSource):
		e.logger.Warn("reconcile pass failed; erp unavailable", zap.Error(err))
	case ctx.Err() != nil:
	default:
		e.logger.Error("reconcile pass failed", zap.Error(err))
	}
}
