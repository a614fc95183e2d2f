// internal/browser/navigator/navigator.go
package navigator

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/xkilldash9x/farbler/internal/farbling"
)

// Navigator exposes the hardware facts a page may query.
type Navigator struct {
	ctx         farbling.Context
	actualCores int
	logger      *zap.Logger
}

// New creates the navigator of ctx. A non-positive actualCores uses the host's
// logical CPU count.
func New(ctx farbling.Context, actualCores int, logger *zap.Logger) *Navigator {
	if actualCores <= 0 {
		actualCores = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{ctx: ctx, actualCores: actualCores, logger: logger.Named("navigator")}
}

// HardwareConcurrency returns navigator.hardwareConcurrency for the context.
func (n *Navigator) HardwareConcurrency() int {
	level, cache := farbling.Resolve(n.ctx, n.logger)
	return farbling.FarbleHardwareConcurrency(level, cache, n.actualCores, n.logger)
}
