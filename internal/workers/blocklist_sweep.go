package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mesbahtanvir/docuchan/backend/internal/auth"
)

// BlocklistSweeper evicts expired revocation entries on an interval
// (spec.md §4.3, "Revocation blocklist") via the same BaseWorker/
// RunLoop shape the rest of this package's periodic workers use.
type BlocklistSweeper struct {
	*BaseWorker
	blocklist *auth.Blocklist
}

// NewBlocklistSweeper builds a BlocklistSweeper that calls
// blocklist.Sweep every interval.
func NewBlocklistSweeper(blocklist *auth.Blocklist, interval time.Duration, logger *zap.Logger) *BlocklistSweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &BlocklistSweeper{
		BaseWorker: NewBaseWorker("blocklist-sweep", interval, 0, logger),
		blocklist:  blocklist,
	}
}

// Start runs the sweep loop until Stop is called or ctx is canceled.
// RunLoop owns the running/done bookkeeping, so this simply blocks
// until the loop exits.
func (w *BlocklistSweeper) Start(ctx context.Context) error {
	w.RunLoop(ctx, func(ctx context.Context) (int, error) {
		return w.blocklist.Sweep(ctx)
	})
	return nil
}
