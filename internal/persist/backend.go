package persist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nick-dorsch/tracker/pkg/models"
)

// Backend saves and loads a full set of items.
type Backend interface {
	Save(ctx context.Context, items []*models.Task) error
	Load(ctx context.Context) ([]*models.Task, error)
}

// Store is the part of the entity store that persistence needs.
type Store interface {
	All(ctx context.Context) []*models.Task
	Restore(ctx context.Context, items []*models.Task) error
	SetOnChange(fn func(ctx context.Context))
}

// Attach loads the saved items into st and then saves st through b after
// every successful mutation. Save failures are logged and do not fail the
// mutation that triggered them.
func Attach(ctx context.Context, st Store, b Backend, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	items, err := b.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}
	if len(items) > 0 {
		if err := st.Restore(ctx, items); err != nil {
			return fmt.Errorf("failed to restore items: %w", err)
		}
	}

	// Saves run one at a time and read the store inside the lock, so the
	// last save to finish always holds the latest state.
	var mu sync.Mutex
	st.SetOnChange(func(ctx context.Context) {
		// A finished request must not abort the write.
		ctx = context.WithoutCancel(ctx)
		mu.Lock()
		defer mu.Unlock()
		if err := b.Save(ctx, st.All(ctx)); err != nil {
			logger.ErrorContext(ctx, "failed to save items", "error", err)
		}
	})
	return nil
}
