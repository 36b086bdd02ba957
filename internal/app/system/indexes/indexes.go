// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Indexer is implemented by every store that owns indexes.
type Indexer interface {
	EnsureIndexes(ctx context.Context) error
}

/*
EnsureAll is called at startup. Each EnsureIndexes is idempotent.
Errors are aggregated so every problem is visible, and startup fails fast
on any of them. Stores run in name order so logs are stable.
*/
func EnsureAll(ctx context.Context, stores map[string]Indexer, logger *zap.Logger) error {
	names := make([]string, 0, len(stores))
	for name := range stores {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []string
	for _, name := range names {
		if err := stores[name].EnsureIndexes(ctx); err != nil {
			logger.Error("ensure indexes failed", zap.String("collection", name), zap.Error(err))
			problems = append(problems, name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	logger.Info("indexes ensured", zap.Int("collections", len(names)))
	return nil
}
