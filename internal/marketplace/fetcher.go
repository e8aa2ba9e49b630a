package marketplace

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dalfonso89/outdoor-companion-service/internal/logger"
	"github.com/dalfonso89/outdoor-companion-service/internal/models"
)

// Fetcher runs one marketplace search per query concurrently and flattens the
// results in query-submission order. The batch is fail-fast: the first search
// error cancels the remaining searches and fails the whole fetch.
type Fetcher struct {
	searcher Searcher
	perQuery int
	logger   *logger.Logger
}

// NewFetcher creates a new fetcher
func NewFetcher(searcher Searcher, perQuery int, logger *logger.Logger) *Fetcher {
	if perQuery <= 0 {
		perQuery = 5
	}
	return &Fetcher{
		searcher: searcher,
		perQuery: perQuery,
		logger:   logger,
	}
}

// FetchAll returns the concatenation of per-query results, each query's
// results preserving the marketplace's relevance order. Duplicates across
// queries are kept. An empty query list returns an empty slice without any
// requests.
func (fetcher *Fetcher) FetchAll(ctx context.Context, queries []string) ([]models.Item, error) {
	if len(queries) == 0 {
		return []models.Item{}, nil
	}

	perQuery := make([][]models.Item, len(queries))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, query := range queries {
		i, query := i, query
		group.Go(func() error {
			items, err := fetcher.searcher.Search(groupCtx, query, fetcher.perQuery)
			if err != nil {
				return fmt.Errorf("search %q failed: %w", query, err)
			}
			perQuery[i] = items
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, items := range perQuery {
		total += len(items)
	}

	flattened := make([]models.Item, 0, total)
	for _, items := range perQuery {
		flattened = append(flattened, items...)
	}

	fetcher.logger.Debugf("Fetched %d items across %d queries", total, len(queries))
	return flattened, nil
}
