package dataset

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/types"
)

// Load reads a dataset file (a JSON array of post objects), assigns each
// record its synthetic id from the raw file position, shuffles the result
// with the fixed seed and truncates to limit when limit > 0.
//
// Because ids are assigned before the shuffle and the seed is fixed,
// repeated loads of the same file produce the same items in the same
// order.
func Load(path string, seed int64, limit int) ([]types.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}

	var items []types.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", path, err)
	}

	for i := range items {
		items[i].ItemID = fmt.Sprintf("item_%d", i)
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

// Catalog loads dataset files on demand and caches them, so annotators
// sharing an assignment share one load.
type Catalog struct {
	seed  int64
	limit int
	log   *logger.Logger

	mu     sync.Mutex
	loaded map[string][]types.Item
}

func NewCatalog(seed int64, limit int, log *logger.Logger) *Catalog {
	return &Catalog{
		seed:   seed,
		limit:  limit,
		log:    log.With("component", "DatasetCatalog"),
		loaded: make(map[string][]types.Item),
	}
}

func (c *Catalog) Items(path string) ([]types.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if items, ok := c.loaded[path]; ok {
		return items, nil
	}
	items, err := Load(path, c.seed, c.limit)
	if err != nil {
		return nil, err
	}
	c.log.Info("Dataset loaded", "path", path, "items", len(items), "limit", c.limit)
	c.loaded[path] = items
	return items, nil
}
