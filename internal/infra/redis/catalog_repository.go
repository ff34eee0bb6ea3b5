package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"chromamind-service/internal/domain"
	"chromamind-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CatalogRepository caches the serialized catalog in Redis and falls back to
// a loader on cache miss. Stored as: SET catalog:{id} {catalog JSON} EX ttl.
type CatalogRepository struct {
	client    *redis.Client
	loader    memory.CatalogLoader
	catalogID string
	ttl       time.Duration
	sf        singleflight.Group
	rnd       *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader memory.CatalogLoader, catalogID string, ttl time.Duration) *CatalogRepository {
	if catalogID == "" {
		catalogID = "default"
	}
	return &CatalogRepository{
		client:    client,
		loader:    loader,
		catalogID: catalogID,
		ttl:       ttl,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context) (domain.Catalog, error) {
	if catalog, ok := r.fromCache(ctx); ok {
		return catalog, nil
	}

	result, err, _ := r.sf.Do(r.catalogID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if catalog, ok := r.fromCache(ctx); ok {
			return catalog, nil
		}

		catalog, err := r.loader.LoadCatalog(ctx)
		if err != nil {
			return domain.Catalog{}, err
		}

		if data, err := json.Marshal(catalog); err == nil {
			_ = r.client.Set(ctx, r.key(), data, r.ttlWithJitter()).Err()
		}
		return catalog, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

func (r *CatalogRepository) fromCache(ctx context.Context) (domain.Catalog, bool) {
	blob, err := r.client.Get(ctx, r.key()).Bytes()
	if err != nil {
		return domain.Catalog{}, false
	}
	var catalog domain.Catalog
	if err := json.Unmarshal(blob, &catalog); err != nil {
		return domain.Catalog{}, false
	}
	return catalog, true
}

func (r *CatalogRepository) key() string {
	return "chromamind:catalog:" + r.catalogID
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
