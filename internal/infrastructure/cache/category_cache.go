package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/99minutos/identity-service/internal/core/ports"
)

const defaultCategoryTTL = 5 * time.Minute

// CategoryCache remembers ids the category store reported as unknown or
// inactive, so repeated registrations naming a dead category are rejected
// without a round trip. Active ids are never cached: a category deactivated
// after a lookup must stop being accepted on the next one.
type CategoryCache struct {
	next ports.CategoryRepository
	c    *gocache.Cache
}

// NewCategoryCache wraps next. A non-positive ttl selects the default.
func NewCategoryCache(next ports.CategoryRepository, ttl time.Duration) *CategoryCache {
	if ttl <= 0 {
		ttl = defaultCategoryTTL
	}
	return &CategoryCache{next: next, c: gocache.New(ttl, 2*ttl)}
}

// FindActiveIDs drops ids known to be inactive and asks the wrapped store
// about the rest.
func (cc *CategoryCache) FindActiveIDs(ctx context.Context, ids []string) ([]string, error) {
	var pending []string
	for _, id := range ids {
		if _, dead := cc.c.Get(id); dead {
			continue
		}
		pending = append(pending, id)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	found, err := cc.next.FindActiveIDs(ctx, pending)
	if err != nil {
		return nil, err
	}

	hit := make(map[string]struct{}, len(found))
	for _, id := range found {
		hit[id] = struct{}{}
	}
	active := make([]string, 0, len(found))
	for _, id := range pending {
		if _, ok := hit[id]; ok {
			active = append(active, id)
			continue
		}
		cc.c.SetDefault(id, struct{}{})
	}
	return active, nil
}
