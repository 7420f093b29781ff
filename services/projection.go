package services

import (
	"context"
	"errors"

	"MamaCare/cache"
	"MamaCare/db"
	"MamaCare/models"
	"MamaCare/util"

	"go.uber.org/zap"
)

// projector keeps the cached user projection in step with the store. The
// cache is only ever written from a document just read back from the store.
type projector struct {
	store db.Store
	cache *cache.Cache
	log   *zap.Logger
}

func userKey(id string) string {
	return cache.Key(util.UserKey, id)
}

/*
* Try the cache first
* On a miss or cache failure read the store and fill the cache
 */
func (p *projector) load(ctx context.Context, id string) (models.User, error) {
	var u models.User
	if _, err := p.cache.GetCache(ctx, userKey(id), &u); err == nil {
		return u, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		p.log.Warn("cache read failed, falling back to store", zap.String("userId", id), zap.Error(err))
	}
	u, err := getUser(ctx, p.store, id)
	if errors.Is(err, db.ErrNotFound) {
		return models.User{}, util.NotFound(util.CODE_USER_NOT_FOUND, util.USER_NOT_FOUND)
	}
	if err != nil {
		return models.User{}, classify(err)
	}
	if err := p.cache.SetCache(ctx, userKey(id), u); err != nil {
		p.log.Warn("cache write failed", zap.String("userId", id), zap.Error(err))
	}
	return u, nil
}

// refresh rereads confirmed state. When the read fails the projection is
// dropped so a stale copy is never served.
func (p *projector) refresh(ctx context.Context, ids ...string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		u, err := getUser(ctx, p.store, id)
		if err != nil {
			p.log.Warn("projection refresh read failed", zap.String("userId", id), zap.Error(err))
			p.evict(ctx, id)
			continue
		}
		if err := p.cache.SetCache(ctx, userKey(id), u); err != nil {
			p.log.Warn("projection refresh write failed", zap.String("userId", id), zap.Error(err))
		}
	}
}

func (p *projector) evict(ctx context.Context, id string) {
	if err := p.cache.DeleteCache(ctx, userKey(id)); err != nil {
		p.log.Warn("projection evict failed", zap.String("userId", id), zap.Error(err))
	}
}
