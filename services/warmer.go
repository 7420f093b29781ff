package services

import (
	"context"

	"MamaCare/session"

	"go.uber.org/zap"
)

/*
* Follow the session stream until stop is called
* Sign in loads the profile into the cache, sign out evicts it
 */
func (s *Services) StartCacheWarmer(ctx context.Context, hub *session.Hub, log *zap.Logger) (stop func()) {
	events, unsubscribe := hub.Subscribe()
	proj := s.Users.proj
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			switch ev.State {
			case session.SignedIn:
				proj.refresh(ctx, ev.Identity.UID)
			case session.SignedOut:
				proj.evict(ctx, ev.Identity.UID)
			}
			log.Debug("session event", zap.String("userId", ev.Identity.UID), zap.String("state", string(ev.State)))
		}
	}()
	return func() {
		unsubscribe()
		<-done
	}
}
