package services

import (
	"context"
	"errors"
	"strings"

	"MamaCare/db"
	"MamaCare/metrics"
	"MamaCare/models"
	"MamaCare/notification"
	"MamaCare/util"

	"go.uber.org/zap"
)

// NotificationService manages device tokens and fans push messages out
// to every device of a user.
type NotificationService struct {
	store   db.Store
	sender  notification.Sender
	metrics *metrics.Metrics
	log     *zap.Logger
}

/*
* Tokens are stored as a set on the user document
* A legacy single string value is rewritten as a list
 */
func (s *NotificationService) RegisterToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return util.InvalidArgument(util.TOKEN_REQUIRED)
	}
	doc, err := s.store.Get(ctx, util.UserCollection, userID)
	if errors.Is(err, db.ErrNotFound) {
		return util.NotFound(util.CODE_USER_NOT_FOUND, util.USER_NOT_FOUND)
	}
	if err != nil {
		return classify(err)
	}

	m := db.Mutation{Union: map[string][]interface{}{"fcmTokens": {token}}}
	if legacy, ok := doc["fcmTokens"].(string); ok {
		tokens := []string{token}
		if legacy != "" && legacy != token {
			tokens = []string{legacy, token}
		}
		m = db.Mutation{Set: map[string]interface{}{"fcmTokens": tokens}}
	}
	if err := s.store.Update(ctx, util.UserCollection, userID, m); err != nil {
		s.log.Warn("register token failed", zap.String("userId", userID), zap.Error(err))
		return classify(err)
	}
	return nil
}

func (s *NotificationService) RemoveToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return util.InvalidArgument(util.TOKEN_REQUIRED)
	}
	err := s.removeTokens(ctx, userID, []string{token})
	if errors.Is(err, db.ErrNotFound) {
		return util.NotFound(util.CODE_USER_NOT_FOUND, util.USER_NOT_FOUND)
	}
	return classify(err)
}

func (s *NotificationService) removeTokens(ctx context.Context, userID string, tokens []string) error {
	doc, err := s.store.Get(ctx, util.UserCollection, userID)
	if err != nil {
		return err
	}
	if legacy, ok := doc["fcmTokens"].(string); ok {
		for _, t := range tokens {
			if t == legacy {
				return s.store.Update(ctx, util.UserCollection, userID, db.Mutation{Unset: []string{"fcmTokens"}})
			}
		}
		return nil
	}
	values := make([]interface{}, len(tokens))
	for i, t := range tokens {
		values[i] = t
	}
	return s.store.Update(ctx, util.UserCollection, userID, db.Mutation{Remove: map[string][]interface{}{"fcmTokens": values}})
}

/*
* Load the user tokens, no tokens means no_target
* Send one message per token
* Unregistered tokens are removed from the user document
* Overall status is success, partial_success or failure
 */
func (s *NotificationService) NotifyUser(ctx context.Context, userID, title, body string, data map[string]string, highPriority bool) (models.DispatchResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.DispatchResult{}, util.InvalidArgument(util.USER_ID_REQUIRED)
	}
	user, err := getUser(ctx, s.store, userID)
	if errors.Is(err, db.ErrNotFound) {
		return models.DispatchResult{}, util.NotFound(util.CODE_USER_NOT_FOUND, util.USER_NOT_FOUND)
	}
	if err != nil {
		return models.DispatchResult{}, classify(err)
	}

	tokens := dedupe(user.FCMTokens)
	if len(tokens) == 0 {
		s.log.Info("no device tokens for user", zap.String("userId", userID))
		return models.DispatchResult{Status: models.DispatchNoTarget}, nil
	}

	result := models.DispatchResult{TokensTargeted: len(tokens)}
	var stale []string
	for _, token := range tokens {
		_, err := s.sender.Send(ctx, notification.Message{
			Token:        token,
			Title:        title,
			Body:         body,
			Data:         data,
			HighPriority: highPriority,
		})
		switch {
		case err == nil:
			result.SuccessCount++
			s.metrics.NotificationSent("ok")
		case errors.Is(err, notification.ErrUnregistered):
			result.FailureCount++
			stale = append(stale, token)
			s.metrics.NotificationSent("unregistered")
			s.log.Warn("unregistered device token", zap.String("userId", userID), zap.String("token", tail(token)))
		default:
			result.FailureCount++
			s.metrics.NotificationSent("error")
			s.log.Warn("push send failed", zap.String("userId", userID), zap.String("token", tail(token)), zap.Error(err))
		}
	}

	if len(stale) > 0 {
		if err := s.removeTokens(ctx, userID, stale); err != nil {
			s.log.Warn("could not remove unregistered tokens", zap.String("userId", userID), zap.Error(err))
		} else {
			result.TokensRemoved = len(stale)
		}
	}

	switch {
	case result.FailureCount == 0:
		result.Status = models.DispatchSuccess
	case result.SuccessCount == 0:
		result.Status = models.DispatchFailure
	default:
		result.Status = models.DispatchPartialSuccess
	}
	return result, nil
}

// SendDirect pushes to a single token without touching any user document.
func (s *NotificationService) SendDirect(ctx context.Context, req models.PushRequest) (string, error) {
	if strings.TrimSpace(req.Token) == "" {
		return "", util.InvalidArgument(util.TOKEN_REQUIRED)
	}
	id, err := s.sender.Send(ctx, notification.Message{
		Token:        req.Token,
		Title:        req.Title,
		Body:         req.Body,
		Data:         req.Data,
		HighPriority: req.HighPriority,
	})
	switch {
	case err == nil:
		s.metrics.NotificationSent("ok")
		return id, nil
	case errors.Is(err, notification.ErrUnregistered):
		s.metrics.NotificationSent("unregistered")
		return "", util.NotFound(util.CODE_TOKEN_UNREGISTERED, util.DEVICE_TOKEN_UNREGISTERED)
	case errors.Is(err, notification.ErrInvalidArgument):
		s.metrics.NotificationSent("invalid")
		return "", util.InvalidArgument(util.DEVICE_TOKEN_UNREGISTERED)
	default:
		s.metrics.NotificationSent("error")
		s.log.Warn("direct push failed", zap.String("token", tail(req.Token)), zap.Error(err))
		return "", util.Unavailable(err)
	}
}

func dedupe(tokens []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// tail keeps log lines free of full device tokens.
func tail(token string) string {
	if len(token) <= 10 {
		return token
	}
	return "..." + token[len(token)-10:]
}
