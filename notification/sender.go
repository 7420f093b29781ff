package notification

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var (
	ErrUnregistered    = errors.New("device token is unregistered")
	ErrInvalidArgument = errors.New("push request rejected as invalid")
)

type Message struct {
	Token        string
	Title        string
	Body         string
	Data         map[string]string
	HighPriority bool
}

// Sender delivers one push message to one device token and returns the
// provider message id.
type Sender interface {
	Send(ctx context.Context, m Message) (string, error)
}

type FCMSender struct {
	client *messaging.Client
}

func NewFCMSender(ctx context.Context, projectID, credentialsFile string) (*FCMSender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Send(ctx context.Context, m Message) (string, error) {
	id, err := s.client.Send(ctx, buildMessage(m))
	switch {
	case err == nil:
		return id, nil
	case messaging.IsUnregistered(err):
		return "", fmt.Errorf("%w: %v", ErrUnregistered, err)
	case errorutils.IsInvalidArgument(err):
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	default:
		return "", err
	}
}

/*
* High priority maps to android priority high
* and apns-priority 10 for iOS
 */
func buildMessage(m Message) *messaging.Message {
	msg := &messaging.Message{
		Token: m.Token,
		Notification: &messaging.Notification{
			Title: m.Title,
			Body:  m.Body,
		},
		Data: m.Data,
	}
	if m.HighPriority {
		msg.Android = &messaging.AndroidConfig{Priority: "high"}
		msg.APNS = &messaging.APNSConfig{Headers: map[string]string{"apns-priority": "10"}}
	}
	return msg
}

// LogSender records messages instead of delivering them. Used when push
// is disabled.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, m Message) (string, error) {
	id := "log-" + uuid.NewString()
	s.log.Info("push disabled, message not delivered",
		zap.String("messageId", id),
		zap.String("title", m.Title),
		zap.Bool("highPriority", m.HighPriority),
		zap.Int("dataKeys", len(m.Data)),
	)
	return id, nil
}
