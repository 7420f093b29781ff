package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildMessage_HighPriority(t *testing.T) {
	msg := buildMessage(Message{Token: "tok", Title: "Appointment Confirmed", Body: "b", Data: map[string]string{"type": "appointment_update"}, HighPriority: true})
	assert.Equal(t, "tok", msg.Token)
	assert.Equal(t, "Appointment Confirmed", msg.Notification.Title)
	require.NotNil(t, msg.Android)
	assert.Equal(t, "high", msg.Android.Priority)
	require.NotNil(t, msg.APNS)
	assert.Equal(t, "10", msg.APNS.Headers["apns-priority"])

	normal := buildMessage(Message{Token: "tok", Title: "t", Body: "b"})
	assert.Nil(t, normal.Android)
	assert.Nil(t, normal.APNS)
}

func TestLogSender(t *testing.T) {
	id, err := NewLogSender(zap.NewNop()).Send(context.Background(), Message{Token: "t", Title: "x"})
	require.NoError(t, err)
	assert.Contains(t, id, "log-")
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "mamacare/users/p1/events", Topic("mamacare", "p1"))
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeClient struct {
	topic   string
	payload []byte
	err     error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic = topic
	c.payload = payload.([]byte)
	return newFakeToken(c.err)
}

func (c *fakeClient) Disconnect(uint) {}

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTPublisher(client, "mamacare")

	err := p.Publish(context.Background(), Event{Type: EventNurseAssigned, UserID: "p1", Payload: map[string]string{"nurseId": "n1"}})
	require.NoError(t, err)
	assert.Equal(t, "mamacare/users/p1/events", client.topic)

	var got Event
	require.NoError(t, json.Unmarshal(client.payload, &got))
	assert.Equal(t, EventNurseAssigned, got.Type)
	assert.Equal(t, "n1", got.Payload["nurseId"])
	assert.False(t, got.At.IsZero())
}

func TestMQTTPublisher_PublishError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	p := newMQTTPublisher(client, "mamacare")

	err := p.Publish(context.Background(), Event{Type: EventNurseAssigned, UserID: "p1"})
	assert.ErrorContains(t, err, "not connected")
}
