package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	EventNurseAssigned     = "nurse_assigned"
	EventNurseUnassigned   = "nurse_unassigned"
	EventPatientAssigned   = "patient_assigned"
	EventPatientReleased   = "patient_released"
	EventAppointmentUpdate = "appointment_update"
)

type Event struct {
	Type    string            `json:"type"`
	UserID  string            `json:"userId"`
	Payload map[string]string `json:"payload,omitempty"`
	At      time.Time         `json:"at"`
}

// Publisher fans domain events out to interested clients.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type publishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type MQTTPublisher struct {
	client  publishClient
	prefix  string
	qos     byte
	timeout time.Duration
}

func NewMQTTPublisher(broker, clientID, prefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return newMQTTPublisher(client, prefix), nil
}

func newMQTTPublisher(client publishClient, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix, qos: 1, timeout: 5 * time.Second}
}

func Topic(prefix, userID string) string {
	return fmt.Sprintf("%s/users/%s/events", prefix, userID)
}

func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	topic := Topic(p.prefix, e.UserID)
	token := p.client.Publish(topic, p.qos, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("publish to topic %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
