package events

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/equipment-maintenance/internal/models"
)

// Event types published after a request mutation.
const (
	EventRequestCreated  = "request.created"
	EventRequestUpdated  = "request.updated"
	EventStatusChanged   = "request.status_changed"
	EventWorkLogAppended = "request.worklog_appended"
)

// RequestEvent is the envelope published to the broker after a request
// mutation. Consumers in the enclosing application (notifications, audit)
// subscribe to these topics.
type RequestEvent struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	RequestID   string        `json:"request_id"`
	EquipmentID string        `json:"equipment_id"`
	From        models.Status `json:"from,omitempty"`
	To          models.Status `json:"to,omitempty"`
	Actor       string        `json:"actor,omitempty"`
	At          time.Time     `json:"at"`
}

// NewRequestEvent builds an envelope with a fresh event ID.
func NewRequestEvent(eventType string, request *models.MaintenanceRequest, from, to models.Status, actor string, at time.Time) RequestEvent {
	return RequestEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		RequestID:   request.ID.Hex(),
		EquipmentID: request.EquipmentID,
		From:        from,
		To:          to,
		Actor:       actor,
		At:          at,
	}
}

// Topic returns the broker topic the event is published on.
func (e RequestEvent) Topic() string {
	return fmt.Sprintf("maintenance/requests/%s/%s", e.RequestID, e.Type)
}

// Publisher delivers request events to interested consumers.
type Publisher interface {
	Publish(event RequestEvent) error
	Close()
}

// MQTTPublisher publishes request events to an MQTT broker.
type MQTTPublisher struct {
	client mqtt.Client
}

// NewMQTTPublisher connects to the broker at brokerURL and returns a ready
// publisher.
func NewMQTTPublisher(brokerURL, clientID string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	log.WithField("broker", brokerURL).Info("Connected to MQTT broker")
	return &MQTTPublisher{client: client}, nil
}

// Publish marshals the event and publishes it at QoS 1.
func (p *MQTTPublisher) Publish(event RequestEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	token := p.client.Publish(event.Topic(), 1, false, payload)
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(RequestEvent) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() {}
