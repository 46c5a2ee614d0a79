// Package events sends CloudEvents notifications to configured webhook
// subscribers when a device registers or its registration expires. It
// implements registry.EventSink.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/diwise/lwm2m-registry/internal/pkg/application/registry"
	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"golang.org/x/sys/unix"
	yaml "gopkg.in/yaml.v2"
)

const (
	typeDeviceRegistered = "lwm2m.deviceregistered"
	typeDeviceExpired    = "lwm2m.deviceexpired"
)

// Sender posts a CloudEvent to every subscriber configured for the
// relevant event type, and, when a messenger is attached, republishes the
// same event on the internal AMQP exchange for other diwise services to
// consume. A Sender with no matching webhook subscribers configured is a
// silent no-op on that channel, matching the spec's "reserved for the
// future" stance on notification delivery guarantees.
type Sender struct {
	subscribers map[string][]SubscriberConfig
	messenger   messaging.MsgContext
}

var _ registry.EventSink = (*Sender)(nil)

func New(cfg *Config) *Sender {
	s := &Sender{subscribers: make(map[string][]SubscriberConfig)}

	if cfg != nil {
		for _, n := range cfg.Notifications {
			s.subscribers[n.Type] = n.Subscribers
		}
	}

	return s
}

// WithMessenger attaches an AMQP messenger so every notification is also
// published on the internal topic exchange, mirroring the teacher's
// alarms/service packages which publish domain events the same way
// webhooks are sent.
func (s *Sender) WithMessenger(m messaging.MsgContext) *Sender {
	s.messenger = m
	return s
}

func (s *Sender) DeviceRegistered(ctx context.Context, device registry.Device) {
	s.send(ctx, typeDeviceRegistered, device)
	s.publishOnTopic(ctx, &deviceRegisteredMessage{
		DeviceEndpoint: device.DeviceEndpoint,
		ServerEndpoint: device.ServerEndpoint,
		Lifetime:       device.Lifetime.String(),
		Timestamp:      device.LastSeen,
	})
}

func (s *Sender) DeviceExpired(ctx context.Context, device registry.Device) {
	s.send(ctx, typeDeviceExpired, device)
	s.publishOnTopic(ctx, &deviceExpiredMessage{
		DeviceEndpoint: device.DeviceEndpoint,
		ServerEndpoint: device.ServerEndpoint,
		Timestamp:      time.Now().UTC(),
	})
}

func (s *Sender) publishOnTopic(ctx context.Context, msg messaging.TopicMessage) {
	if s.messenger == nil {
		return
	}

	if err := s.messenger.PublishOnTopic(ctx, msg); err != nil {
		logging.GetFromContext(ctx).Error("failed to publish event on topic", "topic", msg.TopicName(), "err", err.Error())
	}
}

// deviceRegisteredMessage and deviceExpiredMessage are the AMQP topic
// payloads, one small struct per routing key.
type deviceRegisteredMessage struct {
	DeviceEndpoint string    `json:"deviceEndpoint"`
	ServerEndpoint string    `json:"serverEndpoint"`
	Lifetime       string    `json:"lifetime"`
	Timestamp      time.Time `json:"timestamp"`
}

func (d *deviceRegisteredMessage) ContentType() string { return "application/json" }
func (d *deviceRegisteredMessage) TopicName() string   { return "lwm2m.deviceRegistered" }
func (d *deviceRegisteredMessage) Body() []byte {
	b, _ := json.Marshal(d)
	return b
}

type deviceExpiredMessage struct {
	DeviceEndpoint string    `json:"deviceEndpoint"`
	ServerEndpoint string    `json:"serverEndpoint"`
	Timestamp      time.Time `json:"timestamp"`
}

func (d *deviceExpiredMessage) ContentType() string { return "application/json" }
func (d *deviceExpiredMessage) TopicName() string   { return "lwm2m.deviceExpired" }
func (d *deviceExpiredMessage) Body() []byte {
	b, _ := json.Marshal(d)
	return b
}

func (s *Sender) send(ctx context.Context, eventType string, device registry.Device) {
	subs := s.subscribers[eventType]
	if len(subs) == 0 {
		return
	}

	log := logging.GetFromContext(ctx)

	c, err := cloudevents.NewClientHTTP()
	if err != nil {
		log.Error("could not create cloudevents client", "err", err.Error())
		return
	}

	event := cloudevents.NewEvent()
	event.SetID(fmt.Sprintf("%s:%d", device.ServerEndpoint, device.LastSeen.UnixNano()))
	event.SetTime(device.LastSeen)
	event.SetSource("github.com/diwise/lwm2m-registry")
	event.SetType(eventType)

	data := struct {
		DeviceEndpoint string `json:"deviceEndpoint"`
		ServerEndpoint string `json:"serverEndpoint"`
		Lifetime       string `json:"lifetime"`
	}{
		DeviceEndpoint: device.DeviceEndpoint,
		ServerEndpoint: device.ServerEndpoint,
		Lifetime:       device.Lifetime.String(),
	}

	if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
		log.Error("could not encode cloudevent payload", "err", err.Error())
		return
	}

	for _, sub := range subs {
		ctxWithTarget := cloudevents.ContextWithTarget(ctx, sub.Endpoint)

		result := c.Send(ctxWithTarget, event)
		if cloudevents.IsUndelivered(result) || errors.Is(result, unix.ECONNREFUSED) {
			log.Error("failed to send event", "endpoint", sub.Endpoint, "err", result.Error())
		}
	}
}

// EntityInfo, RegistrationInfo, SubscriberConfig, Notification and Config
// mirror the notification configuration file format: a list of event
// types, each with the webhook subscribers that should receive them.
type EntityInfo struct {
	IDPattern string `yaml:"idPattern"`
}

type RegistrationInfo struct {
	Entities []EntityInfo `yaml:"entities"`
}

type SubscriberConfig struct {
	Endpoint    string             `yaml:"endpoint"`
	Information []RegistrationInfo `yaml:"information"`
}

type Notification struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Type        string             `yaml:"type"`
	Subscribers []SubscriberConfig `yaml:"subscribers"`
}

type Config struct {
	Notifications []Notification `yaml:"notifications"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
