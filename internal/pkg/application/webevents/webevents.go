// Package webevents fans registry lifecycle events out over Server-Sent
// Events so operators can watch registrations and expiries live. It
// implements registry.EventSink.
package webevents

import (
	"context"
	"encoding/json"

	gosse "github.com/alexandrevicenzi/go-sse"

	"github.com/diwise/lwm2m-registry/internal/pkg/application/registry"
)

const (
	eventDeviceRegistered = "deviceRegistered"
	eventDeviceExpired    = "deviceExpired"
)

// Feed is an SSE broadcaster of device lifecycle events.
type Feed struct {
	s *gosse.Server
}

var _ registry.EventSink = (*Feed)(nil)

func New() *Feed {
	return &Feed{s: gosse.NewServer(&gosse.Options{})}
}

// Server is the http.Handler operators connect a browser EventSource to.
func (f *Feed) Server() *gosse.Server {
	return f.s
}

func (f *Feed) Shutdown() {
	f.s.Shutdown()
}

func (f *Feed) DeviceRegistered(ctx context.Context, device registry.Device) {
	f.publish(eventDeviceRegistered, device)
}

func (f *Feed) DeviceExpired(ctx context.Context, device registry.Device) {
	f.publish(eventDeviceExpired, device)
}

func (f *Feed) publish(event string, device registry.Device) {
	b, err := json.Marshal(struct {
		DeviceEndpoint string `json:"deviceEndpoint"`
		ServerEndpoint string `json:"serverEndpoint"`
	}{
		DeviceEndpoint: device.DeviceEndpoint,
		ServerEndpoint: device.ServerEndpoint,
	})
	if err != nil {
		return
	}

	f.s.SendMessage("", gosse.NewMessage("", string(b), event))
}
