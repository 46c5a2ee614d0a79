// Package registry implements the Device Registry (spec §4.6): an
// in-memory server_endpoint -> Device mapping, wired to the Object Model
// Store for validation and to the timer tracker for lifetime eviction.
package registry

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/diwise/lwm2m-registry/internal/pkg/application/tracker"
	"github.com/diwise/lwm2m-registry/pkg/lwm2m"
	"github.com/diwise/lwm2m-registry/pkg/objectmodel"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

const (
	serverEndpointAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	serverEndpointLength      = 32
	maxServerEndpointAttempts = 8
)

// ErrDeviceNotFound is returned by Get for an unknown server_endpoint.
var ErrDeviceNotFound = fmt.Errorf("device not found")

// Device is one live registration: the endpoint the device announced
// itself as, the opaque location handle the registry assigned it, its
// negotiated lifetime, when it was last seen, and its validated model.
type Device struct {
	DeviceEndpoint string
	ServerEndpoint string
	Lifetime       time.Duration
	LastSeen       time.Time
	Model          DeviceModel
}

// EventSink observes registry lifecycle events. Registrations and
// expiries are reported best-effort; a nil EventSink is a valid no-op.
type EventSink interface {
	DeviceRegistered(ctx context.Context, device Device)
	DeviceExpired(ctx context.Context, device Device)
}

// Registry is the live device table. Map operations are synchronous and
// confined behind a single mutex with short critical sections, per spec
// §5; eviction is driven by the tracker's expiry broadcast running on its
// own goroutine.
type Registry struct {
	mu               sync.Mutex
	byServerEndpoint map[string]*Device
	byDeviceEndpoint map[string]string

	store   *objectmodel.Store
	tracker *tracker.Tracker
	sink    EventSink

	expirySub *tracker.Subscription
}

// New creates a Registry backed by store for model validation and tr for
// lifetime scheduling, and starts its expiry-watching goroutine. sink may
// be nil.
func New(store *objectmodel.Store, tr *tracker.Tracker, sink EventSink) *Registry {
	r := &Registry{
		byServerEndpoint: make(map[string]*Device),
		byDeviceEndpoint: make(map[string]string),
		store:            store,
		tracker:          tr,
		sink:             sink,
		expirySub:        tr.Subscribe(),
	}
	go r.watchExpiries()
	return r
}

// Close stops the registry's expiry-watching goroutine. It does not close
// the underlying Tracker, which may be shared.
func (r *Registry) Close() {
	r.expirySub.Cancel()
}

func (r *Registry) watchExpiries() {
	for serverEndpoint := range r.expirySub.Keys() {
		r.evict(context.Background(), serverEndpoint)
	}
}

// Register runs the C6 side of a successful /rd POST: validate the
// announced objects against the model store, then either insert a new
// Device under a freshly generated server_endpoint, or, if device_endpoint
// already has a live registration, refresh it in place. Either way the
// tracker is (re)inserted under the resulting server_endpoint key.
func (r *Registry) Register(ctx context.Context, req lwm2m.RegistrationRequest) (string, error) {
	log := logging.GetFromContext(ctx)

	model, err := buildDeviceModel(r.store, req.Objects)
	if err != nil {
		return "", err
	}

	lifetime := time.Duration(req.Lifetime) * time.Second
	now := time.Now().UTC()

	r.mu.Lock()

	if serverEndpoint, ok := r.byDeviceEndpoint[req.Endpoint]; ok {
		dev := r.byServerEndpoint[serverEndpoint]
		dev.LastSeen = now
		dev.Lifetime = lifetime
		dev.Model = model
		refreshed := *dev
		r.mu.Unlock()

		r.tracker.Insert(serverEndpoint, lifetime)
		log.Debug("refreshed device registration", "device_endpoint", req.Endpoint, "server_endpoint", serverEndpoint)

		if r.sink != nil {
			r.sink.DeviceRegistered(ctx, refreshed)
		}
		return serverEndpoint, nil
	}

	serverEndpoint, err := r.newServerEndpointLocked()
	if err != nil {
		r.mu.Unlock()
		return "", err
	}

	dev := &Device{
		DeviceEndpoint: req.Endpoint,
		ServerEndpoint: serverEndpoint,
		Lifetime:       lifetime,
		LastSeen:       now,
		Model:          model,
	}
	r.byServerEndpoint[serverEndpoint] = dev
	r.byDeviceEndpoint[req.Endpoint] = serverEndpoint
	registered := *dev
	r.mu.Unlock()

	r.tracker.Insert(serverEndpoint, lifetime)
	log.Debug("registered device", "device_endpoint", req.Endpoint, "server_endpoint", serverEndpoint)

	if r.sink != nil {
		r.sink.DeviceRegistered(ctx, registered)
	}
	return serverEndpoint, nil
}

// Get returns the live Device for a server_endpoint, if any.
func (r *Registry) Get(serverEndpoint string) (Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dev, ok := r.byServerEndpoint[serverEndpoint]
	if !ok {
		return Device{}, false
	}
	return *dev, true
}

// List returns a snapshot of every currently registered device.
func (r *Registry) List() []Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	devices := make([]Device, 0, len(r.byServerEndpoint))
	for _, dev := range r.byServerEndpoint {
		devices = append(devices, *dev)
	}
	return devices
}

func (r *Registry) evict(ctx context.Context, serverEndpoint string) {
	r.mu.Lock()
	dev, ok := r.byServerEndpoint[serverEndpoint]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byServerEndpoint, serverEndpoint)
	delete(r.byDeviceEndpoint, dev.DeviceEndpoint)
	expired := *dev
	r.mu.Unlock()

	if r.sink != nil {
		r.sink.DeviceExpired(ctx, expired)
	}
}

func (r *Registry) newServerEndpointLocked() (string, error) {
	for attempt := 0; attempt < maxServerEndpointAttempts; attempt++ {
		candidate, err := randomServerEndpoint()
		if err != nil {
			return "", err
		}
		if _, exists := r.byServerEndpoint[candidate]; !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique server_endpoint after %d attempts", maxServerEndpointAttempts)
}

func randomServerEndpoint() (string, error) {
	raw := make([]byte, serverEndpointLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("could not read random bytes for server_endpoint: %w", err)
	}

	out := make([]byte, serverEndpointLength)
	for i, b := range raw {
		out[i] = serverEndpointAlphabet[int(b)%len(serverEndpointAlphabet)]
	}
	return string(out), nil
}
