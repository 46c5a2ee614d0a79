package registry

import (
	"context"
	"testing"
	"time"

	"github.com/diwise/lwm2m-registry/internal/pkg/application/tracker"
	"github.com/diwise/lwm2m-registry/pkg/lwm2m"
	"github.com/diwise/lwm2m-registry/pkg/objectmodel"
	"github.com/matryer/is"
)

func newTestRegistry(t *testing.T) (*Registry, *tracker.Tracker) {
	t.Helper()

	store, err := objectmodel.LoadStore("testdata/registry")
	if err != nil {
		t.Fatalf("could not load test object model store: %v", err)
	}

	tr := tracker.New()
	t.Cleanup(tr.Close)

	reg := New(store, tr, nil)
	t.Cleanup(reg.Close)

	return reg, tr
}

func deviceRegistration(endpoint string, lifetime uint64) lwm2m.RegistrationRequest {
	return lwm2m.RegistrationRequest{
		Endpoint:     endpoint,
		Lifetime:     lifetime,
		Lwm2mVersion: lwm2m.V1_0,
		BindingMode:  lwm2m.BindingUdp,
		Objects: []lwm2m.LwM2mObject{
			{Link: "</3/0>"},
			{Link: "</3/0/0>"},
		},
	}
}

func TestRegisterAssignsOpaqueServerEndpoint(t *testing.T) {
	is := is.New(t)
	reg, _ := newTestRegistry(t)

	serverEndpoint, err := reg.Register(context.Background(), deviceRegistration("urn:dev:1", 3600))
	is.NoErr(err)
	is.Equal(len(serverEndpoint), serverEndpointLength)

	dev, ok := reg.Get(serverEndpoint)
	is.True(ok)
	is.Equal(dev.DeviceEndpoint, "urn:dev:1")
	is.True(dev.Model.Objects[3] != nil)
	is.True(dev.Model.Objects[3].Instances[0] != nil)
	is.True(dev.Model.Objects[3].Instances[0].Resources[0] != nil)
}

func TestRegisterRejectsUnknownObject(t *testing.T) {
	reg, _ := newTestRegistry(t)

	req := deviceRegistration("urn:dev:2", 3600)
	req.Objects = []lwm2m.LwM2mObject{{Link: "</9999>"}}

	_, err := reg.Register(context.Background(), req)
	if err == nil {
		t.Fatal("expected an error for an unregistered object id")
	}
}

func TestRegisterRefreshSameDeviceReusesServerEndpoint(t *testing.T) {
	is := is.New(t)
	reg, _ := newTestRegistry(t)

	first, err := reg.Register(context.Background(), deviceRegistration("urn:dev:3", 3600))
	is.NoErr(err)

	second, err := reg.Register(context.Background(), deviceRegistration("urn:dev:3", 7200))
	is.NoErr(err)

	is.Equal(first, second)

	dev, ok := reg.Get(first)
	is.True(ok)
	is.Equal(dev.Lifetime, 7200*time.Second)
}

func TestExpiryEvictsDevice(t *testing.T) {
	is := is.New(t)
	reg, _ := newTestRegistry(t)

	serverEndpoint, err := reg.Register(context.Background(), deviceRegistration("urn:dev:4", 0))
	is.NoErr(err)

	// lifetime 0 -> the tracker fires almost immediately
	deadline := time.After(2 * time.Second)
	for {
		if _, ok := reg.Get(serverEndpoint); !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("device was not evicted after its lifetime elapsed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	_, ok := reg.Get(serverEndpoint)
	is.True(!ok)
}

type recordingSink struct {
	registered chan Device
	expired    chan Device
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		registered: make(chan Device, 16),
		expired:    make(chan Device, 16),
	}
}

func (s *recordingSink) DeviceRegistered(ctx context.Context, device Device) {
	s.registered <- device
}

func (s *recordingSink) DeviceExpired(ctx context.Context, device Device) {
	s.expired <- device
}

func TestEventSinkObservesRegistrationAndExpiry(t *testing.T) {
	is := is.New(t)

	store, err := objectmodel.LoadStore("testdata/registry")
	is.NoErr(err)

	tr := tracker.New()
	defer tr.Close()

	sink := newRecordingSink()
	reg := New(store, tr, sink)
	defer reg.Close()

	serverEndpoint, err := reg.Register(context.Background(), deviceRegistration("urn:dev:5", 0))
	is.NoErr(err)

	select {
	case dev := <-sink.registered:
		is.Equal(dev.ServerEndpoint, serverEndpoint)
	case <-time.After(time.Second):
		t.Fatal("expected a DeviceRegistered event")
	}

	select {
	case dev := <-sink.expired:
		is.Equal(dev.ServerEndpoint, serverEndpoint)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a DeviceExpired event")
	}
}
