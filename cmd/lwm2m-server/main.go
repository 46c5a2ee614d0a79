package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/diwise/lwm2m-registry/internal/pkg/application/events"
	"github.com/diwise/lwm2m-registry/internal/pkg/application/registry"
	"github.com/diwise/lwm2m-registry/internal/pkg/application/tracker"
	"github.com/diwise/lwm2m-registry/internal/pkg/application/webevents"
	"github.com/diwise/lwm2m-registry/internal/pkg/infrastructure/router"
	"github.com/diwise/lwm2m-registry/internal/pkg/presentation/api"
	"github.com/diwise/lwm2m-registry/internal/pkg/presentation/coap"
	"github.com/diwise/lwm2m-registry/pkg/objectmodel"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/go-chi/chi/v5"
	gocoap "github.com/plgd-dev/go-coap/v2"
	"github.com/rs/zerolog"

	"log/slog"
)

const serviceName string = "lwm2m-registry"

var registryDir string
var notificationConfigPath string

func main() {
	serviceVersion := buildinfo.SourceVersion()
	_, logger, cleanup := o11y.Init(context.Background(), serviceName, serviceVersion)
	defer cleanup()

	flag.StringVar(&registryDir, "registry", "/opt/diwise/config/objectmodel", "A directory containing OMA LwM2M object definition XML files")
	flag.StringVar(&notificationConfigPath, "notifications", "/opt/diwise/config/notifications.yaml", "Configuration file for registration notifications")
	flag.Parse()

	coapAddr := fmt.Sprintf(":%s", env.GetVariableOrDefault(logger, "COAP_PORT", "5683"))
	apiPort := fmt.Sprintf(":%s", env.GetVariableOrDefault(logger, "SERVICE_PORT", "8080"))

	store := setupObjectModelStoreOrDie(logger)

	messenger := setupMessagingOrDie(serviceName, logger)

	eventSender := events.New(loadEventSenderConfig(logger)).WithMessenger(messenger)
	feed := webevents.New()
	defer feed.Shutdown()

	tr := tracker.New()
	defer tr.Close()

	reg := registry.New(store, tr, fanOutSink{eventSender, feed})
	defer reg.Close()

	go func() {
		coapRouter := coap.NewRouter(reg)
		logger.Info().Str("address", coapAddr).Msg("starting coap listener")
		err := gocoap.ListenAndServe("udp", coapAddr, coapRouter)
		if err != nil {
			logger.Fatal().Err(err).Msg("coap listener failed")
		}
	}()

	r := setupRouter(logger, reg, feed)

	err := http.ListenAndServe(apiPort, r)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start admin http router")
	}
}

// fanOutSink reports every registry lifecycle event to both the CloudEvents
// webhook sender and the operator SSE feed.
type fanOutSink struct {
	sender *events.Sender
	feed   *webevents.Feed
}

func (f fanOutSink) DeviceRegistered(ctx context.Context, device registry.Device) {
	f.sender.DeviceRegistered(ctx, device)
	f.feed.DeviceRegistered(ctx, device)
}

func (f fanOutSink) DeviceExpired(ctx context.Context, device registry.Device) {
	f.sender.DeviceExpired(ctx, device)
	f.feed.DeviceExpired(ctx, device)
}

func setupObjectModelStoreOrDie(logger zerolog.Logger) *objectmodel.Store {
	if _, err := os.Stat(registryDir); os.IsNotExist(err) {
		logger.Fatal().Err(err).Msgf("directory %s does not exist! Unable to load object model definitions", registryDir)
	}

	store, err := objectmodel.LoadStore(registryDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load object model store")
	}

	return store
}

func setupMessagingOrDie(serviceName string, logger zerolog.Logger) messaging.MsgContext {
	config := messaging.LoadConfiguration(serviceName, logger)
	messenger, err := messaging.Initialize(config)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init messenger")
	}

	return messenger
}

func loadEventSenderConfig(logger zerolog.Logger) *events.Config {
	if nCfgFile, err := os.Open(notificationConfigPath); err == nil {
		defer nCfgFile.Close()

		nCfg, err := events.LoadConfiguration(nCfgFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load notification configuration")
		}

		return nCfg
	} else if !errors.Is(err, fs.ErrNotExist) {
		logger.Fatal().Err(err).Msgf("failed to open configuration file %s", notificationConfigPath)
	}
	return nil
}

func setupRouter(logger zerolog.Logger, reg *registry.Registry, feed *webevents.Feed) *chi.Mux {
	r := router.New(serviceName)
	requestLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return api.RegisterHandlers(requestLogger, r, reg, feed)
}
