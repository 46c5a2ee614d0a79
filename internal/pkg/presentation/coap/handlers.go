// Package coap implements the CoAP Resource Handlers (spec §4.7): device
// registration over POST /rd, a debug echo at GET /hello, and the reserved
// (read-only, debug) surface at /rd/{server_endpoint}.
package coap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/diwise/lwm2m-registry/internal/pkg/application/registry"
	"github.com/diwise/lwm2m-registry/pkg/lwm2m"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/google/uuid"
	"github.com/plgd-dev/go-coap/v2/message"
	"github.com/plgd-dev/go-coap/v2/message/codes"
	"github.com/plgd-dev/go-coap/v2/mux"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lwm2m-registry/coap")

// NewRouter wires every resource this server exposes.
func NewRouter(reg *registry.Registry) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/rd", mux.HandlerFunc(handleRegister(reg)))
	r.Handle("/hello", mux.HandlerFunc(handleHello))
	r.DefaultHandleFunc(handleRdSubpathOrUnknown(reg))
	return r
}

func handleHello(w mux.ResponseWriter, r *mux.Message) {
	respondText(w, codes.Content, "hello")
}

func handleRegister(reg *registry.Registry) mux.HandlerFunc {
	return func(w mux.ResponseWriter, r *mux.Message) {
		ctx := r.Context
		if ctx == nil {
			ctx = context.Background()
		}

		ctx, span := tracer.Start(ctx, "coap-register")
		var err error
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		_, ctx, log := o11y.AddTraceIDToLoggerAndStoreInContext(span, logging.GetFromContext(ctx), ctx)
		correlationID := uuid.NewString()

		rawQuery, hasQuery := queryString(r)
		contentFormat := contentFormatOf(r)
		body := readBody(r)

		req, decodeErr := lwm2m.DecodeRegistration(rawQuery, hasQuery, contentFormat, body)
		if decodeErr != nil {
			err = decodeErr
			log.Debug("registration rejected", "correlation_id", correlationID, "err", err.Error())
			respondError(w, err)
			return
		}

		serverEndpoint, registerErr := reg.Register(ctx, req)
		if registerErr != nil {
			err = registerErr
			log.Error("registration failed", "correlation_id", correlationID, "device_endpoint", req.Endpoint, "err", err.Error())
			respondError(w, err)
			return
		}

		log.Info("device registered", "correlation_id", correlationID, "device_endpoint", req.Endpoint, "server_endpoint", serverEndpoint)
		respondCreated(w, r, serverEndpoint)
	}
}

// handleRdSubpathOrUnknown serves the reserved /rd/{server_endpoint}
// surface: GET returns a debug snapshot of the registration; PUT and
// DELETE are reserved for update/deregister but not implemented (spec
// §4.7 lists them as out of scope). Anything else is unknown.
func handleRdSubpathOrUnknown(reg *registry.Registry) mux.HandlerFunc {
	return func(w mux.ResponseWriter, r *mux.Message) {
		path, err := r.Options.Path()
		if err != nil {
			respondEmpty(w, codes.NotFound)
			return
		}

		serverEndpoint, ok := rdServerEndpoint(path)
		if !ok {
			respondEmpty(w, codes.NotFound)
			return
		}

		switch r.Code {
		case codes.GET:
			dev, found := reg.Get(serverEndpoint)
			if !found {
				respondEmpty(w, codes.NotFound)
				return
			}
			respondJSON(w, codes.Content, deviceSnapshot(dev))
		case codes.PUT, codes.DELETE:
			respondEmpty(w, codes.Forbidden)
		default:
			respondEmpty(w, codes.MethodNotAllowed)
		}
	}
}

func rdServerEndpoint(path string) (string, bool) {
	path = strings.TrimPrefix(path, "/")
	rest, ok := strings.CutPrefix(path, "rd/")
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

func queryString(r *mux.Message) (string, bool) {
	queries, err := r.Options.Queries()
	if err != nil || len(queries) == 0 {
		return "", false
	}
	return strings.Join(queries, "&"), true
}

func contentFormatOf(r *mux.Message) *int {
	format, err := r.Options.ContentFormat()
	if err != nil {
		return nil
	}
	f := int(format)
	return &f
}

func readBody(r *mux.Message) []byte {
	if r.Body == nil {
		return nil
	}
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(r.Body)
	return buf.Bytes()
}

func respondCreated(w mux.ResponseWriter, r *mux.Message, serverEndpoint string) {
	resp := message.Message{
		Code:    codes.Created,
		Token:   r.Token,
		Context: r.Context,
		Options: append(message.Options{},
			message.Option{ID: message.LocationPath, Value: []byte("rd")},
			message.Option{ID: message.LocationPath, Value: []byte(serverEndpoint)},
		),
	}
	if err := w.Client().WriteMessage(resp); err != nil {
		logging.GetFromContext(context.Background()).Error("could not write coap response", "err", err.Error())
	}
}

func respondText(w mux.ResponseWriter, code codes.Code, text string) {
	if err := w.SetResponse(code, message.TextPlain, bytes.NewReader([]byte(text))); err != nil {
		logging.GetFromContext(context.Background()).Error("could not set coap response", "err", err.Error())
	}
}

func respondEmpty(w mux.ResponseWriter, code codes.Code) {
	if err := w.SetResponse(code, message.TextPlain, nil); err != nil {
		logging.GetFromContext(context.Background()).Error("could not set coap response", "err", err.Error())
	}
}

func respondJSON(w mux.ResponseWriter, code codes.Code, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		respondEmpty(w, codes.InternalServerError)
		return
	}
	if err := w.SetResponse(code, message.AppJSON, bytes.NewReader(b)); err != nil {
		logging.GetFromContext(context.Background()).Error("could not set coap response", "err", err.Error())
	}
}

// respondError maps the two error taxonomies (spec §7) onto their exact
// CoAP response code.
func respondError(w mux.ResponseWriter, err error) {
	switch e := err.(type) {
	case *lwm2m.RequestError:
		respondText(w, coapCodeFor(e.Code), e.Message)
	case *lwm2m.NotFoundError:
		respondText(w, codes.NotFound, e.Error())
	case *lwm2m.ParserError:
		respondText(w, codes.BadRequest, e.Error())
	default:
		respondText(w, codes.InternalServerError, fmt.Sprintf("internal error: %s", err.Error()))
	}
}

func coapCodeFor(code lwm2m.CoapCode) codes.Code {
	switch code {
	case lwm2m.CodeCreated:
		return codes.Created
	case lwm2m.CodeBadOption:
		return codes.BadOption
	case lwm2m.CodeNotAcceptable:
		return codes.NotAcceptable
	case lwm2m.CodeUnsupportedContentFormat:
		return codes.UnsupportedMediaType
	case lwm2m.CodeUnprocessableEntity:
		return codes.UnprocessableEntity
	default:
		return codes.InternalServerError
	}
}

func deviceSnapshot(dev registry.Device) map[string]any {
	objectIDs := make([]uint16, 0, len(dev.Model.Objects))
	for id := range dev.Model.Objects {
		objectIDs = append(objectIDs, id)
	}

	return map[string]any{
		"device_endpoint": dev.DeviceEndpoint,
		"server_endpoint": dev.ServerEndpoint,
		"lifetime":        dev.Lifetime.String(),
		"last_seen":       dev.LastSeen,
		"objects":         objectIDs,
	}
}
