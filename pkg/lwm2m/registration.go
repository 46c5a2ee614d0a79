package lwm2m

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Lwm2mVersion is the protocol version negotiated at registration.
type Lwm2mVersion int

const (
	V1_0 Lwm2mVersion = iota
	V1_1
	V1_2
)

func (v Lwm2mVersion) String() string {
	switch v {
	case V1_0:
		return "1.0"
	case V1_1:
		return "1.1"
	case V1_2:
		return "1.2"
	default:
		return "unknown"
	}
}

// BindingMode is the client's transport preference.
type BindingMode int

const (
	BindingUdp BindingMode = iota
	BindingTcp
)

// RegistrationRequest is the fully decoded /rd POST: base fields from the
// Uri-Query option plus the objects carried in the CoRE-Link payload.
type RegistrationRequest struct {
	Endpoint     string
	Lifetime     uint64
	Lwm2mVersion Lwm2mVersion
	BindingMode  BindingMode
	Objects      []LwM2mObject
}

// ParseRegistrationQuery decodes the Uri-Query option body
// "ep=...&lt=...&lwm2m=...&b=..." into the base RegistrationRequest
// fields. Order-independent, case-preserving except for enum aliases.
func ParseRegistrationQuery(query string) (RegistrationRequest, error) {
	values, err := url.ParseQuery(query)
	if err != nil {
		return RegistrationRequest{}, newRequestError(CodeUnprocessableEntity, "Incorrect URL query format")
	}

	req := RegistrationRequest{}

	ep := values.Get("ep")
	if ep == "" {
		return RegistrationRequest{}, newRequestError(CodeUnprocessableEntity, "endpoint (ep) is required")
	}
	req.Endpoint = ep

	ltRaw := values.Get("lt")
	if ltRaw == "" {
		return RegistrationRequest{}, newRequestError(CodeUnprocessableEntity, "lifetime (lt) is required")
	}
	lt, err := strconv.ParseInt(ltRaw, 10, 64)
	if err != nil || lt < 0 {
		return RegistrationRequest{}, newRequestError(CodeUnprocessableEntity, "lifetime (lt) must be a non-negative integer")
	}
	req.Lifetime = uint64(lt)

	ver, err := parseLwm2mVersionAlias(values.Get("lwm2m"))
	if err != nil {
		return RegistrationRequest{}, err
	}
	req.Lwm2mVersion = ver

	mode, err := parseBindingMode(values.Get("b"))
	if err != nil {
		return RegistrationRequest{}, err
	}
	req.BindingMode = mode

	return req, nil
}

func parseLwm2mVersionAlias(raw string) (Lwm2mVersion, error) {
	switch strings.ToLower(raw) {
	case "1.0", "v1.0":
		return V1_0, nil
	case "1.1", "v1.1":
		return V1_1, nil
	case "1.2", "v1.2":
		return V1_2, nil
	default:
		return 0, newRequestError(CodeUnprocessableEntity, "unsupported lwm2m version alias %q", raw)
	}
}

func parseBindingMode(raw string) (BindingMode, error) {
	switch raw {
	case "u", "U":
		return BindingUdp, nil
	case "t", "T":
		return BindingTcp, nil
	default:
		return 0, newRequestError(CodeUnprocessableEntity, "unsupported binding mode %q", raw)
	}
}

// DecodeRegistration runs the full C4 pipeline: query -> base fields,
// payload -> CoRE-Link objects, each step mapped onto its CoAP response
// code per spec §4.4.
func DecodeRegistration(rawQuery string, hasQuery bool, contentFormat *int, body []byte) (RegistrationRequest, error) {
	if !hasQuery {
		return RegistrationRequest{}, newRequestError(CodeBadOption, "missing Uri-Query option")
	}

	if !utf8.Valid(body) {
		return RegistrationRequest{}, newRequestError(CodeUnprocessableEntity, "payload is not valid UTF-8")
	}
	text := string(body)

	if err := CheckContentFormat(contentFormat, text); err != nil {
		return RegistrationRequest{}, err
	}

	req, err := ParseRegistrationQuery(rawQuery)
	if err != nil {
		return RegistrationRequest{}, err
	}

	objects, err := ParseLinkFormat(text)
	if err != nil {
		return RegistrationRequest{}, err
	}
	req.Objects = objects

	return req, nil
}
