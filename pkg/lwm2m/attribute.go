package lwm2m

import (
	"strconv"
	"strings"
)

// AttributeKind discriminates the Lwm2mAttribute tagged variant.
type AttributeKind int

const (
	AttrDimension AttributeKind = iota
	AttrSsid
	AttrUri
	AttrObjectVersion
	AttrLwm2mVersion
	AttrMinPeriod
	AttrMaxPeriod
	AttrGreaterThan
	AttrLessThan
	AttrStep
	AttrMinEvalPeriod
	AttrMaxEvalPeriod
	AttrEdge
	AttrConfirmable
	AttrMaxHistoricalQueue
	AttrContentType
	AttrUnknown
)

// Attribute is a single LwM2M link attribute. Only the field matching Kind
// is meaningful; Raw always carries the original textual value so Unknown
// attributes preserve forward-compatible data instead of failing.
type Attribute struct {
	Kind     AttributeKind
	Name     string
	Raw      string
	UintVal  uint64
	IntVal   int64
	FloatVal float64
	BoolVal  bool
	StrVal   string
	Version  Version
}

// ContentFormatLinkFormat is the CoAP Content-Format code for
// application/link-format (RFC 6690).
const ContentFormatLinkFormat = 40

// ParseAttribute maps a single name/value pair from a CoRE-Link payload
// onto a typed Attribute. Unrecognized names produce AttrUnknown rather
// than an error. Type-mismatched values produce a NotAcceptable
// RequestError.
func ParseAttribute(name, value string) (Attribute, error) {
	lower := strings.ToLower(name)

	switch lower {
	case "dim":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return Attribute{}, newRequestError(CodeNotAcceptable, "Dimension value %s should be 0-255", value)
		}
		return Attribute{Kind: AttrDimension, Name: name, Raw: value, UintVal: n}, nil
	case "ssid":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return Attribute{}, newRequestError(CodeNotAcceptable, "Short Server ID (SSID) value %s should be 0-65534", value)
		}
		return Attribute{Kind: AttrSsid, Name: name, Raw: value, UintVal: n}, nil
	case "uri":
		return Attribute{Kind: AttrUri, Name: name, Raw: value, StrVal: value}, nil
	case "ver":
		return Attribute{Kind: AttrObjectVersion, Name: name, Raw: value, StrVal: value}, nil
	case "lwm2m":
		v, err := parseLwm2mAttributeVersion(value)
		if err != nil {
			return Attribute{}, newRequestError(CodeNotAcceptable, "LWM2M Version %s is not supported.", value)
		}
		return Attribute{Kind: AttrLwm2mVersion, Name: name, Raw: value, Version: v}, nil
	case "pmin":
		n, err := parseU64Attr(value)
		if err != nil {
			return Attribute{}, err
		}
		return Attribute{Kind: AttrMinPeriod, Name: name, Raw: value, UintVal: n}, nil
	case "pmax":
		n, err := parseU64Attr(value)
		if err != nil {
			return Attribute{}, err
		}
		return Attribute{Kind: AttrMaxPeriod, Name: name, Raw: value, UintVal: n}, nil
	case "epmin":
		n, err := parseU64Attr(value)
		if err != nil {
			return Attribute{}, err
		}
		return Attribute{Kind: AttrMinEvalPeriod, Name: name, Raw: value, UintVal: n}, nil
	case "epmax":
		n, err := parseU64Attr(value)
		if err != nil {
			return Attribute{}, err
		}
		return Attribute{Kind: AttrMaxEvalPeriod, Name: name, Raw: value, UintVal: n}, nil
	case "hqmax":
		n, err := parseU64Attr(value)
		if err != nil {
			return Attribute{}, err
		}
		return Attribute{Kind: AttrMaxHistoricalQueue, Name: name, Raw: value, UintVal: n}, nil
	case "gt":
		f, err := parseF64Attr(value)
		if err != nil {
			return Attribute{}, err
		}
		return Attribute{Kind: AttrGreaterThan, Name: name, Raw: value, FloatVal: f}, nil
	case "lt":
		f, err := parseF64Attr(value)
		if err != nil {
			return Attribute{}, err
		}
		return Attribute{Kind: AttrLessThan, Name: name, Raw: value, FloatVal: f}, nil
	case "st":
		f, err := parseF64Attr(value)
		if err != nil {
			return Attribute{}, err
		}
		return Attribute{Kind: AttrStep, Name: name, Raw: value, FloatVal: f}, nil
	case "edge":
		b, err := parseBoolAttr(value)
		if err != nil {
			return Attribute{}, err
		}
		return Attribute{Kind: AttrEdge, Name: name, Raw: value, BoolVal: b}, nil
	case "con":
		b, err := parseBoolAttr(value)
		if err != nil {
			return Attribute{}, err
		}
		return Attribute{Kind: AttrConfirmable, Name: name, Raw: value, BoolVal: b}, nil
	case "ct":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return Attribute{}, newRequestError(CodeNotAcceptable, "ct value %s not recognized as content format", value)
		}
		return Attribute{Kind: AttrContentType, Name: name, Raw: value, UintVal: n}, nil
	default:
		return Attribute{Kind: AttrUnknown, Name: name, Raw: value, StrVal: value}, nil
	}
}

func parseU64Attr(value string) (uint64, error) {
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, newRequestError(CodeNotAcceptable, "%s should be u64", value)
	}
	return n, nil
}

func parseF64Attr(value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, newRequestError(CodeNotAcceptable, "%s should be f64", value)
	}
	return f, nil
}

func parseBoolAttr(value string) (bool, error) {
	switch value {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, newRequestError(CodeNotAcceptable, "%s should be a 0 or 1", value)
	}
}

func parseLwm2mAttributeVersion(value string) (Version, error) {
	switch value {
	case "1.0", "v1.0":
		return ParseVersion("1.0")
	case "1.1", "v1.1":
		return ParseVersion("1.1")
	case "1.2", "v1.2":
		return ParseVersion("1.2")
	default:
		return Version{}, &ParserError{Message: "unsupported lwm2m version"}
	}
}
