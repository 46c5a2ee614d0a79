package lwm2m

import (
	"testing"

	"github.com/matryer/is"
)

func TestParseAttributeDimension(t *testing.T) {
	is := is.New(t)

	a, err := ParseAttribute("dim", "3")
	is.NoErr(err)
	is.Equal(a.Kind, AttrDimension)
	is.Equal(a.UintVal, uint64(3))
}

func TestParseAttributeDimensionBad(t *testing.T) {
	is := is.New(t)

	_, err := ParseAttribute("dim", "notanumber")
	var reqErr *RequestError
	is.True(err != nil)
	is.True(asRequestError(err, &reqErr))
	is.Equal(reqErr.Code, CodeNotAcceptable)
}

func TestParseAttributeUnknownIsNotAnError(t *testing.T) {
	is := is.New(t)

	a, err := ParseAttribute("customx", "42")
	is.NoErr(err)
	is.Equal(a.Kind, AttrUnknown)
	is.Equal(a.Raw, "42")
}

func TestParseAttributeLwm2mVersionCaseInsensitive(t *testing.T) {
	is := is.New(t)

	a, err := ParseAttribute("Lwm2m", "1.1")
	is.NoErr(err)
	is.Equal(a.Kind, AttrLwm2mVersion)
	is.Equal(a.Version.String(), "1.1")
}

func TestParseAttributeEdgeBooleans(t *testing.T) {
	is := is.New(t)

	a, err := ParseAttribute("edge", "1")
	is.NoErr(err)
	is.Equal(a.BoolVal, true)

	_, err = ParseAttribute("edge", "2")
	is.True(err != nil)
}

func TestParseAttributeFloats(t *testing.T) {
	is := is.New(t)

	a, err := ParseAttribute("gt", "12.5")
	is.NoErr(err)
	is.Equal(a.FloatVal, 12.5)

	_, err = ParseAttribute("lt", "notafloat")
	is.True(err != nil)
}

func asRequestError(err error, target **RequestError) bool {
	if re, ok := err.(*RequestError); ok {
		*target = re
		return true
	}
	return false
}
