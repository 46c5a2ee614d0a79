package lwm2m

import (
	"testing"

	"github.com/matryer/is"
)

func TestParseVersionValid(t *testing.T) {
	is := is.New(t)

	v, err := ParseVersion("1.2")
	is.NoErr(err)
	is.Equal(v.String(), "1.2")
}

func TestParseVersionBoundaries(t *testing.T) {
	is := is.New(t)

	_, err := ParseVersion("0.0")
	is.NoErr(err)

	_, err = ParseVersion("9.9")
	is.NoErr(err)

	_, err = ParseVersion("10.0")
	is.True(err != nil)
}

func TestVersionDefault(t *testing.T) {
	is := is.New(t)
	is.Equal(DefaultVersion().String(), "1.0")
}

func TestVersionRoundTrip(t *testing.T) {
	is := is.New(t)

	v, err := ParseVersion("1.1")
	is.NoErr(err)

	v2, err := ParseVersion(v.String())
	is.NoErr(err)
	is.True(v.Equal(v2))
}

func TestVersionAsMapKey(t *testing.T) {
	is := is.New(t)

	m := map[Version]string{}
	v1, _ := ParseVersion("1.0")
	v2, _ := ParseVersion("1.0")
	m[v1] = "a"
	is.Equal(m[v2], "a")
}
