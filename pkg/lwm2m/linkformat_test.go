package lwm2m

import (
	"testing"

	"github.com/matryer/is"
)

func TestParseLinkFormatMultipleObjects(t *testing.T) {
	is := is.New(t)

	objects, err := ParseLinkFormat("</1>,</3>")
	is.NoErr(err)
	is.Equal(len(objects), 2)
	is.Equal(objects[0].Link, "</1>")
	is.Equal(objects[1].Link, "</3>")
}

func TestParseLinkFormatWithAttributes(t *testing.T) {
	is := is.New(t)

	objects, err := ParseLinkFormat(`</1/0>;ver="1.1",</3>;ver=1.0`)
	is.NoErr(err)
	is.Equal(len(objects), 2)
	is.Equal(len(objects[0].Attributes), 1)
	is.Equal(objects[0].Attributes[0].Kind, AttrObjectVersion)
	is.Equal(objects[0].Attributes[0].StrVal, "1.1")
}

func TestParseLinkFormatEmptyRejects(t *testing.T) {
	is := is.New(t)

	_, err := ParseLinkFormat("")
	is.True(err != nil)
}

func TestParseLinkFormatMalformedEntry(t *testing.T) {
	is := is.New(t)

	_, err := ParseLinkFormat("1>no-bracket")
	is.True(err != nil)
}

func TestCheckContentFormatRejectsWrongFormat(t *testing.T) {
	is := is.New(t)

	cf := 99
	err := CheckContentFormat(&cf, "</1>")
	is.True(err != nil)

	var reqErr *RequestError
	is.True(asRequestError(err, &reqErr))
	is.Equal(reqErr.Code, CodeUnsupportedContentFormat)
}

func TestCheckContentFormatAcceptsLinkFormat(t *testing.T) {
	is := is.New(t)

	cf := ContentFormatLinkFormat
	err := CheckContentFormat(&cf, "</1>")
	is.NoErr(err)
}

func TestCheckContentFormatEmptyBodyNoOption(t *testing.T) {
	is := is.New(t)

	err := CheckContentFormat(nil, "")
	is.True(err != nil)

	var reqErr *RequestError
	is.True(asRequestError(err, &reqErr))
	is.Equal(reqErr.Code, CodeUnprocessableEntity)
}
