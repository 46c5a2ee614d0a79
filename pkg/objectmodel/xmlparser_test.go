package objectmodel

import (
	"testing"

	"github.com/matryer/is"
)

func TestQualifyingFileName(t *testing.T) {
	is := is.New(t)

	is.True(qualifyingFileName("3.xml"))
	is.True(qualifyingFileName("3-1_2.xml"))
	is.True(qualifyingFileName("3_1-2.xml"))
	is.True(!qualifyingFileName("README.xml"))
	is.True(!qualifyingFileName("3.txt"))
	is.True(!qualifyingFileName("-_.xml"))
}

func TestParseRangeEnumerationInterval(t *testing.T) {
	is := is.New(t)

	r := parseRangeEnumeration("0..100")
	is.Equal(r.Kind, RangeNumericalInterval)
	is.Equal(r.IntervalMin, int64(0))
	is.Equal(r.IntervalMax, int64(100))
}

func TestParseRangeEnumerationFallsBackToOther(t *testing.T) {
	is := is.New(t)

	r := parseRangeEnumeration("some free-form text")
	is.Equal(r.Kind, RangeOther)
	is.Equal(r.Other, "some free-form text")
}

func TestParseObjectFileMissingObject(t *testing.T) {
	is := is.New(t)

	_, err := findObject([]byte(`<LWM2M><NotAnObject/></LWM2M>`))
	is.True(err != nil)
}

func TestParseMandatoryAndMultipleInstances(t *testing.T) {
	is := is.New(t)

	m, err := parseMandatory("Mandatory")
	is.NoErr(err)
	is.True(m)

	_, err = parseMandatory("garbage")
	is.True(err != nil)

	s, err := parseMultipleInstances("Single")
	is.NoErr(err)
	is.True(!s)
}
