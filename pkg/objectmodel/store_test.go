package objectmodel

import (
	"testing"

	"github.com/diwise/lwm2m-registry/pkg/lwm2m"
	"github.com/matryer/is"
)

func TestLoadStoreAndGetObjectModelDefaultVersion(t *testing.T) {
	is := is.New(t)

	store, err := LoadStore("testdata/registry")
	is.NoErr(err)

	link, err := lwm2m.ParseCoreLink("</3>")
	is.NoErr(err)

	model, err := store.GetModel(link, nil)
	is.NoErr(err)
	is.True(model.Object != nil)
	is.Equal(model.Object.ID, uint16(3))
	is.Equal(model.Object.Name, "Device")
	is.Equal(model.Object.Version.String(), "1.0")
}

func TestLoadStoreAndGetObjectModelVersioned(t *testing.T) {
	is := is.New(t)

	store, err := LoadStore("testdata/registry")
	is.NoErr(err)

	link, err := lwm2m.ParseCoreLink("</3>")
	is.NoErr(err)

	v, err := lwm2m.ParseVersion("1.2")
	is.NoErr(err)

	model, err := store.GetModel(link, &v)
	is.NoErr(err)
	is.True(model.Object != nil)
	is.Equal(model.Object.Version.String(), "1.2")
}

func TestLoadStoreAndGetResourceModel(t *testing.T) {
	is := is.New(t)

	store, err := LoadStore("testdata/registry")
	is.NoErr(err)

	link, err := lwm2m.ParseCoreLink("</3/0/0>")
	is.NoErr(err)

	v, err := lwm2m.ParseVersion("1.2")
	is.NoErr(err)

	model, err := store.GetModel(link, &v)
	is.NoErr(err)
	is.True(model.Resource != nil)
	is.Equal(model.Resource.ID, uint16(0))
	is.Equal(model.Resource.Name, "Manufacturer")
}

func TestGetModelUnknownObjectID(t *testing.T) {
	is := is.New(t)

	store, err := LoadStore("testdata/registry")
	is.NoErr(err)

	link, err := lwm2m.ParseCoreLink("</9999>")
	is.NoErr(err)

	_, err = store.GetModel(link, nil)
	is.True(err != nil)
}

func TestGetModelUnknownVersion(t *testing.T) {
	is := is.New(t)

	store, err := LoadStore("testdata/registry")
	is.NoErr(err)

	link, err := lwm2m.ParseCoreLink("</3>")
	is.NoErr(err)

	v, err := lwm2m.ParseVersion("9.9")
	is.NoErr(err)

	_, err = store.GetModel(link, &v)
	is.True(err != nil)
}

func TestGetModelUnknownResourceID(t *testing.T) {
	is := is.New(t)

	store, err := LoadStore("testdata/registry")
	is.NoErr(err)

	link, err := lwm2m.ParseCoreLink("</3/0/999>")
	is.NoErr(err)

	_, err = store.GetModel(link, nil)
	is.True(err != nil)
}

func TestLoadStoreSkipsNonQualifyingFiles(t *testing.T) {
	is := is.New(t)

	store, err := LoadStore("testdata/registry")
	is.NoErr(err)

	is.Equal(store.ObjectIDs(), []uint16{3})
}

func TestLoadStoreRejectsNonDirectory(t *testing.T) {
	is := is.New(t)

	_, err := LoadStore("testdata/registry/3.xml")
	is.True(err != nil)
}
