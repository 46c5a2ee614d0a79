package registry

import (
	"github.com/diwise/lwm2m-registry/pkg/lwm2m"
	"github.com/diwise/lwm2m-registry/pkg/objectmodel"
)

// ResourceInstance is one resource slot of a registered device's model: the
// schema it was validated against, plus whatever concrete value has been
// written to it since registration. CurrentValue is nil until a write
// arrives; its dynamic type, when set, matches Schema.ResourceType.Kind
// (string, int64, uint64, float64, bool, []byte, lwm2m.ObjectLink or
// lwm2m.CoreLink).
type ResourceInstance struct {
	Schema       *objectmodel.ResourceModel
	CurrentValue any
}

// ObjectInstance is one instance slot of a registered object.
type ObjectInstance struct {
	InstanceID uint16
	Resources  map[uint16]*ResourceInstance
}

// ObjectEntry is one registered object: its schema plus every instance the
// device announced at registration.
type ObjectEntry struct {
	Schema    *objectmodel.ObjectModel
	Version   lwm2m.Version
	Instances map[uint16]*ObjectInstance
}

// DeviceModel is the registry-side, mutable Object/Instance/Resource tree
// for one device, built from the CoRE-Link objects carried in its
// registration payload and validated against the Object Model Store. It is
// distinct from ObjectModel/ResourceModel, which describe schema only.
type DeviceModel struct {
	Objects map[uint16]*ObjectEntry
}

// buildDeviceModel validates every object/resource link a device announced
// against store and assembles the resulting DeviceModel. Any link the store
// rejects aborts the whole registration (spec §4.6 runs this as part of the
// registration pipeline, upstream of insertion into the registry).
func buildDeviceModel(store *objectmodel.Store, objects []lwm2m.LwM2mObject) (DeviceModel, error) {
	dm := DeviceModel{Objects: map[uint16]*ObjectEntry{}}

	for _, o := range objects {
		link, err := lwm2m.ParseCoreLink(o.Link)
		if err != nil {
			return DeviceModel{}, err
		}

		version := objectVersionAttribute(o.Attributes)

		entry, err := dm.objectEntry(store, link.ObjectID, version)
		if err != nil {
			return DeviceModel{}, err
		}

		if link.ObjectInstance == nil {
			continue
		}

		inst, ok := entry.Instances[*link.ObjectInstance]
		if !ok {
			inst = &ObjectInstance{InstanceID: *link.ObjectInstance, Resources: map[uint16]*ResourceInstance{}}
			entry.Instances[*link.ObjectInstance] = inst
		}

		if link.ResourceID == nil {
			continue
		}

		resourceLink := lwm2m.CoreLink{ObjectID: link.ObjectID, ObjectInstance: link.ObjectInstance, ResourceID: link.ResourceID}
		model, err := store.GetModel(resourceLink, version)
		if err != nil {
			return DeviceModel{}, err
		}

		inst.Resources[*link.ResourceID] = &ResourceInstance{Schema: model.Resource}
	}

	return dm, nil
}

func (dm DeviceModel) objectEntry(store *objectmodel.Store, objectID uint16, version *lwm2m.Version) (*ObjectEntry, error) {
	if entry, ok := dm.Objects[objectID]; ok {
		return entry, nil
	}

	model, err := store.GetModel(lwm2m.CoreLink{ObjectID: objectID}, version)
	if err != nil {
		return nil, err
	}

	entry := &ObjectEntry{
		Schema:    model.Object,
		Version:   model.Object.Version,
		Instances: map[uint16]*ObjectInstance{},
	}
	dm.Objects[objectID] = entry

	return entry, nil
}

func objectVersionAttribute(attrs []lwm2m.Attribute) *lwm2m.Version {
	for _, a := range attrs {
		if a.Kind == lwm2m.AttrObjectVersion {
			v, err := lwm2m.ParseVersion(a.StrVal)
			if err != nil {
				continue
			}
			return &v
		}
	}
	return nil
}
