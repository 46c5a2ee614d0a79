// Package objectmodel loads the OMA LwM2M object/resource descriptor
// catalogue and answers queries against it by CoreLink and version.
package objectmodel

import (
	"github.com/diwise/lwm2m-registry/pkg/lwm2m"
)

// ResourceOperation is the set of CRUDE operations a resource allows.
type ResourceOperation int

const (
	OpRead ResourceOperation = iota
	OpWrite
	OpReadWrite
	OpExecute
)

// ResourceTypeKind discriminates the ResourceType tagged union.
type ResourceTypeKind int

const (
	TypeString ResourceTypeKind = iota
	TypeInteger
	TypeUnsignedInteger
	TypeOpaque
	TypeFloat
	TypeBoolean
	TypeObjectLink
	TypeTime
	TypeCoreLink
)

// ResourceType is the resource's schema type plus the default/initial
// payload slot, always unset while parsing a schema; it is only populated
// once a DeviceModel instance is created from this schema.
type ResourceType struct {
	Kind ResourceTypeKind

	DefaultString     *string
	DefaultInteger     *int64
	DefaultUnsigned    *uint64
	DefaultOpaque      []byte
	DefaultFloat       *float64
	DefaultBoolean     *bool
	DefaultObjectLink  *lwm2m.ObjectLink
	DefaultTime        *uint64
	DefaultCoreLink    *lwm2m.CoreLink
}

// RangeKind discriminates the ResourceRange tagged union.
type RangeKind int

const (
	RangeNumericalInterval RangeKind = iota
	RangeNumericalDiscrete
	RangeDiscreteLength
	RangeLength
	RangeStringEnum
	RangeOther
)

// ResourceRange is the RangeEnumeration field, parsed where the grammar is
// unambiguous and preserved raw (RangeOther) otherwise.
type ResourceRange struct {
	Kind RangeKind

	IntervalMin int64
	IntervalMax int64

	Discrete []int64

	DiscreteLengths []uint64

	LengthMin uint64
	LengthMax uint64

	StringEnum []string

	Other string
}

// ResourceModel is the schema for one numbered resource inside an Object.
type ResourceModel struct {
	ID           uint16
	Name         string
	Mandatory    bool
	Multiple     bool
	Description  string
	Units        string
	Operations   *ResourceOperation
	ResourceType *ResourceType
	Range        *ResourceRange
}

// ObjectModel is the schema for one LwM2M Object, as parsed from an OMA
// XML descriptor. Resource-id uniqueness within Resources is an invariant
// maintained by the XML parser and the store loader.
type ObjectModel struct {
	ID           uint16
	Name         string
	URN          string
	Mandatory    bool
	Multiple     bool
	Version      lwm2m.Version
	Lwm2mVersion lwm2m.Version
	Description  string
	Description2 string
	Resources    map[uint16]ResourceModel
}
