package objectmodel

import "github.com/diwise/lwm2m-registry/pkg/lwm2m"

// ParserError is re-exported from pkg/lwm2m: the object-model parser and
// the C1 identifier parsers share the same "malformed input" taxonomy.
type ParserError = lwm2m.ParserError

// NotFoundError is re-exported from pkg/lwm2m for the same reason: a store
// lookup miss needs the CoreLink type that lives alongside the parsers.
type NotFoundError = lwm2m.NotFoundError

const (
	notFoundObjectID   = lwm2m.NotFoundObjectID
	notFoundResourceID = lwm2m.NotFoundResourceID
	notFoundVersion    = lwm2m.NotFoundVersion
)
