package lwm2m

import (
	"fmt"
	"strconv"
	"strings"
)

// ModelKind tells whether a CoreLink addresses an Object or a Resource.
type ModelKind int

const (
	KindObject ModelKind = iota
	KindResource
)

// CoreLink is a canonical LwM2M path with one to four components:
// object_id, object_instance, resource_id, resource_instance.
type CoreLink struct {
	ObjectID          uint16
	ObjectInstance    *uint16
	ResourceID        *uint16
	ResourceInstance  *uint16
	bracketed         bool
}

// Kind reports Object or Resource depending on whether ResourceID is set.
func (c CoreLink) Kind() ModelKind {
	if c.ResourceID != nil {
		return KindResource
	}
	return KindObject
}

// ParseCoreLink accepts either the bracketed CoRE-Link form </A/B/C/D> or
// the bare path form A/B/C/D.
func ParseCoreLink(s string) (CoreLink, error) {
	raw := s
	bracketed := false

	if strings.HasPrefix(raw, "<") && strings.HasSuffix(raw, ">") {
		bracketed = true
		raw = raw[1 : len(raw)-1]
	}

	raw = strings.TrimPrefix(raw, "/")

	if raw == "" {
		return CoreLink{}, &ParserError{Message: "CoRE link has no path components"}
	}

	parts := strings.Split(raw, "/")
	if len(parts) > 4 {
		return CoreLink{}, &ParserError{Message: "LwM2M CoRE link can not have more than 4 elements"}
	}

	link := CoreLink{bracketed: bracketed}

	for i, p := range parts {
		v, err := parseU16Component(i, p)
		if err != nil {
			return CoreLink{}, err
		}
		switch i {
		case 0:
			link.ObjectID = v
		case 1:
			link.ObjectInstance = &v
		case 2:
			link.ResourceID = &v
		case 3:
			link.ResourceInstance = &v
		}
	}

	return link, nil
}

func parseU16Component(index int, s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, &ParserError{
			Message: fmt.Sprintf("CoRE link index %d, value %q is not a u16", index, s),
		}
	}
	return uint16(n), nil
}

// String renders the link in the style it was parsed with: the bracketed
// CoRE-Link form (e.g. "</3/0/0>") for a link parsed from that form, the
// bare-path form (e.g. "3/0/0") otherwise, including for a CoreLink built
// directly as a struct literal. Use Bracketed to force the CoRE-Link form.
func (c CoreLink) String() string {
	if c.bracketed {
		return c.Bracketed()
	}
	return c.path()
}

func (c CoreLink) path() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", c.ObjectID)
	if c.ObjectInstance != nil {
		fmt.Fprintf(&b, "/%d", *c.ObjectInstance)
	}
	if c.ResourceID != nil {
		fmt.Fprintf(&b, "/%d", *c.ResourceID)
	}
	if c.ResourceInstance != nil {
		fmt.Fprintf(&b, "/%d", *c.ResourceInstance)
	}
	return b.String()
}

// Bracketed renders the CoRE-Link payload form </A/B/C/D>.
func (c CoreLink) Bracketed() string {
	return "</" + c.path() + ">"
}

// ObjectLink is the OID:IID resource value type used for object-link
// typed resources.
type ObjectLink struct {
	ObjectID       uint16
	ObjectInstance uint16
}

// ParseObjectLink parses the "OID:IID" micro-syntax.
func ParseObjectLink(s string) (ObjectLink, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return ObjectLink{}, &ParserError{Message: "Object Link should match u16:u16 pattern"}
	}

	oid, err := parseObjectLinkComponent(0, parts[0])
	if err != nil {
		return ObjectLink{}, err
	}
	iid, err := parseObjectLinkComponent(1, parts[1])
	if err != nil {
		return ObjectLink{}, err
	}

	return ObjectLink{ObjectID: oid, ObjectInstance: iid}, nil
}

func parseObjectLinkComponent(index int, s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, &ParserError{
			Message: fmt.Sprintf("Object Link index %d, value %s is not a u16", index, s),
		}
	}
	return uint16(n), nil
}

func (o ObjectLink) String() string {
	return fmt.Sprintf("%d:%d", o.ObjectID, o.ObjectInstance)
}
