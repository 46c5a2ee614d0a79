package objectmodel

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/diwise/lwm2m-registry/pkg/lwm2m"
)

// xmlObject mirrors the subset of the OMA LwM2M Object XML schema this
// loader understands. Fields are decoded leniently; mandatory-field
// validation happens in toObjectModel, after the whole element is read,
// matching the teacher's builder-then-validate approach.
type xmlObject struct {
	ObjectID          string        `xml:"ObjectID"`
	Name              string        `xml:"Name"`
	ObjectURN         string        `xml:"ObjectURN"`
	Description1      string        `xml:"Description1"`
	Description2      string        `xml:"Description2"`
	LWM2MVersion      string        `xml:"LWM2MVersion"`
	ObjectVersion     string        `xml:"ObjectVersion"`
	MultipleInstances string        `xml:"MultipleInstances"`
	Mandatory         string        `xml:"Mandatory"`
	Resources         xmlResources  `xml:"Resources"`
}

type xmlResources struct {
	Items []xmlResourceItem `xml:"Item"`
}

type xmlResourceItem struct {
	ID                string `xml:"ID,attr"`
	Name              string `xml:"Name"`
	Operations        string `xml:"Operations"`
	MultipleInstances string `xml:"MultipleInstances"`
	Mandatory         string `xml:"Mandatory"`
	Type              string `xml:"Type"`
	Description       string `xml:"Description"`
	Units             string `xml:"Units"`
	RangeEnumeration  string `xml:"RangeEnumeration"`
}


// qualifyingFileName reports whether a directory entry participates in
// the load: its name ends in .xml and, with '-'/'_' stripped and the
// suffix removed, consists only of decimal digits.
func qualifyingFileName(name string) bool {
	if !strings.HasSuffix(name, ".xml") {
		return false
	}

	stem := strings.TrimSuffix(name, ".xml")
	stem = strings.ReplaceAll(stem, "-", "")
	stem = strings.ReplaceAll(stem, "_", "")

	if stem == "" {
		return false
	}

	for _, r := range stem {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// loadModelsFromDir walks dir recursively and parses every qualifying
// file into an ObjectModel, indexed by (object id, version). Any single
// file failing to parse aborts the whole load (no partial load).
func loadModelsFromDir(dir string) (map[uint16]map[lwm2m.Version]ObjectModel, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &ParserError{Message: fmt.Sprintf("path %s is not a directory", dir)}
	}

	models := make(map[uint16]map[lwm2m.Version]ObjectModel)

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !qualifyingFileName(d.Name()) {
			return nil
		}

		model, parseErr := parseObjectFile(path)
		if parseErr != nil {
			return parseErr
		}

		versions, ok := models[model.ID]
		if !ok {
			versions = make(map[lwm2m.Version]ObjectModel)
			models[model.ID] = versions
		}
		versions[model.Version] = model

		return nil
	})
	if err != nil {
		return nil, err
	}

	return models, nil
}

// findObject walks the XML token stream looking for the first element
// named "Object", wherever it sits under the document root, and decodes
// it - mirroring the Rust loader's doc.descendants().find(...).
func findObject(data []byte) (xmlObject, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := dec.Token()
		if err != nil {
			return xmlObject{}, &ParserError{Message: "No Object found in file"}
		}

		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "Object" {
			var o xmlObject
			if err := dec.DecodeElement(&o, &start); err != nil {
				return xmlObject{}, &ParserError{Message: fmt.Sprintf("unable to parse Object element: %v", err)}
			}
			return o, nil
		}
	}
}

func parseObjectFile(path string) (ObjectModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ObjectModel{}, &ParserError{Message: fmt.Sprintf("unable to read %s: %v", path, err)}
	}

	o, err := findObject(data)
	if err != nil {
		return ObjectModel{}, err
	}

	return toObjectModel(o)
}

func toObjectModel(o xmlObject) (ObjectModel, error) {
	if o.ObjectID == "" {
		return ObjectModel{}, &ParserError{Message: "No ObjectID found"}
	}
	id, err := strconv.ParseUint(o.ObjectID, 10, 16)
	if err != nil {
		return ObjectModel{}, &ParserError{Message: "Error parsing ObjectID"}
	}

	if o.Name == "" {
		return ObjectModel{}, &ParserError{Message: "No object name found"}
	}

	multiple, err := parseMultipleInstances(o.MultipleInstances)
	if err != nil {
		return ObjectModel{}, err
	}

	mandatory, err := parseMandatory(o.Mandatory)
	if err != nil {
		return ObjectModel{}, err
	}

	version := lwm2m.DefaultVersion()
	if o.ObjectVersion != "" {
		version, err = lwm2m.ParseVersion(o.ObjectVersion)
		if err != nil {
			return ObjectModel{}, err
		}
	}

	lwm2mVersion := lwm2m.DefaultVersion()
	if o.LWM2MVersion != "" {
		lwm2mVersion, err = lwm2m.ParseVersion(o.LWM2MVersion)
		if err != nil {
			return ObjectModel{}, err
		}
	}

	resources := make(map[uint16]ResourceModel, len(o.Resources.Items))
	for _, item := range o.Resources.Items {
		rid, err := strconv.ParseUint(item.ID, 10, 16)
		if err != nil {
			return ObjectModel{}, &ParserError{Message: "Error parsing Resource ID"}
		}

		resource, err := toResourceModel(uint16(rid), item)
		if err != nil {
			return ObjectModel{}, err
		}
		resources[uint16(rid)] = resource
	}

	return ObjectModel{
		ID:           uint16(id),
		Name:         o.Name,
		URN:          o.ObjectURN,
		Mandatory:    mandatory,
		Multiple:     multiple,
		Version:      version,
		Lwm2mVersion: lwm2mVersion,
		Description:  o.Description1,
		Description2: o.Description2,
		Resources:    resources,
	}, nil
}

func toResourceModel(id uint16, item xmlResourceItem) (ResourceModel, error) {
	if item.Name == "" {
		return ResourceModel{}, &ParserError{Message: "No resource name found"}
	}

	multiple, err := parseMultipleInstances(item.MultipleInstances)
	if err != nil {
		return ResourceModel{}, err
	}

	mandatory, err := parseMandatory(item.Mandatory)
	if err != nil {
		return ResourceModel{}, err
	}

	var ops *ResourceOperation
	if item.Operations != "" {
		ops, err = parseOperations(item.Operations)
		if err != nil {
			return ResourceModel{}, err
		}
	}

	var rtype *ResourceType
	if item.Type != "" {
		rtype, err = parseResourceType(item.Type)
		if err != nil {
			return ResourceModel{}, err
		}
	}

	var rng *ResourceRange
	if item.RangeEnumeration != "" {
		r := parseRangeEnumeration(item.RangeEnumeration)
		rng = &r
	}

	return ResourceModel{
		ID:           id,
		Name:         item.Name,
		Mandatory:    mandatory,
		Multiple:     multiple,
		Description:  item.Description,
		Units:        item.Units,
		Operations:   ops,
		ResourceType: rtype,
		Range:        rng,
	}, nil
}

func parseMultipleInstances(value string) (bool, error) {
	switch value {
	case "Multiple":
		return true, nil
	case "Single":
		return false, nil
	default:
		return false, &ParserError{Message: fmt.Sprintf("MultipleInstances needs to be Multiple or Single, is: %s", value)}
	}
}

func parseMandatory(value string) (bool, error) {
	switch value {
	case "Mandatory":
		return true, nil
	case "Optional":
		return false, nil
	default:
		return false, &ParserError{Message: fmt.Sprintf("Mandatory needs to be Mandatory or Optional, is: %s", value)}
	}
}

func parseOperations(value string) (*ResourceOperation, error) {
	var op ResourceOperation
	switch value {
	case "R":
		op = OpRead
	case "W":
		op = OpWrite
	case "RW":
		op = OpReadWrite
	case "E":
		op = OpExecute
	case "":
		return nil, nil
	default:
		return nil, &ParserError{Message: fmt.Sprintf("Operations needs to be R, W, RW, E or empty, is: %s", value)}
	}
	return &op, nil
}

func parseResourceType(value string) (*ResourceType, error) {
	var kind ResourceTypeKind
	switch value {
	case "String":
		kind = TypeString
	case "Integer":
		kind = TypeInteger
	case "Unsigned Integer":
		kind = TypeUnsignedInteger
	case "Float":
		kind = TypeFloat
	case "Boolean":
		kind = TypeBoolean
	case "Opaque":
		kind = TypeOpaque
	case "Time":
		kind = TypeTime
	case "Objlnk":
		kind = TypeObjectLink
	case "Corelnk":
		kind = TypeCoreLink
	default:
		return nil, &ParserError{Message: fmt.Sprintf("Resource Type can be String, Integer, Unsigned Integer, Float, Boolean, Opaque, Time, Objlnk, Corelnk or empty, is: %s", value)}
	}
	return &ResourceType{Kind: kind}, nil
}

// parseRangeEnumeration parses the integer interval shape "min..max" into
// RangeNumericalInterval and falls back to RangeOther, keeping the raw
// text, for anything else (discrete lists, lengths and string enumerations
// are not parsed).
func parseRangeEnumeration(value string) ResourceRange {
	trimmed := strings.TrimSpace(value)

	if min, max, ok := strings.Cut(trimmed, ".."); ok {
		if a, errA := strconv.ParseInt(min, 10, 64); errA == nil {
			if b, errB := strconv.ParseInt(max, 10, 64); errB == nil {
				return ResourceRange{Kind: RangeNumericalInterval, IntervalMin: a, IntervalMax: b}
			}
		}
	}

	return ResourceRange{Kind: RangeOther, Other: value}
}
