package objectmodel

import (
	"github.com/diwise/lwm2m-registry/pkg/lwm2m"
	"github.com/samber/lo"
)

// Model is the result of a store query: either the whole Object schema or
// one of its Resource schemas, depending on the queried CoreLink's Kind.
type Model struct {
	Object   *ObjectModel
	Resource *ResourceModel
}

// Store is the Object Model catalogue: object_id -> version -> ObjectModel.
type Store struct {
	models map[uint16]map[lwm2m.Version]ObjectModel
}

// LoadStore walks dir recursively and builds a Store from every qualifying
// OMA XML descriptor found. A single malformed file aborts the whole load.
func LoadStore(dir string) (*Store, error) {
	models, err := loadModelsFromDir(dir)
	if err != nil {
		return nil, err
	}
	return &Store{models: models}, nil
}

// AddFromDir merges additional descriptors into an already-loaded store.
// Collisions by (id, version) are last-write-wins, same as the initial
// load, on the assumption that registry directories are unique by
// construction (spec §4.2).
func (s *Store) AddFromDir(dir string) error {
	models, err := loadModelsFromDir(dir)
	if err != nil {
		return err
	}
	for id, versions := range models {
		existing, ok := s.models[id]
		if !ok {
			s.models[id] = versions
			continue
		}
		for v, m := range versions {
			existing[v] = m
		}
	}
	return nil
}

// ObjectIDs returns every object id currently indexed, sorted ascending.
func (s *Store) ObjectIDs() []uint16 {
	ids := lo.Keys(s.models)
	return lo.Sort(ids)
}

// GetModel resolves a CoreLink (optionally pinned to a version) to either
// an ObjectModel or a ResourceModel, per spec §4.2's three-step lookup.
func (s *Store) GetModel(link lwm2m.CoreLink, version *lwm2m.Version) (Model, error) {
	versions, ok := s.models[link.ObjectID]
	if !ok {
		return Model{}, &NotFoundError{Kind: notFoundObjectID, Link: link}
	}

	v := lwm2m.DefaultVersion()
	if version != nil {
		v = *version
	}

	objectModel, ok := versions[v]
	if !ok {
		return Model{}, &NotFoundError{Kind: notFoundVersion, Link: link, Version: v}
	}

	if link.ResourceID == nil {
		return Model{Object: &objectModel}, nil
	}

	resource, ok := objectModel.Resources[*link.ResourceID]
	if !ok {
		return Model{}, &NotFoundError{Kind: notFoundResourceID, Link: link}
	}

	return Model{Resource: &resource}, nil
}
