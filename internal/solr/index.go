package solr

import (
	"context"
	"fmt"
)

// FieldEntityType is stamped onto every document so one core can hold
// multiple entity types without queries bleeding into each other.
const FieldEntityType = "entity_type"

// DocumentStore is the raw index surface EntityIndex builds on.
type DocumentStore interface {
	Search(ctx context.Context, opts QueryOptions) (*QueryResult, error)
	Update(ctx context.Context, docs []Document, commit bool) error
	DeleteByID(ctx context.Context, id string, commit bool) error
	DeleteByQuery(ctx context.Context, query string, commit bool) error
	Commit(ctx context.Context) error
}

// EntityIndex scopes every operation to a single entity type. Document ids
// are namespaced as "<entityType>=<key>" and every search carries an
// entity_type filter, so keys only need to be unique per type.
type EntityIndex struct {
	store      DocumentStore
	entityType string
}

// NewEntityIndex wraps a store for one entity type.
func NewEntityIndex(store DocumentStore, entityType string) *EntityIndex {
	return &EntityIndex{store: store, entityType: entityType}
}

// EntityType returns the scoped type name.
func (i *EntityIndex) EntityType() string {
	return i.entityType
}

// DocID returns the namespaced document id for a key.
func (i *EntityIndex) DocID(key string) string {
	return i.entityType + "=" + key
}

// Search runs a query restricted to this entity type.
func (i *EntityIndex) Search(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	scoped := opts
	scoped.FilterQueries = append([]string{FieldEntityType + ":" + i.entityType}, opts.FilterQueries...)
	return i.store.Search(ctx, scoped)
}

// Update pushes documents keyed by entity key. The entity type and the
// namespaced id are stamped on before handing off to the store; values may
// be atomic-update instructions from Set.
func (i *EntityIndex) Update(ctx context.Context, docs map[string]Document, commit bool) error {
	if len(docs) == 0 {
		return nil
	}
	out := make([]Document, 0, len(docs))
	for key, doc := range docs {
		stamped := make(Document, len(doc)+2)
		for field, value := range doc {
			stamped[field] = value
		}
		stamped["id"] = i.DocID(key)
		stamped[FieldEntityType] = i.entityType
		out = append(out, stamped)
	}
	if err := i.store.Update(ctx, out, commit); err != nil {
		return fmt.Errorf("update %s documents: %w", i.entityType, err)
	}
	return nil
}

// DeleteByKey removes the document stored under key.
func (i *EntityIndex) DeleteByKey(ctx context.Context, key string, commit bool) error {
	if err := i.store.DeleteByID(ctx, i.DocID(key), commit); err != nil {
		return fmt.Errorf("delete %s document: %w", i.entityType, err)
	}
	return nil
}

// Commit flushes pending changes on the shared core.
func (i *EntityIndex) Commit(ctx context.Context) error {
	return i.store.Commit(ctx)
}

// DeleteByQuery removes matching documents of this entity type only.
func (i *EntityIndex) DeleteByQuery(ctx context.Context, query string, commit bool) error {
	scoped := fmt.Sprintf("%s:%s AND (%s)", FieldEntityType, i.entityType, query)
	if err := i.store.DeleteByQuery(ctx, scoped, commit); err != nil {
		return fmt.Errorf("delete %s documents: %w", i.entityType, err)
	}
	return nil
}
