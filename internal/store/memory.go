package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store used by tests. It implements the same
// matching semantics as the sqlite store: equality on top-level fields,
// with booleans compared loosely.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]json.RawMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]json.RawMessage)}
}

// Collection returns a handle for the named collection.
func (s *MemoryStore) Collection(name string) Collection {
	return &memoryCollection{name: name, store: s}
}

type memoryCollection struct {
	name  string
	store *MemoryStore
}

func (c *memoryCollection) docs() map[string]json.RawMessage {
	docs, ok := c.store.collections[c.name]
	if !ok {
		docs = make(map[string]json.RawMessage)
		c.store.collections[c.name] = docs
	}
	return docs
}

type memoryDoc struct {
	id     string
	raw    json.RawMessage
	fields map[string]interface{}
}

// match reports whether the decoded document satisfies the filter.
func match(doc memoryDoc, filter Filter) bool {
	for k, want := range filter {
		var have interface{}
		if k == "id" {
			have = doc.id
		} else {
			have = doc.fields[k]
		}
		if !looseEqual(have, want) {
			return false
		}
	}
	return true
}

// looseEqual compares a decoded JSON value against a filter value by
// round-tripping the filter value through JSON.
func looseEqual(have, want interface{}) bool {
	wb, err := json.Marshal(want)
	if err != nil {
		return false
	}
	hb, err := json.Marshal(have)
	if err != nil {
		return false
	}
	return string(wb) == string(hb)
}

func (c *memoryCollection) matching(filter Filter) ([]memoryDoc, error) {
	var out []memoryDoc
	for id, raw := range c.docs() {
		fields := map[string]interface{}{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		doc := memoryDoc{id: id, raw: raw, fields: fields}
		if match(doc, filter) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out, nil
}

func (c *memoryCollection) FindOne(ctx context.Context, filter Filter, out interface{}) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	docs, err := c.matching(filter)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return ErrNoDocuments
	}
	return json.Unmarshal(docs[0].raw, out)
}

func (c *memoryCollection) Find(ctx context.Context, filter Filter, opts FindOptions, out interface{}) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	docs, err := c.matching(filter)
	if err != nil {
		return err
	}

	if opts.Sort != nil {
		field, desc := opts.Sort.Field, opts.Sort.Desc
		sort.SliceStable(docs, func(i, j int) bool {
			less := lessValue(docs[i].fields[field], docs[j].fields[field], docs[i].id, docs[j].id)
			if desc {
				return !less
			}
			return less
		})
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(docs) {
			docs = nil
		} else {
			docs = docs[opts.Offset:]
		}
	}
	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}

	raws := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		raws = append(raws, d.raw)
	}
	return decodeDocs(raws, out)
}

// lessValue orders decoded JSON values: numbers numerically, strings
// lexically, with the id as tie-break.
func lessValue(a, b interface{}, idA, idB string) bool {
	fa, aNum := a.(float64)
	fb, bNum := b.(float64)
	if aNum && bNum {
		if fa != fb {
			return fa < fb
		}
		return idA < idB
	}
	sa := fmt.Sprintf("%v", a)
	sb := fmt.Sprintf("%v", b)
	if sa != sb {
		return sa < sb
	}
	return idA < idB
}

func (c *memoryCollection) InsertOne(ctx context.Context, id string, doc interface{}) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	docs := c.docs()
	if _, exists := docs[id]; exists {
		return ErrDuplicateKey
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	docs[id] = raw
	return nil
}

func (c *memoryCollection) UpdateOne(ctx context.Context, filter Filter, doc interface{}) (bool, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	matched, err := c.matching(filter)
	if err != nil {
		return false, err
	}
	if len(matched) == 0 {
		return false, nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return false, err
	}
	c.docs()[matched[0].id] = raw
	return true, nil
}

func (c *memoryCollection) DeleteOne(ctx context.Context, filter Filter) (bool, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	matched, err := c.matching(filter)
	if err != nil {
		return false, err
	}
	if len(matched) == 0 {
		return false, nil
	}
	delete(c.docs(), matched[0].id)
	return true, nil
}

func (c *memoryCollection) CountDocuments(ctx context.Context, filter Filter) (int64, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	matched, err := c.matching(filter)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}
