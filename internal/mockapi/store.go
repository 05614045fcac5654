package mockapi

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/sumandas0/entropic-model/pkg/utils"
)

// Record is one stored resource item. Every record carries a string "id".
type Record = map[string]any

type table struct {
	order   []string
	records map[string]Record
}

// Store keeps records per resource name in insertion order. It is safe for concurrent
// use; records handed out are copies.
type Store struct {
	mu        sync.RWMutex
	resources map[string]*table
}

func NewStore() *Store {
	return &Store{resources: make(map[string]*table)}
}

func (s *Store) table(resource string) *table {
	t, ok := s.resources[resource]
	if !ok {
		t = &table{records: make(map[string]Record)}
		s.resources[resource] = t
	}
	return t
}

// List returns the records of resource whose fields match every filter entry.
func (s *Store) List(resource string, filter map[string]string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.resources[resource]
	if !ok {
		return []Record{}
	}

	out := make([]Record, 0, len(t.order))
	for _, id := range t.order {
		record := t.records[id]
		if matches(record, filter) {
			out = append(out, copyRecord(record))
		}
	}
	return out
}

func (s *Store) Get(resource, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.resources[resource]; ok {
		if record, ok := t.records[id]; ok {
			return copyRecord(record), nil
		}
	}
	return nil, notFound(resource, id)
}

// Create stores a new record. A missing id is generated; a taken id is rejected.
func (s *Store) Create(resource string, record Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record = copyRecord(record)
	id := recordID(record)
	if id == "" {
		id = uuid.New().String()
	}
	record["id"] = id

	t := s.table(resource)
	if _, exists := t.records[id]; exists {
		return nil, utils.NewAppError(utils.CodeAlreadyExists, resource+" already exists", utils.ErrAlreadyExists).
			WithDetail("id", id)
	}
	t.order = append(t.order, id)
	t.records[id] = record
	return copyRecord(record), nil
}

// Update merges patch into the stored record. The id cannot be changed.
func (s *Store) Update(resource, id string, patch Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.resources[resource]
	if !ok {
		return nil, notFound(resource, id)
	}
	record, ok := t.records[id]
	if !ok {
		return nil, notFound(resource, id)
	}
	for key, value := range patch {
		if key == "id" {
			continue
		}
		record[key] = value
	}
	return copyRecord(record), nil
}

func (s *Store) Delete(resource, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.resources[resource]
	if !ok || !t.remove(id) {
		return notFound(resource, id)
	}
	return nil
}

// DeleteMany removes every listed id that exists and reports how many were removed.
func (s *Store) DeleteMany(resource string, ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.resources[resource]
	if !ok {
		return 0
	}
	deleted := 0
	for _, id := range ids {
		if t.remove(id) {
			deleted++
		}
	}
	return deleted
}

// Upsert creates or replaces every record. Records without an id get a generated one.
func (s *Store) Upsert(resource string, records []Record) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(resource)
	out := make([]Record, 0, len(records))
	for _, record := range records {
		record = copyRecord(record)
		id := recordID(record)
		if id == "" {
			id = uuid.New().String()
		}
		record["id"] = id

		if _, exists := t.records[id]; !exists {
			t.order = append(t.order, id)
		}
		t.records[id] = record
		out = append(out, copyRecord(record))
	}
	return out
}

func (s *Store) Len(resource string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.resources[resource]; ok {
		return len(t.order)
	}
	return 0
}

// Resources returns the names of every resource holding data.
func (s *Store) Resources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.resources))
	for name := range s.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *table) remove(id string) bool {
	if _, ok := t.records[id]; !ok {
		return false
	}
	delete(t.records, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func matches(record Record, filter map[string]string) bool {
	for key, want := range filter {
		value, ok := record[key]
		if !ok || cast.ToString(value) != want {
			return false
		}
	}
	return true
}

func recordID(record Record) string {
	if id, ok := record["id"]; ok && id != nil {
		return cast.ToString(id)
	}
	return ""
}

func notFound(resource, id string) error {
	return utils.NewAppError(utils.CodeNotFound, resource+" not found", utils.ErrNotFound).
		WithDetail("id", id)
}

func copyRecord(src Record) Record {
	dst := make(Record, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
