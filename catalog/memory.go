package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store, used by tests and by callers that
// assemble their catalog programmatically.
type MemoryStore struct {
	mu        sync.RWMutex
	nodes     map[string]*NodeRevision
	databases map[int64]*Database
}

// NewMemoryStore returns an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:     make(map[string]*NodeRevision),
		databases: make(map[int64]*Database),
	}
}

// AddNode registers a node revision under its name, replacing any previous
// revision with the same name.
func (s *MemoryStore) AddNode(rev *NodeRevision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[rev.Name] = rev
}

// AddDatabase registers a database under its id.
func (s *MemoryStore) AddDatabase(db *Database) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.databases[db.ID] = db
}

func (s *MemoryStore) Resolve(_ context.Context, name string) (*NodeRevision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rev, ok := s.nodes[name]
	if !ok {
		return nil, fmt.Errorf("resolving %q: %w", name, ErrNodeNotFound)
	}
	return rev, nil
}

func (s *MemoryStore) Database(_ context.Context, id int64) (*Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, ok := s.databases[id]
	if !ok {
		return nil, fmt.Errorf("database %d: %w", id, ErrDatabaseNotFound)
	}
	return db, nil
}

func (s *MemoryStore) Databases(_ context.Context) ([]*Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Database, 0, len(s.databases))
	for _, db := range s.databases {
		out = append(out, db)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
