package student

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"libraryadmin/internal/apperrors"
)

// Repository persists student aggregates. Save is conditional on s.Version matching the
// stored version and increments it on success.
type Repository interface {
	Create(ctx context.Context, s *Student) error
	Get(ctx context.Context, id string) (*Student, error)
	FindByMobile(ctx context.Context, mobile string) (*Student, error)
	List(ctx context.Context) ([]Student, error)
	Save(ctx context.Context, s *Student) error
	Delete(ctx context.Context, id string) error
}

// MemoryRepository keeps serialised documents in a map. Every read returns a fresh copy.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string][]byte
	seq  map[string]int
	n    int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: map[string][]byte{}, seq: map[string]int{}}
}

func (r *MemoryRepository) Create(_ context.Context, s *Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[s.ID]; ok {
		return apperrors.Conflict("student %s already exists", s.ID)
	}
	s.Version = 1
	doc, err := json.Marshal(s)
	if err != nil {
		return apperrors.Storage("encode student", err)
	}
	r.n++
	r.docs[s.ID] = doc
	r.seq[s.ID] = r.n
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Student, error) {
	r.mu.RLock()
	doc, ok := r.docs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("student not found")
	}
	return decode(doc)
}

func (r *MemoryRepository) FindByMobile(ctx context.Context, mobile string) (*Student, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Mobile == mobile {
			return &all[i], nil
		}
	}
	return nil, apperrors.NotFound("student not found")
}

// List returns students in insertion order.
func (r *MemoryRepository) List(_ context.Context) ([]Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return r.seq[ids[i]] < r.seq[ids[j]] })

	out := make([]Student, 0, len(ids))
	for _, id := range ids {
		s, err := decode(r.docs[id])
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r *MemoryRepository) Save(_ context.Context, s *Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[s.ID]
	if !ok {
		return apperrors.NotFound("student not found")
	}
	stored, err := decode(doc)
	if err != nil {
		return err
	}
	if stored.Version != s.Version {
		return apperrors.Conflict("student was modified concurrently, reload and retry")
	}

	next := *s
	next.Version++
	doc, err = json.Marshal(&next)
	if err != nil {
		return apperrors.Storage("encode student", err)
	}
	r.docs[s.ID] = doc
	s.Version = next.Version
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return apperrors.NotFound("student not found")
	}
	delete(r.docs, id)
	delete(r.seq, id)
	return nil
}

func decode(doc []byte) (*Student, error) {
	var s Student
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, apperrors.Storage("decode student", err)
	}
	return &s, nil
}
