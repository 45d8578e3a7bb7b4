// Package memory keeps collections in process memory. It backs the
// "memory" store driver for local runs and the usecase tests.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"visit-dashboard-service/internal/documents/core/domain"
	"visit-dashboard-service/internal/documents/core/ports"
)

const feedBuffer = 256

type entry struct {
	doc domain.Document
	seq uint64
}

type Repository struct {
	mu        sync.RWMutex
	docs      map[string]map[string]*entry
	seq       uint64
	listeners map[chan domain.Change]struct{}
}

func NewRepository() *Repository {
	return &Repository{
		docs:      make(map[string]map[string]*entry),
		listeners: make(map[chan domain.Change]struct{}),
	}
}

var (
	_ ports.DocumentRepositoryPort = (*Repository)(nil)
	_ ports.ArrayFieldPort         = (*Repository)(nil)
	_ ports.ChangeFeedPort         = (*Repository)(nil)
)

func (r *Repository) List(ctx context.Context, f ports.ListFilter) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	entries := make([]*entry, 0, len(r.docs[f.Collection.Name]))
	for _, e := range r.docs[f.Collection.Name] {
		if f.Field != "" && !matches(e.doc, f) {
			continue
		}
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sortEntries(entries, f.Collection)

	out := make([]domain.Document, 0, len(entries))
	for _, e := range entries {
		out = append(out, clone(e.doc))
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.docs[collection][id]
	if !ok {
		return nil, ports.ErrDocumentNotFound
	}
	d := clone(e.doc)
	return &d, nil
}

// Insert stores the batch or, when any id is already taken, nothing.
func (r *Repository) Insert(ctx context.Context, docs ...*domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		key := d.Collection + "/" + d.ID
		if _, dup := batch[key]; dup {
			return fmt.Errorf("insert %s: duplicate id %s", d.Collection, d.ID)
		}
		if _, taken := r.docs[d.Collection][d.ID]; taken {
			return fmt.Errorf("insert %s: duplicate id %s", d.Collection, d.ID)
		}
		batch[key] = struct{}{}
	}

	for _, d := range docs {
		set, ok := r.docs[d.Collection]
		if !ok {
			set = make(map[string]*entry)
			r.docs[d.Collection] = set
		}
		r.seq++
		set[d.ID] = &entry{doc: clone(*d), seq: r.seq}
		r.emit(domain.Change{Collection: d.Collection, DocumentID: d.ID, Op: domain.OpInsert})
	}
	return nil
}

func (r *Repository) Merge(ctx context.Context, collection, id string, fields map[string]any, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.docs[collection][id]
	if !ok {
		return ports.ErrDocumentNotFound
	}
	next := clone(e.doc)
	for k, v := range fields {
		next.Fields[k] = v
	}
	next.UpdatedAt = updatedAt
	e.doc = next
	r.emit(domain.Change{Collection: collection, DocumentID: id, Op: domain.OpUpdate})
	return nil
}

func (r *Repository) ToggleBool(ctx context.Context, collection, id, field string, updatedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.docs[collection][id]
	if !ok {
		return false, ports.ErrDocumentNotFound
	}
	current := false
	if raw := e.doc.Fields[field]; raw != nil {
		b, ok := raw.(bool)
		if !ok {
			return false, ports.ErrNotBoolean
		}
		current = b
	}

	next := clone(e.doc)
	next.Fields[field] = !current
	next.UpdatedAt = updatedAt
	e.doc = next
	r.emit(domain.Change{Collection: collection, DocumentID: id, Op: domain.OpUpdate})
	return !current, nil
}

func (r *Repository) Delete(ctx context.Context, collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[collection][id]; !ok {
		return ports.ErrDocumentNotFound
	}
	delete(r.docs[collection], id)
	r.emit(domain.Change{Collection: collection, DocumentID: id, Op: domain.OpDelete})
	return nil
}

func (r *Repository) Count(ctx context.Context, collection string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.docs[collection])), nil
}

func (r *Repository) AppendToArray(ctx context.Context, collection, id, field string, value any, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.docs[collection][id]
	if !ok {
		return ports.ErrDocumentNotFound
	}
	next := clone(e.doc)
	existing, _ := next.Fields[field].([]any)
	arr := make([]any, 0, len(existing)+1)
	arr = append(arr, existing...)
	next.Fields[field] = append(arr, value)
	next.UpdatedAt = updatedAt
	e.doc = next
	r.emit(domain.Change{Collection: collection, DocumentID: id, Op: domain.OpUpdate})
	return nil
}

func (r *Repository) RemoveFromArray(ctx context.Context, collection, id, field, matchKey, matchValue string, updatedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.docs[collection][id]
	if !ok {
		return false, nil
	}
	existing, _ := e.doc.Fields[field].([]any)
	kept := make([]any, 0, len(existing))
	removed := false
	for _, el := range existing {
		if m, ok := el.(map[string]any); ok && m[matchKey] == matchValue {
			removed = true
			continue
		}
		kept = append(kept, el)
	}
	if !removed {
		return false, nil
	}
	next := clone(e.doc)
	next.Fields[field] = kept
	next.UpdatedAt = updatedAt
	e.doc = next
	r.emit(domain.Change{Collection: collection, DocumentID: id, Op: domain.OpUpdate})
	return true, nil
}

// Changes registers a feed listener. A listener that falls behind by more
// than feedBuffer changes gets a resync marker instead of the dropped ones.
func (r *Repository) Changes(ctx context.Context) (<-chan domain.Change, error) {
	ch := make(chan domain.Change, feedBuffer)

	r.mu.Lock()
	r.listeners[ch] = struct{}{}
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.listeners, ch)
		close(ch)
		r.mu.Unlock()
	}()

	return ch, nil
}

// emit must be called with r.mu held.
func (r *Repository) emit(c domain.Change) {
	for ch := range r.listeners {
		select {
		case ch <- c:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		ch <- domain.Change{}
	}
}

func matches(d domain.Document, f ports.ListFilter) bool {
	v, ok := d.Fields[f.Field]
	if !ok || v == nil {
		v, ok = f.Collection.Defaults[f.Field]
		if !ok {
			return false
		}
	}
	if a, ok := toFloat(v); ok {
		if b, ok := toFloat(f.Value); ok {
			return a == b
		}
	}
	return reflect.DeepEqual(v, f.Value)
}

func sortEntries(entries []*entry, col domain.Collection) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if col.OrderBy != "" {
			av, aok := a.doc.Fields[col.OrderBy]
			bv, bok := b.doc.Fields[col.OrderBy]
			aok = aok && av != nil
			bok = bok && bv != nil
			switch {
			case aok && !bok:
				return true
			case !aok && bok:
				return false
			case aok && bok:
				if c := compare(av, bv); c != 0 {
					if col.OrderDesc {
						return c > 0
					}
					return c < 0
				}
			}
		}
		if !a.doc.CreatedAt.Equal(b.doc.CreatedAt) {
			return a.doc.CreatedAt.Before(b.doc.CreatedAt)
		}
		return a.seq < b.seq
	})
}

// compare orders values the way jsonb does: by type first
// (string < number < boolean < array < object), then numbers numerically,
// strings bytewise, false before true. Postgres compares strings with the
// database collation, so non-ASCII text may sort differently there.
// Arrays and objects of the same type compare equal.
func compare(a, b any) int {
	if ra, rb := jsonRank(a), jsonRank(b); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	if x, ok := a.(bool); ok {
		if y, ok := b.(bool); ok && x != y {
			if !x {
				return -1
			}
			return 1
		}
	}
	return 0
}

func jsonRank(v any) int {
	if _, ok := toFloat(v); ok {
		return 2
	}
	switch v.(type) {
	case string:
		return 1
	case bool:
		return 3
	case []any:
		return 4
	case map[string]any:
		return 5
	}
	return 6
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func clone(d domain.Document) domain.Document {
	fields := make(map[string]any, len(d.Fields))
	for k, v := range d.Fields {
		fields[k] = v
	}
	d.Fields = fields
	return d
}
