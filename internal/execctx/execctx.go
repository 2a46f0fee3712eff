// Package execctx carries the per-request execution snapshot: every
// object the fetch planner retrieved, keyed by resource and identifier,
// plus the ordered record of top-level requests. Resolvers only ever read
// from it; the snapshot is immutable once built and safe to share across
// concurrently executing fields.
package execctx

import "context"

// TopLevelRequest records one root-level fetch: which resource it
// targeted, the selection name (alias wins over field name) it was issued
// for, and the requested identifiers in request order.
type TopLevelRequest struct {
	Resource string
	Field    string
	IDs      []string
}

// Reader is the read-only view resolvers receive.
type Reader interface {
	// Objects returns the fetched objects for a resource, keyed by
	// identifier. A nil map means the resource was never fetched.
	Objects(resource string) map[string]map[string]interface{}

	// TopLevelRequests returns the root request records in issue order.
	TopLevelRequests() []TopLevelRequest
}

// Snapshot is the immutable Reader implementation produced by Builder.
type Snapshot struct {
	objects  map[string]map[string]map[string]interface{}
	requests []TopLevelRequest
}

// Objects implements Reader.
func (s *Snapshot) Objects(resource string) map[string]map[string]interface{} {
	if s == nil {
		return nil
	}
	return s.objects[resource]
}

// ObjectCount reports how many objects the snapshot holds across all
// resources.
func (s *Snapshot) ObjectCount() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, byID := range s.objects {
		total += len(byID)
	}
	return total
}

// TopLevelRequests implements Reader.
func (s *Snapshot) TopLevelRequests() []TopLevelRequest {
	if s == nil {
		return nil
	}
	return s.requests
}

// Builder accumulates fetch results before execution starts. Not safe for
// concurrent use; the fetch planner owns it single-threaded and seals it
// with Build.
type Builder struct {
	objects  map[string]map[string]map[string]interface{}
	requests []TopLevelRequest
}

// NewBuilder creates an empty snapshot builder.
func NewBuilder() *Builder {
	return &Builder{objects: make(map[string]map[string]map[string]interface{})}
}

// PutObject stores one fetched object under resource/id, replacing any
// earlier fetch of the same identifier.
func (b *Builder) PutObject(resource, id string, object map[string]interface{}) {
	byID, ok := b.objects[resource]
	if !ok {
		byID = make(map[string]map[string]interface{})
		b.objects[resource] = byID
	}
	byID[id] = object
}

// Object returns a previously stored object, if any. The planner uses it
// to materialize reverse-relation results onto parent objects.
func (b *Builder) Object(resource, id string) (map[string]interface{}, bool) {
	obj, ok := b.objects[resource][id]
	return obj, ok
}

// RecordTopLevel appends one root request record, preserving issue order.
func (b *Builder) RecordTopLevel(req TopLevelRequest) {
	b.requests = append(b.requests, req)
}

// Build seals the builder into an immutable snapshot. The builder must
// not be used afterwards.
func (b *Builder) Build() *Snapshot {
	return &Snapshot{objects: b.objects, requests: b.requests}
}

type snapshotContextKey struct{}

// WithSnapshot stores the execution snapshot in context.
func WithSnapshot(ctx context.Context, snap *Snapshot) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, snapshotContextKey{}, snap)
}

// FromContext retrieves the execution snapshot, or nil when the request
// carries none (resolution then yields empty pages).
func FromContext(ctx context.Context) Reader {
	if ctx == nil {
		return nil
	}
	snap, _ := ctx.Value(snapshotContextKey{}).(*Snapshot)
	if snap == nil {
		return nil
	}
	return snap
}
