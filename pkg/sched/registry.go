package sched

import (
	"github.com/dolthub/maphash"

	"github.com/latticeforge/corekit/internal/xsync"
)

// registryShards shards the name registry to keep lookups off a single
// lock; WorkgroupByName is a diagnostics/test path, not a hot one, so a
// small fixed shard count is plenty.
const registryShards = 16

// nameRegistry maps workgroup names to GroupID, sharded by hash the same
// way a swiss-table bucket would be chosen: hash the key once, route to a
// shard, and only then touch a lock.
type nameRegistry struct {
	hash   maphash.Hasher[string]
	shards [registryShards]registryShard
}

type registryShard struct {
	mu xsync.Spinlock
	m  map[string]GroupID
}

func newNameRegistry() *nameRegistry {
	r := &nameRegistry{hash: maphash.NewHasher[string]()}
	for i := range r.shards {
		r.shards[i].m = make(map[string]GroupID)
	}
	return r
}

func (r *nameRegistry) shardFor(name string) *registryShard {
	i := r.hash.Hash(name) & (registryShards - 1)
	return &r.shards[i]
}

func (r *nameRegistry) register(name string, id GroupID) {
	s := r.shardFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[name] = id
}

func (r *nameRegistry) lookup(name string) (GroupID, bool) {
	s := r.shardFor(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.m[name]
	return id, ok
}
