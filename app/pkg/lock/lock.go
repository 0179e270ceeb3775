// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package lock generalizes the Redis SET-NX/EXPIRE locking primitive from
// the teacher's schedule package into a standalone mutual-exclusion helper,
// used to serialize the admission critical section per node (§5: "Admission
// ... is serialised: the coordinator MUST behave as if admissions on the
// same node form a total order. A simple sufficient implementation is a
// per-node mutex"). When Redis is not configured, an in-process registry of
// sync.Mutex stands in — sufficient for a single coordinator replica, which
// is the deployment this fallback is meant for.
package lock

import (
	"sync"

	"github.com/sk-pkg/redis"
	"github.com/sk-pkg/util"
)

// Manager acquires and releases named locks, backed by Redis when available.
type Manager struct {
	redis   *redis.Manager
	local   map[string]*sync.Mutex
	localMu sync.Mutex
}

// New creates a lock Manager. redisClient may be nil, in which case all
// locking degrades to a local in-process mutex registry.
func New(redisClient *redis.Manager) *Manager {
	return &Manager{redis: redisClient, local: make(map[string]*sync.Mutex)}
}

// Acquire attempts to take the named lock for ttlSeconds. It returns true on
// success. Callers MUST call Release with the same name once done.
func (m *Manager) Acquire(name string, ttlSeconds int) bool {
	if m.redis == nil {
		return m.acquireLocal(name)
	}

	key := util.SpliceStr("leoscope:lock:", name)
	ok, err := m.redis.Do("SET", key, "locked", "EX", ttlSeconds, "NX")
	return ok != nil && err == nil
}

// Release frees the named lock.
func (m *Manager) Release(name string) {
	if m.redis == nil {
		m.releaseLocal(name)
		return
	}

	key := util.SpliceStr("leoscope:lock:", name)
	_, _ = m.redis.Del(key)
}

func (m *Manager) acquireLocal(name string) bool {
	m.localMu.Lock()
	mu, ok := m.local[name]
	if !ok {
		mu = &sync.Mutex{}
		m.local[name] = mu
	}
	m.localMu.Unlock()

	return mu.TryLock()
}

func (m *Manager) releaseLocal(name string) {
	m.localMu.Lock()
	mu, ok := m.local[name]
	m.localMu.Unlock()
	if ok {
		mu.Unlock()
	}
}
