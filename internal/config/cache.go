/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// configCache provides in-memory caching for the operator configuration
type configCache struct {
	mu       sync.RWMutex
	config   *OperatorConfig
	cachedAt time.Time
	ttl      time.Duration
	clock    clock.PassiveClock
}

// newConfigCache creates a new configuration cache with the specified TTL
func newConfigCache(ttl time.Duration, c clock.PassiveClock) *configCache {
	if c == nil {
		c = clock.RealClock{}
	}
	return &configCache{
		ttl:   ttl,
		clock: c,
	}
}

// get retrieves the cached configuration if it's still valid
func (c *configCache) get() *OperatorConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.config == nil {
		return nil
	}

	if c.clock.Since(c.cachedAt) > c.ttl {
		return nil
	}

	return c.config.DeepCopy()
}

// set stores a configuration in the cache
func (c *configCache) set(config *OperatorConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.config = config.DeepCopy()
	c.cachedAt = c.clock.Now()
}

// invalidate removes the cached configuration
func (c *configCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.config = nil
	c.cachedAt = time.Time{}
}

// isValid checks if the cache is valid (not expired)
func (c *configCache) isValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.config == nil {
		return false
	}

	return c.clock.Since(c.cachedAt) <= c.ttl
}
