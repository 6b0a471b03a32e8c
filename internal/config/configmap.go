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
	"context"
	"fmt"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/cache"
)

// ConfigMapLoader implements ConfigLoader for Kubernetes ConfigMap-based configuration
type ConfigMapLoader struct {
	client     kubernetes.Interface
	options    LoaderOptions
	cache      *configCache
	validator  *Validator
	watchMutex sync.RWMutex
	watchers   map[int]chan ConfigEvent
	nextID     int
	stopCh     chan struct{}
	informer   cache.SharedInformer
}

// NewConfigMapLoader creates a new ConfigMapLoader with the given Kubernetes client and options
func NewConfigMapLoader(client kubernetes.Interface, options LoaderOptions) *ConfigMapLoader {
	defaults := DefaultLoaderOptions()
	if options.Namespace == "" {
		options.Namespace = defaults.Namespace
	}
	if options.ConfigMapName == "" {
		options.ConfigMapName = defaults.ConfigMapName
	}
	if options.ConfigMapKey == "" {
		options.ConfigMapKey = defaults.ConfigMapKey
	}

	loader := &ConfigMapLoader{
		client:    client,
		options:   options,
		validator: NewValidator(),
		watchers:  make(map[int]chan ConfigEvent),
		stopCh:    make(chan struct{}),
	}

	if options.EnableCache {
		ttl, err := time.ParseDuration(options.CacheTTL)
		if err != nil {
			ttl = 5 * time.Minute
		}
		loader.cache = newConfigCache(ttl, nil)
	}

	return loader
}

// Load loads the operator configuration from the ConfigMap
func (l *ConfigMapLoader) Load(ctx context.Context) (*OperatorConfig, error) {
	if l.cache != nil {
		if config := l.cache.get(); config != nil {
			return config, nil
		}
	}

	configMap, err := l.client.CoreV1().ConfigMaps(l.options.Namespace).Get(
		ctx,
		l.options.ConfigMapName,
		metav1.GetOptions{},
	)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("%w: ConfigMap %s/%s not found", ErrConfigNotFound, l.options.Namespace, l.options.ConfigMapName)
		}
		return nil, fmt.Errorf("failed to get ConfigMap %s/%s: %w", l.options.Namespace, l.options.ConfigMapName, err)
	}

	yamlContent, exists := configMap.Data[l.options.ConfigMapKey]
	if !exists {
		return nil, fmt.Errorf("%w: key %s not found in ConfigMap %s/%s", ErrConfigMalformed, l.options.ConfigMapKey, l.options.Namespace, l.options.ConfigMapName)
	}

	config, err := Parse([]byte(yamlContent), l.validator)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		l.cache.set(config)
	}

	return config, nil
}

// Watch returns a channel that receives configuration updates
func (l *ConfigMapLoader) Watch(ctx context.Context) (<-chan ConfigEvent, error) {
	eventCh := make(chan ConfigEvent, 10)

	l.watchMutex.Lock()
	watcherID := l.nextID
	l.nextID++
	l.watchers[watcherID] = eventCh

	// Start the informer if it's not already running
	if l.informer == nil {
		if err := l.startInformer(); err != nil {
			delete(l.watchers, watcherID)
			l.watchMutex.Unlock()
			close(eventCh)
			return nil, fmt.Errorf("failed to start configuration watcher: %w", err)
		}
	}
	l.watchMutex.Unlock()

	go func() {
		<-ctx.Done()
		l.watchMutex.Lock()
		defer l.watchMutex.Unlock()
		if ch, ok := l.watchers[watcherID]; ok {
			delete(l.watchers, watcherID)
			close(ch)
		}
	}()

	return eventCh, nil
}

// Close releases resources held by the loader
func (l *ConfigMapLoader) Close() error {
	l.watchMutex.Lock()
	defer l.watchMutex.Unlock()

	for id, ch := range l.watchers {
		close(ch)
		delete(l.watchers, id)
	}

	if l.stopCh != nil {
		close(l.stopCh)
		l.stopCh = make(chan struct{})
	}
	l.informer = nil

	return nil
}

// startInformer starts the Kubernetes informer for watching ConfigMap changes
func (l *ConfigMapLoader) startInformer() error {
	selector := fields.OneTermEqualSelector("metadata.name", l.options.ConfigMapName).String()
	listWatcher := &cache.ListWatch{
		ListFunc: func(options metav1.ListOptions) (runtime.Object, error) {
			options.FieldSelector = selector
			return l.client.CoreV1().ConfigMaps(l.options.Namespace).List(context.Background(), options)
		},
		WatchFunc: func(options metav1.ListOptions) (watch.Interface, error) {
			options.FieldSelector = selector
			return l.client.CoreV1().ConfigMaps(l.options.Namespace).Watch(context.Background(), options)
		},
	}

	informer := cache.NewSharedInformer(listWatcher, &corev1.ConfigMap{}, time.Minute)

	_, err := informer.AddEventHandler(cache.ResourceEventHandlerFuncs{
		AddFunc: func(obj interface{}) {
			l.handleConfigMapEvent(ConfigEventAdded, obj)
		},
		UpdateFunc: func(oldObj, newObj interface{}) {
			l.handleConfigMapEvent(ConfigEventModified, newObj)
		},
		DeleteFunc: func(obj interface{}) {
			if tombstone, ok := obj.(cache.DeletedFinalStateUnknown); ok {
				obj = tombstone.Obj
			}
			l.handleConfigMapEvent(ConfigEventDeleted, obj)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to add event handler: %w", err)
	}

	l.informer = informer
	go informer.Run(l.stopCh)

	if !cache.WaitForCacheSync(l.stopCh, informer.HasSynced) {
		return fmt.Errorf("timed out waiting for cache sync")
	}

	return nil
}

// handleConfigMapEvent processes ConfigMap events and notifies watchers
func (l *ConfigMapLoader) handleConfigMapEvent(eventType ConfigEventType, obj interface{}) {
	configMap, ok := obj.(*corev1.ConfigMap)
	if !ok {
		l.broadcastEvent(ConfigEvent{
			Type:  ConfigEventError,
			Error: fmt.Errorf("unexpected object type: %T", obj),
		})
		return
	}

	if eventType == ConfigEventDeleted {
		if l.cache != nil {
			l.cache.invalidate()
		}
		l.broadcastEvent(ConfigEvent{Type: eventType, Config: DefaultOperatorConfig()})
		return
	}

	yamlContent, exists := configMap.Data[l.options.ConfigMapKey]
	if !exists {
		l.broadcastEvent(ConfigEvent{
			Type:  ConfigEventError,
			Error: fmt.Errorf("%w: key %s not found in ConfigMap", ErrConfigMalformed, l.options.ConfigMapKey),
		})
		return
	}

	config, err := Parse([]byte(yamlContent), l.validator)
	if err != nil {
		l.broadcastEvent(ConfigEvent{Type: ConfigEventError, Error: err})
		return
	}

	if l.cache != nil {
		l.cache.set(config)
	}

	l.broadcastEvent(ConfigEvent{
		Type:   eventType,
		Config: config,
	})
}

// broadcastEvent sends an event to all active watchers
func (l *ConfigMapLoader) broadcastEvent(event ConfigEvent) {
	l.watchMutex.RLock()
	defer l.watchMutex.RUnlock()

	for _, ch := range l.watchers {
		select {
		case ch <- event:
		default:
			// Channel is full, skip this watcher
		}
	}
}
