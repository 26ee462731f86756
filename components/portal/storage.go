package portal

import (
	"context"
	"fmt"
	"sync"
)

// Storage keys owned by the portal inside a client namespace.
const (
	StorageKeyAdminAuthenticated = "adminAuthenticated"
	StorageKeyUserAuthenticated  = "userAuthenticated"
	StorageKeyRole               = "role"
	StorageKeyProfile            = "user"
	StorageKeyQuoteDraft         = "quoteDraft"
)

// Storage is a durable string key/value namespace belonging to one client.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// StorageProvider hands out the storage namespace for a client id.
type StorageProvider interface {
	ForClient(clientID string) Storage
}

// InMemoryStorage keeps client namespaces in process memory.
type InMemoryStorage struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewInMemoryStorage creates an empty provider.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{data: make(map[string]map[string]string)}
}

// ForClient returns the namespace for clientID.
func (s *InMemoryStorage) ForClient(clientID string) Storage {
	return clientStorage{store: s, client: clientID}
}

type clientStorage struct {
	store  *InMemoryStorage
	client string
}

func (c clientStorage) Get(_ context.Context, key string) (string, bool, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	value, ok := c.store.data[c.client][key]
	return value, ok, nil
}

func (c clientStorage) Set(_ context.Context, key, value string) error {
	if c.client == "" {
		return fmt.Errorf("portal: storage requires client id")
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	ns, ok := c.store.data[c.client]
	if !ok {
		ns = make(map[string]string)
		c.store.data[c.client] = ns
	}
	ns[key] = value
	return nil
}

func (c clientStorage) Delete(_ context.Context, key string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if ns, ok := c.store.data[c.client]; ok {
		delete(ns, key)
		if len(ns) == 0 {
			delete(c.store.data, c.client)
		}
	}
	return nil
}
