package repository

import (
	"context"
	"sync"

	"talecraft_client/internal/domain"
)

// MemoryPreferenceStore - настройки в памяти, когда Redis недоступен.
// Переживают только текущий запуск.
type MemoryPreferenceStore struct {
	mu    sync.Mutex
	prefs domain.Preferences
}

func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: domain.DefaultPreferences()}
}

func (m *MemoryPreferenceStore) Get(ctx context.Context) (domain.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs, nil
}

func (m *MemoryPreferenceStore) Save(ctx context.Context, p domain.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = p
	return nil
}
