package storage

import (
	"context"
	"sort"
	"sync"

	"coil-vision/internal/domain/entity"
	"coil-vision/internal/domain/port"
)

// MemoryLineStateRepository in-memory хранилище состояний линий
type MemoryLineStateRepository struct {
	mu     sync.RWMutex
	states map[string]entity.LineState
}

// NewMemoryLineStateRepository создаёт новое in-memory хранилище
func NewMemoryLineStateRepository() *MemoryLineStateRepository {
	return &MemoryLineStateRepository{
		states: make(map[string]entity.LineState),
	}
}

// Get возвращает копию состояния линии, создаёт новое если не найдено
func (r *MemoryLineStateRepository) Get(ctx context.Context, lineID string) (*entity.LineState, error) {
	r.mu.RLock()
	state, exists := r.states[lineID]
	r.mu.RUnlock()

	if exists {
		return &state, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// линию могли создать, пока блокировка была отпущена
	state = r.loadLocked(lineID)
	return &state, nil
}

// Update меняет состояние линии под блокировкой хранилища
func (r *MemoryLineStateRepository) Update(ctx context.Context, lineID string, fn func(state *entity.LineState) error) (*entity.LineState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.loadLocked(lineID)
	if err := fn(&state); err != nil {
		return nil, err
	}
	state.LineID = lineID
	r.states[lineID] = state

	out := state
	return &out, nil
}

func (r *MemoryLineStateRepository) loadLocked(lineID string) entity.LineState {
	if state, ok := r.states[lineID]; ok {
		return state
	}
	state := *entity.NewLineState(lineID)
	r.states[lineID] = state
	return state
}

// List возвращает состояния всех линий по возрастанию ID
func (r *MemoryLineStateRepository) List(ctx context.Context) ([]entity.LineState, error) {
	r.mu.RLock()
	out := make([]entity.LineState, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].LineID < out[j].LineID })
	return out, nil
}

// Проверка реализации интерфейса
var _ port.LineStateRepository = (*MemoryLineStateRepository)(nil)
