package state

import (
	"context"
	"fmt"
	"sync"

	gametypes "github.com/cbodonnell/vibemod/pkg/game/types"
)

type InMemoryStateManager struct {
	lock sync.RWMutex
	view *gametypes.View
}

func NewInMemoryStateManager() *InMemoryStateManager {
	return &InMemoryStateManager{
		view: &gametypes.View{
			Scores: make(map[string]int),
		},
	}
}

func (m *InMemoryStateManager) Get(ctx context.Context) (*gametypes.View, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.view.Copy(), nil
}

func (m *InMemoryStateManager) Set(ctx context.Context, view *gametypes.View) error {
	if view == nil {
		return fmt.Errorf("view is nil")
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	m.view = view.Copy()
	return nil
}
