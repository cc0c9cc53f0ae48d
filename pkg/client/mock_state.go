package client

import (
	"sync"
)

// MockState is an in-memory test implementation of StateInterface
type MockState struct {
	mu sync.RWMutex

	config map[string]string

	// Error injection
	getConfigErr error
	setConfigErr error
}

// NewMockState creates a new mock state
func NewMockState() *MockState {
	return &MockState{
		config: make(map[string]string),
	}
}

// GetConfig retrieves a configuration value
func (s *MockState) GetConfig(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.getConfigErr != nil {
		return "", s.getConfigErr
	}

	return s.config[key], nil
}

// SetConfig stores a configuration value
func (s *MockState) SetConfig(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.setConfigErr != nil {
		return s.setConfigErr
	}

	s.config[key] = value
	return nil
}

// Username returns the stored identity
func (s *MockState) Username() string {
	name, _ := s.GetConfig(configKeyUsername)
	return name
}

// SetUsername stores the identity
func (s *MockState) SetUsername(name string) error {
	return s.SetConfig(configKeyUsername, name)
}

// ActiveRoom returns the stored room selection
func (s *MockState) ActiveRoom() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.config[configKeyRoom]
	return room, ok
}

// SetActiveRoom stores the room selection
func (s *MockState) SetActiveRoom(room string) error {
	return s.SetConfig(configKeyRoom, room)
}

// ClearActiveRoom removes the room selection
func (s *MockState) ClearActiveRoom() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.config, configKeyRoom)
	return nil
}

// Close does nothing for the mock
func (s *MockState) Close() error {
	return nil
}

// SetGetConfigError injects an error into GetConfig
func (s *MockState) SetGetConfigError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getConfigErr = err
}

// SetSetConfigError injects an error into SetConfig
func (s *MockState) SetSetConfigError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setConfigErr = err
}
