package async

import "sync"

// OperationState is the UI-bound loading state owned by one executor.
// It is mutated only during Execute and always returns to
// {IsLoading: false, StatusMessage: ""} when an operation ends, by any
// path.
type OperationState struct {
	mu            sync.RWMutex
	isLoading     bool
	statusMessage string
	listeners     []func(isLoading bool, statusMessage string)
}

// IsLoading reports whether an operation is in flight
func (s *OperationState) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLoading
}

// StatusMessage returns the current status text
func (s *OperationState) StatusMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusMessage
}

// OnChange registers a listener invoked after every state transition
func (s *OperationState) OnChange(fn func(isLoading bool, statusMessage string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *OperationState) set(isLoading bool, statusMessage string) {
	s.mu.Lock()
	if s.isLoading == isLoading && s.statusMessage == statusMessage {
		s.mu.Unlock()
		return
	}
	s.isLoading = isLoading
	s.statusMessage = statusMessage
	listeners := s.listeners
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(isLoading, statusMessage)
	}
}
