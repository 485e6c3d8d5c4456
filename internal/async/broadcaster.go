package async

import (
	"log/slog"
	"sync"
	"time"
)

// Hub is the outbound side of the broadcaster: anything that can push a
// snapshot to bound UI clients.
type Hub interface {
	BroadcastUpdate(event string, payload any)
}

// Snapshot event names
const (
	EventOperationSnapshot = "operation:snapshot"
)

// OperationSnapshot is the complete state of one operation at a point in
// time. It is the only structure sent to UI clients.
type OperationSnapshot struct {
	OperationID string         `json:"operation_id"`
	Name        string         `json:"name"`
	Status      string         `json:"status"` // pending|running|completed|failed|cancelled
	Progress    float64        `json:"progress"`
	Message     string         `json:"message,omitempty"`
	Steps       []ProgressStep `json:"steps,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
}

type updateRequest struct {
	operationID string
	apply       func(*OperationSnapshot)
	done        chan struct{}
}

// Broadcaster is the single authority for operation status updates. All
// mutations are funneled through one goroutine, so snapshots never
// interleave, and every change broadcasts the full snapshot to the hub.
type Broadcaster struct {
	mu         sync.RWMutex
	operations map[string]*OperationSnapshot
	hub        Hub
	logger     *slog.Logger
	updates    chan updateRequest
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewBroadcaster creates a broadcaster and starts its update loop
func NewBroadcaster(hub Hub, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broadcaster{
		operations: make(map[string]*OperationSnapshot),
		hub:        hub,
		logger:     logger,
		updates:    make(chan updateRequest, 100),
		stop:       make(chan struct{}),
	}
	go b.processUpdates()
	return b
}

func (b *Broadcaster) processUpdates() {
	for {
		select {
		case <-b.stop:
			return
		case req := <-b.updates:
			b.handleUpdate(req)
		}
	}
}

func (b *Broadcaster) handleUpdate(req updateRequest) {
	defer close(req.done)

	b.mu.Lock()
	snapshot, exists := b.operations[req.operationID]
	if !exists {
		snapshot = &OperationSnapshot{
			OperationID: req.operationID,
			Status:      "pending",
			StartedAt:   time.Now(),
		}
		b.operations[req.operationID] = snapshot
	}
	req.apply(snapshot)
	snapshot.UpdatedAt = time.Now()

	if terminal(snapshot.Status) && snapshot.CompletedAt == nil {
		now := time.Now()
		snapshot.CompletedAt = &now
	}
	out := *snapshot
	out.Steps = cloneSteps(snapshot.Steps)
	b.mu.Unlock()

	if b.hub == nil {
		return
	}
	b.logger.Debug("broadcasting_snapshot",
		slog.String("operation_id", out.OperationID),
		slog.String("status", out.Status),
		slog.Float64("progress", out.Progress))
	b.hub.BroadcastUpdate(EventOperationSnapshot, &out)
}

func terminal(status string) bool {
	return status == "completed" || status == "failed" || status == "cancelled"
}

// cloneSteps copies a step slice so snapshot copies never share a
// backing array with the live snapshot the update loop mutates.
func cloneSteps(steps []ProgressStep) []ProgressStep {
	if steps == nil {
		return nil
	}
	return append([]ProgressStep(nil), steps...)
}

// update queues a mutation and waits for it to be applied
func (b *Broadcaster) update(operationID string, apply func(*OperationSnapshot)) {
	req := updateRequest{operationID: operationID, apply: apply, done: make(chan struct{})}
	select {
	case b.updates <- req:
		<-req.done
	case <-b.stop:
	}
}

// Created initializes a snapshot for a new operation
func (b *Broadcaster) Created(operationID, name string, steps []ProgressStep) {
	b.update(operationID, func(s *OperationSnapshot) {
		s.Name = name
		s.Status = "pending"
		s.Progress = 0
		s.Steps = cloneSteps(steps)
		s.Message = "operation created"
	})
}

// Started marks an operation as running
func (b *Broadcaster) Started(operationID string) {
	b.update(operationID, func(s *OperationSnapshot) {
		s.Status = "running"
		s.Message = "operation started"
	})
}

// Progress records a percentage/message update
func (b *Broadcaster) Progress(operationID string, percent float64, message string) {
	b.update(operationID, func(s *OperationSnapshot) {
		if percent > s.Progress {
			s.Progress = percent
		}
		if message != "" {
			s.Message = message
		}
	})
}

// StepsUpdated replaces the step sequence of an operation
func (b *Broadcaster) StepsUpdated(operationID string, steps []ProgressStep) {
	b.update(operationID, func(s *OperationSnapshot) {
		s.Steps = cloneSteps(steps)
	})
}

// Completed marks an operation as completed
func (b *Broadcaster) Completed(operationID, message string) {
	b.update(operationID, func(s *OperationSnapshot) {
		s.Status = "completed"
		s.Progress = 100
		s.Message = message
		for i := range s.Steps {
			s.Steps[i].IsCompleted = true
			s.Steps[i].IsInProgress = false
		}
	})
}

// Failed marks an operation as failed
func (b *Broadcaster) Failed(operationID string, err error) {
	b.update(operationID, func(s *OperationSnapshot) {
		s.Status = "failed"
		if err != nil {
			s.Error = err.Error()
		}
	})
}

// Cancelled marks an operation as cancelled
func (b *Broadcaster) Cancelled(operationID string) {
	b.update(operationID, func(s *OperationSnapshot) {
		s.Status = "cancelled"
		s.Message = "operation cancelled"
	})
}

// GetSnapshot returns a copy of one operation's snapshot
func (b *Broadcaster) GetSnapshot(operationID string) (*OperationSnapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snapshot, exists := b.operations[operationID]
	if !exists {
		return nil, false
	}
	out := *snapshot
	out.Steps = cloneSteps(snapshot.Steps)
	return &out, true
}

// Snapshots returns copies of all known operation snapshots
func (b *Broadcaster) Snapshots() []*OperationSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*OperationSnapshot, 0, len(b.operations))
	for _, snapshot := range b.operations {
		c := *snapshot
		c.Steps = cloneSteps(snapshot.Steps)
		out = append(out, &c)
	}
	return out
}

// Cleanup removes terminal operations older than maxAge
func (b *Broadcaster) Cleanup(maxAge time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	for id, snapshot := range b.operations {
		if terminal(snapshot.Status) && snapshot.CompletedAt != nil && now.Sub(*snapshot.CompletedAt) > maxAge {
			delete(b.operations, id)
		}
	}
}

// Stop shuts down the update loop
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
}
