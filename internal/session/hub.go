package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/0xYujan/Online-Code-IDE/internal/metrics"
	"github.com/0xYujan/Online-Code-IDE/internal/models"
)

// DefaultGracePeriod is how long an emptied room stays in the registry so a
// fast reconnect finds its in-memory state intact.
const DefaultGracePeriod = 30 * time.Second

// Hub is the owning registry of all active rooms. Rooms are created lazily
// on first join and reaped once empty past the grace period. All registry
// mutation is serialized under one mutex; per-room state has its own lock.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	timers map[string]*time.Timer
	grace  time.Duration
	log    *zap.Logger
}

func NewHub(grace time.Duration, log *zap.Logger) *Hub {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]*Room),
		timers: make(map[string]*time.Timer),
		grace:  grace,
		log:    log,
	}
}

// GetOrCreate returns the existing room or creates one seeded by calling
// seed. The existence check, grace-timer cancellation and creation are one
// registry decision: a join during the grace period always finds the
// in-memory room, never a freshly reseeded one. The seed callback runs only
// when the room is actually being created, outside the registry lock since
// it may do I/O; the registry is re-checked afterwards in case a concurrent
// join created the room first.
func (h *Hub) GetOrCreate(id string, seed func() *models.Documents) *Room {
	h.mu.Lock()
	if r, ok := h.claimLocked(id); ok {
		h.mu.Unlock()
		return r
	}
	h.mu.Unlock()

	var docs *models.Documents
	if seed != nil {
		docs = seed()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.claimLocked(id); ok {
		return r
	}
	r := NewRoom(id, docs)
	h.rooms[id] = r
	metrics.ActiveRooms.Set(float64(len(h.rooms)))
	h.log.Info("room created", zap.String("room", id), zap.Bool("seeded", docs != nil))
	return r
}

// claimLocked cancels any pending reap for the id and returns the live
// room, if one exists. Caller holds the registry mutex.
func (h *Hub) claimLocked(id string) (*Room, bool) {
	if t, ok := h.timers[id]; ok {
		t.Stop()
		delete(h.timers, id)
	}
	r, ok := h.rooms[id]
	return r, ok
}

func (h *Hub) Get(id string) (*Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	return r, ok
}

func (h *Hub) Exists(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.rooms[id]
	return ok
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Release schedules reclamation of an emptied room after the grace period.
func (h *Hub) Release(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[id]; !ok {
		return
	}
	if t, ok := h.timers[id]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(h.grace, func() {
		h.reap(id, timer)
	})
	h.timers[id] = timer
}

func (h *Hub) reap(id string, timer *time.Timer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// A rejoin swaps or removes the timer; only the current one may reap.
	current, ok := h.timers[id]
	if !ok || current != timer {
		return
	}
	delete(h.timers, id)
	room, ok := h.rooms[id]
	if !ok || room.ParticipantCount() > 0 {
		return
	}
	delete(h.rooms, id)
	metrics.ActiveRooms.Set(float64(len(h.rooms)))
	h.log.Info("room reclaimed", zap.String("room", id))
}
