package session

import (
	"sync"
	"time"

	"github.com/0xYujan/Online-Code-IDE/internal/models"
)

// Room holds the authoritative document triplet, per-surface revision
// counters and the connected participants for one project session. Every
// mutation and the notifications it produces happen under one mutex
// acquisition, so operations for the same room never interleave and every
// participant observes the same gap-free revision sequence per surface, in
// the same order the revisions were assigned.
type Room struct {
	ID string

	mu           sync.Mutex
	documents    models.Documents
	revisions    models.Revisions
	participants map[*Client]models.Participant
}

func NewRoom(id string, seed *models.Documents) *Room {
	r := &Room{
		ID:           id,
		participants: make(map[*Client]models.Participant),
	}
	if seed != nil {
		r.documents = *seed
	}
	return r
}

// JoinAndNotify adds the client, delivers its join reply and tells everyone
// else, all in one critical section: the snapshot in the reply and the
// roster the others see cannot drift apart, and no operation broadcast can
// slip in front of the reply. The reply carries the full document state so
// the joiner never needs a separate sync round trip.
func (r *Room) JoinAndNotify(c *Client, userID, displayName string, now time.Time) (models.JoinAck, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[c] = models.Participant{
		ConnectionID: c.ID,
		UserID:       userID,
		DisplayName:  displayName,
		JoinedAt:     now,
	}
	roster := rosterLocked(r.participants)
	ack := models.JoinAck{
		RoomID:    r.ID,
		Documents: r.documents,
		Revisions: r.revisions,
		Roster:    roster,
	}
	dropped := 0
	if err := c.Send(models.Frame{Type: models.TypeJoinAck, Data: ack}); err != nil {
		dropped++
	}
	dropped += r.notifyLocked(c, models.Frame{
		Type: models.TypeRosterUpdate,
		Data: models.RosterUpdate{
			Roster:        roster,
			ChangedUserID: userID,
			Kind:          models.RosterKindJoined,
		},
	})
	return ack, dropped
}

// ApplyAndBroadcast replaces the surface's content, bumps its revision and
// delivers the broadcast to every other participant while still holding the
// room mutex, so receivers see broadcasts in exactly revision order. Last
// write wins per surface: no text merge, no baseRevision rejection. Other
// surfaces are untouched.
func (r *Room) ApplyAndBroadcast(op models.Operation, origin *Client) (models.OperationBroadcast, int, error) {
	if !op.Surface.Valid() || op.Content == nil {
		return models.OperationBroadcast{}, 0, ErrValidation
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents.Set(op.Surface, *op.Content)
	bcast := models.OperationBroadcast{
		Surface:            op.Surface,
		Content:            *op.Content,
		Revision:           r.revisions.Bump(op.Surface),
		OriginConnectionID: origin.ID,
	}
	dropped := r.notifyLocked(origin, models.Frame{Type: models.TypeOperationBroadcast, Data: bcast})
	return bcast, dropped, nil
}

// LeaveAndNotify removes the client and tells the remaining participants in
// the same critical section. An emptied room sends nothing; nobody remains
// to observe it.
func (r *Room) LeaveAndNotify(c *Client, userID string) (remaining, dropped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[c]; !ok {
		return len(r.participants), 0
	}
	delete(r.participants, c)
	remaining = len(r.participants)
	if remaining == 0 {
		return 0, 0
	}
	dropped = r.notifyLocked(c, models.Frame{
		Type: models.TypeRosterUpdate,
		Data: models.RosterUpdate{
			Roster:        rosterLocked(r.participants),
			ChangedUserID: userID,
			Kind:          models.RosterKindLeft,
		},
	})
	return remaining, dropped
}

func (r *Room) Snapshot() (models.Documents, models.Revisions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.documents, r.revisions
}

func (r *Room) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

func (r *Room) Roster() []models.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rosterLocked(r.participants)
}

// notifyLocked sends the frame to every participant except the origin.
// Delivery is best effort: a closed destination is skipped, never retried,
// and never surfaced to the origin. Returns the number of failed
// deliveries. Caller holds the room mutex.
func (r *Room) notifyLocked(origin *Client, frame models.Frame) (dropped int) {
	for c := range r.participants {
		if c == origin {
			continue
		}
		if err := c.Send(frame); err != nil {
			dropped++
		}
	}
	return dropped
}
