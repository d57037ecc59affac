package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/0xYujan/Online-Code-IDE/internal/metrics"
	"github.com/0xYujan/Online-Code-IDE/internal/models"
)

// SnapshotLoader seeds a room's documents on first creation. A nil loader
// or a missing snapshot both yield a room with default empty documents.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, roomID string) (*models.Documents, error)
}

// Coordinator serializes operation acceptance per room, assigns revisions
// and drives the join/operation/leave broadcasts. It is the only component
// that mutates room state on behalf of connections.
type Coordinator struct {
	hub    *Hub
	loader SnapshotLoader
	log    *zap.Logger
}

func NewCoordinator(hub *Hub, loader SnapshotLoader, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{hub: hub, loader: loader, log: log}
}

// Join places the connection in the requested room, creating and seeding it
// if needed. The joiner gets the full snapshot and roster back; everyone
// else in the room gets a roster-update. A join for a room with no prior
// snapshot succeeds with empty documents.
func (co *Coordinator) Join(ctx context.Context, c *Client, req models.JoinRequest) (models.JoinAck, error) {
	if req.RoomID == "" || req.UserID == "" {
		return models.JoinAck{}, ErrValidation
	}
	// Claim the connection before touching the registry: a rejected join
	// must leave no room behind.
	if err := c.markJoined(req.RoomID, req.UserID, req.DisplayName); err != nil {
		return models.JoinAck{}, err
	}

	room := co.hub.GetOrCreate(req.RoomID, func() *models.Documents {
		if co.loader == nil {
			return nil
		}
		snap, err := co.loader.LoadSnapshot(ctx, req.RoomID)
		if err != nil {
			// The store being down degrades to an unseeded room; the live
			// session must not depend on it.
			co.log.Warn("snapshot load failed",
				zap.String("room", req.RoomID), zap.Error(err))
			return nil
		}
		return snap
	})
	ack, dropped := room.JoinAndNotify(c, req.UserID, req.DisplayName, time.Now())

	metrics.ActiveConnections.Inc()
	co.log.Info("participant joined",
		zap.String("room", req.RoomID),
		zap.String("user", req.UserID),
		zap.String("connection", c.ID))
	co.recordDropped(room, models.TypeRosterUpdate, dropped)

	return ack, nil
}

// Apply accepts one operation from a joined connection, updates the
// authoritative state and broadcasts the result to every other participant.
// The origin gets nothing back: it already holds the text it sent, and the
// broadcast carries its connection id so clients can drop echoes.
func (co *Coordinator) Apply(c *Client, op models.Operation) (int64, error) {
	roomID, joined := c.JoinedRoom()
	if !joined {
		return 0, ErrUnknownRoom
	}
	if op.RoomID != "" && op.RoomID != roomID {
		return 0, ErrValidation
	}
	room, ok := co.hub.Get(roomID)
	if !ok {
		// Reclaimed between leave and this message; caller must rejoin.
		return 0, ErrUnknownRoom
	}

	bcast, dropped, err := room.ApplyAndBroadcast(op, c)
	if err != nil {
		return 0, err
	}
	metrics.OperationsTotal.WithLabelValues(string(op.Surface)).Inc()
	co.recordDropped(room, models.TypeOperationBroadcast, dropped)
	return bcast.Revision, nil
}

// Leave removes the connection from its room (if any), notifies the
// remaining participants and hands an emptied room to the registry for
// grace-period reclamation. Safe to call for never-joined connections and
// idempotent on repeat.
func (co *Coordinator) Leave(c *Client) {
	userID, _ := c.Identity()
	roomID, wasJoined := c.markClosed()
	if !wasJoined {
		return
	}
	metrics.ActiveConnections.Dec()

	room, ok := co.hub.Get(roomID)
	if !ok {
		return
	}
	remaining, dropped := room.LeaveAndNotify(c, userID)
	co.log.Info("participant left",
		zap.String("room", roomID),
		zap.String("user", userID),
		zap.String("connection", c.ID))
	co.recordDropped(room, models.TypeRosterUpdate, dropped)

	if remaining == 0 {
		co.hub.Release(roomID)
	}
}

// Snapshot returns the current authoritative documents of the room the
// connection is joined to. Used by the transport layer for explicit saves.
func (co *Coordinator) Snapshot(c *Client) (models.Documents, error) {
	roomID, joined := c.JoinedRoom()
	if !joined {
		return models.Documents{}, ErrUnknownRoom
	}
	room, ok := co.hub.Get(roomID)
	if !ok {
		return models.Documents{}, ErrUnknownRoom
	}
	docs, _ := room.Snapshot()
	return docs, nil
}

// Status reports the live state of a room for the surrounding application.
func (co *Coordinator) Status(roomID string) (models.RoomStatus, bool) {
	room, ok := co.hub.Get(roomID)
	if !ok {
		return models.RoomStatus{}, false
	}
	_, revs := room.Snapshot()
	return models.RoomStatus{
		RoomID:       roomID,
		Participants: room.ParticipantCount(),
		Revisions:    revs,
	}, true
}

func (co *Coordinator) recordDropped(room *Room, frameType string, dropped int) {
	if dropped == 0 {
		return
	}
	metrics.DroppedDeliveries.Add(float64(dropped))
	co.log.Debug("delivery skipped closed connections",
		zap.String("room", room.ID),
		zap.String("frame", frameType),
		zap.Int("dropped", dropped))
}
