package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/0xYujan/Online-Code-IDE/internal/metrics"
	"github.com/0xYujan/Online-Code-IDE/internal/models"
	"github.com/0xYujan/Online-Code-IDE/internal/session"
	"github.com/0xYujan/Online-Code-IDE/internal/store"
	"github.com/0xYujan/Online-Code-IDE/internal/utils"
)

type Handlers struct {
	log       *zap.Logger
	coord     *session.Coordinator
	gateway   store.Gateway
	jwtSecret []byte
}

func NewHandlers(log *zap.Logger, coord *session.Coordinator, gateway store.Gateway, jwtSecret []byte) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{log: log, coord: coord, gateway: gateway, jwtSecret: jwtSecret}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// ProjectWS bridges one websocket to the coordinator. Protocol: the first
// frame must be a join; after that the connection sends operations and
// saves. Malformed payloads produce a protocol-error frame on this
// connection only and never mutate room state.
func (h *Handlers) ProjectWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	client := session.NewClient(conn)
	defer h.coord.Leave(client)

	var claims *utils.ProjectTokenClaims
	if token := r.URL.Query().Get("token"); token != "" && len(h.jwtSecret) > 0 {
		claims, err = utils.ValidateProjectToken(token, h.jwtSecret)
		if err != nil || (claims.ProjectID != "" && claims.ProjectID != roomID) {
			_ = client.Send(errFrame("invalid_token"))
			return
		}
	}

	var frame models.Frame
	if err := conn.ReadJSON(&frame); err != nil {
		if isDecodeError(err) {
			_ = client.Send(errFrame("malformed_payload"))
		}
		return
	}
	if frame.Type != models.TypeJoin {
		_ = client.Send(errFrame("expected_join"))
		return
	}
	var join models.JoinRequest
	if err := decode(frame.Data, &join); err != nil {
		_ = client.Send(errFrame("malformed_payload"))
		return
	}
	if join.RoomID == "" {
		join.RoomID = roomID
	} else if join.RoomID != roomID {
		_ = client.Send(errFrame("room_mismatch"))
		return
	}
	if claims != nil {
		join.UserID = claims.UserID
		if claims.DisplayName != "" {
			join.DisplayName = claims.DisplayName
		}
	}

	// The join reply is delivered by the room itself, atomically with the
	// roster change, so it always precedes any broadcast for this client.
	if _, err := h.coord.Join(r.Context(), client, join); err != nil {
		_ = client.Send(errFrame(err.Error()))
		return
	}

	for {
		var frame models.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if isDecodeError(err) {
				// The frame was unreadable but the socket is fine; report
				// and keep serving.
				_ = client.Send(errFrame("malformed_payload"))
				continue
			}
			return
		}
		switch frame.Type {
		case models.TypeJoin:
			// One join per connection; repeats are rejected, not ignored.
			_ = client.Send(errFrame(session.ErrAlreadyJoined.Error()))

		case models.TypeOperation:
			var op models.Operation
			if err := decode(frame.Data, &op); err != nil {
				_ = client.Send(errFrame("malformed_payload"))
				continue
			}
			if _, err := h.coord.Apply(client, op); err != nil {
				_ = client.Send(errFrame(err.Error()))
			}

		case models.TypeSave:
			h.handleSave(r.Context(), client)

		default:
			_ = client.Send(errFrame("unknown_type"))
		}
	}
}

// handleSave pushes the room's current snapshot into the persistence
// gateway's version log. Save is a transport-layer concern: the sync core
// never writes durable history on its own.
func (h *Handlers) handleSave(ctx context.Context, client *session.Client) {
	if h.gateway == nil {
		_ = client.Send(errFrame("persistence_unavailable"))
		return
	}
	docs, err := h.coord.Snapshot(client)
	if err != nil {
		_ = client.Send(errFrame(err.Error()))
		return
	}
	userID, _ := client.Identity()
	roomID, _ := client.JoinedRoom()

	saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, surface := range models.Surfaces() {
		if err := h.gateway.AppendVersion(saveCtx, roomID, userID, surface, docs.Get(surface)); err != nil {
			h.log.Error("save failed",
				zap.String("room", roomID),
				zap.String("surface", string(surface)),
				zap.Error(err))
			_ = client.Send(errFrame("save_failed"))
			return
		}
	}
	metrics.SavesTotal.Inc()
	_ = client.Send(models.Frame{
		Type: models.TypeSaveAck,
		Data: models.SaveAck{SavedAt: time.Now().UTC().Format(time.RFC3339)},
	})
}

// RoomStatus reports a live room's participant count and revisions.
func (h *Handlers) RoomStatus(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	status, ok := h.coord.Status(roomID)
	if !ok {
		writeError(w, http.StatusNotFound, "room_not_found", "no active session for this project")
		return
	}
	writeJSON(w, status)
}

// RoomVersions returns the project's saved version history.
func (h *Handlers) RoomVersions(w http.ResponseWriter, r *http.Request) {
	if h.gateway == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence_unavailable", "no persistence gateway configured")
		return
	}
	roomID := chi.URLParam(r, "id")
	entries, err := h.gateway.Versions(r.Context(), roomID)
	if err != nil {
		h.log.Error("version history fetch failed", zap.String("room", roomID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to fetch version history")
		return
	}
	if entries == nil {
		entries = []models.VersionEntry{}
	}
	writeJSON(w, entries)
}

// decode round-trips a frame's data payload into a typed struct. A type
// mismatch (number where a string belongs) fails here, before any room
// state is touched.
func decode(in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// isDecodeError distinguishes an unparseable frame from a broken socket:
// gorilla's ReadJSON surfaces json decode failures directly, and the
// connection stays usable for the next message.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func errFrame(reason string) models.Frame {
	return models.Frame{Type: models.TypeProtocolError, Data: models.ProtocolError{Reason: reason}}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Code: code, Message: message})
}
