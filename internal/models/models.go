package models

import "time"

// Surface identifies one of the three editable buffers of a project.
type Surface string

const (
	SurfaceMarkup Surface = "markup"
	SurfaceStyle  Surface = "style"
	SurfaceScript Surface = "script"
)

func (s Surface) Valid() bool {
	switch s {
	case SurfaceMarkup, SurfaceStyle, SurfaceScript:
		return true
	}
	return false
}

// Surfaces lists every surface in a fixed order so iteration (saves,
// snapshot writes) produces stable output.
func Surfaces() []Surface {
	return []Surface{SurfaceMarkup, SurfaceStyle, SurfaceScript}
}

// Documents holds the full authoritative text of each surface.
type Documents struct {
	Markup string `json:"markup"`
	Style  string `json:"style"`
	Script string `json:"script"`
}

func (d Documents) Get(s Surface) string {
	switch s {
	case SurfaceMarkup:
		return d.Markup
	case SurfaceStyle:
		return d.Style
	default:
		return d.Script
	}
}

func (d *Documents) Set(s Surface, content string) {
	switch s {
	case SurfaceMarkup:
		d.Markup = content
	case SurfaceStyle:
		d.Style = content
	case SurfaceScript:
		d.Script = content
	}
}

// Revisions tracks one monotonically increasing counter per surface.
type Revisions struct {
	Markup int64 `json:"markup"`
	Style  int64 `json:"style"`
	Script int64 `json:"script"`
}

func (r Revisions) Get(s Surface) int64 {
	switch s {
	case SurfaceMarkup:
		return r.Markup
	case SurfaceStyle:
		return r.Style
	default:
		return r.Script
	}
}

// Bump increments the counter for s and returns the new value.
func (r *Revisions) Bump(s Surface) int64 {
	switch s {
	case SurfaceMarkup:
		r.Markup++
		return r.Markup
	case SurfaceStyle:
		r.Style++
		return r.Style
	default:
		r.Script++
		return r.Script
	}
}

// Participant is the roster view of one live connection in a room.
type Participant struct {
	ConnectionID string    `json:"connectionId"`
	UserID       string    `json:"userId"`
	DisplayName  string    `json:"displayName,omitempty"`
	JoinedAt     time.Time `json:"-"`
}

/*** Websocket frame envelope and payloads ***/

const (
	TypeJoin               = "join"
	TypeJoinAck            = "join-ack"
	TypeRosterUpdate       = "roster-update"
	TypeOperation          = "operation"
	TypeOperationBroadcast = "operation-broadcast"
	TypeSave               = "save"
	TypeSaveAck            = "save-ack"
	TypeProtocolError      = "protocol-error"
)

type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type JoinRequest struct {
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

type JoinAck struct {
	RoomID    string        `json:"roomId"`
	Documents Documents     `json:"documents"`
	Revisions Revisions     `json:"revisions"`
	Roster    []Participant `json:"roster"`
}

const (
	RosterKindJoined = "joined"
	RosterKindLeft   = "left"
)

type RosterUpdate struct {
	Roster        []Participant `json:"roster"`
	ChangedUserID string        `json:"changedUserId"`
	Kind          string        `json:"kind"`
}

// Operation is a full-content replacement of one surface. Content is a
// pointer so a missing or non-string field fails validation instead of
// silently clearing the surface; the empty string itself is a valid value.
type Operation struct {
	RoomID       string  `json:"roomId"`
	Surface      Surface `json:"surface"`
	Content      *string `json:"content"`
	BaseRevision int64   `json:"baseRevision"`
}

type OperationBroadcast struct {
	Surface            Surface `json:"surface"`
	Content            string  `json:"content"`
	Revision           int64   `json:"revision"`
	OriginConnectionID string  `json:"originConnectionId"`
}

type SaveAck struct {
	SavedAt string `json:"savedAt"`
}

type ProtocolError struct {
	Reason string `json:"reason"`
}

/*** REST payloads ***/

// RoomStatus is the live view returned by GET /api/v1/rooms/{id}.
type RoomStatus struct {
	RoomID       string    `json:"roomId"`
	Participants int       `json:"participants"`
	Revisions    Revisions `json:"revisions"`
}

// VersionEntry is one record in a project's append-only version log.
type VersionEntry struct {
	UserID    string  `json:"userId"`
	Surface   Surface `json:"surface"`
	Content   string  `json:"content"`
	CreatedAt string  `json:"createdAt"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
