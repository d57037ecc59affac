// Package store is the persistence boundary of the sync service. The
// durable project store is an external collaborator: the sync core only
// reads a snapshot when a room is first created and appends version entries
// on explicit save, never on every keystroke.
package store

import (
	"context"

	"github.com/0xYujan/Online-Code-IDE/internal/models"
)

type Gateway interface {
	// LoadSnapshot returns the last saved documents for a project, or nil
	// if the project has never been saved. A missing snapshot is not an
	// error.
	LoadSnapshot(ctx context.Context, roomID string) (*models.Documents, error)

	// AppendVersion records one surface's content in the project's
	// append-only version log and updates the stored snapshot.
	AppendVersion(ctx context.Context, roomID, userID string, surface models.Surface, content string) error

	// Versions returns the project's version log in append order.
	Versions(ctx context.Context, roomID string) ([]models.VersionEntry, error)
}
