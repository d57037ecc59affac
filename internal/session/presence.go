package session

import (
	"sort"

	"github.com/0xYujan/Online-Code-IDE/internal/models"
)

// rosterLocked formats the participant set into the order-stable view used
// by join replies and roster-update broadcasts: ascending join time, ties
// broken by connection id. Formatting policy lives here so it can change
// (deduplication, field hiding) without touching the sync path. Caller
// holds the room mutex.
func rosterLocked(participants map[*Client]models.Participant) []models.Participant {
	out := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ConnectionID < out[j].ConnectionID
	})
	return out
}
