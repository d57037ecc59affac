package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/0xYujan/Online-Code-IDE/internal/models"
)

type frameCapture struct {
	mu     sync.Mutex
	frames []models.Frame
}

func newFrameCapture() *frameCapture { return &frameCapture{} }

func (c *frameCapture) hook(frame models.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
	return nil
}

func (c *frameCapture) list() []models.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *frameCapture) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

func str(s string) *string { return &s }

func TestClientSendWithHook(t *testing.T) {
	client := NewClient(nil)
	capture := newFrameCapture()
	client.SetSendHook(capture.hook)

	if err := client.Send(models.Frame{Type: "ping"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	got := capture.list()
	if len(got) != 1 || got[0].Type != "ping" {
		t.Fatalf("expected frame captured, got %#v", got)
	}
}

func TestClientSendWithoutConnReportsClosed(t *testing.T) {
	client := NewClient(nil)
	if err := client.Send(models.Frame{Type: "noop"}); err != ErrConnectionClosed {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestClientJoinLifecycle(t *testing.T) {
	client := NewClient(nil)
	if _, joined := client.JoinedRoom(); joined {
		t.Fatal("fresh client should not be joined")
	}

	if err := client.markJoined("p1", "u1", "Ada"); err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	roomID, joined := client.JoinedRoom()
	if !joined || roomID != "p1" {
		t.Fatalf("expected joined to p1, got %q joined=%v", roomID, joined)
	}
	userID, name := client.Identity()
	if userID != "u1" || name != "Ada" {
		t.Fatalf("unexpected identity: %q %q", userID, name)
	}

	if err := client.markJoined("p2", "u1", ""); err != ErrAlreadyJoined {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}

	roomID, wasJoined := client.markClosed()
	if !wasJoined || roomID != "p1" {
		t.Fatalf("expected close to report p1, got %q joined=%v", roomID, wasJoined)
	}
	if _, wasJoined := client.markClosed(); wasJoined {
		t.Fatal("second close should report not joined")
	}
	if err := client.markJoined("p1", "u1", ""); err != ErrConnectionClosed {
		t.Fatalf("expected ErrConnectionClosed after close, got %v", err)
	}
}

func TestRoomApplyLastWriteWins(t *testing.T) {
	room := NewRoom("p1", nil)
	a := NewClient(nil)
	b := NewClient(nil)

	first, _, err := room.ApplyAndBroadcast(models.Operation{Surface: models.SurfaceMarkup, Content: str("<h1>A</h1>")}, a)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	second, _, err := room.ApplyAndBroadcast(models.Operation{Surface: models.SurfaceMarkup, Content: str("<h1>B</h1>"), BaseRevision: 0}, b)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if first.Revision != 1 || second.Revision != 2 {
		t.Fatalf("expected revisions 1 then 2, got %d then %d", first.Revision, second.Revision)
	}
	docs, revs := room.Snapshot()
	if docs.Markup != "<h1>B</h1>" {
		t.Fatalf("later write should win, got %q", docs.Markup)
	}
	if revs.Markup != 2 {
		t.Fatalf("expected markup revision 2, got %d", revs.Markup)
	}
	if second.OriginConnectionID != b.ID {
		t.Fatalf("broadcast should carry origin %s, got %s", b.ID, second.OriginConnectionID)
	}
}

func TestRoomSurfaceIndependence(t *testing.T) {
	room := NewRoom("p1", nil)
	c := NewClient(nil)

	if _, _, err := room.ApplyAndBroadcast(models.Operation{Surface: models.SurfaceMarkup, Content: str("<p>hi</p>")}, c); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if _, _, err := room.ApplyAndBroadcast(models.Operation{Surface: models.SurfaceStyle, Content: str("X")}, c); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	docs, revs := room.Snapshot()
	if docs.Markup != "<p>hi</p>" || revs.Markup != 1 {
		t.Fatalf("style edit must not touch markup: %#v %#v", docs, revs)
	}
	if docs.Style != "X" || revs.Style != 1 {
		t.Fatalf("unexpected style state: %#v %#v", docs, revs)
	}
	if docs.Script != "" || revs.Script != 0 {
		t.Fatalf("script must be untouched: %#v %#v", docs, revs)
	}
}

func TestRoomApplyEmptyContentClearsSurface(t *testing.T) {
	room := NewRoom("p1", &models.Documents{Script: "console.log(1)"})
	c := NewClient(nil)

	bcast, _, err := room.ApplyAndBroadcast(models.Operation{Surface: models.SurfaceScript, Content: str("")}, c)
	if err != nil {
		t.Fatalf("empty content is a valid clear, got %v", err)
	}
	if bcast.Content != "" || bcast.Revision != 1 {
		t.Fatalf("unexpected broadcast: %#v", bcast)
	}
	docs, _ := room.Snapshot()
	if docs.Script != "" {
		t.Fatalf("surface should be cleared, got %q", docs.Script)
	}
}

func TestRoomApplyRejectsInvalid(t *testing.T) {
	room := NewRoom("p1", nil)
	c := NewClient(nil)

	if _, _, err := room.ApplyAndBroadcast(models.Operation{Surface: "html", Content: str("x")}, c); err != ErrValidation {
		t.Fatalf("unknown surface should be rejected, got %v", err)
	}
	if _, _, err := room.ApplyAndBroadcast(models.Operation{Surface: models.SurfaceMarkup}, c); err != ErrValidation {
		t.Fatalf("missing content should be rejected, got %v", err)
	}
	docs, revs := room.Snapshot()
	if docs != (models.Documents{}) || revs != (models.Revisions{}) {
		t.Fatalf("rejected operations must not mutate state: %#v %#v", docs, revs)
	}
}

func TestRoomRevisionSequenceGapFree(t *testing.T) {
	room := NewRoom("p1", nil)
	c := NewClient(nil)

	for i := 1; i <= 25; i++ {
		bcast, _, err := room.ApplyAndBroadcast(models.Operation{Surface: models.SurfaceStyle, Content: str("body{}")}, c)
		if err != nil {
			t.Fatalf("apply %d failed: %v", i, err)
		}
		if bcast.Revision != int64(i) {
			t.Fatalf("expected revision %d, got %d", i, bcast.Revision)
		}
	}
}

func TestRoomConcurrentAppliesBroadcastInRevisionOrder(t *testing.T) {
	room := NewRoom("p1", nil)
	now := time.Now()

	observerCap := newFrameCapture()
	observer := NewClient(nil)
	observer.SetSendHook(observerCap.hook)
	room.JoinAndNotify(observer, "watcher", "", now)

	const writers = 16
	const opsEach = 50
	clients := make([]*Client, writers)
	for i := range clients {
		clients[i] = NewClient(nil)
		clients[i].SetSendHook(newFrameCapture().hook)
		room.JoinAndNotify(clients[i], fmt.Sprintf("u%d", i), "", now)
	}
	observerCap.reset()

	var wg sync.WaitGroup
	for i, c := range clients {
		wg.Add(1)
		go func(i int, c *Client) {
			defer wg.Done()
			for j := 0; j < opsEach; j++ {
				op := models.Operation{Surface: models.SurfaceMarkup, Content: str(fmt.Sprintf("w%d-%d", i, j))}
				if _, _, err := room.ApplyAndBroadcast(op, c); err != nil {
					t.Errorf("apply failed: %v", err)
				}
			}
		}(i, c)
	}
	wg.Wait()

	var revs []int64
	var lastContent string
	for _, frame := range observerCap.list() {
		if frame.Type != models.TypeOperationBroadcast {
			continue
		}
		bcast := frame.Data.(models.OperationBroadcast)
		revs = append(revs, bcast.Revision)
		lastContent = bcast.Content
	}
	if len(revs) != writers*opsEach {
		t.Fatalf("expected %d broadcasts, got %d", writers*opsEach, len(revs))
	}
	for i, rev := range revs {
		if rev != int64(i+1) {
			t.Fatalf("broadcast order broken at index %d: got revision %d, want %d", i, rev, i+1)
		}
	}
	docs, finalRevs := room.Snapshot()
	if docs.Markup != lastContent {
		t.Fatalf("state %q does not match last broadcast %q", docs.Markup, lastContent)
	}
	if finalRevs.Markup != int64(writers*opsEach) {
		t.Fatalf("expected final revision %d, got %d", writers*opsEach, finalRevs.Markup)
	}
}

func TestRoomSeededDocuments(t *testing.T) {
	seed := &models.Documents{Markup: "<h1>saved</h1>", Style: "body{}", Script: "run()"}
	room := NewRoom("p1", seed)
	docs, revs := room.Snapshot()
	if docs != *seed {
		t.Fatalf("expected seeded documents, got %#v", docs)
	}
	if revs != (models.Revisions{}) {
		t.Fatalf("seeding must not advance revisions: %#v", revs)
	}
}

func TestRoomJoinDeliversAckBeforePeerUpdates(t *testing.T) {
	room := NewRoom("p1", &models.Documents{Markup: "<p>seed</p>"})
	now := time.Now()

	earlier := NewClient(nil)
	earlier.SetSendHook(newFrameCapture().hook)
	room.JoinAndNotify(earlier, "u1", "", now)

	capture := newFrameCapture()
	joiner := NewClient(nil)
	joiner.SetSendHook(capture.hook)
	ack, dropped := room.JoinAndNotify(joiner, "u2", "Ada", now.Add(time.Second))
	if dropped != 0 {
		t.Fatalf("expected no drops, got %d", dropped)
	}

	frames := capture.list()
	if len(frames) != 1 || frames[0].Type != models.TypeJoinAck {
		t.Fatalf("joiner's first frame must be its join reply, got %#v", frames)
	}
	got := frames[0].Data.(models.JoinAck)
	if got.Documents.Markup != "<p>seed</p>" || len(got.Roster) != 2 {
		t.Fatalf("unexpected reply: %#v", got)
	}
	if got.Documents != ack.Documents || got.Revisions != ack.Revisions || len(got.Roster) != len(ack.Roster) {
		t.Fatalf("returned reply differs from delivered one: %#v vs %#v", ack, got)
	}
}

func TestRoomApplyExcludesOriginAndSkipsClosed(t *testing.T) {
	room := NewRoom("p1", nil)
	now := time.Now()

	alive := NewClient(nil)
	capAlive := newFrameCapture()
	alive.SetSendHook(capAlive.hook)
	dead := NewClient(nil) // no conn, no hook: Send fails
	sender := NewClient(nil)
	capSender := newFrameCapture()
	sender.SetSendHook(capSender.hook)

	room.JoinAndNotify(alive, "u1", "", now)
	room.JoinAndNotify(dead, "u2", "", now)
	room.JoinAndNotify(sender, "u3", "", now)
	capAlive.reset()
	capSender.reset()

	_, dropped, err := room.ApplyAndBroadcast(models.Operation{Surface: models.SurfaceMarkup, Content: str("x")}, sender)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if dropped != 1 {
		t.Fatalf("expected 1 dropped delivery, got %d", dropped)
	}
	got := capAlive.list()
	if len(got) != 1 || got[0].Type != models.TypeOperationBroadcast {
		t.Fatalf("closed peer must not block delivery to live peers: %#v", got)
	}
	if len(capSender.list()) != 0 {
		t.Fatal("origin must not receive its own broadcast")
	}
}

func TestRoomLeaveNotifiesOnlyRemaining(t *testing.T) {
	room := NewRoom("p1", nil)
	now := time.Now()

	stayCap := newFrameCapture()
	stay := NewClient(nil)
	stay.SetSendHook(stayCap.hook)
	leaveCap := newFrameCapture()
	leaver := NewClient(nil)
	leaver.SetSendHook(leaveCap.hook)

	room.JoinAndNotify(stay, "u1", "", now)
	room.JoinAndNotify(leaver, "u2", "", now)
	stayCap.reset()
	leaveCap.reset()

	remaining, dropped := room.LeaveAndNotify(leaver, "u2")
	if remaining != 1 || dropped != 0 {
		t.Fatalf("expected 1 remaining and no drops, got %d/%d", remaining, dropped)
	}
	frames := stayCap.list()
	if len(frames) != 1 || frames[0].Type != models.TypeRosterUpdate {
		t.Fatalf("expected one roster update, got %#v", frames)
	}
	update := frames[0].Data.(models.RosterUpdate)
	if update.Kind != models.RosterKindLeft || update.ChangedUserID != "u2" || len(update.Roster) != 1 {
		t.Fatalf("unexpected update: %#v", update)
	}
	if len(leaveCap.list()) != 0 {
		t.Fatal("leaver must not be notified of its own departure")
	}

	// Repeat leave is a no-op.
	if remaining, _ := room.LeaveAndNotify(leaver, "u2"); remaining != 1 {
		t.Fatalf("repeat leave should report unchanged count, got %d", remaining)
	}
}

func TestRosterDeterministicOrder(t *testing.T) {
	room := NewRoom("p1", nil)
	base := time.Now()

	c1 := NewClient(nil)
	c2 := NewClient(nil)
	c3 := NewClient(nil)
	room.JoinAndNotify(c2, "u2", "", base.Add(time.Second))
	room.JoinAndNotify(c1, "u1", "", base)
	room.JoinAndNotify(c3, "u3", "", base.Add(2*time.Second))

	roster := room.Roster()
	if len(roster) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(roster))
	}
	if roster[0].UserID != "u1" || roster[1].UserID != "u2" || roster[2].UserID != "u3" {
		t.Fatalf("roster not ordered by join time: %#v", roster)
	}

	// Same order on every read.
	again := room.Roster()
	for i := range roster {
		if roster[i] != again[i] {
			t.Fatalf("roster order unstable at %d: %#v vs %#v", i, roster[i], again[i])
		}
	}
}

func TestRosterTieBrokenByConnectionID(t *testing.T) {
	room := NewRoom("p1", nil)
	now := time.Now()

	c1 := NewClient(nil)
	c2 := NewClient(nil)
	room.JoinAndNotify(c1, "u1", "", now)
	room.JoinAndNotify(c2, "u2", "", now)

	roster := room.Roster()
	if roster[0].ConnectionID > roster[1].ConnectionID {
		t.Fatalf("equal join times must order by connection id: %#v", roster)
	}
}
