package tasklist

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-copilot-backend/internal/realtime"
	"todo-copilot-backend/internal/tasks"
)

func strptr(s string) *string { return &s }

func serverTask(id, title, userID string) tasks.Task {
	return tasks.Task{
		ID:        id,
		Title:     title,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
}

func TestOptimisticCreateAndConfirm(t *testing.T) {
	t.Parallel()

	l := New()

	tempID := l.BeginCreate("buy milk")
	require.True(t, strings.HasPrefix(tempID, TempIDPrefix))

	// visible immediately, before any network round trip
	visible := l.Tasks()
	require.Len(t, visible, 1)
	assert.Equal(t, "buy milk", visible[0].Title)
	assert.True(t, visible[0].AIProcessing)
	assert.True(t, visible[0].PendingCreate)

	// server confirms with the real id
	queued := l.ConfirmCreate(tempID, serverTask("real-1", "buy milk", "u1"))
	assert.False(t, queued)

	visible = l.Tasks()
	require.Len(t, visible, 1)
	assert.Equal(t, "real-1", visible[0].ID)
	assert.False(t, visible[0].PendingCreate)
	// indicator survives confirmation until the AI actually writes back
	assert.True(t, visible[0].AIProcessing)
}

func TestFailedCreateRollsBack(t *testing.T) {
	t.Parallel()

	l := New()
	tempID := l.BeginCreate("buy milk")
	l.FailCreate(tempID)
	assert.Empty(t, l.Tasks())
}

func TestNewestFirstOrdering(t *testing.T) {
	t.Parallel()

	l := New()
	l.Load([]tasks.Task{
		serverTask("b", "second", "u1"),
		serverTask("a", "first", "u1"),
	})

	l.BeginCreate("third")

	visible := l.Tasks()
	require.Len(t, visible, 3)
	assert.Equal(t, "third", visible[0].Title)
	assert.Equal(t, "second", visible[1].Title)
	assert.Equal(t, "first", visible[2].Title)
}

func TestRemoteInsertMergesWithOptimisticCopy(t *testing.T) {
	t.Parallel()

	l := New()
	tempID := l.BeginCreate("buy milk")
	l.ConfirmCreate(tempID, serverTask("real-1", "buy milk", "u1"))

	// the change stream echoes our own insert
	l.Apply(realtime.Event{Op: realtime.OpInsert, Task: serverTask("real-1", "buy milk", "u1")})

	visible := l.Tasks()
	require.Len(t, visible, 1)
	assert.Equal(t, "real-1", visible[0].ID)
	assert.True(t, visible[0].AIProcessing, "transient flag must survive the merge")
}

func TestRemoteInsertFromOtherSessionPrepends(t *testing.T) {
	t.Parallel()

	l := New()
	l.Load([]tasks.Task{serverTask("a", "old", "u1")})

	l.Apply(realtime.Event{Op: realtime.OpInsert, Task: serverTask("b", "from other tab", "u1")})

	visible := l.Tasks()
	require.Len(t, visible, 2)
	assert.Equal(t, "b", visible[0].ID)
}

func TestRemoteUpdateClearsAIProcessingOnTitleChange(t *testing.T) {
	t.Parallel()

	l := New()
	tempID := l.BeginCreate("by milk")
	l.ConfirmCreate(tempID, serverTask("real-1", "by milk", "u1"))

	// AI wrote an improved title back through the table
	improved := serverTask("real-1", "Buy milk", "u1")
	improved.Description = strptr("2% from the corner store")
	l.Apply(realtime.Event{Op: realtime.OpUpdate, Task: improved})

	e, ok := l.Get("real-1")
	require.True(t, ok)
	assert.Equal(t, "Buy milk", e.Title)
	assert.False(t, e.AIProcessing)
}

func TestRemoteUpdateKeepsAIProcessingWhenNothingChanged(t *testing.T) {
	t.Parallel()

	l := New()
	tempID := l.BeginCreate("buy milk")
	l.ConfirmCreate(tempID, serverTask("real-1", "buy milk", "u1"))

	// completion toggle from another device, title untouched
	same := serverTask("real-1", "buy milk", "u1")
	same.Completed = true
	l.Apply(realtime.Event{Op: realtime.OpUpdate, Task: same})

	e, _ := l.Get("real-1")
	assert.True(t, e.Completed)
	assert.True(t, e.AIProcessing)
}

func TestRemoteUpdateSuppressedWhileEditing(t *testing.T) {
	t.Parallel()

	l := New()
	l.Load([]tasks.Task{serverTask("a", "draft", "u1")})

	require.True(t, l.BeginEdit("a"))
	l.SetTitle("a", "draft v2")

	l.Apply(realtime.Event{Op: realtime.OpUpdate, Task: serverTask("a", "remote overwrite", "u1")})

	e, _ := l.Get("a")
	assert.Equal(t, "draft v2", e.Title, "remote update must not clobber an in-flight edit")
}

func TestRemoteUpdateSuppressedDuringGraceWindow(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }

	l := New(WithClock(clock), WithEditGrace(2*time.Second))
	l.Load([]tasks.Task{serverTask("a", "draft", "u1")})

	l.BeginEdit("a")
	l.SetTitle("a", "draft v2")
	l.EndEdit("a")

	// one second later: still inside the grace window
	now = now.Add(time.Second)
	l.Apply(realtime.Event{Op: realtime.OpUpdate, Task: serverTask("a", "stale echo", "u1")})
	e, _ := l.Get("a")
	assert.Equal(t, "draft v2", e.Title)

	// past the window: remote wins again
	now = now.Add(5 * time.Second)
	l.Apply(realtime.Event{Op: realtime.OpUpdate, Task: serverTask("a", "settled", "u1")})
	e, _ = l.Get("a")
	assert.Equal(t, "settled", e.Title)
}

func TestRemoteDeleteRemoves(t *testing.T) {
	t.Parallel()

	l := New()
	l.Load([]tasks.Task{serverTask("a", "doomed", "u1")})

	l.Apply(realtime.Event{Op: realtime.OpDelete, Task: serverTask("a", "doomed", "u1")})
	assert.Empty(t, l.Tasks())
}

func TestOptimisticDeleteAndRestore(t *testing.T) {
	t.Parallel()

	l := New()
	l.Load([]tasks.Task{serverTask("a", "keep me", "u1")})

	removed, ok := l.Delete("a")
	require.True(t, ok)
	assert.Empty(t, l.Tasks())

	// remote delete failed: put it back
	l.Restore(removed)
	visible := l.Tasks()
	require.Len(t, visible, 1)
	assert.Equal(t, "keep me", visible[0].Title)
}

func TestDeleteWhileCreateInFlightIsQueued(t *testing.T) {
	t.Parallel()

	l := New()
	tempID := l.BeginCreate("fleeting")

	removed, ok := l.Delete(tempID)
	require.True(t, ok)
	assert.True(t, removed.PendingCreate)
	assert.Empty(t, l.Tasks(), "queued entry is hidden immediately")

	// creation resolves; the caller learns it still owes a remote delete
	queued := l.ConfirmCreate(tempID, serverTask("real-1", "fleeting", "u1"))
	assert.True(t, queued)
	assert.Empty(t, l.Tasks())
}

func TestDeleteUnknownID(t *testing.T) {
	t.Parallel()

	l := New()
	_, ok := l.Delete("nope")
	assert.False(t, ok)
}

func TestToggleRollback(t *testing.T) {
	t.Parallel()

	l := New()
	l.Load([]tasks.Task{serverTask("a", "t", "u1")})

	require.True(t, l.SetCompleted("a", true))
	e, _ := l.Get("a")
	assert.True(t, e.Completed)

	// remote call failed, revert
	l.SetCompleted("a", false)
	e, _ = l.Get("a")
	assert.False(t, e.Completed)
}
