// Package tasklist is the client-side view-model for a user's task list: an
// in-memory list fed by local optimistic mutations, their asynchronous
// confirmations, and the realtime change stream. It is pure state — no I/O —
// so any client (or test) can drive it and issue the matching network calls
// itself.
package tasklist

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"todo-copilot-backend/internal/realtime"
	"todo-copilot-backend/internal/tasks"
)

// TempIDPrefix marks identifiers of entries whose creation has not been
// confirmed by the server yet.
const TempIDPrefix = "pending-"

// DefaultEditGrace is how long after a local edit finishes that remote
// updates for the same task keep being suppressed. It covers the window in
// which our own PATCH is still in flight and would otherwise echo back as a
// stale-looking update.
const DefaultEditGrace = 2 * time.Second

// Entry is one task plus its transient, never-persisted client state.
type Entry struct {
	tasks.Task

	// AIProcessing is set while the external AI process is expected to
	// rewrite the title/description. Cleared when a remote update
	// actually changes one of them.
	AIProcessing bool `json:"is_ai_processing,omitempty"`

	// Editing suppresses remote overwrites while the user is typing.
	Editing        bool      `json:"-"`
	EditGraceUntil time.Time `json:"-"`

	// PendingCreate marks an optimistic entry awaiting its server id.
	PendingCreate bool `json:"-"`

	// PendingDelete queues a delete issued while the creation was still
	// in flight; the entry is hidden and resolved by ConfirmCreate.
	PendingDelete bool `json:"-"`
}

type List struct {
	entries []Entry
	grace   time.Duration
	now     func() time.Time
}

type Option func(*List)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *List) { l.now = now }
}

func WithEditGrace(d time.Duration) Option {
	return func(l *List) { l.grace = d }
}

func New(opts ...Option) *List {
	l := &List{
		grace: DefaultEditGrace,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces the list with a fetched snapshot, newest first.
func (l *List) Load(ts []tasks.Task) {
	l.entries = make([]Entry, 0, len(ts))
	for _, t := range ts {
		l.entries = append(l.entries, Entry{Task: t})
	}
}

// Tasks returns the visible entries, newest first. Entries with a queued
// delete are already gone from the user's point of view.
func (l *List) Tasks() []Entry {
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.PendingDelete {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (l *List) Get(id string) (Entry, bool) {
	if i := l.index(id); i >= 0 {
		return l.entries[i], true
	}
	return Entry{}, false
}

func (l *List) index(id string) int {
	for i := range l.entries {
		if l.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// BeginCreate prepends an optimistic entry under a temporary id and returns
// that id. The AI-processing indicator goes up immediately, matching the
// webhook trigger the caller is about to fire.
func (l *List) BeginCreate(title string) string {
	tempID := TempIDPrefix + uuid.NewString()

	entry := Entry{
		Task: tasks.Task{
			ID:        tempID,
			Title:     strings.TrimSpace(title),
			CreatedAt: l.now(),
		},
		AIProcessing:  true,
		PendingCreate: true,
	}
	l.entries = append([]Entry{entry}, l.entries...)
	return tempID
}

// ConfirmCreate swaps the temporary id for the stored record, preserving
// transient flags. It reports whether a delete was queued while the create
// was in flight, in which case the entry is dropped and the caller must
// issue the remote delete against the server id.
func (l *List) ConfirmCreate(tempID string, stored tasks.Task) (deleteQueued bool) {
	i := l.index(tempID)
	if i < 0 {
		return false
	}

	if l.entries[i].PendingDelete {
		l.remove(i)
		return true
	}

	l.entries[i].Task = stored
	l.entries[i].PendingCreate = false
	return false
}

// FailCreate rolls the optimistic entry back out of the list.
func (l *List) FailCreate(tempID string) {
	if i := l.index(tempID); i >= 0 {
		l.remove(i)
	}
}

// SetCompleted applies a local toggle. Calling it again with the previous
// value is the rollback.
func (l *List) SetCompleted(id string, completed bool) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.entries[i].Completed = completed
	return true
}

// BeginEdit marks the entry as under local edit so remote updates cannot
// clobber in-flight input.
func (l *List) BeginEdit(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.entries[i].Editing = true
	return true
}

// EndEdit lifts the edit marker but keeps suppressing remote updates for a
// short grace window.
func (l *List) EndEdit(id string) {
	if i := l.index(id); i >= 0 {
		l.entries[i].Editing = false
		l.entries[i].EditGraceUntil = l.now().Add(l.grace)
	}
}

func (l *List) SetTitle(id, title string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.entries[i].Title = strings.TrimSpace(title)
	return true
}

func (l *List) SetDescription(id, description string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.entries[i].Description = &description
	return true
}

// Delete removes the entry optimistically and returns it for rollback via
// Restore. A delete against an entry whose creation is still in flight is
// queued instead: the entry is hidden and ConfirmCreate reports it.
func (l *List) Delete(id string) (Entry, bool) {
	i := l.index(id)
	if i < 0 {
		return Entry{}, false
	}

	e := l.entries[i]
	if e.PendingCreate {
		l.entries[i].PendingDelete = true
		return l.entries[i], true
	}

	l.remove(i)
	return e, true
}

// Restore re-inserts an entry removed by Delete after the remote call
// failed. It comes back at the top; the next remote event settles order.
func (l *List) Restore(e Entry) {
	if l.index(e.ID) >= 0 {
		return
	}
	l.entries = append([]Entry{e}, l.entries...)
}

// Apply reconciles one realtime event into the list.
func (l *List) Apply(ev realtime.Event) {
	switch ev.Op {
	case realtime.OpInsert:
		i := l.index(ev.Task.ID)
		if i >= 0 {
			// our own optimistic copy caught up: take the server
			// fields, keep the transient flags
			l.entries[i].Task = ev.Task
			l.entries[i].PendingCreate = false
			return
		}
		l.entries = append([]Entry{{Task: ev.Task}}, l.entries...)

	case realtime.OpUpdate:
		i := l.index(ev.Task.ID)
		if i < 0 {
			return
		}
		e := &l.entries[i]

		if e.Editing || l.now().Before(e.EditGraceUntil) {
			// user input in flight, don't clobber it
			return
		}

		if ev.Task.Title != e.Title || !sameDescription(ev.Task.Description, e.Description) {
			// the external AI process wrote back
			e.AIProcessing = false
		}
		e.Task = ev.Task

	case realtime.OpDelete:
		if i := l.index(ev.Task.ID); i >= 0 {
			l.remove(i)
		}
	}
}

func (l *List) remove(i int) {
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
}

func sameDescription(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
