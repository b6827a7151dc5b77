// Package conflict detects a coordinator being named twice for the same
// meeting type within a month, and applies slot edits that must pass that
// check before they are committed.
package conflict

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/starboard/internal/domain/clock"
	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/internal/domain/picker"
)

// Conflict is a pending duplicate. The edit that caused it has not been
// applied to the board.
type Conflict struct {
	ID            string            `json:"id"`
	Month         string            `json:"month"`
	Date          string            `json:"date"`
	Type          model.MeetingType `json:"type"`
	Name          string            `json:"name"`
	CoordinatorID string            `json:"coordinatorId"`
	// Previous* is who held the slot before the rejected edit.
	PreviousCoordinatorID   string        `json:"previousCoordinatorId,omitempty"`
	PreviousCoordinatorName string        `json:"previousCoordinatorName,omitempty"`
	Trigger                 model.Trigger `json:"trigger"`
	DetectedAt              time.Time     `json:"detectedAt"`
}

// Outcome is the result of a slot mutation. When Conflict is set, Board and
// Coordinators are the unchanged inputs and only the detection event is
// reported.
type Outcome struct {
	Board        model.MonthlyBoard
	Coordinators []model.Coordinator
	Conflict     *Conflict
	// NoEligible is set when a pick was needed and nobody qualified; the
	// slot was left unassigned.
	NoEligible bool
	Events     []model.AuditEvent
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithIDGenerator overrides how conflict and event ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// Resolver applies manual assignments, toggles and conflict resolutions.
type Resolver struct {
	picker *picker.Picker
	clock  clock.Clock
	newID  func() string
}

// NewResolver creates a resolver that re-picks with p and stamps events
// with clk.
func NewResolver(p *picker.Picker, clk clock.Clock, opts ...Option) *Resolver {
	if p == nil {
		p = picker.New()
	}
	if clk == nil {
		clk = clock.System{}
	}
	r := &Resolver{picker: p, clock: clk, newID: uuid.NewString}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HasDuplicate reports whether name appears on more than one slot of typ.
// Names are compared with Unicode case folding; empty names never collide.
func HasDuplicate(board model.MonthlyBoard, typ model.MeetingType, name string) bool {
	want := model.FoldName(name)
	if want == "" {
		return false
	}
	count := 0
	for _, a := range board.Assignments {
		if a.Type == typ && model.FoldName(a.CoordinatorName) == want {
			count++
		}
	}
	return count > 1
}

// Assign puts coordinatorID on the slot (date, typ). An empty id clears the
// slot. Manual assignments clear both service flags and never consume stars.
func (r *Resolver) Assign(
	board model.MonthlyBoard,
	coords []model.Coordinator,
	date string,
	typ model.MeetingType,
	coordinatorID string,
) (Outcome, error) {
	idx := board.Find(date, typ)
	if idx < 0 {
		return Outcome{}, fmt.Errorf("%w: %s %s", model.ErrSlotNotFound, date, typ)
	}

	proposed := board.Clone()
	a := &proposed.Assignments[idx]
	prev := *a
	a.Joined = false
	a.YouthSunday = false

	if coordinatorID == "" {
		a.Clear()
		return Outcome{Board: proposed, Coordinators: model.CloneCoordinators(coords)}, nil
	}

	ci := model.IndexCoordinator(coords, coordinatorID)
	if ci < 0 {
		return Outcome{}, fmt.Errorf("%w: %s", model.ErrCoordinatorNotFound, coordinatorID)
	}
	a.CoordinatorID = coords[ci].ID
	a.CoordinatorName = coords[ci].Name

	return r.settle(board, proposed, coords, model.CloneCoordinators(coords), idx, prev, model.TriggerManualAssignment, nil), nil
}

// ToggleJoined sets or clears the "joined service" flag on a slot.
func (r *Resolver) ToggleJoined(
	board model.MonthlyBoard,
	coords []model.Coordinator,
	date string,
	typ model.MeetingType,
	on bool,
) (Outcome, error) {
	return r.toggle(board, coords, date, typ, on, joinedFlag)
}

// ToggleYouth sets or clears the youth Sunday flag. Friday slots are
// rejected with model.ErrYouthOnFriday.
func (r *Resolver) ToggleYouth(
	board model.MonthlyBoard,
	coords []model.Coordinator,
	date string,
	typ model.MeetingType,
	on bool,
) (Outcome, error) {
	if typ != model.Sunday {
		return Outcome{}, fmt.Errorf("%w: %s %s", model.ErrYouthOnFriday, date, typ)
	}
	return r.toggle(board, coords, date, typ, on, youthFlag)
}

type flag int

const (
	joinedFlag flag = iota
	youthFlag
)

func (f flag) trigger() model.Trigger {
	if f == youthFlag {
		return model.TriggerYouthToggle
	}
	return model.TriggerJoinedToggle
}

func (f flag) action(on bool) model.AuditAction {
	switch {
	case f == youthFlag && on:
		return model.ActionYouthChecked
	case f == youthFlag:
		return model.ActionYouthUnchecked
	case on:
		return model.ActionJoinedChecked
	default:
		return model.ActionJoinedUnchecked
	}
}

func (f flag) isSet(a model.Assignment) bool {
	if f == youthFlag {
		return a.YouthSunday
	}
	return a.Joined
}

func (r *Resolver) toggle(
	board model.MonthlyBoard,
	coords []model.Coordinator,
	date string,
	typ model.MeetingType,
	on bool,
	f flag,
) (Outcome, error) {
	idx := board.Find(date, typ)
	if idx < 0 {
		return Outcome{}, fmt.Errorf("%w: %s %s", model.ErrSlotNotFound, date, typ)
	}

	proposed := board.Clone()
	a := &proposed.Assignments[idx]
	prev := *a

	if on {
		// service is covered externally: no pick, no stars
		a.Clear()
		a.Joined = f == joinedFlag
		a.YouthSunday = f == youthFlag
		ev := r.event(f.action(true), proposed.Month, *a, prev, f.trigger(), "")
		return Outcome{
			Board:        proposed,
			Coordinators: model.CloneCoordinators(coords),
			Events:       []model.AuditEvent{ev},
		}, nil
	}

	if !f.isSet(prev) {
		return Outcome{Board: proposed, Coordinators: model.CloneCoordinators(coords)}, nil
	}

	a.Joined = false
	a.YouthSunday = false
	working := model.CloneCoordinators(coords)
	chosen, err := r.picker.Pick(picker.Eligible(working, proposed.UsedCoordinators(a.Key())))
	if errors.Is(err, picker.ErrNoEligibleCoordinator) {
		a.Clear()
		ev := r.event(f.action(false), proposed.Month, *a, prev, f.trigger(), "")
		return Outcome{
			Board:        proposed,
			Coordinators: working,
			NoEligible:   true,
			Events:       []model.AuditEvent{ev},
		}, nil
	}

	a.CoordinatorID = chosen.ID
	a.CoordinatorName = chosen.Name
	if i := model.IndexCoordinator(working, chosen.ID); i >= 0 {
		working[i].ConsumeStar()
	}
	ev := r.event(f.action(false), proposed.Month, *a, prev, f.trigger(), "")
	return r.settle(board, proposed, coords, working, idx, prev, f.trigger(), []model.AuditEvent{ev}), nil
}

// settle commits proposed unless the edited slot now duplicates a name, in
// which case the inputs are returned with a pending Conflict.
func (r *Resolver) settle(
	original, proposed model.MonthlyBoard,
	originalCoords, proposedCoords []model.Coordinator,
	idx int,
	prev model.Assignment,
	trigger model.Trigger,
	events []model.AuditEvent,
) Outcome {
	a := proposed.Assignments[idx]
	if !HasDuplicate(proposed, a.Type, a.CoordinatorName) {
		return Outcome{Board: proposed, Coordinators: proposedCoords, Events: events}
	}

	c := &Conflict{
		ID:                      r.newID(),
		Month:                   proposed.Month,
		Date:                    a.Date,
		Type:                    a.Type,
		Name:                    a.CoordinatorName,
		CoordinatorID:           a.CoordinatorID,
		PreviousCoordinatorID:   prev.CoordinatorID,
		PreviousCoordinatorName: prev.CoordinatorName,
		Trigger:                 trigger,
		DetectedAt:              r.clock.Now(),
	}
	ev := r.event(model.ActionDuplicateDetected, proposed.Month, a, prev, trigger, "")
	return Outcome{
		Board:        original.Clone(),
		Coordinators: model.CloneCoordinators(originalCoords),
		Conflict:     c,
		Events:       []model.AuditEvent{ev},
	}
}

func (r *Resolver) event(
	action model.AuditAction,
	month string,
	next, prev model.Assignment,
	trigger model.Trigger,
	resolution model.Resolution,
) model.AuditEvent {
	ev := model.AuditEvent{
		ID:                      r.newID(),
		Timestamp:               r.clock.Now(),
		Action:                  action,
		Resolution:              resolution,
		Trigger:                 trigger,
		Date:                    next.Date,
		Type:                    next.Type,
		PreviousCoordinatorID:   prev.CoordinatorID,
		PreviousCoordinatorName: prev.CoordinatorName,
		NewCoordinatorID:        next.CoordinatorID,
		NewCoordinatorName:      next.CoordinatorName,
	}
	if m, err := model.ParseMonth(month); err == nil {
		ev.MonthStart = m.Start()
	}
	return ev
}
