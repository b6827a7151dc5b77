package model

import (
	"fmt"
	"sort"
	"strings"
)

// MeetingType is the kind of weekly meeting a slot belongs to.
type MeetingType string

// Meeting types.
const (
	Friday MeetingType = "Friday"
	Sunday MeetingType = "Sunday"
)

// ParseMeetingType accepts "friday"/"sunday" in any case.
func ParseMeetingType(s string) (MeetingType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "friday":
		return Friday, nil
	case "sunday":
		return Sunday, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// Assignment is one meeting slot on one date.
//
// Joined and YouthSunday both imply an empty coordinator, and YouthSunday is
// only ever set on Sunday slots.
type Assignment struct {
	Date            string      `json:"date"            bson:"date"`
	Type            MeetingType `json:"type"            bson:"type"`
	CoordinatorID   string      `json:"coordinatorId"   bson:"coordinator_id"`
	CoordinatorName string      `json:"coordinatorName" bson:"coordinator_name"`
	Joined          bool        `json:"joined"          bson:"joined"`
	YouthSunday     bool        `json:"youthSunday"     bson:"youth_sunday"`
}

// Assigned reports whether a coordinator currently leads the slot.
func (a Assignment) Assigned() bool {
	return a.CoordinatorID != "" || a.CoordinatorName != ""
}

// Key identifies a slot within a board.
func (a Assignment) Key() string {
	return SlotKey(a.Date, a.Type)
}

// Clear removes the coordinator from the slot.
func (a *Assignment) Clear() {
	a.CoordinatorID = ""
	a.CoordinatorName = ""
}

// SlotKey builds the "date|type" key used to match slots across boards.
func SlotKey(date string, typ MeetingType) string {
	return date + "|" + string(typ)
}

// MonthlyBoard is the schedule of one calendar month.
type MonthlyBoard struct {
	Month       string       `json:"month"       bson:"month"`
	Assignments []Assignment `json:"assignments" bson:"assignments"`
}

// Clone returns a deep copy of b.
func (b MonthlyBoard) Clone() MonthlyBoard {
	out := MonthlyBoard{Month: b.Month}
	if b.Assignments != nil {
		out.Assignments = make([]Assignment, len(b.Assignments))
		copy(out.Assignments, b.Assignments)
	}
	return out
}

// Find returns the index of the slot (date, typ) or -1.
func (b MonthlyBoard) Find(date string, typ MeetingType) int {
	for i := range b.Assignments {
		if b.Assignments[i].Date == date && b.Assignments[i].Type == typ {
			return i
		}
	}
	return -1
}

// UsedCoordinators returns the ids assigned anywhere on the board, skipping
// the slot identified by skipKey.
func (b MonthlyBoard) UsedCoordinators(skipKey string) map[string]struct{} {
	used := make(map[string]struct{}, len(b.Assignments))
	for _, a := range b.Assignments {
		if a.CoordinatorID == "" || a.Key() == skipKey {
			continue
		}
		used[a.CoordinatorID] = struct{}{}
	}
	return used
}

// SortAssignments orders slots by date, Friday before Sunday on ties.
func SortAssignments(as []Assignment) {
	sort.SliceStable(as, func(i, j int) bool {
		if as[i].Date != as[j].Date {
			return as[i].Date < as[j].Date
		}
		return as[i].Type < as[j].Type
	})
}

// CloneBoards returns a deep copy of boards.
func CloneBoards(boards []MonthlyBoard) []MonthlyBoard {
	if boards == nil {
		return nil
	}
	out := make([]MonthlyBoard, len(boards))
	for i := range boards {
		out[i] = boards[i].Clone()
	}
	return out
}

// IndexBoard returns the index of the board for month, or -1.
func IndexBoard(boards []MonthlyBoard, month string) int {
	for i := range boards {
		if boards[i].Month == month {
			return i
		}
	}
	return -1
}

// UpsertBoard replaces the board with the same month or appends it, keeping
// boards ordered by month.
func UpsertBoard(boards []MonthlyBoard, board MonthlyBoard) []MonthlyBoard {
	if i := IndexBoard(boards, board.Month); i >= 0 {
		boards[i] = board
		return boards
	}
	boards = append(boards, board)
	SortBoards(boards)
	return boards
}

// SortBoards orders boards by month key.
func SortBoards(boards []MonthlyBoard) {
	sort.SliceStable(boards, func(i, j int) bool { return boards[i].Month < boards[j].Month })
}
