// Package roster edits the coordinator list. Every function returns a new
// slice and leaves its input alone.
package roster

import (
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/internal/domain/schedule"
)

// DefaultStars is the credit a newly added coordinator starts with.
const DefaultStars = 1

var strict = bluemonday.StrictPolicy()

// Clean strips markup and surrounding whitespace from free text.
func Clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// NewCoordinator describes a coordinator to add. Nil fields take defaults.
type NewCoordinator struct {
	Name      string
	Stars     *int
	Available *bool
	Phone     string
}

// Patch describes an edit. Nil fields are left unchanged.
type Patch struct {
	Name      *string
	Stars     *int
	Available *bool
	Phone     *string
}

// Add appends a coordinator with a fresh id.
func Add(coords []model.Coordinator, in NewCoordinator) ([]model.Coordinator, model.Coordinator, error) {
	name := Clean(in.Name)
	if name == "" {
		return nil, model.Coordinator{}, model.ErrEmptyName
	}
	c := model.Coordinator{
		ID:        uuid.NewString(),
		Name:      name,
		Stars:     DefaultStars,
		Available: true,
		Phone:     Clean(in.Phone),
	}
	if in.Stars != nil {
		c.Stars = floor(*in.Stars)
	}
	if in.Available != nil {
		c.Available = *in.Available
	}
	out := append(model.CloneCoordinators(coords), c)
	return out, c, nil
}

// Remove drops a coordinator from the active pool. Boards keep the cached
// name on past assignments.
func Remove(coords []model.Coordinator, id string) ([]model.Coordinator, error) {
	i := model.IndexCoordinator(coords, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrCoordinatorNotFound, id)
	}
	out := make([]model.Coordinator, 0, len(coords)-1)
	out = append(out, coords[:i]...)
	return append(out, coords[i+1:]...), nil
}

// Rename changes a coordinator's name and rewrites it on every assignment
// the coordinator holds.
func Rename(
	coords []model.Coordinator,
	boards []model.MonthlyBoard,
	id, name string,
) ([]model.Coordinator, []model.MonthlyBoard, error) {
	return Update(coords, boards, id, Patch{Name: &name})
}

// SetAvailable toggles whether a coordinator can be picked.
func SetAvailable(coords []model.Coordinator, id string, available bool) ([]model.Coordinator, error) {
	out, _, err := Update(coords, nil, id, Patch{Available: &available})
	return out, err
}

// SetStars overwrites a coordinator's star balance, floored at zero.
func SetStars(coords []model.Coordinator, id string, stars int) ([]model.Coordinator, error) {
	out, _, err := Update(coords, nil, id, Patch{Stars: &stars})
	return out, err
}

// SetPhone records a contact number. An empty phone clears it.
func SetPhone(coords []model.Coordinator, id, phone string) ([]model.Coordinator, error) {
	out, _, err := Update(coords, nil, id, Patch{Phone: &phone})
	return out, err
}

// Update applies p to the coordinator id. A rename is propagated into
// boards, which may be nil when the caller knows no rename happens.
func Update(
	coords []model.Coordinator,
	boards []model.MonthlyBoard,
	id string,
	p Patch,
) ([]model.Coordinator, []model.MonthlyBoard, error) {
	i := model.IndexCoordinator(coords, id)
	if i < 0 {
		return nil, nil, fmt.Errorf("%w: %s", model.ErrCoordinatorNotFound, id)
	}
	out := model.CloneCoordinators(coords)
	outBoards := model.CloneBoards(boards)
	c := &out[i]

	if p.Name != nil {
		name := Clean(*p.Name)
		if name == "" {
			return nil, nil, model.ErrEmptyName
		}
		c.Name = name
		schedule.PropagateName(outBoards, c.ID, name)
	}
	if p.Stars != nil {
		c.Stars = floor(*p.Stars)
	}
	if p.Available != nil {
		c.Available = *p.Available
	}
	if p.Phone != nil {
		c.Phone = Clean(*p.Phone)
	}
	return out, outBoards, nil
}

// Normalize prepares a roster supplied wholesale: names and phones are
// cleaned, stars floored, missing ids minted. Entries without a name are
// rejected.
func Normalize(coords []model.Coordinator) ([]model.Coordinator, error) {
	out := make([]model.Coordinator, 0, len(coords))
	seen := make(map[string]struct{}, len(coords))
	for _, c := range coords {
		c.Name = Clean(c.Name)
		if c.Name == "" {
			return nil, model.ErrEmptyName
		}
		c.Phone = Clean(c.Phone)
		c.Stars = floor(c.Stars)
		c.ID = strings.TrimSpace(c.ID)
		if _, dup := seen[c.ID]; c.ID == "" || dup {
			c.ID = uuid.NewString()
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

func floor(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
