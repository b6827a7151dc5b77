// Package model holds the core data types shared by the scheduling packages.
package model

// Coordinator is a person eligible to lead meetings.
//
// Stars is the remaining priority credit. It is never negative once a
// roster has been normalized and each automatic pick consumes one star.
type Coordinator struct {
	ID        string `json:"id"        bson:"id"`
	Name      string `json:"name"      bson:"name"`
	Stars     int    `json:"stars"     bson:"stars"`
	Available bool   `json:"available" bson:"available"`
	Phone     string `json:"phone,omitempty" bson:"phone,omitempty"`
}

// ConsumeStar decrements Stars, floored at zero. It reports whether a star
// was actually spent.
func (c *Coordinator) ConsumeStar() bool {
	if c.Stars <= 0 {
		c.Stars = 0
		return false
	}
	c.Stars--
	return true
}

// CloneCoordinators returns an independent copy of coords.
func CloneCoordinators(coords []Coordinator) []Coordinator {
	if coords == nil {
		return nil
	}
	out := make([]Coordinator, len(coords))
	copy(out, coords)
	return out
}

// IndexCoordinator returns the index of the coordinator with the given id,
// or -1.
func IndexCoordinator(coords []Coordinator, id string) int {
	if id == "" {
		return -1
	}
	for i := range coords {
		if coords[i].ID == id {
			return i
		}
	}
	return -1
}

// FindCoordinatorByName returns the first coordinator whose name matches
// name after trimming and folding case.
func FindCoordinatorByName(coords []Coordinator, name string) (Coordinator, bool) {
	want := FoldName(name)
	if want == "" {
		return Coordinator{}, false
	}
	for _, c := range coords {
		if FoldName(c.Name) == want {
			return c, true
		}
	}
	return Coordinator{}, false
}
