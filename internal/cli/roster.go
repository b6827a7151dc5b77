package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/internal/domain/roster"
)

// rosterFile is the TOML layout:
//
//	[[coordinator]]
//	name = "Ann"
//	stars = 2
//	available = true
//	phone = "555-0100"
type rosterFile struct {
	Coordinators []rosterEntry `toml:"coordinator"`
}

type rosterEntry struct {
	ID        string `toml:"id"`
	Name      string `toml:"name"`
	Stars     *int   `toml:"stars"`
	Available *bool  `toml:"available"`
	Phone     string `toml:"phone"`
}

// LoadRoster reads coordinators from a TOML file. Unknown keys are an error
// so typos do not silently drop fields.
func LoadRoster(path string) ([]model.Coordinator, error) {
	var f rosterFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("read roster %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	coords := make([]model.Coordinator, 0, len(f.Coordinators))
	for _, e := range f.Coordinators {
		c := model.Coordinator{
			ID:        e.ID,
			Name:      e.Name,
			Stars:     roster.DefaultStars,
			Available: true,
			Phone:     e.Phone,
		}
		if e.Stars != nil {
			c.Stars = *e.Stars
		}
		if e.Available != nil {
			c.Available = *e.Available
		}
		coords = append(coords, c)
	}
	return roster.Normalize(coords)
}
