package team

import (
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/ErikKalkoken/go-set"
	"github.com/icrowley/fake"

	"crewline.ai/internal/persistence/lineuplog"
	"crewline.ai/internal/sim/catalogs"
	"crewline.ai/internal/sim/logic/roll"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"

	nameListTries = 32
	fakeTries     = 8
)

// fakeMu guards fake's package-level generator, which is reseeded from the
// team's roller before every draw.
var fakeMu sync.Mutex

// names hands out full names that were never used before in this game,
// retired and discarded characters included.
type names struct {
	words catalogs.NameCatalog
	used  set.Set[string]
}

func (n *names) reserve(name string) { n.used.Add(name) }

func (n *names) taken(name string) bool { return n.used.Contains(name) }

// next draws from the word lists first. Once they are exhausted it falls back
// to generated names, and finally to a numbered suffix.
func (n *names) next(r *roll.Roller, gender string) string {
	first := n.words.Male
	if gender == GenderFemale {
		first = n.words.Female
	}
	for i := 0; i < nameListTries; i++ {
		name := first[r.Intn(len(first))] + " " + n.words.Last[r.Intn(len(n.words.Last))]
		if n.claim(name) {
			return name
		}
	}
	for i := 0; i < fakeTries; i++ {
		if name := fakeName(r, gender); n.claim(name) {
			return name
		}
	}
	base := first[r.Intn(len(first))] + " " + n.words.Last[r.Intn(len(n.words.Last))]
	for i := 2; ; i++ {
		if name := base + " " + strconv.Itoa(i); n.claim(name) {
			return name
		}
	}
}

func fakeName(r *roll.Roller, gender string) string {
	fakeMu.Lock()
	defer fakeMu.Unlock()
	fake.Seed(int64(r.Intn(math.MaxInt32)))
	given := fake.MaleFirstName()
	if gender == GenderFemale {
		given = fake.FemaleFirstName()
	}
	return given + " " + fake.LastName()
}

func (n *names) claim(name string) bool {
	if name != strings.TrimSpace(name) || name == "" || strings.Contains(name, lineuplog.Delimiter) || n.used.Contains(name) {
		return false
	}
	n.used.Add(name)
	return true
}
