// Package catalog holds the static table of bookable item kinds.  Each
// kind has a per-slot capacity (how many may be booked over the same
// interval) and an hourly rate.  The table is read-only and has no
// failure modes beyond an unknown kind.
package catalog

// ItemKind describes one bookable resource category.
type ItemKind struct {
	Name       string  // catalog key, e.g. "workshop"
	Capacity   int     // concurrent reservations allowed per slot
	HourlyRate float64 // price per hour before discounts
}

// items is the fixed catalog of the facility's equipment.
var items = map[string]ItemKind{
	"workshop":   {Name: "workshop", Capacity: 4, HourlyRate: 99},
	"microvac":   {Name: "microvac", Capacity: 2, HourlyRate: 1000},
	"irradiator": {Name: "irradiator", Capacity: 2, HourlyRate: 2220},
	"extruder":   {Name: "extruder", Capacity: 2, HourlyRate: 600},
	"crusher":    {Name: "crusher", Capacity: 1, HourlyRate: 20000},
	"harvester":  {Name: "harvester", Capacity: 1, HourlyRate: 8800},
}

// Lookup returns the catalog entry for the given kind.  The boolean is
// false when the kind is not part of the catalog.
func Lookup(kind string) (ItemKind, bool) {
	it, ok := items[kind]
	return it, ok
}

// Kinds returns the names of all catalog entries.  Order is not
// specified; callers that need deterministic output must sort.
func Kinds() []string {
	out := make([]string, 0, len(items))
	for k := range items {
		out = append(out, k)
	}
	return out
}
