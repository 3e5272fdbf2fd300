package cleaner

// Range is a closed numeric domain [Min, Max] from the official BAAC
// documentation. Values outside the range become null.
type Range struct {
	Min, Max int64
}

func (r Range) contains(v int64) bool { return v >= r.Min && v <= r.Max }

// Per-table domain ranges. Keys are raw column names.
//
// These tables are the authoritative validation contract; every governed
// value is either null or inside its range after cleaning.
var (
	accidentRanges = map[string]Range{
		"jour": {1, 31},
		"mois": {1, 12},
		"an":   {1900, 2100},
		"hrmn": {0, 2359},
		"lum":  {1, 5},
		"agg":  {1, 2},
		"int":  {1, 8},
		"atm":  {1, 9},
		"col":  {1, 7},
	}

	locationRanges = map[string]Range{
		"catr":  {1, 9},
		"circ":  {1, 9},
		"prof":  {0, 9},
		"plan":  {1, 9},
		"surf":  {1, 9},
		"infra": {0, 9},
		"situ":  {1, 8},
		"vma":   {0, 150},
	}

	userRanges = map[string]Range{
		"sexe":   {1, 2},
		"grav":   {1, 4},
		"trajet": {1, 9},
		"locp":   {1, 9},
		"actp":   {1, 13},
		"place":  {1, 9},
	}

	vehicleRanges = map[string]Range{
		"senc":  {1, 3},
		"catv":  {1, 99},
		"choc":  {1, 9},
		"manv":  {1, 26},
		"motor": {1, 6},
	}
)

// Ranges returns the domain-range table for a raw table name ("caracteristiques",
// "lieux", "usagers", "vehicules"), or nil for unknown names. The audit stage
// uses it to count out-of-range values without duplicating the contract.
func Ranges(table string) map[string]Range {
	switch table {
	case "caracteristiques":
		return accidentRanges
	case "lieux":
		return locationRanges
	case "usagers":
		return userRanges
	case "vehicules":
		return vehicleRanges
	default:
		return nil
	}
}

// Sentinel sets are per-table on purpose: 99 means "unknown" in the usagers
// table but is a legitimate "other" vehicle category in vehicules. A shared
// constant here would silently corrupt catv.
var (
	userSentinels = map[int64]struct{}{
		-1:  {},
		0:   {},
		99:  {},
		999: {},
	}

	vehicleSentinels = map[int64]struct{}{
		-1:  {},
		0:   {},
		999: {},
	}
)
