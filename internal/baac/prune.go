package baac

// Per-table prune lists: free-form text, sparse reference fields, and codes
// superseded by derived fields. The pruner drops them from the export frames
// when present; a file that never carried one of these columns is fine.
var (
	AccidentPrune = []string{"dep", "com", "int", "adr"}

	LocationPrune = []string{"voie", "v1", "larrout", "v2", "lartpc", "plan", "pr", "pr1"}

	UserPrune = []string{"num_veh", "trajet", "locp", "actp", "etatp", "secu1", "secu2", "secu3"}

	VehiclePrune = []string{"motor", "num_veh", "obs", "obsm", "manv", "occutc"}
)
