package baac

import (
	"fmt"
	"strings"
)

// Field describes one expected column of a raw BAAC file.
//
// Required marks the columns the cleaner and derivation engine cannot work
// without: their absence from an input file is a fatal schema error. Columns
// that only exist to be pruned later are not required; a file without them is
// accepted (tolerant drop).
type Field struct {
	Name     string
	Required bool
}

// Contract is the expected schema of one raw BAAC table.
type Contract struct {
	Table  string
	Fields []Field
}

// AccidentContract covers the caractéristiques file.
var AccidentContract = Contract{
	Table: "caracteristiques",
	Fields: []Field{
		{Name: "Num_Acc", Required: true},
		{Name: "jour", Required: true},
		{Name: "mois", Required: true},
		{Name: "an", Required: true},
		{Name: "hrmn", Required: true},
		{Name: "lum", Required: true},
		{Name: "dep"},
		{Name: "com"},
		{Name: "agg", Required: true},
		{Name: "int", Required: true},
		{Name: "atm", Required: true},
		{Name: "col", Required: true},
		{Name: "adr"},
		{Name: "lat", Required: true},
		{Name: "long", Required: true},
	},
}

// LocationContract covers the lieux file.
var LocationContract = Contract{
	Table: "lieux",
	Fields: []Field{
		{Name: "Num_Acc", Required: true},
		{Name: "catr", Required: true},
		{Name: "voie"},
		{Name: "v1"},
		{Name: "v2"},
		{Name: "circ", Required: true},
		{Name: "nbv"},
		{Name: "vosp"},
		{Name: "prof", Required: true},
		{Name: "pr"},
		{Name: "pr1"},
		{Name: "plan", Required: true},
		{Name: "lartpc"},
		{Name: "larrout"},
		{Name: "surf", Required: true},
		{Name: "infra", Required: true},
		{Name: "situ", Required: true},
		{Name: "vma", Required: true},
	},
}

// UserContract covers the usagers file.
var UserContract = Contract{
	Table: "usagers",
	Fields: []Field{
		{Name: "Num_Acc", Required: true},
		{Name: "id_usager", Required: true},
		{Name: "id_vehicule", Required: true},
		{Name: "num_veh"},
		{Name: "place", Required: true},
		{Name: "catu"},
		{Name: "grav", Required: true},
		{Name: "sexe", Required: true},
		{Name: "an_nais", Required: true},
		{Name: "trajet", Required: true},
		{Name: "secu1"},
		{Name: "secu2"},
		{Name: "secu3"},
		{Name: "locp", Required: true},
		{Name: "actp", Required: true},
		{Name: "etatp"},
	},
}

// VehicleContract covers the vehicules file.
var VehicleContract = Contract{
	Table: "vehicules",
	Fields: []Field{
		{Name: "Num_Acc", Required: true},
		{Name: "id_vehicule", Required: true},
		{Name: "num_veh"},
		{Name: "senc", Required: true},
		{Name: "catv", Required: true},
		{Name: "obs"},
		{Name: "obsm"},
		{Name: "choc", Required: true},
		{Name: "manv", Required: true},
		{Name: "motor", Required: true},
		{Name: "occutc"},
	},
}

// Columns returns the declared column names in contract order.
func (c Contract) Columns() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Name
	}
	return out
}

// ValidateHeader checks the header of a raw file against the contract.
//
// Missing required columns are fatal and reported together, naming the table
// and every absent column. Missing optional columns and unknown extra columns
// are accepted; extras are returned so the caller can log them.
func (c Contract) ValidateHeader(cols []string) (extras []string, err error) {
	have := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		have[col] = struct{}{}
	}

	var missing []string
	for _, f := range c.Fields {
		if !f.Required {
			continue
		}
		if _, ok := have[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("table %s: missing required column(s): %s",
			c.Table, strings.Join(missing, ", "))
	}

	declared := make(map[string]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		declared[f.Name] = struct{}{}
	}
	for _, col := range cols {
		if _, ok := declared[col]; !ok {
			extras = append(extras, col)
		}
	}
	return extras, nil
}
