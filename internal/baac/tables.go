// Package baac defines the typed record sets for the four BAAC tables
// (accident characteristics, locations, users, vehicles) and the schema
// contracts used to validate raw files once at load time.
//
// Cleaned tables are immutable snapshots: the cleaner builds them from a raw
// frame and nothing mutates them afterwards. Nil pointer fields mean the value
// was missing, out of range, or a sentinel code in the source file.
package baac

import "baac/internal/frame"

// Accident is one row of the characteristics table (one per accident event).
// NumAcc is the join anchor for every other table.
type Accident struct {
	NumAcc *int64

	Jour *int64
	Mois *int64
	An   *int64

	// Hrmn is the canonical zero-padded "HH:MM" form. The raw file carries
	// either "H:MM" strings or encoded HHMM integers depending on vintage.
	Hrmn *string

	Lum *int64
	Dep *string
	Com *string
	Agg *int64
	Int *int64
	Atm *int64
	Col *int64
	Adr *string

	Lat  *float64
	Long *float64

	// Periode is derived from Hrmn ("Nuit", "Matin", "Après-midi", "Soir").
	Periode *string
}

// Location is one row of the lieux table (1:1 with Accident on NumAcc).
type Location struct {
	NumAcc *int64

	Catr    *int64
	Voie    *float64
	V1      *string
	V2      *float64
	Circ    *int64
	Nbv     *int64
	Vosp    *int64
	Prof    *int64
	Pr      *float64
	Pr1     *float64
	Plan    *int64
	Lartpc  *string
	Larrout *float64
	Surf    *int64
	Infra   *int64
	Situ    *int64
	Vma     *int64

	// Agg is borrowed from the Accident table by an explicit enrichment step;
	// it must be attached before Zone is computed.
	Agg *int64

	Zone          *string
	NiveauVitesse *string
}

// User is one row of the usagers table, keyed by (NumAcc, IDUsager, IDVehicule).
type User struct {
	NumAcc *int64

	// IDUsager is numeric after whitespace normalization.
	IDUsager *int64
	// IDVehicule stays a normalized string key; the vehicles table joins on it.
	IDVehicule *string
	NumVeh     *string

	Place  *int64
	Catu   *int64
	Grav   *int64
	Sexe   *int64
	AnNais *int64
	Trajet *int64
	Secu1  *int64
	Secu2  *int64
	Secu3  *int64
	Locp   *int64
	Actp   *int64
	Etatp  *int64

	Grav3      *string
	Age        *int64
	TrancheAge *string
}

// Vehicle is one row of the vehicules table, keyed by (NumAcc, IDVehicule).
type Vehicle struct {
	NumAcc     *int64
	IDVehicule *string
	NumVeh     *string

	Senc   *int64
	Catv   *int64
	Obs    *int64
	Obsm   *int64
	Choc   *int64
	Manv   *int64
	Motor  *int64
	Occutc *float64
}

// AccidentTable is the cleaned characteristics snapshot.
type AccidentTable struct{ Rows []Accident }

// LocationTable is the cleaned lieux snapshot.
type LocationTable struct{ Rows []Location }

// UserTable is the cleaned usagers snapshot.
type UserTable struct{ Rows []User }

// VehicleTable is the cleaned vehicules snapshot.
type VehicleTable struct{ Rows []Vehicle }

func cell[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// Frame renders the table with the official column order plus derived columns
// at the end. The pruner and exporter consume this form.
func (t *AccidentTable) Frame() *frame.Frame {
	f := frame.New(
		"Num_Acc", "jour", "mois", "an", "hrmn", "lum", "dep", "com",
		"agg", "int", "atm", "col", "adr", "lat", "long", "periode",
	)
	for _, r := range t.Rows {
		f.Rows = append(f.Rows, []any{
			cell(r.NumAcc), cell(r.Jour), cell(r.Mois), cell(r.An), cell(r.Hrmn),
			cell(r.Lum), cell(r.Dep), cell(r.Com), cell(r.Agg), cell(r.Int),
			cell(r.Atm), cell(r.Col), cell(r.Adr), cell(r.Lat), cell(r.Long),
			cell(r.Periode),
		})
	}
	return f
}

func (t *LocationTable) Frame() *frame.Frame {
	f := frame.New(
		"Num_Acc", "catr", "voie", "v1", "v2", "circ", "nbv", "vosp", "prof",
		"pr", "pr1", "plan", "lartpc", "larrout", "surf", "infra", "situ", "vma",
		"agg", "zone_detaillee", "niveau_vitesse",
	)
	for _, r := range t.Rows {
		f.Rows = append(f.Rows, []any{
			cell(r.NumAcc), cell(r.Catr), cell(r.Voie), cell(r.V1), cell(r.V2),
			cell(r.Circ), cell(r.Nbv), cell(r.Vosp), cell(r.Prof), cell(r.Pr),
			cell(r.Pr1), cell(r.Plan), cell(r.Lartpc), cell(r.Larrout),
			cell(r.Surf), cell(r.Infra), cell(r.Situ), cell(r.Vma),
			cell(r.Agg), cell(r.Zone), cell(r.NiveauVitesse),
		})
	}
	return f
}

func (t *UserTable) Frame() *frame.Frame {
	f := frame.New(
		"Num_Acc", "id_usager", "id_vehicule", "num_veh", "place", "catu",
		"grav", "sexe", "an_nais", "trajet", "secu1", "secu2", "secu3",
		"locp", "actp", "etatp", "grav_3_niveaux", "age", "tranche_age",
	)
	for _, r := range t.Rows {
		f.Rows = append(f.Rows, []any{
			cell(r.NumAcc), cell(r.IDUsager), cell(r.IDVehicule), cell(r.NumVeh),
			cell(r.Place), cell(r.Catu), cell(r.Grav), cell(r.Sexe),
			cell(r.AnNais), cell(r.Trajet), cell(r.Secu1), cell(r.Secu2),
			cell(r.Secu3), cell(r.Locp), cell(r.Actp), cell(r.Etatp),
			cell(r.Grav3), cell(r.Age), cell(r.TrancheAge),
		})
	}
	return f
}

func (t *VehicleTable) Frame() *frame.Frame {
	f := frame.New(
		"Num_Acc", "id_vehicule", "num_veh", "senc", "catv", "obs", "obsm",
		"choc", "manv", "motor", "occutc",
	)
	for _, r := range t.Rows {
		f.Rows = append(f.Rows, []any{
			cell(r.NumAcc), cell(r.IDVehicule), cell(r.NumVeh), cell(r.Senc),
			cell(r.Catv), cell(r.Obs), cell(r.Obsm), cell(r.Choc), cell(r.Manv),
			cell(r.Motor), cell(r.Occutc),
		})
	}
	return f
}
