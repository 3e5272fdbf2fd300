// Package cleaner implements the validation and normalization stage of the
// pipeline: raw frames in, typed immutable table snapshots out.
//
// Every Clean function follows the same contract:
//   - the input frame is never mutated (copy-on-clean),
//   - coercion failures null the field and keep the row,
//   - governed columns are range-checked against the BAAC documentation,
//   - sentinel "unknown" codes are nulled using the table's own sentinel set.
//
// Cleaning is idempotent: running a Clean function over an already-cleaned
// frame yields the same snapshot.
package cleaner

import (
	"baac/internal/baac"
	"baac/internal/frame"
)

// cols caches column positions so row access is positional, not name-driven.
type cols struct {
	ix map[string]int
}

func indexCols(f *frame.Frame) cols {
	m := make(map[string]int, len(f.Cols))
	for i, c := range f.Cols {
		m[c] = i
	}
	return cols{ix: m}
}

func (c cols) get(row []any, name string) any {
	i, ok := c.ix[name]
	if !ok || i >= len(row) {
		return nil
	}
	return row[i]
}

// rangedInt coerces v to an integer and nulls it when outside r.
func rangedInt(v any, r Range) *int64 {
	n := ParseInt(v)
	if n == nil || !r.contains(*n) {
		return nil
	}
	return n
}

// sentinelInt nulls sentinel codes before integer coercion.
func sentinelInt(v any, sentinels map[int64]struct{}) *int64 {
	if isSentinel(v, sentinels) {
		return nil
	}
	return ParseInt(v)
}

// sentinelRangedInt nulls sentinel codes, then coerces and range-checks.
func sentinelRangedInt(v any, sentinels map[int64]struct{}, r Range) *int64 {
	if isSentinel(v, sentinels) {
		return nil
	}
	return rangedInt(v, r)
}

// CleanAccidents validates and normalizes the caractéristiques frame.
// Returns a schema error when a governed column is absent from the header.
func CleanAccidents(raw *frame.Frame) (*baac.AccidentTable, error) {
	if _, err := baac.AccidentContract.ValidateHeader(raw.Cols); err != nil {
		return nil, err
	}
	c := indexCols(raw)

	out := &baac.AccidentTable{Rows: make([]baac.Accident, 0, len(raw.Rows))}
	for _, row := range raw.Rows {
		a := baac.Accident{
			NumAcc: ParseInt(c.get(row, "Num_Acc")),
			Jour:   rangedInt(c.get(row, "jour"), accidentRanges["jour"]),
			Mois:   rangedInt(c.get(row, "mois"), accidentRanges["mois"]),
			An:     rangedInt(c.get(row, "an"), accidentRanges["an"]),
			Lum:    rangedInt(c.get(row, "lum"), accidentRanges["lum"]),
			Dep:    ParseString(c.get(row, "dep")),
			Com:    ParseString(c.get(row, "com")),
			Agg:    rangedInt(c.get(row, "agg"), accidentRanges["agg"]),
			Int:    rangedInt(c.get(row, "int"), accidentRanges["int"]),
			Atm:    rangedInt(c.get(row, "atm"), accidentRanges["atm"]),
			Col:    rangedInt(c.get(row, "col"), accidentRanges["col"]),
			Adr:    ParseString(c.get(row, "adr")),
			Lat:    ParseFloat(c.get(row, "lat")),
			Long:   ParseFloat(c.get(row, "long")),
		}

		canonical, encoded := NormalizeHrmn(c.get(row, "hrmn"))
		if encoded != nil && accidentRanges["hrmn"].contains(*encoded) {
			a.Hrmn = canonical
		}

		out.Rows = append(out.Rows, a)
	}
	return out, nil
}

// CleanLocations validates and normalizes the lieux frame.
func CleanLocations(raw *frame.Frame) (*baac.LocationTable, error) {
	if _, err := baac.LocationContract.ValidateHeader(raw.Cols); err != nil {
		return nil, err
	}
	c := indexCols(raw)

	out := &baac.LocationTable{Rows: make([]baac.Location, 0, len(raw.Rows))}
	for _, row := range raw.Rows {
		out.Rows = append(out.Rows, baac.Location{
			NumAcc:  ParseInt(c.get(row, "Num_Acc")),
			Catr:    rangedInt(c.get(row, "catr"), locationRanges["catr"]),
			Voie:    ParseFloat(c.get(row, "voie")),
			V1:      ParseString(c.get(row, "v1")),
			V2:      ParseFloat(c.get(row, "v2")),
			Circ:    rangedInt(c.get(row, "circ"), locationRanges["circ"]),
			Nbv:     ParseInt(c.get(row, "nbv")),
			Vosp:    ParseInt(c.get(row, "vosp")),
			Prof:    rangedInt(c.get(row, "prof"), locationRanges["prof"]),
			Pr:      ParseFloat(c.get(row, "pr")),
			Pr1:     ParseFloat(c.get(row, "pr1")),
			Plan:    rangedInt(c.get(row, "plan"), locationRanges["plan"]),
			Lartpc:  ParseString(c.get(row, "lartpc")),
			Larrout: ParseFloat(c.get(row, "larrout")),
			Surf:    rangedInt(c.get(row, "surf"), locationRanges["surf"]),
			Infra:   rangedInt(c.get(row, "infra"), locationRanges["infra"]),
			Situ:    rangedInt(c.get(row, "situ"), locationRanges["situ"]),
			Vma:     rangedInt(c.get(row, "vma"), locationRanges["vma"]),
		})
	}
	return out, nil
}

// CleanUsers validates and normalizes the usagers frame.
//
// Identifier columns are whitespace-normalized before anything else so they
// are usable as join keys; they are exempt from sentinel nulling.
func CleanUsers(raw *frame.Frame) (*baac.UserTable, error) {
	if _, err := baac.UserContract.ValidateHeader(raw.Cols); err != nil {
		return nil, err
	}
	c := indexCols(raw)

	out := &baac.UserTable{Rows: make([]baac.User, 0, len(raw.Rows))}
	for _, row := range raw.Rows {
		u := baac.User{
			NumAcc:     ParseInt(c.get(row, "Num_Acc")),
			IDVehicule: NormalizeID(c.get(row, "id_vehicule")),
			NumVeh:     ParseString(c.get(row, "num_veh")),
			Place:      sentinelRangedInt(c.get(row, "place"), userSentinels, userRanges["place"]),
			Catu:       sentinelInt(c.get(row, "catu"), userSentinels),
			Grav:       sentinelRangedInt(c.get(row, "grav"), userSentinels, userRanges["grav"]),
			Sexe:       sentinelRangedInt(c.get(row, "sexe"), userSentinels, userRanges["sexe"]),
			AnNais:     sentinelInt(c.get(row, "an_nais"), userSentinels),
			Trajet:     sentinelRangedInt(c.get(row, "trajet"), userSentinels, userRanges["trajet"]),
			Secu1:      sentinelInt(c.get(row, "secu1"), userSentinels),
			Secu2:      sentinelInt(c.get(row, "secu2"), userSentinels),
			Secu3:      sentinelInt(c.get(row, "secu3"), userSentinels),
			Locp:       sentinelRangedInt(c.get(row, "locp"), userSentinels, userRanges["locp"]),
			Actp:       sentinelRangedInt(c.get(row, "actp"), userSentinels, userRanges["actp"]),
			Etatp:      sentinelInt(c.get(row, "etatp"), userSentinels),
		}

		if id := NormalizeID(c.get(row, "id_usager")); id != nil {
			u.IDUsager = ParseInt(*id)
		}

		out.Rows = append(out.Rows, u)
	}
	return out, nil
}

// CleanVehicles validates and normalizes the vehicules frame.
//
// The vehicules sentinel set deliberately excludes 99: catv 99 is the
// legitimate "other vehicle" category and must survive.
func CleanVehicles(raw *frame.Frame) (*baac.VehicleTable, error) {
	if _, err := baac.VehicleContract.ValidateHeader(raw.Cols); err != nil {
		return nil, err
	}
	c := indexCols(raw)

	out := &baac.VehicleTable{Rows: make([]baac.Vehicle, 0, len(raw.Rows))}
	for _, row := range raw.Rows {
		v := baac.Vehicle{
			NumAcc:     ParseInt(c.get(row, "Num_Acc")),
			IDVehicule: NormalizeID(c.get(row, "id_vehicule")),
			NumVeh:     ParseString(c.get(row, "num_veh")),
			Senc:       sentinelRangedInt(c.get(row, "senc"), vehicleSentinels, vehicleRanges["senc"]),
			Catv:       sentinelRangedInt(c.get(row, "catv"), vehicleSentinels, vehicleRanges["catv"]),
			Obs:        sentinelInt(c.get(row, "obs"), vehicleSentinels),
			Obsm:       sentinelInt(c.get(row, "obsm"), vehicleSentinels),
			Choc:       sentinelRangedInt(c.get(row, "choc"), vehicleSentinels, vehicleRanges["choc"]),
			Manv:       sentinelRangedInt(c.get(row, "manv"), vehicleSentinels, vehicleRanges["manv"]),
			Motor:      sentinelRangedInt(c.get(row, "motor"), vehicleSentinels, vehicleRanges["motor"]),
		}

		if occ := c.get(row, "occutc"); !isSentinel(occ, vehicleSentinels) {
			v.Occutc = ParseFloat(occ)
		}

		out.Rows = append(out.Rows, v)
	}
	return out, nil
}
