package derive

import "baac/internal/baac"

// AttachBuiltUp copies the built-up flag (agg) from the accident table onto
// each location record, matching on the accident identifier (left join: a
// location with no matching accident keeps a nil flag).
//
// This cross-table borrow is an explicit step because Zone depends on it;
// EnrichLocations runs it before classifying.
func AttachBuiltUp(locs *baac.LocationTable, accidents *baac.AccidentTable) {
	agg := make(map[int64]*int64, len(accidents.Rows))
	for i := range accidents.Rows {
		a := &accidents.Rows[i]
		if a.NumAcc == nil {
			continue
		}
		agg[*a.NumAcc] = a.Agg
	}

	for i := range locs.Rows {
		l := &locs.Rows[i]
		if l.NumAcc == nil {
			continue
		}
		if v, ok := agg[*l.NumAcc]; ok && v != nil {
			c := *v
			l.Agg = &c
		}
	}
}

// EnrichAccidents fills the derived fields of the accident table.
func EnrichAccidents(t *baac.AccidentTable) {
	for i := range t.Rows {
		t.Rows[i].Periode = PeriodOfDay(t.Rows[i].Hrmn)
	}
}

// EnrichUsers fills the derived fields of the user table for the given
// report year.
func EnrichUsers(t *baac.UserTable, reportYear int64) {
	for i := range t.Rows {
		u := &t.Rows[i]
		u.Grav3 = SeverityTier(u.Grav)
		u.Age = Age(reportYear, u.AnNais)
		u.TrancheAge = AgeBracket(u.Age)
	}
}

// EnrichLocations attaches the built-up flag from the accident table, then
// classifies zone and speed tier. Order matters: Zone reads the attached
// flag.
func EnrichLocations(t *baac.LocationTable, accidents *baac.AccidentTable) {
	AttachBuiltUp(t, accidents)
	for i := range t.Rows {
		l := &t.Rows[i]
		l.Zone = Zone(l.Agg, l.Catr, l.Vma)
		l.NiveauVitesse = SpeedTier(l.Vma)
	}
}
