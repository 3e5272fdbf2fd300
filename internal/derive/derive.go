// Package derive computes the analytic categorical fields added after
// cleaning. Every function here is a pure function of already-cleaned
// values; derived fields never feed back into validation.
//
// The category labels are the file-format contract with the dashboard and
// must not change spelling.
package derive

// Time-of-day buckets.
const (
	PeriodNight     = "Nuit"
	PeriodMorning   = "Matin"
	PeriodAfternoon = "Après-midi"
	PeriodEvening   = "Soir"
)

// Severity tiers (3-level simplification of the 4-level grav code).
const (
	SeverityKilled       = "Tué"
	SeverityHospitalized = "Blessé hospitalisé"
	SeverityUnharmed     = "Indemne"
)

// Age brackets.
const (
	AgeMinor  = "Mineur"
	Age18to24 = "18–24"
	Age25to39 = "25–39"
	Age40to59 = "40–59"
	Age60Plus = "60+"
)

// Zone classifications.
const (
	ZoneMotorway   = "Autoroute"
	ZoneDenseUrban = "Zone urbaine dense"
	ZoneRural      = "Zone rurale"
	ZoneOther      = "Autre"
)

// Speed tiers.
const (
	SpeedLow    = "Faible"
	SpeedMedium = "Moyenne"
	SpeedHigh   = "Élevée"
)

func strPtr(s string) *string { return &s }

// PeriodOfDay buckets a canonical zero-padded "HH:MM" time.
// Lexicographic comparison is sufficient because the form is zero-padded.
func PeriodOfDay(hrmn *string) *string {
	if hrmn == nil {
		return nil
	}
	h := *hrmn
	switch {
	case h < "06:00":
		return strPtr(PeriodNight)
	case h < "12:00":
		return strPtr(PeriodMorning)
	case h < "18:00":
		return strPtr(PeriodAfternoon)
	default:
		return strPtr(PeriodEvening)
	}
}

// SeverityTier maps the 4-level grav code to its 3-level tier. Codes outside
// 1–4 should not occur after validation; they map to null rather than leak.
func SeverityTier(grav *int64) *string {
	if grav == nil {
		return nil
	}
	switch *grav {
	case 2:
		return strPtr(SeverityKilled)
	case 3:
		return strPtr(SeverityHospitalized)
	case 1, 4:
		return strPtr(SeverityUnharmed)
	default:
		return nil
	}
}

// Age computes the age at report time from the birth year.
func Age(reportYear int64, anNais *int64) *int64 {
	if anNais == nil {
		return nil
	}
	a := reportYear - *anNais
	return &a
}

// AgeBracket buckets an age.
func AgeBracket(age *int64) *string {
	if age == nil {
		return nil
	}
	switch {
	case *age < 18:
		return strPtr(AgeMinor)
	case *age < 25:
		return strPtr(Age18to24)
	case *age < 40:
		return strPtr(Age25to39)
	case *age < 60:
		return strPtr(Age40to59)
	default:
		return strPtr(Age60Plus)
	}
}

// Zone classifies the road environment from the built-up flag (agg), road
// category (catr), and speed limit (vma).
//
// Precondition: agg must already be attached to the location record (see
// AttachBuiltUp); agg and vma must both be non-null or the result is null.
// The motorway rule dominates the urban/rural speed rules.
func Zone(agg, catr, vma *int64) *string {
	if agg == nil || vma == nil {
		return nil
	}
	switch {
	case (catr != nil && *catr == 1) || *vma >= 90:
		return strPtr(ZoneMotorway)
	case *agg == 2 && *vma <= 50:
		return strPtr(ZoneDenseUrban)
	case *agg == 1 && *vma <= 80:
		return strPtr(ZoneRural)
	default:
		return strPtr(ZoneOther)
	}
}

// SpeedTier buckets the speed limit.
func SpeedTier(vma *int64) *string {
	if vma == nil {
		return nil
	}
	switch {
	case *vma <= 30:
		return strPtr(SpeedLow)
	case *vma <= 70:
		return strPtr(SpeedMedium)
	default:
		return strPtr(SpeedHigh)
	}
}
