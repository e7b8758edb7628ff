package dates

import "time"

// Age brackets used by the statistics page.
const (
	BracketChild   = "0-17"
	BracketYoung   = "18-25"
	BracketAdult   = "26-35"
	BracketMiddle  = "36-50"
	BracketSenior  = "50+"
	BracketUnknown = "unknown"
)

// Brackets lists every bracket in display order.
var Brackets = []string{
	BracketChild,
	BracketYoung,
	BracketAdult,
	BracketMiddle,
	BracketSenior,
	BracketUnknown,
}

// Age returns the number of whole years between birth and now.
// A year only counts once its month/day anniversary has been reached.
func Age(birth, now time.Time) int {
	by, bm, bd := birth.Date()
	ny, nm, nd := now.Date()

	age := ny - by
	if nm < bm || (nm == bm && nd < bd) {
		age--
	}
	return age
}

// AgeFromString computes the age for a stored birth date. Missing, invalid or
// future dates give ok == false ("unknown") rather than an error.
func AgeFromString(birthDate string, now time.Time) (age int, ok bool) {
	if birthDate == "" {
		return 0, false
	}
	birth, err := ParseCalendarDate(birthDate)
	if err != nil {
		return 0, false
	}
	age = Age(birth, now)
	if age < 0 {
		return 0, false
	}
	return age, true
}

// AgeBracket maps an age to its statistics bracket.
func AgeBracket(age int, ok bool) string {
	switch {
	case !ok:
		return BracketUnknown
	case age <= 17:
		return BracketChild
	case age <= 25:
		return BracketYoung
	case age <= 35:
		return BracketAdult
	case age <= 50:
		return BracketMiddle
	default:
		return BracketSenior
	}
}
