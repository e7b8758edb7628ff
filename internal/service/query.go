package service

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sakif/event-registration/internal/apperror"
	"github.com/sakif/event-registration/internal/model"
)

// Sort orders for the participant table.
const (
	SortDefault  = "default"  // paid first, then by participant number
	SortAlphabet = "alphabet" // by name
	SortPrice    = "price"    // by payment amount, highest first
)

// Query is the search and sort state of the participant table.
type Query struct {
	Search string
	Sort   string
}

// ParseQuery validates the raw q/sort parameters.
func ParseQuery(search, sort string) (Query, error) {
	switch sort {
	case "":
		sort = SortDefault
	case SortDefault, SortAlphabet, SortPrice:
	default:
		return Query{}, apperror.ValidationFailed("sort",
			fmt.Sprintf("sort must be one of %s, %s, %s", SortDefault, SortAlphabet, SortPrice))
	}
	return Query{Search: strings.TrimSpace(search), Sort: sort}, nil
}

// Apply filters participants by a case-insensitive name substring and sorts
// them. The input slice is reordered in place.
func (q Query) Apply(participants []model.Participant) []model.Participant {
	out := participants
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		out = participants[:0:0]
		for _, p := range participants {
			if strings.Contains(strings.ToLower(p.UserName), needle) {
				out = append(out, p)
			}
		}
	}

	byNumber := func(a, b model.Participant) int {
		return cmpInt64(a.ParticipantNumber, b.ParticipantNumber)
	}

	switch q.Sort {
	case SortAlphabet:
		// Names are mostly Cyrillic; byte order would put "Ё" after "я".
		col := collate.New(language.Russian, collate.IgnoreCase)
		slices.SortStableFunc(out, func(a, b model.Participant) int {
			if c := col.CompareString(a.UserName, b.UserName); c != 0 {
				return c
			}
			return byNumber(a, b)
		})
	case SortPrice:
		slices.SortStableFunc(out, func(a, b model.Participant) int {
			if c := cmpInt64(b.PaymentAmount, a.PaymentAmount); c != 0 {
				return c
			}
			return byNumber(a, b)
		})
	default:
		slices.SortStableFunc(out, func(a, b model.Participant) int {
			if a.Paid != b.Paid {
				if a.Paid {
					return -1
				}
				return 1
			}
			return byNumber(a, b)
		})
	}
	return out
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
