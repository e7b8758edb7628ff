package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sakif/event-registration/internal/dates"
	"github.com/sakif/event-registration/internal/model"
	"github.com/sakif/event-registration/internal/repository"
)

// Count is one row of a distribution.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Statistics are the aggregates shown on the statistics page.
type Statistics struct {
	Total          int     `json:"total"`
	Paid           int     `json:"paid"`
	PaidAmount     int64   `json:"paid_amount"`
	Admitted       int     `json:"admitted"`
	FirstTime      int     `json:"first_time"`
	UniqueCities   int     `json:"unique_cities"`
	UniqueChurches int     `json:"unique_churches"`
	AgeBrackets    []Count `json:"age_brackets"` // in dates.Brackets order
	ByCity         []Count `json:"by_city"`      // count desc
	ByChurch       []Count `json:"by_church"`    // count desc
}

// Statistics computes the aggregates over every participant.
func (s *ParticipantService) Statistics(ctx context.Context) (*Statistics, error) {
	participants, err := s.repo.List(ctx, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("computing statistics: %w", err)
	}
	st := ComputeStatistics(participants, s.now())
	return &st, nil
}

// ComputeStatistics aggregates participants as of now. Participants without
// a city or church are left out of those distributions; a missing or
// unparseable birth date counts as "unknown".
func ComputeStatistics(participants []model.Participant, now time.Time) Statistics {
	st := Statistics{Total: len(participants)}

	brackets := make(map[string]int, len(dates.Brackets))
	cities := map[string]int{}
	churches := map[string]int{}

	for _, p := range participants {
		if p.Paid {
			st.Paid++
			st.PaidAmount += p.PaymentAmount
		}
		if p.Admitted() {
			st.Admitted++
		}
		if p.FirstTime {
			st.FirstTime++
		}
		if p.City != "" {
			cities[p.City]++
		}
		if p.Church != "" {
			churches[p.Church]++
		}
		brackets[dates.AgeBracket(dates.AgeFromString(p.BirthDate, now))]++
	}

	st.UniqueCities = len(cities)
	st.UniqueChurches = len(churches)
	st.ByCity = distribution(cities)
	st.ByChurch = distribution(churches)

	st.AgeBrackets = make([]Count, 0, len(dates.Brackets))
	for _, b := range dates.Brackets {
		st.AgeBrackets = append(st.AgeBrackets, Count{Name: b, Count: brackets[b]})
	}
	return st
}

// distribution sorts by count desc, then name, so equal counts have a
// stable order.
func distribution(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
