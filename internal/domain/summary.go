package domain

import "sort"

// CategoryTotal is the confirmed real spending for one category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// Summary is the financial overview of a trip: planned versus actual
// spending, broken down by category.
//
// When Traveler is set, ByCategory and TotalReal cover only activities the
// traveler took part in, with each activity's real cost split equally among
// its participants. TotalEstimated and Remaining always describe the whole trip.
type Summary struct {
	Traveler       string          `json:"traveler,omitempty"`
	Currency       Currency        `json:"currency"`
	Budget         float64         `json:"budget"`
	TotalEstimated float64         `json:"totalEstimated"`
	TotalReal      float64         `json:"totalReal"`
	Remaining      float64         `json:"remaining"`
	ByCategory     []CategoryTotal `json:"byCategory"`
}

// Summarize computes the Summary of t. An empty traveler means everyone.
// Categories are ordered by amount descending, then by name.
func Summarize(t Trip, traveler string) Summary {
	s := Summary{Traveler: traveler, Currency: t.Currency, Budget: t.Budget, ByCategory: []CategoryTotal{}}

	var realAll float64
	byCat := map[string]float64{}
	for _, day := range t.Days {
		for _, a := range day.Activities {
			s.TotalEstimated += a.EstimatedCost
			if !a.IsConfirmed {
				continue
			}
			cost := 0.0
			if a.RealCost != nil {
				cost = *a.RealCost
			}
			realAll += cost

			if traveler != "" {
				if !containsString(a.Participants, traveler) {
					continue
				}
				cost /= float64(max(len(a.Participants), 1))
			}
			byCat[a.Category] += cost
			s.TotalReal += cost
		}
	}
	s.Remaining = t.Budget - realAll

	for name, amount := range byCat {
		s.ByCategory = append(s.ByCategory, CategoryTotal{Category: name, Amount: amount})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if s.ByCategory[i].Amount != s.ByCategory[j].Amount {
			return s.ByCategory[i].Amount > s.ByCategory[j].Amount
		}
		return s.ByCategory[i].Category < s.ByCategory[j].Category
	})
	return s
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
