// Package domain contains the core data types for the PlanejaTrip application.
// This package has no infrastructure dependencies and is imported by every
// other internal package (repo, service, app, handler).
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Permission is the access level a participant holds on a trip.
type Permission string

const (
	PermissionEdit     Permission = "EDIT"
	PermissionViewOnly Permission = "VIEW_ONLY"
)

// Valid reports whether p is one of the known permissions.
func (p Permission) Valid() bool {
	return p == PermissionEdit || p == PermissionViewOnly
}

// Currency is the ISO code a trip budget is expressed in.
type Currency string

const (
	CurrencyBRL Currency = "BRL"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyBRL, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// BudgetStyle describes how much the travellers want to spend per activity.
type BudgetStyle string

const (
	BudgetEconomico   BudgetStyle = "economico"
	BudgetConfortavel BudgetStyle = "confortavel"
	BudgetLuxo        BudgetStyle = "luxo"
	BudgetExclusivo   BudgetStyle = "exclusivo"
)

// Valid reports whether b is a known budget style.
func (b BudgetStyle) Valid() bool {
	switch b {
	case BudgetEconomico, BudgetConfortavel, BudgetLuxo, BudgetExclusivo:
		return true
	}
	return false
}

// Preferences is the free-form taste block used to steer suggestions.
type Preferences struct {
	Likes       []string    `json:"likes"`
	Dislikes    []string    `json:"dislikes"`
	BudgetStyle BudgetStyle `json:"budgetStyle"`
}

// DefaultPreferences is applied to trips stored before preferences existed.
func DefaultPreferences() Preferences {
	return Preferences{Likes: []string{}, Dislikes: []string{}, BudgetStyle: BudgetConfortavel}
}

// Participant is a user granted access to a trip. Unique by Email within a trip.
type Participant struct {
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Permission Permission `json:"permission"`
}

// Category is a spending label activities are grouped by.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultCategories is the label set given to trips created without any.
func DefaultCategories() []Category {
	names := []string{"Accommodation", "Food", "Leisure", "Transport", "Shopping", "Emergency"}
	out := make([]Category, len(names))
	for i, n := range names {
		out[i] = Category{ID: strings.ToLower(n), Name: n}
	}
	return out
}

// Activity is a single planned item on a day of the itinerary.
// RealCost is nil until the activity is confirmed.
// Participants holds display names, not emails.
type Activity struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Time          string    `json:"time"`
	Description   string    `json:"description,omitempty"`
	EstimatedCost float64   `json:"estimatedCost"`
	RealCost      *float64  `json:"realCost,omitempty"`
	IsConfirmed   bool      `json:"isConfirmed"`
	Participants  []string  `json:"participants"`
	Category      string    `json:"category"`
}

// Day is one calendar day of a trip, numbered from 1.
type Day struct {
	Date       time.Time  `json:"date"`
	DayNumber  int        `json:"dayNumber"`
	Activities []Activity `json:"activities"`
}

// Trip is the top-level aggregate. It is shared mutable state: every
// participant with EDIT permission read-modify-writes it, guarded by Version.
type Trip struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Destination  string        `json:"destination"`
	Description  string        `json:"description,omitempty"`
	StartDate    time.Time     `json:"startDate"`
	EndDate      time.Time     `json:"endDate"`
	Budget       float64       `json:"budget"`
	Currency     Currency      `json:"currency"`
	IsCompleted  bool          `json:"isCompleted"`
	OwnerEmail   string        `json:"ownerEmail"`
	Days         []Day         `json:"days"`
	Categories   []Category    `json:"categories"`
	Participants []Participant `json:"participants"`
	Preferences  Preferences   `json:"preferences"`
	Version      int64         `json:"version"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// NormalizeEmail is the canonical form emails are stored and compared in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Participant returns the participant entry for email, if any.
func (t Trip) Participant(email string) (Participant, bool) {
	email = NormalizeEmail(email)
	for _, p := range t.Participants {
		if NormalizeEmail(p.Email) == email {
			return p, true
		}
	}
	return Participant{}, false
}

// HasParticipant reports whether email is in the participant set.
func (t Trip) HasParticipant(email string) bool {
	_, ok := t.Participant(email)
	return ok
}

// CanEdit reports whether email holds EDIT permission on the trip.
func (t Trip) CanEdit(email string) bool {
	p, ok := t.Participant(email)
	return ok && p.Permission == PermissionEdit
}

// AddParticipant appends p unless a participant with the same email exists.
// It reports whether the set changed.
func (t *Trip) AddParticipant(p Participant) bool {
	if t.HasParticipant(p.Email) {
		return false
	}
	p.Email = NormalizeEmail(p.Email)
	t.Participants = append(t.Participants, p)
	return true
}

// WithDefaults fills the blocks older records may lack. It never touches
// fields that are already set.
func (t Trip) WithDefaults() Trip {
	if !t.Preferences.BudgetStyle.Valid() {
		t.Preferences.BudgetStyle = BudgetConfortavel
	}
	if t.Preferences.Likes == nil {
		t.Preferences.Likes = []string{}
	}
	if t.Preferences.Dislikes == nil {
		t.Preferences.Dislikes = []string{}
	}
	if t.Days == nil {
		t.Days = []Day{}
	}
	if t.Categories == nil {
		t.Categories = []Category{}
	}
	if t.Participants == nil {
		t.Participants = []Participant{}
	}
	return t
}

// FindActivity locates an activity by ID across all days.
// Returns the day index and activity index, or ok=false.
func (t Trip) FindActivity(id uuid.UUID) (dayIdx, actIdx int, ok bool) {
	for d, day := range t.Days {
		for a, act := range day.Activities {
			if act.ID == id {
				return d, a, true
			}
		}
	}
	return 0, 0, false
}

// MaxTripDays is the longest trip, in calendar days, that can be planned.
const MaxTripDays = 366

// DayCount returns the number of calendar dates from start to end inclusive.
func DayCount(start, end time.Time) int {
	return int(truncateDay(end).Sub(truncateDay(start)).Hours()/24) + 1
}

// BuildDays returns one empty Day per calendar date from start to end inclusive.
// Returns nil when end is before start.
func BuildDays(start, end time.Time) []Day {
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		return nil
	}
	var days []Day
	for d, n := start, 1; !d.After(end); d, n = d.AddDate(0, 0, 1), n+1 {
		days = append(days, Day{Date: d, DayNumber: n, Activities: []Activity{}})
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
