package suggest

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pkordes/planejatrip/internal/domain"
)

// styleCostHints spells out what each budget style means in money.
var styleCostHints = map[domain.BudgetStyle]string{
	domain.BudgetEconomico:   "mostly free activities with a few cheap ones (roughly 0 to 50 in local currency)",
	domain.BudgetConfortavel: "a balance of cost and value (roughly 50 to 200)",
	domain.BudgetLuxo:        "high-end experiences (roughly 200 to 1000)",
	domain.BudgetExclusivo:   "unique, very expensive experiences (above 1000)",
}

func activityPrompt(t domain.Trip) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the PlanejaTrip travel assistant. Suggest %d NEW tourist activities in %s.\n\n", suggestionCount, t.Destination)
	fmt.Fprintf(&b, "Budget style: %s (%s).\n", t.Preferences.BudgetStyle, styleCostHints[t.Preferences.BudgetStyle])
	fmt.Fprintf(&b, "The traveller likes: %s.\n", listOrNone(t.Preferences.Likes))
	fmt.Fprintf(&b, "The traveller dislikes: %s.\n\n", listOrNone(t.Preferences.Dislikes))

	b.WriteString("Already planned, do not repeat:\n")
	names := plannedNames(t)
	if len(names) == 0 {
		b.WriteString("- none\n")
	}
	for _, n := range names {
		fmt.Fprintf(&b, "- %s\n", n)
	}

	b.WriteString("\nRules:\n")
	b.WriteString("1. Never suggest anything related to the dislikes.\n")
	b.WriteString("2. Strongly prefer suggestions related to the likes.\n")
	b.WriteString("3. Estimated costs must fit the budget style.\n")
	fmt.Fprintf(&b, "4. Each activity has name, time (HH:MM), description, estimatedCost (number, local currency) and category, one of: %s.\n", categoryNames(t))
	b.WriteString("Answer with a JSON array only.\n")
	return b.String()
}

func travelPrompt(t domain.Trip) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an experienced travel guide. Write markdown suggestions for a visitor to %s.\n\n", t.Destination)
	fmt.Fprintf(&b, "Budget style: %s. Total budget for spending at the destination: %s %.2f over %d days.\n", t.Preferences.BudgetStyle, t.Currency, t.Budget, len(t.Days))
	fmt.Fprintf(&b, "Likes: %s. Dislikes: %s.\n\n", listOrNone(t.Preferences.Likes), listOrNone(t.Preferences.Dislikes))
	b.WriteString("Sections:\n")
	b.WriteString("## Budget Analysis: rate the budget as challenging, ideal, generous or very generous for this destination and style. Warn kindly when it is challenging.\n")
	b.WriteString("## Suggested Itinerary: 5 to 7 bullet points, place names in bold, aligned with the likes and avoiding the dislikes.\n")
	fmt.Fprintf(&b, "## Search Flights: one friendly sentence ending with this link: %s\n", flightLink(t.Destination))
	return b.String()
}

// chatInstruction is the system instruction for a trip's travel assistant.
func chatInstruction(t domain.Trip) string {
	return fmt.Sprintf("You are a helpful travel assistant for a trip to %s. Your name is PlanejaTrip Assistant. "+
		"Give concise, useful information and recommendations and answer questions about the trip. "+
		"Format answers in markdown with headings, bold text and lists where appropriate.", t.Destination)
}

// flightLink is a markdown link to a Google Flights search for dest.
func flightLink(dest string) string {
	return fmt.Sprintf("[**Google Flights**](https://www.google.com/flights?q=flights+to+%s)", url.QueryEscape(dest))
}

func plannedNames(t domain.Trip) []string {
	var names []string
	for _, d := range t.Days {
		for _, a := range d.Activities {
			names = append(names, a.Name)
		}
	}
	return names
}

func categoryNames(t domain.Trip) string {
	cats := t.Categories
	if len(cats) == 0 {
		cats = domain.DefaultCategories()
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "nothing specified"
	}
	return strings.Join(items, ", ")
}
