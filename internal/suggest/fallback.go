package suggest

import (
	"fmt"

	"github.com/pkordes/planejatrip/internal/domain"
)

// sampleSuggestions stands in for the model when none is configured.
func sampleSuggestions() []Suggestion {
	return []Suggestion{
		{Name: "Visit a New Park", Time: "10:00", Description: "A relaxing walk.", EstimatedCost: 15, Category: "Leisure"},
		{Name: "Lunch at a Local Bistro", Time: "13:00", Description: "Try something different.", EstimatedCost: 120, Category: "Food"},
		{Name: "Explore the Craft Fair", Time: "16:00", Description: "See the local culture.", EstimatedCost: 50, Category: "Shopping"},
	}
}

// fallbackSuggestions is returned when the model fails.
func fallbackSuggestions() []Suggestion {
	return []Suggestion{
		{Name: "Explore the Local Beach", Time: "10:00", Description: "Walk along the shore.", EstimatedCost: 20, Category: "Leisure"},
		{Name: "Dinner with a View", Time: "19:00", Description: "Enjoy fresh seafood.", EstimatedCost: 250, Category: "Food"},
		{Name: "Boat Tour", Time: "14:00", Description: "See the coast from a new angle.", EstimatedCost: 180, Category: "Leisure"},
	}
}

const (
	chatApology     = "Sorry, I could not process your request right now."
	chatUnavailable = "The travel assistant is not available because no model API key is configured."
)

const travelTextUnavailable = "Suggestions could not be fetched right now. Please try again later."

func sampleTravelText(t domain.Trip) string {
	return fmt.Sprintf(`## Budget Analysis
Budget checks are not available without a model API key.

## Suggested Itinerary
* Explore the local market.
* Have a picnic in the central park.
* Dine at a traditional family restaurant.
* Visit the city's main landmark.
* Stroll through the historic quarter at sunset.

## Search Flights
Tickets to %s here: %s.

*These are sample suggestions because no model API key is configured.*
`, t.Destination, flightLink(t.Destination))
}
