// Package suggest produces activity ideas and travel notes for a trip from a
// generative text model. Suggestions are best effort: with no model
// configured the caller gets canned examples, and any model failure is
// logged and replaced by a static fallback. Nothing here returns an error.
package suggest

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/planejatrip/internal/domain"
)

// suggestionCount is how many activities a single request asks for.
const suggestionCount = 3

// chatHistoryLimit caps how many earlier messages are sent with a chat turn.
const chatHistoryLimit = 20

// Generator is a text model. GenerateJSON must return a JSON array of
// objects with the Suggestion fields; GenerateText returns markdown.
// Converse answers the last message of history, steered by system.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
	Converse(ctx context.Context, system string, history []Message) (string, error)
}

// Chat roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn of a travel assistant conversation.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Suggestion is a candidate activity. It becomes a domain.Activity once the
// user adds it to a day.
type Suggestion struct {
	Name          string  `json:"name"`
	Time          string  `json:"time"`
	Description   string  `json:"description"`
	EstimatedCost float64 `json:"estimatedCost"`
	Category      string  `json:"category"`
}

// Activity converts s into an unconfirmed activity with no participants.
func (s Suggestion) Activity() domain.Activity {
	return domain.Activity{
		ID:            uuid.New(),
		Name:          s.Name,
		Time:          s.Time,
		Description:   s.Description,
		EstimatedCost: s.EstimatedCost,
		Category:      s.Category,
		Participants:  []string{},
	}
}

// Service builds prompts from a trip and interprets the model's answers.
type Service struct {
	gen Generator
	log *slog.Logger
}

// NewService returns a Service. A nil gen means no model is configured.
func NewService(gen Generator, log *slog.Logger) *Service {
	return &Service{gen: gen, log: log}
}

// Enabled reports whether a model is configured.
func (s *Service) Enabled() bool {
	return s.gen != nil
}

// ActivitySuggestions asks for new activities matching the trip's
// preferences and avoiding the ones already planned.
func (s *Service) ActivitySuggestions(ctx context.Context, trip domain.Trip) []Suggestion {
	trip = trip.WithDefaults()
	if s.gen == nil {
		s.log.Debug("no model configured, using sample suggestions")
		return sampleSuggestions()
	}

	raw, err := s.gen.GenerateJSON(ctx, activityPrompt(trip))
	if err != nil {
		s.log.Error("fetch activity suggestions", "trip_id", trip.ID, "error", err)
		return fallbackSuggestions()
	}
	var parsed []Suggestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		s.log.Error("decode activity suggestions", "trip_id", trip.ID, "error", err)
		return fallbackSuggestions()
	}

	out := clean(parsed, trip)
	if len(out) == 0 {
		s.log.Warn("model returned no usable suggestions", "trip_id", trip.ID)
		return fallbackSuggestions()
	}
	return out
}

// TravelText returns markdown notes for the trip: a budget assessment, a
// list of ideas and a flight search link.
func (s *Service) TravelText(ctx context.Context, trip domain.Trip) string {
	trip = trip.WithDefaults()
	if s.gen == nil {
		return sampleTravelText(trip)
	}
	text, err := s.gen.GenerateText(ctx, travelPrompt(trip))
	if err != nil {
		s.log.Error("fetch travel text", "trip_id", trip.ID, "error", err)
		return travelTextUnavailable
	}
	if strings.TrimSpace(text) == "" {
		return travelTextUnavailable
	}
	return text
}

// Chat answers prompt as the trip's travel assistant. history holds the
// earlier turns, oldest first; only the most recent ones are sent. The
// reply is markdown. A model failure gets a fixed apology.
func (s *Service) Chat(ctx context.Context, trip domain.Trip, history []Message, prompt string) string {
	if s.gen == nil {
		return chatUnavailable
	}
	if len(history) > chatHistoryLimit {
		history = history[len(history)-chatHistoryLimit:]
	}
	turns := make([]Message, 0, len(history)+1)
	for _, m := range history {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		if m.Role != RoleModel {
			m.Role = RoleUser
		}
		turns = append(turns, m)
	}
	turns = append(turns, Message{Role: RoleUser, Text: prompt})

	reply, err := s.gen.Converse(ctx, chatInstruction(trip), turns)
	if err != nil {
		s.log.Error("travel assistant reply", "trip_id", trip.ID, "error", err)
		return chatApology
	}
	if strings.TrimSpace(reply) == "" {
		return chatApology
	}
	return reply
}

// clean drops unnamed and already planned entries, caps the list and maps
// unknown categories onto the trip's own set.
func clean(in []Suggestion, trip domain.Trip) []Suggestion {
	planned := map[string]bool{}
	for _, d := range trip.Days {
		for _, a := range d.Activities {
			planned[strings.ToLower(strings.TrimSpace(a.Name))] = true
		}
	}

	out := []Suggestion{}
	for _, sg := range in {
		key := strings.ToLower(strings.TrimSpace(sg.Name))
		if key == "" || planned[key] {
			continue
		}
		planned[key] = true
		if sg.EstimatedCost < 0 {
			sg.EstimatedCost = 0
		}
		sg.Category = matchCategory(sg.Category, trip.Categories)
		out = append(out, sg)
		if len(out) == suggestionCount {
			break
		}
	}
	return out
}

func matchCategory(name string, cats []domain.Category) string {
	for _, c := range cats {
		if strings.EqualFold(c.Name, name) || strings.EqualFold(c.ID, name) {
			return c.Name
		}
	}
	if len(cats) == 0 {
		return name
	}
	for _, c := range cats {
		if c.ID == "leisure" {
			return c.Name
		}
	}
	return cats[0].Name
}
