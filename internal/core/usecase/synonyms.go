package usecase

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SynonymEntry maps a canonical event-management term to its domain
// synonyms. Entries are held in a slice so that expansion order is
// deterministic.
type SynonymEntry struct {
	Term     string   `yaml:"term"`
	Synonyms []string `yaml:"synonyms"`
}

// DefaultSynonyms is the built-in vocabulary of the events platform.
func DefaultSynonyms() []SynonymEntry {
	return []SynonymEntry{
		{Term: "registration", Synonyms: []string{"signup", "enroll", "register", "booking", "RSVP"}},
		{Term: "attendee", Synonyms: []string{"guest", "participant", "visitor", "delegate", "invitee"}},
		{Term: "check-in", Synonyms: []string{"arrival", "sign-in", "entrance", "admission"}},
		{Term: "schedule", Synonyms: []string{"agenda", "timetable", "program", "itinerary"}},
		{Term: "venue", Synonyms: []string{"location", "place", "site", "facility"}},
		{Term: "speaker", Synonyms: []string{"presenter", "host", "panelist", "lecturer"}},
		{Term: "session", Synonyms: []string{"talk", "presentation", "workshop", "seminar", "breakout"}},
		{Term: "badge", Synonyms: []string{"name tag", "ID", "credential", "pass"}},
		{Term: "ticket", Synonyms: []string{"pass", "admission", "entry", "registration"}},
		{Term: "organizer", Synonyms: []string{"planner", "coordinator", "manager", "host"}},
		{Term: "feedback", Synonyms: []string{"survey", "evaluation", "review", "assessment"}},
	}
}

// LoadSynonyms reads a synonym vocabulary from a YAML file, preserving
// file order. Used to override the built-in vocabulary without a
// rebuild.
func LoadSynonyms(path string) ([]SynonymEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonyms file: %w", err)
	}

	var entries []SynonymEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse synonyms file: %w", err)
	}
	for i, entry := range entries {
		if entry.Term == "" {
			return nil, fmt.Errorf("synonyms file entry %d: term is required", i)
		}
	}
	return entries, nil
}
