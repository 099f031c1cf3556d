package usecase

import (
	"strings"
	"testing"

	"github.com/amo-events/kb-assistant/internal/core/domain"
)

func TestReformulateExpandsAttendeeAndRegistrationSynonyms(t *testing.T) {
	r := NewReformulator(nil)

	result := r.Reformulate("How do I track attendee RSVPs?", nil)

	if !strings.HasPrefix(result.Primary, "How do I track attendee RSVPs?") {
		t.Fatalf("expected primary to start with original query, got %q", result.Primary)
	}
	// "RSVP" sits in the registration synonym list, so the canonical
	// term and its absent synonyms must be appended.
	for _, term := range []string{"registration", "signup", "enroll", "booking"} {
		if !strings.Contains(result.Primary, term) {
			t.Fatalf("expected expansion to contain %q, got %q", term, result.Primary)
		}
	}
	for _, term := range []string{"guest", "participant", "visitor", "delegate", "invitee"} {
		if !strings.Contains(result.Primary, term) {
			t.Fatalf("expected attendee synonym %q, got %q", term, result.Primary)
		}
	}
}

func TestReformulateDoesNotAppendTermsAlreadyPresent(t *testing.T) {
	r := NewReformulator([]SynonymEntry{{Term: "venue", Synonyms: []string{"location", "site"}}})

	result := r.Reformulate("Which venue location should I pick", nil)

	if strings.Count(strings.ToLower(result.Primary), "venue") != 1 {
		t.Fatalf("canonical term duplicated: %q", result.Primary)
	}
	if strings.Count(result.Primary, "location") != 1 {
		t.Fatalf("present synonym duplicated: %q", result.Primary)
	}
	if !strings.HasSuffix(result.Primary, " site") {
		t.Fatalf("expected absent synonym appended, got %q", result.Primary)
	}
}

func TestReformulateExpansionConverges(t *testing.T) {
	// Vocabulary without cross-entry synonym overlap: once every term
	// is present, a second pass must be a no-op.
	r := NewReformulator([]SynonymEntry{
		{Term: "venue", Synonyms: []string{"location", "site"}},
		{Term: "speaker", Synonyms: []string{"presenter", "panelist"}},
	})

	first := r.Reformulate("Where does the speaker meet the venue team", nil)
	second := r.Reformulate(first.Primary, nil)

	if second.Primary != first.Primary {
		t.Fatalf("expansion did not converge:\n first=%q\nsecond=%q", first.Primary, second.Primary)
	}
}

func TestReformulateSplitsMultipleQuestions(t *testing.T) {
	r := NewReformulator([]SynonymEntry{{Term: "unmatched", Synonyms: nil}})

	result := r.Reformulate("Where is the venue? When does it open?", nil)

	if len(result.Alternatives) != 2 {
		t.Fatalf("expected 2 sub-queries, got %v", result.Alternatives)
	}
	if result.Alternatives[0] != "Where is the venue?" {
		t.Fatalf("unexpected first sub-query %q", result.Alternatives[0])
	}
	if result.Alternatives[1] != "When does it open?" {
		t.Fatalf("unexpected second sub-query %q", result.Alternatives[1])
	}
}

func TestReformulateSplitsConjunctionWithInterrogativePrefix(t *testing.T) {
	r := NewReformulator([]SynonymEntry{{Term: "unmatched", Synonyms: nil}})

	result := r.Reformulate("How do I create an event form and send invitations?", nil)

	if len(result.Alternatives) != 2 {
		t.Fatalf("expected 2 sub-queries, got %v", result.Alternatives)
	}
	if result.Alternatives[0] != "How do I create an event form" {
		t.Fatalf("unexpected first sub-query %q", result.Alternatives[0])
	}
	if result.Alternatives[1] != "How do I send invitations?" {
		t.Fatalf("unexpected second sub-query %q", result.Alternatives[1])
	}
}

func TestReformulateSplitsConjunctionOfTwoQuestions(t *testing.T) {
	r := NewReformulator([]SynonymEntry{{Term: "unmatched", Synonyms: nil}})

	result := r.Reformulate("What's the best way to check in people and how do I track attendance?", nil)

	if len(result.Alternatives) != 2 {
		t.Fatalf("expected 2 sub-queries, got %v", result.Alternatives)
	}
	if result.Alternatives[0] != "What's the best way to check in people" {
		t.Fatalf("unexpected first sub-query %q", result.Alternatives[0])
	}
	if !strings.HasPrefix(result.Alternatives[1], "how do I track attendance?") {
		t.Fatalf("unexpected second sub-query %q", result.Alternatives[1])
	}
}

func TestReformulateLeavesSimpleQueryAlone(t *testing.T) {
	r := NewReformulator([]SynonymEntry{{Term: "unmatched", Synonyms: nil}})

	result := r.Reformulate("Where is the venue?", nil)
	if result.Primary != "Where is the venue?" {
		t.Fatalf("expected passthrough, got %q", result.Primary)
	}
	if len(result.Alternatives) != 0 {
		t.Fatalf("expected no alternatives, got %v", result.Alternatives)
	}
}

func TestReformulateInjectsContextForPronouns(t *testing.T) {
	r := NewReformulator([]SynonymEntry{{Term: "unmatched", Synonyms: nil}})
	history := []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "Tell me about badge printing"},
		{Role: domain.RoleAssistant, Content: "Badges are printed at check-in"},
	}

	result := r.Reformulate("How do I configure it", history)

	want := "How do I configure it in the context of Tell me about badge printing Badges are printed at check-in"
	if result.Primary != want {
		t.Fatalf("context injection mismatch:\n got %q\nwant %q", result.Primary, want)
	}
}

func TestReformulateSkipsContextWithoutAnaphora(t *testing.T) {
	r := NewReformulator([]SynonymEntry{{Term: "unmatched", Synonyms: nil}})
	history := []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "first"},
		{Role: domain.RoleAssistant, Content: "second"},
	}

	result := r.Reformulate("How do I export reports", history)
	if result.Primary != "How do I export reports" {
		t.Fatalf("expected no injection, got %q", result.Primary)
	}
}

func TestReformulateSkipsContextWithShortHistory(t *testing.T) {
	r := NewReformulator([]SynonymEntry{{Term: "unmatched", Synonyms: nil}})
	history := []domain.ChatTurn{{Role: domain.RoleUser, Content: "only one turn"}}

	result := r.Reformulate("How do I configure it", history)
	if result.Primary != "How do I configure it" {
		t.Fatalf("expected no injection with <2 turns, got %q", result.Primary)
	}
}

func TestReformulateBoundsContextWindow(t *testing.T) {
	r := NewReformulator([]SynonymEntry{{Term: "unmatched", Synonyms: nil}})
	history := make([]domain.ChatTurn, 0, 8)
	for _, content := range []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8"} {
		history = append(history, domain.ChatTurn{Role: domain.RoleUser, Content: content})
	}

	result := r.Reformulate("What about those", history)
	if strings.Contains(result.Primary, "t1") || strings.Contains(result.Primary, "t2") {
		t.Fatalf("expected only the last %d turns, got %q", historyWindow, result.Primary)
	}
	if !strings.Contains(result.Primary, "t3 t4 t5 t6 t7 t8") {
		t.Fatalf("expected recent turns concatenated, got %q", result.Primary)
	}
}

func TestReformulateEmptyQueryPassesThrough(t *testing.T) {
	r := NewReformulator(nil)

	result := r.Reformulate("", nil)
	if result.Primary != "" || len(result.Alternatives) != 0 {
		t.Fatalf("expected empty passthrough, got %+v", result)
	}
}
