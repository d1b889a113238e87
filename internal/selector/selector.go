// Package selector holds the prompt and response format shared by the LLM
// answer selectors.
package selector

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/faqdesk/internal/domain"
)

// NoMatchIntro is returned without calling a model when search found nothing
const NoMatchIntro = "Sorry, I couldn't find an answer to that. Try rephrasing your question."

var ErrMalformedDecision = errors.New("selector returned a malformed decision")

const systemPrompt = `You pick which FAQ entries answer a customer's question.

You receive the question and a numbered list of candidate entries, each with an id,
its question and an excerpt of its answer. Decide for every candidate whether it helps
answer the customer's question. Order included candidates from most to least useful.
Write a short, friendly intro sentence in the customer's language.

Respond with a single JSON object and nothing else:
{"intro": "<one sentence>", "decisions": [{"id": "<candidate id>", "include": true|false}]}`

// SystemPrompt returns the instructions sent to every selector model
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt renders the query and candidates
func UserPrompt(query string, candidates []*domain.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer question: %s\n\nCandidates:\n", strings.TrimSpace(query))
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. id=%s\n   question: %s\n   answer: %s\n", i+1, c.FAQID, c.Question, c.Snippet)
	}
	return b.String()
}

type response struct {
	Intro     string `json:"intro"`
	Decisions []struct {
		ID      string `json:"id"`
		Include *bool  `json:"include"`
	} `json:"decisions"`
}

// Parse reads a model reply. Surrounding prose and code fences are ignored;
// a reply without a decodable object, or a decision missing its id or
// include flag, is an error.
func Parse(text string) (*domain.Selection, error) {
	raw := extractJSONObject(text)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrMalformedDecision)
	}

	var resp response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDecision, err)
	}

	sel := &domain.Selection{
		Intro:     strings.TrimSpace(resp.Intro),
		Decisions: make([]domain.SelectionDecision, 0, len(resp.Decisions)),
	}
	for i, d := range resp.Decisions {
		if d.ID == "" || d.Include == nil {
			return nil, fmt.Errorf("%w: decision %d is incomplete", ErrMalformedDecision, i)
		}
		sel.Decisions = append(sel.Decisions, domain.SelectionDecision{FAQID: d.ID, Include: *d.Include})
	}
	return sel, nil
}

// NoMatch is the selection used when there are no candidates to judge
func NoMatch() *domain.Selection {
	return &domain.Selection{Intro: NoMatchIntro, Decisions: []domain.SelectionDecision{}}
}

// extractJSONObject returns the first balanced {...} span, skipping braces
// inside JSON strings.
func extractJSONObject(text string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
