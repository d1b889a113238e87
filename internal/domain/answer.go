package domain

// Candidate is an FAQ entry returned by the search engine for a query
type Candidate struct {
	FAQID    string
	Question string
	Snippet  string
	Score    float32
}

// SelectionDecision marks whether a candidate belongs in the final answer
type SelectionDecision struct {
	FAQID   string
	Include bool
}

// Selection is the answer selector's verdict on a candidate set. Decisions
// are in the order the selector wants them shown.
type Selection struct {
	Intro     string
	Decisions []SelectionDecision
}

// IncludedIDs returns the ids of included decisions, in order, without duplicates
func (s *Selection) IncludedIDs() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]bool, len(s.Decisions))
	ids := make([]string, 0, len(s.Decisions))
	for _, d := range s.Decisions {
		if !d.Include || d.FAQID == "" || seen[d.FAQID] {
			continue
		}
		seen[d.FAQID] = true
		ids = append(ids, d.FAQID)
	}
	return ids
}
