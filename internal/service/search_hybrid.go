package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/cloo-solutions/faqdesk/internal/domain"
	"github.com/cloo-solutions/faqdesk/internal/telemetry"
)

// Ranking policy for answer retrieval
const (
	answerTopK      = 8
	lexicalWeight   = 0.4
	vectorWeight    = 0.6
	similarityFloor = 0.25
	rrfK            = 60

	defaultCandidateMultiplier = 4
	defaultMinCandidates       = 20
	defaultMaxCandidates       = 200
	defaultSnippetMaxChars     = 220
)

// HybridSearchRequest carries a query and the ranking policy to apply
type HybridSearchRequest struct {
	ChatbotID       string
	Query           string
	Vector          []float32
	TopK            int
	LexicalWeight   float64
	VectorWeight    float64
	SimilarityFloor float64
	RRFK            int
}

// DefaultSearchRequest applies the standard answer ranking policy
func DefaultSearchRequest(chatbotID, query string, vector []float32) HybridSearchRequest {
	return HybridSearchRequest{
		ChatbotID:       chatbotID,
		Query:           query,
		Vector:          vector,
		TopK:            answerTopK,
		LexicalWeight:   lexicalWeight,
		VectorWeight:    vectorWeight,
		SimilarityFloor: similarityFloor,
		RRFK:            rrfK,
	}
}

// CandidateSearchRepository runs the two retrieval legs of hybrid search
type CandidateSearchRepository interface {
	SearchLexical(ctx context.Context, chatbotID, query string, limit int) ([]*domain.Candidate, error)
	SearchSemantic(ctx context.Context, chatbotID string, vector []float32, minSimilarity float64, limit int) ([]*domain.Candidate, error)
}

// HybridSearchEngine fuses lexical and vector rankings with weighted RRF
type HybridSearchEngine struct {
	repo CandidateSearchRepository
}

func NewHybridSearchEngine(repo CandidateSearchRepository) *HybridSearchEngine {
	return &HybridSearchEngine{repo: repo}
}

// HybridSearch returns at most TopK candidates, best first
func (e *HybridSearchEngine) HybridSearch(ctx context.Context, req HybridSearchRequest) ([]*domain.Candidate, error) {
	ctx, span := telemetry.StartSpan(ctx, "HybridSearchEngine.HybridSearch", telemetry.SpanAttributes{
		ChatbotID: req.ChatbotID,
		Operation: "search",
	})
	defer span.End()

	query := strings.TrimSpace(req.Query)
	if query == "" || req.TopK <= 0 {
		return []*domain.Candidate{}, nil
	}

	candidateLimit := req.TopK * defaultCandidateMultiplier
	if candidateLimit < defaultMinCandidates {
		candidateLimit = defaultMinCandidates
	}
	if candidateLimit > defaultMaxCandidates {
		candidateLimit = defaultMaxCandidates
	}

	var lexical, semantic []*domain.Candidate
	var err error

	if req.LexicalWeight > 0 {
		lexical, err = e.repo.SearchLexical(ctx, req.ChatbotID, query, candidateLimit)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	if req.VectorWeight > 0 && len(req.Vector) > 0 {
		semantic, err = e.repo.SearchSemantic(ctx, req.ChatbotID, req.Vector, req.SimilarityFloor, candidateLimit)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	merged := mergeHybridResults(semantic, lexical, req.VectorWeight, req.LexicalWeight, req.RRFK)
	if len(merged) > req.TopK {
		merged = merged[:req.TopK]
	}
	return merged, nil
}

type fusionCandidate struct {
	result        *domain.Candidate
	rrfScore      float64
	semanticScore float32
	lexicalScore  float32
}

// mergeHybridResults scores each candidate by sum(weight / (k + rank)) over
// the lists it appears in. Ties fall back to the best raw similarity.
func mergeHybridResults(semantic, lexical []*domain.Candidate, semanticWeight, lexicalWeight float64, k int) []*domain.Candidate {
	if k <= 0 {
		k = rrfK
	}

	candidates := make(map[string]*fusionCandidate)
	addList := func(list []*domain.Candidate, weight float64, isSemantic bool) {
		for i, c := range list {
			if c == nil {
				continue
			}
			cand, ok := candidates[c.FAQID]
			if !ok {
				cloned := *c
				cloned.Snippet = makeSnippet(c.Snippet)
				cand = &fusionCandidate{result: &cloned}
				candidates[c.FAQID] = cand
			}
			cand.rrfScore += weight / float64(k+i+1)
			if isSemantic {
				cand.semanticScore = float32(math.Max(float64(cand.semanticScore), float64(c.Score)))
			} else {
				cand.lexicalScore = float32(math.Max(float64(cand.lexicalScore), float64(c.Score)))
			}
			if cand.result.Question == "" && c.Question != "" {
				cand.result.Question = c.Question
			}
			if cand.result.Snippet == "" && c.Snippet != "" {
				cand.result.Snippet = makeSnippet(c.Snippet)
			}
		}
	}

	addList(semantic, semanticWeight, true)
	addList(lexical, lexicalWeight, false)

	fused := make([]*fusionCandidate, 0, len(candidates))
	for _, cand := range candidates {
		cand.result.Score = float32(cand.rrfScore)
		fused = append(fused, cand)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].rrfScore != fused[j].rrfScore {
			return fused[i].rrfScore > fused[j].rrfScore
		}
		if fused[i].semanticScore != fused[j].semanticScore {
			return fused[i].semanticScore > fused[j].semanticScore
		}
		if fused[i].lexicalScore != fused[j].lexicalScore {
			return fused[i].lexicalScore > fused[j].lexicalScore
		}
		return fused[i].result.FAQID < fused[j].result.FAQID
	})

	out := make([]*domain.Candidate, len(fused))
	for i, cand := range fused {
		out[i] = cand.result
	}
	return out
}

func makeSnippet(content string) string {
	if content == "" {
		return ""
	}
	clean := strings.Join(strings.Fields(content), " ")
	if len(clean) <= defaultSnippetMaxChars {
		return clean
	}
	return clean[:defaultSnippetMaxChars-3] + "..."
}
