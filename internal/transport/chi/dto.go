package chi

import (
	domanswer "github.com/kailas-cloud/askdex/internal/domain/answer"
	"github.com/kailas-cloud/askdex/internal/domain/match"
	answeruc "github.com/kailas-cloud/askdex/internal/usecase/answer"
	usageuc "github.com/kailas-cloud/askdex/internal/usecase/usage"
)

// ErrorResponseCode is a stable machine-readable error code.
type ErrorResponseCode string

// Error codes returned by the API.
const (
	ErrorResponseCodeBadRequest         ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized       ErrorResponseCode = "unauthorized"
	ErrorResponseCodeInvalidQuestion    ErrorResponseCode = "invalid_question"
	ErrorResponseCodeRequestCancelled   ErrorResponseCode = "request_cancelled"
	ErrorResponseCodeInternalError      ErrorResponseCode = "internal_error"
	ErrorResponseCodeServiceUnavailable ErrorResponseCode = "service_unavailable"
	ErrorResponseCodeRequestTooLarge    ErrorResponseCode = "request_too_large"
	ErrorResponseCodeUnsupportedMedia   ErrorResponseCode = "unsupported_media_type"
	ErrorResponseCodeMethodNotAllowed   ErrorResponseCode = "method_not_allowed"
	ErrorResponseCodeRouteNotFound      ErrorResponseCode = "not_found"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// ConfidenceResponse describes how much the answer can be trusted.
type ConfidenceResponse struct {
	Level string  `json:"level"`
	Score float64 `json:"score"`
}

// MatchResponse is one selected source passage.
type MatchResponse struct {
	ID            string            `json:"id"`
	Partition     string            `json:"partition"`
	Source        string            `json:"source"`
	Score         float64           `json:"score"`
	WeightedScore float64           `json:"weighted_score"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// AnswerResponse is the body of a successful POST /v1/ask.
type AnswerResponse struct {
	ID         string             `json:"id"`
	Question   string             `json:"question"`
	Answer     string             `json:"answer"`
	Summary    string             `json:"summary"`
	Found      bool               `json:"found"`
	Reason     string             `json:"reason,omitempty"`
	Confidence ConfidenceResponse `json:"confidence"`
	Matches    []MatchResponse    `json:"matches"`
	Sources    []string           `json:"sources"`
	ConceptIDs []string           `json:"concept_ids"`
	ElapsedMs  int64              `json:"elapsed_ms"`
}

// PartitionResponse is one configured partition.
type PartitionResponse struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
	TopK        int     `json:"top_k"`
}

// PartitionListResponse is the body of GET /v1/partitions.
type PartitionListResponse struct {
	Partitions []PartitionResponse `json:"partitions"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageResponse is the body of GET /v1/usage.
type UsageResponse struct {
	Period      string `json:"period"`
	PeriodStart int64  `json:"period_start_ms"`
	PeriodEnd   int64  `json:"period_end_ms"`
	TokensLimit int64  `json:"tokens_limit"`
	TokensUsed  int64  `json:"tokens_used"`
	Remaining   int64  `json:"tokens_remaining"`
	Exhausted   bool   `json:"exhausted"`
}

func usageToResponse(r usageuc.Report) UsageResponse {
	return UsageResponse{
		Period:      string(r.Period),
		PeriodStart: r.PeriodStart.UnixMilli(),
		PeriodEnd:   r.PeriodEnd.UnixMilli(),
		TokensLimit: r.Limit,
		TokensUsed:  r.Used,
		Remaining:   r.Remaining,
		Exhausted:   r.Exhausted,
	}
}

func answerToResponse(a *domanswer.Answer) AnswerResponse {
	matches := make([]MatchResponse, 0, len(a.Selected))
	for i := range a.Selected {
		matches = append(matches, matchToResponse(&a.Selected[i], sourceAt(a.Sources, i)))
	}

	return AnswerResponse{
		ID:       a.ID,
		Question: a.Query,
		Answer:   a.Text,
		Summary:  a.Summary,
		Found:    a.Found(),
		Reason:   string(a.Reason),
		Confidence: ConfidenceResponse{
			Level: string(a.Verdict.Level),
			Score: a.Verdict.Score,
		},
		Matches:    matches,
		Sources:    nonNil(a.Sources),
		ConceptIDs: nonNil(a.ConceptIDs),
		ElapsedMs:  a.Elapsed.Milliseconds(),
	}
}

func matchToResponse(m *match.Match, source string) MatchResponse {
	attrs := m.Attributes()
	delete(attrs, "__vector")
	return MatchResponse{
		ID:            m.ID(),
		Partition:     m.Partition().String(),
		Source:        source,
		Score:         m.RawScore(),
		WeightedScore: m.WeightedScore(),
		Attributes:    attrs,
	}
}

func partitionToResponse(ps answeruc.PartitionSpec) PartitionResponse {
	return PartitionResponse{
		Name:        ps.Partition.String(),
		Description: ps.Description,
		Weight:      ps.Weight,
		TopK:        ps.TopK,
	}
}

func sourceAt(sources []string, i int) string {
	if i < len(sources) {
		return sources[i]
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
