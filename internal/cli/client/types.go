package client

// Wire shapes of the faqdesk API, decoded from the data envelope.

type SessionResult struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type AnswerCandidate struct {
	FAQID    string `json:"faq_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Layout   string `json:"layout"`
	MediaURL string `json:"media_url,omitempty"`
}

type AnswerResult struct {
	Intro      string            `json:"intro,omitempty"`
	Candidates []AnswerCandidate `json:"candidates"`
	EventID    string            `json:"event_id,omitempty"`
	Degraded   []string          `json:"degraded,omitempty"`
}

type BrowseResult struct {
	EventID  string   `json:"event_id,omitempty"`
	Degraded []string `json:"degraded,omitempty"`
}

type ActionResult struct {
	EventID   string   `json:"event_id"`
	FAQID     string   `json:"faq_id"`
	Action    string   `json:"action"`
	UpdatedAt string   `json:"updated_at"`
	Degraded  []string `json:"degraded,omitempty"`
}

type Chatbot struct {
	ID                string `json:"id"`
	TenantID          string `json:"tenant_id"`
	Name              string `json:"name"`
	Status            string `json:"status"`
	MonthlyQueryLimit int    `json:"monthly_query_limit"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type FAQ struct {
	ID        string `json:"id"`
	ChatbotID string `json:"chatbot_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Layout    string `json:"layout"`
	MediaKey  string `json:"media_key,omitempty"`
	HitCount  int64  `json:"hit_count"`
	CreatedAt string `json:"created_at"`
}

type MediaUpload struct {
	MediaKey  string `json:"media_key"`
	UploadURL string `json:"upload_url"`
}

type Stats struct {
	Total          int64            `json:"total"`
	IgnoredCount   int64            `json:"ignored_count"`
	AvgResultCount float64          `json:"avg_result_count"`
	AvgReadCount   float64          `json:"avg_read_count"`
	Feedback       map[string]int64 `json:"feedback"`
	TopCandidates  []struct {
		FAQID    string `json:"faq_id"`
		Question string `json:"question"`
		Views    int64  `json:"views"`
	} `json:"top_candidates"`
	ZeroResults []struct {
		Query string `json:"query"`
		Count int64  `json:"count"`
	} `json:"zero_results"`
}

type Event struct {
	ID          string `json:"id"`
	ChatbotID   string `json:"chatbot_id"`
	SessionID   string `json:"session_id,omitempty"`
	Query       string `json:"query"`
	ResultCount int    `json:"result_count"`
	ReadCount   int    `json:"read_count"`
	Ignored     bool   `json:"ignored"`
	CreatedAt   string `json:"created_at"`
}

type EventList struct {
	Items   []Event `json:"items"`
	Cursor  string  `json:"cursor,omitempty"`
	HasMore bool    `json:"has_more"`
}

type QueryAction struct {
	EventID   string `json:"event_id"`
	FAQID     string `json:"faq_id"`
	Action    string `json:"action"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
