package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prshepherd/prshepherd/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// sessionListResponse groups active and stored sessions.
type sessionListResponse struct {
	Active []sessionResponse `json:"active"`
	Stored []sessionResponse `json:"stored"`
}

// sessionResponse is the JSON representation of one session.
type sessionResponse struct {
	ID         int64  `json:"id,omitempty"`
	Target     string `json:"target"`
	URL        string `json:"url"`
	State      string `json:"state"`
	Iterations int    `json:"iterations"`
	StartedAt  string `json:"started_at"`
	EndedAt    string `json:"ended_at,omitempty"`

	Fixes       []fixResponse        `json:"fixes"`
	Escalations []escalationResponse `json:"escalations"`

	// Populated only on the single-session detail endpoint.
	Summary     string `json:"summary,omitempty"`
	SummaryHTML string `json:"summary_html,omitempty"`
}

// fixResponse is the JSON representation of one remediation log entry.
type fixResponse struct {
	Path       string `json:"path"`
	Tool       string `json:"tool"`
	CommentURL string `json:"comment_url,omitempty"`
	AppliedAt  string `json:"applied_at"`
}

// escalationResponse is the JSON representation of one escalation record.
type escalationResponse struct {
	CommentID  int64  `json:"comment_id"`
	Commenter  string `json:"commenter"`
	Location   string `json:"location"`
	CommentURL string `json:"comment_url"`
	PostedAt   string `json:"posted_at"`
}

func toSessionResponse(s model.SessionSummary, detail bool) sessionResponse {
	resp := sessionResponse{
		ID:          s.ID,
		Target:      s.Target,
		URL:         s.URL,
		State:       string(s.State),
		Iterations:  s.Iterations,
		StartedAt:   formatTimestamp(s.StartedAt),
		EndedAt:     formatTimestamp(s.EndedAt),
		Fixes:       []fixResponse{},
		Escalations: []escalationResponse{},
	}

	for _, fix := range s.Fixes {
		resp.Fixes = append(resp.Fixes, fixResponse{
			Path:       fix.Path,
			Tool:       fix.Tool,
			CommentURL: fix.CommentURL,
			AppliedAt:  formatTimestamp(fix.AppliedAt),
		})
	}

	for _, esc := range s.Escalations {
		resp.Escalations = append(resp.Escalations, escalationResponse{
			CommentID:  esc.CommentID,
			Commenter:  esc.Commenter,
			Location:   esc.Location,
			CommentURL: esc.CommentURL,
			PostedAt:   formatTimestamp(esc.PostedAt),
		})
	}

	if detail {
		resp.Summary = s.Summary
		resp.SummaryHTML = RenderMarkdown(s.Summary)
	}

	return resp
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
