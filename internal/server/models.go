package server

import "github.com/teachmate/teachmate/internal/chat"

type CreateSessionRequest struct {
	Name string `json:"name"`
}

type ProcessURLRequest struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

type SourceResponse struct {
	Success   bool     `json:"success"`
	Sources   []string `json:"sources"`
	SessionID string   `json:"session_id"`
}

type MessageRequest struct {
	Content        string `json:"content"`
	ForceWebSearch bool   `json:"force_web_search"`
	SessionID      string `json:"session_id"`
}

type MessageResponse struct {
	Content          string        `json:"content"`
	Sources          []chat.Source `json:"sources"`
	SessionID        string        `json:"session_id"`
	BaselineResponse string        `json:"baseline_response,omitempty"`
}

type GenerateCurriculumRequest struct {
	Topic      string `json:"topic"`
	SourceURL  string `json:"source_url"`
	DepthLevel string `json:"depth_level"`
}

type ModifyCurriculumRequest struct {
	Instruction string `json:"instruction"`
}
