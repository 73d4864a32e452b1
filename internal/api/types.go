package api

import "time"

// ParsedDocument is the backend's view of an uploaded file after parsing.
type ParsedDocument struct {
	FileID    string         `json:"file_id"`
	Filename  string         `json:"filename"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	PageCount *int           `json:"page_count,omitempty"`
	WordCount *int           `json:"word_count,omitempty"`
}

// TranscriptResult carries a finished speech-to-text transcription.
type TranscriptResult struct {
	Transcript string   `json:"transcript"`
	Confidence float64  `json:"confidence"`
	Duration   *float64 `json:"duration,omitempty"`
	Language   string   `json:"language"`
}

// SourceCitation is a document excerpt the backend used to support an answer.
type SourceCitation struct {
	DocumentID      string         `json:"document_id"`
	Filename        string         `json:"filename"`
	SimilarityScore float64        `json:"similarity_score"`
	Excerpt         string         `json:"excerpt"`
	Metadata        map[string]any `json:"metadata"`
}

// QueryAnswer is the backend's response to a retrieval-augmented question.
type QueryAnswer struct {
	Answer         string           `json:"answer"`
	Sources        []SourceCitation `json:"sources"`
	Confidence     float64          `json:"confidence"`
	ProcessingTime float64          `json:"processing_time"`
}

// Severity levels reported on anomaly alerts. The backend owns the set;
// anything unrecognized renders in the lowest tier but is never rejected.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// SeverityRank orders severities for display, highest first. Unknown values
// sort below low.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AnomalyAlert is a backend-detected irregularity in a processed document.
type AnomalyAlert struct {
	ID          string         `json:"id"`
	DocumentID  string         `json:"document_id"`
	AnomalyType string         `json:"anomaly_type"`
	Severity    string         `json:"severity"`
	Description string         `json:"description"`
	Confidence  float64        `json:"confidence"`
	DetectedAt  time.Time      `json:"detected_at"`
	Metadata    map[string]any `json:"metadata"`
}

// DashboardStats is the aggregate snapshot rendered on the dashboard tab.
type DashboardStats struct {
	TotalDocuments    int        `json:"total_documents"`
	TotalQueries      int        `json:"total_queries"`
	AvgProcessingTime float64    `json:"avg_processing_time"`
	AnomaliesDetected int        `json:"anomalies_detected"`
	LastProcessed     *time.Time `json:"last_processed,omitempty"`
}

// HealthStatus is the opaque payload from /health. Only Status is inspected;
// the rest is displayed as-is.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}
