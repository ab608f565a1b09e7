package activities

import "reportrag/internal/models"

type ListDocumentsInput struct {
	InputDir string   `json:"input_dir,omitempty"`
	Paths    []string `json:"paths,omitempty"`
}

type ListDocumentsOutput struct {
	Paths []string `json:"paths"`
}

type ScoreDocumentInput struct {
	BatchID string `json:"batch_id"`
	Path    string `json:"path"`
}

type ScoreDocumentOutput struct {
	Result models.ScoreResult `json:"result"`
}

type WriteScoreReportInput struct {
	BatchID string               `json:"batch_id"`
	Results []models.ScoreResult `json:"results"`
}

type WriteScoreReportOutput struct {
	ReportPath  string `json:"report_path"`
	ResultsPath string `json:"results_path"`
}
