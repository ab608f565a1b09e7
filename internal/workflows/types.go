package workflows

type ScoreBatchInput struct {
	BatchID  string   `json:"batch_id"`
	InputDir string   `json:"input_dir,omitempty"`
	Paths    []string `json:"paths,omitempty"`
}

type ScoreBatchOutput struct {
	BatchID    string `json:"batch_id"`
	ReportPath string `json:"report_path"`
	Total      int    `json:"total"`
	Scored     int    `json:"scored"`
	Failed     int    `json:"failed"`
}

type ScoreBatchProgress struct {
	BatchID     string            `json:"batch_id"`
	Total       int               `json:"total"`
	Done        int               `json:"done"`
	Failed      int               `json:"failed"`
	PerDocument map[string]string `json:"per_document"`
	ReportPath  string            `json:"report_path,omitempty"`
}
