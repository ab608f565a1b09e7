package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ListDocumentsActivity)
	w.RegisterActivity(a.ScoreDocumentActivity)
	w.RegisterActivity(a.WriteScoreReportActivity)
}
