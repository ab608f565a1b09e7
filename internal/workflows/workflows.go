package workflows

import (
	"path/filepath"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"reportrag/internal/activities"
	"reportrag/internal/models"
)

const QueryGetProgress = "GetProgress"

// ScoreBatchWorkflow scores documents one at a time and writes a combined
// report. A document whose scoring activity fails for good becomes an error
// record; it never fails the batch.
func ScoreBatchWorkflow(ctx workflow.Context, input ScoreBatchInput) (ScoreBatchOutput, error) {
	progress := ScoreBatchProgress{BatchID: input.BatchID, PerDocument: map[string]string{}}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (ScoreBatchProgress, error) {
		return progress, nil
	}); err != nil {
		return ScoreBatchOutput{}, err
	}

	listCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
	})
	var listOut activities.ListDocumentsOutput
	if err := workflow.ExecuteActivity(listCtx, "ListDocumentsActivity", activities.ListDocumentsInput{
		InputDir: input.InputDir,
		Paths:    input.Paths,
	}).Get(ctx, &listOut); err != nil {
		return ScoreBatchOutput{}, err
	}
	progress.Total = len(listOut.Paths)
	for _, p := range listOut.Paths {
		progress.PerDocument[p] = "pending"
	}

	scoreCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})
	results := make([]models.ScoreResult, 0, len(listOut.Paths))
	for _, path := range listOut.Paths {
		progress.PerDocument[path] = "scoring"
		var out activities.ScoreDocumentOutput
		err := workflow.ExecuteActivity(scoreCtx, "ScoreDocumentActivity", activities.ScoreDocumentInput{
			BatchID: input.BatchID,
			Path:    path,
		}).Get(ctx, &out)
		res := out.Result
		if err != nil {
			res = models.ScoreResult{FilePath: path, FileName: filepath.Base(path), Error: err.Error()}
		}
		results = append(results, res)
		progress.Done++
		if res.Failed() {
			progress.Failed++
			progress.PerDocument[path] = "failed"
			workflow.GetLogger(ctx).Warn("document scoring failed", "path", path, "error", res.Error)
			continue
		}
		progress.PerDocument[path] = "scored"
	}

	writeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var writeOut activities.WriteScoreReportOutput
	if err := workflow.ExecuteActivity(writeCtx, "WriteScoreReportActivity", activities.WriteScoreReportInput{
		BatchID: input.BatchID,
		Results: results,
	}).Get(ctx, &writeOut); err != nil {
		return ScoreBatchOutput{}, err
	}
	progress.ReportPath = writeOut.ReportPath

	return ScoreBatchOutput{
		BatchID:    input.BatchID,
		ReportPath: writeOut.ReportPath,
		Total:      progress.Total,
		Scored:     progress.Total - progress.Failed,
		Failed:     progress.Failed,
	}, nil
}
