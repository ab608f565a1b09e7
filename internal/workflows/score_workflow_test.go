package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"reportrag/internal/activities"
	"reportrag/internal/models"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerScoreActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "ListDocumentsActivity", func(context.Context, activities.ListDocumentsInput) (activities.ListDocumentsOutput, error) {
		return activities.ListDocumentsOutput{}, nil
	})
	registerActivityName(env, "ScoreDocumentActivity", func(context.Context, activities.ScoreDocumentInput) (activities.ScoreDocumentOutput, error) {
		return activities.ScoreDocumentOutput{}, nil
	})
	registerActivityName(env, "WriteScoreReportActivity", func(context.Context, activities.WriteScoreReportInput) (activities.WriteScoreReportOutput, error) {
		return activities.WriteScoreReportOutput{}, nil
	})
}

func scored(path, name string) activities.ScoreDocumentOutput {
	return activities.ScoreDocumentOutput{Result: models.ScoreResult{FilePath: path, FileName: name, Scoring: "overall 3.5", Timestamp: "2026-01-02 03:04:05"}}
}

func TestScoreBatchWorkflowKeepsFailedDocuments(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ScoreBatchWorkflow)
	registerScoreActivities(env)

	paths := []string{"/up/one.txt", "/up/two.pdf", "/up/three.txt"}
	env.OnActivity("ListDocumentsActivity", mock.Anything, activities.ListDocumentsInput{InputDir: "/up"}).Return(activities.ListDocumentsOutput{Paths: paths}, nil)
	env.OnActivity("ScoreDocumentActivity", mock.Anything, activities.ScoreDocumentInput{BatchID: "b1", Path: paths[0]}).Return(scored(paths[0], "one.txt"), nil)
	env.OnActivity("ScoreDocumentActivity", mock.Anything, activities.ScoreDocumentInput{BatchID: "b1", Path: paths[1]}).Return(activities.ScoreDocumentOutput{},
		temporal.NewNonRetryableApplicationError("score document", "ProviderPermanent", errors.New("all providers failed")))
	env.OnActivity("ScoreDocumentActivity", mock.Anything, activities.ScoreDocumentInput{BatchID: "b1", Path: paths[2]}).Return(scored(paths[2], "three.txt"), nil)

	var written activities.WriteScoreReportInput
	env.OnActivity("WriteScoreReportActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.WriteScoreReportInput) (activities.WriteScoreReportOutput, error) {
			written = in
			return activities.WriteScoreReportOutput{ReportPath: "/out/scores/b1/report.md"}, nil
		})

	env.ExecuteWorkflow(ScoreBatchWorkflow, ScoreBatchInput{BatchID: "b1", InputDir: "/up"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out ScoreBatchOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, ScoreBatchOutput{BatchID: "b1", ReportPath: "/out/scores/b1/report.md", Total: 3, Scored: 2, Failed: 1}, out)

	require.Len(t, written.Results, 3)
	require.False(t, written.Results[0].Failed())
	require.True(t, written.Results[1].Failed())
	require.Equal(t, "two.pdf", written.Results[1].FileName)
	require.False(t, written.Results[2].Failed())

	v, err := env.QueryWorkflow(QueryGetProgress)
	require.NoError(t, err)
	var progress ScoreBatchProgress
	require.NoError(t, v.Get(&progress))
	require.Equal(t, 3, progress.Done)
	require.Equal(t, "failed", progress.PerDocument[paths[1]])
	require.Equal(t, "scored", progress.PerDocument[paths[2]])
}

func TestScoreBatchWorkflowListFailure(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ScoreBatchWorkflow)
	registerScoreActivities(env)

	env.OnActivity("ListDocumentsActivity", mock.Anything, mock.Anything).Return(activities.ListDocumentsOutput{},
		temporal.NewNonRetryableApplicationError("list documents", "InvalidInput", errors.New("file not found")))

	env.ExecuteWorkflow(ScoreBatchWorkflow, ScoreBatchInput{BatchID: "b2", InputDir: "/missing"})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}

func TestScoreBatchWorkflowEmptyBatchStillWritesReport(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ScoreBatchWorkflow)
	registerScoreActivities(env)

	env.OnActivity("ListDocumentsActivity", mock.Anything, mock.Anything).Return(activities.ListDocumentsOutput{}, nil)
	env.OnActivity("WriteScoreReportActivity", mock.Anything, mock.Anything).
		Return(activities.WriteScoreReportOutput{ReportPath: "/out/scores/b3/report.md"}, nil)

	env.ExecuteWorkflow(ScoreBatchWorkflow, ScoreBatchInput{BatchID: "b3", Paths: []string{"a.docx"}})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out ScoreBatchOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, 0, out.Total)
}
