// Package prompts renders context, reference data and queries into the
// instruction strings sent to completion providers.
package prompts

import (
	"fmt"
	"strings"

	"reportrag/internal/criteria"
	"reportrag/internal/models"
	"reportrag/internal/util"
)

// DefaultScoringMaxChars bounds the document body placed in a scoring prompt.
const DefaultScoringMaxChars = 50000

const AnalysisSystem = `You are an expert assistant for sustainability report analysis. You will always answer ONLY based on the provided extracted text context below. Do not mention PDF files, and do not ask for more data. If the context contains relevant information, answer as fully as possible using and quoting the context. If not, say that the context does not contain enough information.`

const ExploreSystem = `You are an expert sustainability report analyst focused on helping users understand their own documents.
Your task is to have a free-flowing conversation with the user about their uploaded documents.
You should ONLY reference information from the user's uploaded documents and your conversation history.
DO NOT reference any external metrics, frameworks, or reference documents.
Be conversational, helpful, and focus on what the user wants to know about their own documents.
If asked about something not in the user's documents, clearly state that the information is not in the uploaded documents.`

const ScoringSystem = `You are an expert sustainability report scoring assistant.
Your task is to evaluate sustainability reports against specific criteria and provide detailed scores and feedback.`

const genericAnalysisTemplate = `
Below is the extracted text context from sustainability reports and/or benchmark documents. This is NOT a PDF, but already extracted text for your analysis.

Extracted Context:
%s

User Question:
%s

Please answer ONLY based on the extracted context above. Quote relevant sections where possible. If the context is insufficient, state so clearly.`

const structuredAnalysisTemplate = `
Below is extracted text from the user's own documents, followed by reference documents and retrieved passages. This is NOT a PDF, but already extracted text for your analysis. The USER DOCUMENTS section takes priority over everything else.

Extracted Context:
%s

%s

User Question:
%s

Structure your answer as follows:
1. Key findings from the user documents, quoting the relevant passages.
2. Alignment with the metrics above: for each metric the documents address, state what they report and where it falls short of the definition.
3. Gaps: metrics or requirements the documents do not cover.
4. Recommendations grounded in the reference material.

Answer ONLY from the extracted context and the metrics above. If the context is insufficient, state so clearly.`

const exploreTemplate = `
Below is extracted text from the user's uploaded documents. This is NOT a PDF, but already extracted text.

Extracted Context:
%s
%s
User Question:
%s

Answer conversationally, using only the user's documents and the conversation so far. If the documents do not contain the answer, say that the information is not in the uploaded documents.`

const scoringTemplate = `# SUSTAINABILITY REPORT SCORING TASK

## DOCUMENT TO SCORE
The following text has been extracted from a sustainability report for scoring:

%s

## SCORING CRITERIA
Please score the sustainability report based on the following criteria:

%s

## SCORING INSTRUCTIONS
For each category and dimension listed above:

1. Provide a score from 0-5 where:
   - 0: Not addressed at all
   - 1: Minimally addressed with significant gaps
   - 2: Partially addressed with notable gaps
   - 3: Adequately addressed with some gaps
   - 4: Well addressed with minor gaps
   - 5: Comprehensively addressed with no significant gaps

2. For each dimension, provide:
   - Score (0-5)
   - Brief justification (1-2 sentences)
   - Evidence from the report (direct quotes or specific references)
   - Recommendations for improvement

3. For each category, calculate an average score of its dimensions.

4. Provide an overall report score (average of all category scores).

5. Include a summary assessment highlighting key strengths and areas for improvement.

Present your evaluation in a clear, structured format with appropriate headings and sections.
`

// userSectionHeader matches the rendered header, not document text that
// merely mentions the label.
var userSectionHeader = "=== " + models.SectionUser + " ("

// Analysis picks the metrics-aligned template when the context carries a user
// documents section and the generic one otherwise.
func Analysis(query, context string, metrics *models.MetricsSet) string {
	if strings.Contains(context, userSectionHeader) {
		return fmt.Sprintf(structuredAnalysisTemplate, context, criteria.FormatMetrics(metrics), query)
	}
	return fmt.Sprintf(genericAnalysisTemplate, context, query)
}

func Explore(query, context string, history []models.Turn) string {
	return fmt.Sprintf(exploreTemplate, context, renderHistory(history), query)
}

func renderHistory(history []models.Turn) string {
	if len(history) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\nConversation So Far:\n")
	for _, t := range history {
		fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n", t.Query, t.Answer)
	}
	return sb.String()
}

// Scoring renders the rubric prompt for one document. The body is cut to
// maxChars runes (DefaultScoringMaxChars when maxChars <= 0); anything past
// the limit is never seen by the model.
func Scoring(documentText string, c *models.ScoringCriteria, maxChars int) (string, error) {
	if c == nil || len(c.Categories) == 0 {
		return "", models.ErrCriteriaNotLoaded
	}
	if maxChars <= 0 {
		maxChars = DefaultScoringMaxChars
	}
	return fmt.Sprintf(scoringTemplate, util.Truncate(documentText, maxChars), criteria.FormatCriteria(c)), nil
}
