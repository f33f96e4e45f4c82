package llm

import "strings"

const gradingSystemPrompt = "You are a strict but fair programming instructor grading student homework. " +
	"Evaluate correctness, code quality and edge-case handling against the stated requirements. " +
	"Point out concrete mistakes and weak spots, then state the final score on its own line as \"NN/100\"."

const planningSystemPrompt = "You are a programming study planner. Given a student's homework and its evaluation, " +
	"produce an actionable study plan with exactly four sections: learning goals, core content, " +
	"practice tasks, and weak-point remediation. Target the plan at the mistakes the evaluation calls out."

func buildEvaluationPrompt(content string) string {
	builder := strings.Builder{}
	builder.WriteString(content)
	builder.WriteString("\n\nGrade this submission objectively against the rubric.")
	return builder.String()
}

func buildPlanPrompt(content, evaluation string) string {
	builder := strings.Builder{}
	builder.WriteString("## Homework\n")
	builder.WriteString(truncateRunes(content, maxPlanContentRunes))
	builder.WriteString("\n\n## Evaluation\n")
	builder.WriteString(truncateRunes(evaluation, maxPlanEvaluationRunes))
	builder.WriteString("\n\nWrite the four-section study plan for this student.")
	return builder.String()
}

// truncateRunes bounds prompt size without splitting multi-byte characters.
// Truncation is silent: oversized input is a normal case, not an error.
func truncateRunes(input string, limit int) string {
	if limit <= 0 {
		return input
	}
	runes := []rune(input)
	if len(runes) <= limit {
		return input
	}
	return string(runes[:limit])
}
