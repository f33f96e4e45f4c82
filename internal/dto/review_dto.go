package dto

// ReviewResponse is the outcome of an AI review: the stored evaluation
// narrative, the score parsed out of it (absent when no recognizable score
// line was produced), and a study plan tailored to the evaluation.
type ReviewResponse struct {
	SubmissionID uint     `json:"submission_id"`
	Evaluation   string   `json:"evaluation"`
	AIScore      *float64 `json:"ai_score"`
	StudyPlan    string   `json:"study_plan"`
	PlanCached   bool     `json:"plan_cached"`
}
