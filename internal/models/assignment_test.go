package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func requireLifecycleConsistent(t *testing.T, a Assignment) {
	t.Helper()
	if a.Status == AssignmentStatusWithdrawn {
		require.NotNil(t, a.WithdrawnAt)
	} else {
		require.Nil(t, a.WithdrawnAt)
	}
}

func TestAssignmentLifecycleTransitions(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	assignment := Assignment{Title: "Recursion", Status: AssignmentStatusDraft}
	requireLifecycleConsistent(t, assignment)
	require.False(t, assignment.AcceptsSubmissions())

	assignment.Publish()
	requireLifecycleConsistent(t, assignment)
	require.Equal(t, AssignmentStatusPublished, assignment.Status)
	require.True(t, assignment.AcceptsSubmissions())

	assignment.Withdraw(now)
	requireLifecycleConsistent(t, assignment)
	require.Equal(t, AssignmentStatusWithdrawn, assignment.Status)
	require.Equal(t, now, *assignment.WithdrawnAt)
	require.False(t, assignment.AcceptsSubmissions())

	// Withdrawal is reversible indefinitely.
	assignment.Publish()
	requireLifecycleConsistent(t, assignment)
	require.True(t, assignment.AcceptsSubmissions())

	assignment.Withdraw(now.Add(time.Hour))
	requireLifecycleConsistent(t, assignment)

	assignment.SaveDraft()
	requireLifecycleConsistent(t, assignment)
	require.Equal(t, AssignmentStatusDraft, assignment.Status)
	require.False(t, assignment.AcceptsSubmissions())
}

func TestSubmissionEvaluated(t *testing.T) {
	var submission Submission
	require.False(t, submission.Evaluated())

	empty := ""
	submission.EvaluationResult = &empty
	require.False(t, submission.Evaluated())

	narrative := "Score: 88/100. Solid recursion, missing input validation."
	submission.EvaluationResult = &narrative
	require.True(t, submission.Evaluated())
}
