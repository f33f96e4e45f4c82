package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractScore(t *testing.T) {
	cases := []struct {
		name      string
		narrative string
		want      float64
	}{
		{name: "suffix fen", narrative: "得分：88分。递归逻辑正确。", want: 88},
		{name: "fenshu prefix", narrative: "分数: 92\n优点：结构清晰", want: 92},
		{name: "out of hundred", narrative: "Final score 76/100, missing edge cases.", want: 76},
		{name: "percentage", narrative: "Overall: 64%, needs input validation.", want: 64},
		{name: "decimal", narrative: "评分：87.5分", want: 87.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score := ExtractScore(tc.narrative)
			require.NotNil(t, score)
			require.Equal(t, tc.want, *score)
		})
	}
}

func TestExtractScoreFirstPatternWins(t *testing.T) {
	score := ExtractScore("90分，换算后为 76/100")
	require.NotNil(t, score)
	require.Equal(t, 90.0, *score)
}

func TestExtractScoreAbsentWhenNoPatternMatches(t *testing.T) {
	require.Nil(t, ExtractScore("Well structured solution, no numeric verdict given."))
	require.Nil(t, ExtractScore(""))
}
