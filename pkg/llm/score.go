package llm

import (
	"regexp"
	"strconv"
)

// Pattern order matters: the first match wins. The evaluation narrative is
// free text and may state the score as "88分", "分数：92", "76/100" or "64%".
var scorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*分`),
	regexp.MustCompile(`分数[：:]\s*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*100`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`),
}

// ExtractScore attempts to pull a numeric score out of an evaluation
// narrative. It returns nil when no pattern matches; an unscored narrative is
// not an error and must not read as zero.
func ExtractScore(narrative string) *float64 {
	for _, pattern := range scorePatterns {
		match := pattern.FindStringSubmatch(narrative)
		if match == nil {
			continue
		}
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		return &value
	}
	return nil
}
