package quality

import (
	"os"
	"strings"
)

// TaskCompletionRatio counts markdown checkboxes in the tasks artifact and
// returns the fraction checked. An unreadable file or a file without
// checkboxes yields zero.
func TaskCompletionRatio(path string) float64 {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	contents := string(data)
	total := strings.Count(contents, "- [")
	if total == 0 {
		return 0
	}
	done := strings.Count(contents, "- [x]")
	return float64(done) / float64(total)
}

// riskKeywords flag a review document as carrying elevated risk.
var riskKeywords = []string{"high", "critical"}

// DetectRisk reports whether the review artifact mentions a risk keyword.
func DetectRisk(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	lower := strings.ToLower(string(data))
	for _, keyword := range riskKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
