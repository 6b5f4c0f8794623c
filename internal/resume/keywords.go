package resume

import (
	"fmt"
	"os"
	"strings"
)

// Keywords groups the job-description keyword categories used for ATS
// scoring
type Keywords map[string][]string

// categoryWeights is how much each keyword category contributes to the
// final score. Skills dominate.
var categoryWeights = map[string]float64{
	"skills":          0.60,
	"experience":      0.15,
	"projects":        0.15,
	"education":       0.05,
	"soft_indicators": 0.05,
}

// DefaultKeywords returns the keyword map for the machine learning
// engineer job description
func DefaultKeywords() Keywords {
	return Keywords{
		"skills": {
			"python", "sql", "sklearn", "pandas", "numpy",
			"tensorflow", "pytorch", "docker", "git", "ci/cd",
			"mlflow", "kubeflow", "gcp", "bigquery", "machine learning",
		},
		"experience": {
			"deployed", "production", "pipeline", "monitoring",
			"drift", "scalable", "api", "rest",
		},
		"projects": {
			"classification", "regression", "nlp", "cv",
			"computer vision", "deep learning",
		},
		"education": {"cs", "computer science", "engineering", "statistics"},
		"soft_indicators": {"collaboration", "timeline", "leadership"},
	}
}

// LoadJD reads the job description text, lowercased for matching
func LoadJD(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read job description %s: %w", path, err)
	}
	return strings.ToLower(string(data)), nil
}
