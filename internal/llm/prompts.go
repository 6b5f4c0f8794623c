package llm

import (
	"fmt"
	"strings"
)

// questionPrompt builds the recruiter prompt that generates the interview
// questions: half from the candidate's resume, half from the configured
// domain topic.
func questionPrompt(name, resumeText string, count int, domainTopic string) string {
	fromResume := count / 2
	fromDomain := count - fromResume

	var b strings.Builder
	b.WriteString("You are a recruiter. Generate ")
	fmt.Fprintf(&b, "%d interview questions for %s:\n", count, name)
	fmt.Fprintf(&b, "- %d from resume context: %s\n", fromResume, resumeText)
	fmt.Fprintf(&b, "- %d from %s\n", fromDomain, domainTopic)
	b.WriteString("Return ONLY a JSON list of strings.")
	return b.String()
}

// scoringPrompt builds the evaluator prompt. The response must follow a
// fixed JSON shape: per-question scores with reasons, an average, and a
// summary paragraph.
func scoringPrompt(fullTranscript string) string {
	var b strings.Builder
	b.WriteString("You are an AI Interview Evaluator.\n\n")
	b.WriteString("FULL TRANSCRIPT:\n")
	b.WriteString(fullTranscript)
	b.WriteString("\n\nTASK:\n")
	b.WriteString("1. Score each answer (1-10)\n")
	b.WriteString("2. Give 1-2 lines of reasoning per answer\n")
	b.WriteString("3. Provide an average score\n")
	b.WriteString("4. Provide a final summary paragraph\n\n")
	b.WriteString("Return JSON:\n")
	b.WriteString(`{
  "results": [
    {"question": 1, "score": 8, "reason": "Good answer"},
    {"question": 2, "score": 5, "reason": "Weak detail"}
  ],
  "average_score": 6.5,
  "summary": "Good conceptual knowledge but lacks examples."
}`)
	return b.String()
}

// contactPrompt builds the structured-extraction prompt for candidate
// contact details
func contactPrompt(resumeText string) string {
	var b strings.Builder
	b.WriteString("Extract the candidate details.\n\n")
	b.WriteString("Return ONLY JSON with keys:\n")
	b.WriteString("- name\n- phone_number\n- email\n\n")
	b.WriteString("If a field is not available return an empty string.\n")
	b.WriteString("Resume:\n")
	b.WriteString(resumeText)
	return b.String()
}

// StripCodeFences removes markdown code fences the chat backends wrap
// around JSON output
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
