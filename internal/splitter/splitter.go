// Package splitter decomposes a raw user query into independent
// questions.
//
// Users routinely pack several questions into one message ("What is the
// leave policy and what is the password policy?"). Splitting them up
// front lets each one be routed and answered independently, then the
// answers are recombined with Combine. Split is a pure function: same
// input, same output, no state.
package splitter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/policydesk/policydesk/pkg/models"
)

var (
	questionMarkRe = regexp.MustCompile(`\?+`)

	// List-style prefixes: "what are X, Y and Z", "tell me about X and Y".
	listPrefixRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(what (?:are|is|were|was))\s+(.+)$`),
		regexp.MustCompile(`(?i)^(tell me about|explain|describe|list)\s+(.+)$`),
	}

	listItemSplitRe = regexp.MustCompile(`(?i)\s*,\s*|\s+and\s+`)
	andConnectorRe  = regexp.MustCompile(`(?i)\s+and\s+`)

	// Connectors that commonly join two independent questions without a
	// question mark. Order matters: the first matching connector wins.
	connectorRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s+and\s+`),
		regexp.MustCompile(`(?i)\s+also\s+`),
		regexp.MustCompile(`(?i)\s+what about\s+`),
		regexp.MustCompile(`(?i)\s+how about\s+`),
		regexp.MustCompile(`(?i)\s+,\s+and\s+`),
		regexp.MustCompile(`(?i)\s+;\s+`),
		regexp.MustCompile(`(?i)\s+then\s+`),
	}

	questionWords = []string{
		"what", "who", "when", "where", "why", "how",
		"which", "can", "should", "is", "are", "does", "do",
	}
)

// Split decomposes raw text into one or more questions. Rules are tried
// in priority order and the first rule producing at least two validated
// parts wins:
//
//  1. split on runs of '?', keeping the marks with the preceding text
//  2. expand list-style queries ("what are X, Y and Z")
//  3. split on connectors (" and ", " also ", "; ", ...)
//
// The result is never empty: when nothing fires, the trimmed input is
// returned as a single question. Each question's Multi flag records
// whether it came from a multi-question input.
func Split(raw string) []models.Question {
	if strings.TrimSpace(raw) == "" {
		return []models.Question{{Text: raw}}
	}
	raw = strings.TrimSpace(raw)

	if parts := splitOnQuestionMarks(raw); len(parts) > 1 {
		return asQuestions(parts)
	}
	if parts := expandListQuery(raw); len(parts) > 1 {
		return asQuestions(parts)
	}
	if parts := splitOnConnectors(raw); len(parts) > 1 {
		return asQuestions(parts)
	}
	return []models.Question{{Text: raw}}
}

// splitOnQuestionMarks cuts raw on runs of '?', re-attaching the marks
// to the preceding text. Trailing text after the last mark becomes its
// own segment.
func splitOnQuestionMarks(raw string) []string {
	marks := questionMarkRe.FindAllStringIndex(raw, -1)
	if len(marks) == 0 {
		return []string{raw}
	}

	var parts []string
	prev := 0
	for _, m := range marks {
		segment := strings.TrimSpace(raw[prev:m[1]])
		if segment != "" {
			parts = append(parts, segment)
		}
		prev = m[1]
	}
	if rest := strings.TrimSpace(raw[prev:]); rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

// expandListQuery turns "what are X, Y and Z" into one question per
// item, re-prepending the original prefix. Expansions shorter than
// three words are dropped as unlikely to be meaningful questions.
func expandListQuery(raw string) []string {
	for _, re := range listPrefixRes {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		prefix := strings.TrimSpace(m[1])
		items := strings.TrimSpace(m[len(m)-1])

		if !strings.Contains(items, ",") && !andConnectorRe.MatchString(items) {
			continue
		}

		var expanded []string
		for _, item := range listItemSplitRe.Split(items, -1) {
			item = strings.TrimSpace(item)
			if len(item) < 2 {
				continue
			}
			q := prefix + " " + item
			if len(strings.Fields(q)) >= 3 {
				expanded = append(expanded, q)
			}
		}
		if len(expanded) >= 2 {
			return expanded
		}
	}
	return nil
}

// splitOnConnectors splits raw on the first connector that yields at
// least two segments which each look like a standalone question.
func splitOnConnectors(raw string) []string {
	for _, re := range connectorRes {
		if !re.MatchString(raw) {
			continue
		}
		var valid []string
		for _, part := range re.Split(raw, -1) {
			part = strings.TrimSpace(part)
			if part != "" && looksLikeQuestion(part) {
				valid = append(valid, part)
			}
		}
		if len(valid) >= 2 {
			return valid
		}
	}
	return nil
}

func looksLikeQuestion(part string) bool {
	lower := strings.ToLower(part)
	for _, qw := range questionWords {
		if strings.HasPrefix(lower, qw) {
			return true
		}
	}
	return strings.HasSuffix(lower, "?") || len(strings.Fields(part)) >= 3
}

func asQuestions(parts []string) []models.Question {
	multi := len(parts) > 1
	qs := make([]models.Question, len(parts))
	for i, p := range parts {
		qs[i] = models.Question{Text: p, Multi: multi}
	}
	return qs
}

// AnsweredQuestion pairs a question with its synthesized answer, in the
// order the questions were asked.
type AnsweredQuestion struct {
	Question string
	Answer   string
}

const noResponseMessage = "I apologize, but I couldn't generate a response."

// Combine merges per-question answers into one markdown response. A
// single answer passes through unchanged; multiple answers are rendered
// as a bold question header (trailing '?' stripped) followed by the
// answer, separated by horizontal rules.
func Combine(answers []AnsweredQuestion) string {
	if len(answers) == 0 {
		return noResponseMessage
	}
	if len(answers) == 1 {
		if answers[0].Answer == "" {
			return "No answer provided"
		}
		return answers[0].Answer
	}

	parts := make([]string, 0, len(answers))
	for i, qa := range answers {
		question := strings.TrimSpace(qa.Question)
		if question == "" {
			question = fmt.Sprintf("Question %d", i+1)
		}
		question = strings.TrimSpace(strings.TrimSuffix(question, "?"))

		answer := strings.TrimSpace(qa.Answer)
		if answer == "" {
			answer = "No answer provided"
		}
		parts = append(parts, fmt.Sprintf("**%s:**\n\n%s", question, answer))
	}
	return strings.Join(parts, "\n\n---\n\n")
}
