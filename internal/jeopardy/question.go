package jeopardy

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Question is one immutable quiz item. Point value is the stake: an
// exact-match answer earns +Points, a counted wrong answer earns -Points.
type Question struct {
	ID      string
	Prompt  string
	Points  int64
	Answers []string
}

// DefaultPointValue is used when a question line carries no point value.
const DefaultPointValue = 100

// LoadQuestions parses a question file in the Q:/A: format:
//
//	Q:100: What port does SSH use?
//	A: 22
//	A: twenty-two
//
// The point value between "Q:" and the second colon is optional.
// Accepted answers are stored lower-cased and trimmed. If the file is
// missing, a small built-in set is returned so the game stays playable.
func LoadQuestions(path string) ([]Question, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("Question file not found, using built-in questions")
			return defaultQuestions(), nil
		}
		return nil, fmt.Errorf("failed to open question file: %w", err)
	}
	defer f.Close()

	var (
		questions []Question
		prompt    string
		points    int64
		answers   []string
	)

	flush := func() {
		if prompt != "" && len(answers) > 0 {
			questions = append(questions, Question{
				ID:      fmt.Sprintf("hj_q%d", len(questions)),
				Prompt:  prompt,
				Points:  points,
				Answers: answers,
			})
		}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Q:"):
			flush()
			prompt, points = parseQuestionLine(line[2:])
			answers = nil
		case strings.HasPrefix(line, "A:"):
			answers = append(answers, strings.ToLower(strings.TrimSpace(line[2:])))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read question file: %w", err)
	}
	flush()

	if len(questions) == 0 {
		return nil, fmt.Errorf("question file %s contains no questions", path)
	}
	return questions, nil
}

// parseQuestionLine parses the remainder of a "Q:" line, which is either
// "<points>: <prompt>" or just "<prompt>". The point value is the stake
// a wrong answer loses, so zero or negative values are rejected: they
// would invert scoring.
func parseQuestionLine(rest string) (string, int64) {
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) == 2 {
		if pts, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64); err == nil {
			if pts > 0 {
				return strings.TrimSpace(parts[1]), pts
			}
			log.Warn().Int64("points", pts).Str("prompt", strings.TrimSpace(parts[1])).
				Msg("Ignoring non-positive point value on question")
			return strings.TrimSpace(parts[1]), DefaultPointValue
		}
	}
	return strings.TrimSpace(rest), DefaultPointValue
}

func defaultQuestions() []Question {
	return []Question{
		{ID: "hj_q0", Prompt: "What port does SSH use by default?", Points: 100, Answers: []string{"22", "twenty-two"}},
		{ID: "hj_q1", Prompt: "What does XSS stand for?", Points: 200, Answers: []string{"cross-site scripting", "cross site scripting"}},
		{ID: "hj_q2", Prompt: "What is the default port for HTTPS?", Points: 100, Answers: []string{"443", "four forty-three"}},
	}
}

// Matches reports whether the submitted text is an accepted answer.
// Both sides are compared trimmed and case-folded; no fuzzy matching.
func (q Question) Matches(text string) bool {
	normalized := normalizeAnswer(text)
	for _, a := range q.Answers {
		if normalizeAnswer(a) == normalized {
			return true
		}
	}
	return false
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
