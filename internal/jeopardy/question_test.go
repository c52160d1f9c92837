package jeopardy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeQuestionFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadQuestions(t *testing.T) {
	path := writeQuestionFile(t, `# comment lines and blanks are skipped

Q:100: What port does SSH use?
A: 22
A: Twenty-Two

Q:200: What does XSS stand for?
A: cross site scripting

Q: No point value on this one?
A: yes
`)

	questions, err := LoadQuestions(path)
	require.NoError(t, err)
	require.Len(t, questions, 3)

	assert.Equal(t, "What port does SSH use?", questions[0].Prompt)
	assert.Equal(t, int64(100), questions[0].Points)
	assert.Equal(t, []string{"22", "twenty-two"}, questions[0].Answers)

	assert.Equal(t, int64(200), questions[1].Points)

	// Missing point prefix falls back to the default value.
	assert.Equal(t, int64(DefaultPointValue), questions[2].Points)
	assert.Equal(t, "No point value on this one?", questions[2].Prompt)

	// IDs are stable per file position.
	assert.Equal(t, "hj_q0", questions[0].ID)
	assert.Equal(t, "hj_q2", questions[2].ID)
}

func TestLoadQuestions_SkipsIncomplete(t *testing.T) {
	path := writeQuestionFile(t, `Q:100: A question with no answers?

Q:300: A complete one?
A: yes
`)

	questions, err := LoadQuestions(path)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "A complete one?", questions[0].Prompt)
}

// A zero or negative stake would turn wrong answers into gains, so the
// loader replaces it with the default value.
func TestLoadQuestions_NonPositivePointsRejected(t *testing.T) {
	path := writeQuestionFile(t, `Q:0: Free points?
A: yes

Q:-200: Inverted stakes?
A: yes
`)

	questions, err := LoadQuestions(path)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, int64(DefaultPointValue), questions[0].Points)
	assert.Equal(t, int64(DefaultPointValue), questions[1].Points)
}

func TestLoadQuestions_MissingFileFallsBack(t *testing.T) {
	questions, err := LoadQuestions(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	assert.NotEmpty(t, questions)
}

func TestLoadQuestions_EmptyFileIsError(t *testing.T) {
	path := writeQuestionFile(t, "# nothing here\n")
	_, err := LoadQuestions(path)
	assert.Error(t, err)
}

func TestQuestionMatches(t *testing.T) {
	q := Question{Answers: []string{"22", "twenty-two"}}

	tests := []struct {
		name  string
		text  string
		match bool
	}{
		{"exact", "22", true},
		{"case folded", "TWENTY-TWO", true},
		{"surrounding whitespace", "  22  ", true},
		{"wrong answer", "21", false},
		{"substring is not a match", "port 22", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, q.Matches(tt.text))
		})
	}
}
