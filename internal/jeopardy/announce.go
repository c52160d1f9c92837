package jeopardy

import (
	"fmt"
	"strings"
	"time"

	"meshtastic-game-bot/internal/model"
)

// scoreResult is one graded submission in a settlement announcement.
type scoreResult struct {
	Name  string
	Delta int64
}

func staticIntroText(cfg Config) string {
	return fmt.Sprintf(`HACKER JEOPARDY - GAME ON!

Send !join to play! You can join anytime.
Questions posted here + DM'd to players.
DM your answers back to me.

Correct = +points | Wrong = -points
%d rounds total. Good luck!`, cfg.MaxRounds)
}

func roundOpenText(r *Round, maxRounds int, window time.Duration) string {
	return fmt.Sprintf("ROUND %d/%d - %d POINTS\n%s\n\nDM your answer within %s!",
		r.Number, maxRounds, r.Question.Points, r.Question.Prompt, formatDuration(window))
}

func roundDMText(r *Round, maxRounds int) string {
	return fmt.Sprintf("ROUND %d/%d - %d pts\n%s",
		r.Number, maxRounds, r.Question.Points, r.Question.Prompt)
}

func settlementText(q Question, results []scoreResult, top []model.Standing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Answer: %s\n", q.Answers[0])

	if len(results) == 0 {
		b.WriteString("No answers this round!")
		return b.String()
	}

	for _, r := range results {
		fmt.Fprintf(&b, "%s: %+d\n", r.Name, r.Delta)
	}
	if len(top) > 0 {
		b.WriteString("\nStandings:\n")
		b.WriteString(formatStandings(top))
	}
	return strings.TrimRight(b.String(), "\n")
}

func finalText(reason string, top []model.Standing) string {
	var b strings.Builder
	b.WriteString(reason)
	b.WriteString("\n\nGAME OVER - FINAL SCORES:\n")
	if len(top) == 0 {
		b.WriteString("No scores recorded.")
	} else {
		b.WriteString(formatStandings(top))
		b.WriteString("\nThanks for playing!")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStandings(standings []model.Standing) string {
	var b strings.Builder
	for i, s := range standings {
		fmt.Fprintf(&b, "%d. %s: %d pts\n", i+1, s.Username, s.Points)
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
