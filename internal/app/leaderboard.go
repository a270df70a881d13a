package app

import (
	"math"
	"sort"
	"strings"

	"live-quiz-service/internal/domain"
)

// BuildLeaderboard ranks the players of a session by score, then name.
func BuildLeaderboard(session domain.Session, quizTitle string) domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(session.Players))
	for _, player := range session.Players {
		correct := 0
		for _, a := range player.Answers {
			if a.Correct {
				correct++
			}
		}
		entries = append(entries, domain.LeaderboardEntry{
			Name:     player.Name,
			Score:    player.Score,
			Answered: len(player.Answers),
			Correct:  correct,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})

	return domain.Leaderboard{
		SessionID: session.ID,
		GamePin:   session.GamePin,
		QuizTitle: quizTitle,
		Status:    session.Status,
		Entries:   entries,
	}
}

// AggregateLeaderboards merges players across sessions by lower-cased name and
// orders them by average score.
func AggregateLeaderboards(boards []domain.Leaderboard) []domain.AggregateEntry {
	index := make(map[string]int)
	var out []domain.AggregateEntry
	for _, board := range boards {
		for _, entry := range board.Entries {
			key := strings.ToLower(entry.Name)
			i, ok := index[key]
			if !ok {
				i = len(out)
				index[key] = i
				out = append(out, domain.AggregateEntry{Name: entry.Name})
			}
			out[i].TotalScore += entry.Score
			out[i].QuizzesPlayed++
		}
	}

	for i := range out {
		if out[i].QuizzesPlayed > 0 {
			out[i].AverageScore = int(math.Round(float64(out[i].TotalScore) / float64(out[i].QuizzesPlayed)))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore > out[j].AverageScore
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	if out == nil {
		out = []domain.AggregateEntry{}
	}
	return out
}
