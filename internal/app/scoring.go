package app

import "live-quiz-service/internal/domain"

const (
	// BaseScore is awarded for every correct answer.
	BaseScore = 1000
	// BonusPerSecond is awarded for each second left on the question timer.
	BonusPerSecond = 10
)

// ScoreAnswer returns whether chosen is correct and the points it earns.
func ScoreAnswer(question domain.Question, chosen, timeSpentSeconds int) (bool, int) {
	if chosen != question.CorrectAnswerIndex {
		return false, 0
	}
	remaining := question.TimeLimit() - timeSpentSeconds
	if remaining < 0 {
		remaining = 0
	}
	return true, BaseScore + remaining*BonusPerSecond
}
