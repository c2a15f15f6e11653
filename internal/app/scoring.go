package app

import (
	"math"
	"time"

	"lan-quiz-service/internal/domain"
)

const (
	// AccuracyPoints is awarded for every correct answer.
	AccuracyPoints = 20
	// MaxSpeedPoints is the speed bonus for a correct answer inside the first second.
	MaxSpeedPoints = 15
	// MinSpeedPoints is the floor of the speed bonus for a correct answer.
	MinSpeedPoints = 1
)

// Award is the outcome of scoring a single submission.
type Award struct {
	Correct bool
	Points  int
	Elapsed time.Duration
}

// ScoreAnswer scores a submission made while remaining seconds were left out of limit.
// Elapsed time is limit-remaining, clamped to [0, limit].
func ScoreAnswer(q domain.Question, optionIndex, remaining, limit int) Award {
	elapsed := clamp(0, limit, limit-remaining)
	award := Award{
		Correct: optionIndex == q.CorrectOption,
		Elapsed: time.Duration(elapsed) * time.Second,
	}
	if award.Correct {
		award.Points = AccuracyPoints + SpeedPoints(float64(elapsed))
	}
	return award
}

// SpeedPoints decays one point per elapsed second from MaxSpeedPoints, never below MinSpeedPoints.
func SpeedPoints(elapsedSeconds float64) int {
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	raw := int(math.Ceil(float64(MaxSpeedPoints+1) - elapsedSeconds))
	return clamp(MinSpeedPoints, MaxSpeedPoints, raw)
}

func clamp(lo, hi, v int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
