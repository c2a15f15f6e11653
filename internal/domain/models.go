package domain

import (
	"fmt"
	"time"
)

// Phase is one stage of a running game.
type Phase string

const (
	PhaseWaiting      Phase = "waiting"
	PhaseCountdown    Phase = "countdown"
	PhaseQuestion     Phase = "question"
	PhaseAnswerReveal Phase = "answer_reveal"
	PhaseLeaderboard  Phase = "leaderboard"
	PhaseGameOver     Phase = "game_over"
)

// SessionID identifies one transport connection. It is not a participant identity.
type SessionID string

// Participant represents a joined player and their accumulated score.
type Participant struct {
	ID       string
	Name     string
	JoinedAt time.Time
	Session  SessionID
	Score    int
	Answers  []AnswerRecord
	// JoinSeq orders participants by registration; leaderboard ties keep this order.
	JoinSeq uint64
}

// AnswerRecord is one accepted submission.
type AnswerRecord struct {
	QuestionIndex int
	OptionIndex   int
	Correct       bool
	Elapsed       time.Duration
	Awarded       int
}

// Question models a multiple-choice question with exactly one correct option.
type Question struct {
	Text          string   `json:"text" yaml:"text"`
	Options       []string `json:"options" yaml:"options"`
	CorrectOption int      `json:"correctOption" yaml:"correct_option"`
}

// Validate checks the option list and the correct index.
func (q Question) Validate() error {
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: question %q needs at least 2 options", ErrInvalidQuiz, q.Text)
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		return fmt.Errorf("%w: question %q has correct option %d out of range", ErrInvalidQuiz, q.Text, q.CorrectOption)
	}
	return nil
}

// Quiz is a titled collection of questions.
type Quiz struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Validate checks every question of the quiz.
func (q Quiz) Validate() error {
	for _, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LeaderboardEntry is a snapshot-friendly view of a participant.
type LeaderboardEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// RosterEntry is what the host sees for each participant.
type RosterEntry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
	Score    int       `json:"score"`
}

// GameSnapshot is a read-only view of the engine state.
type GameSnapshot struct {
	Phase          Phase  `json:"phase"`
	// QuestionIndex stays on the last question once the game is over.
	QuestionIndex  int    `json:"questionIndex"`
	Remaining      int    `json:"remaining"`
	TotalQuestions int    `json:"totalQuestions"`
	QuizID         string `json:"quizId"`
	QuizTitle      string `json:"quizTitle"`
	Participants   int    `json:"participants"`
}

// GameResult is the final leaderboard of a finished game.
type GameResult struct {
	QuizID     string             `json:"quizId"`
	QuizTitle  string             `json:"quizTitle"`
	FinishedAt time.Time          `json:"finishedAt"`
	Entries    []LeaderboardEntry `json:"entries"`
}
