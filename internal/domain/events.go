package domain

// EventType names an outbound message.
type EventType string

const (
	EventJoined        EventType = "joined"
	EventCountdown     EventType = "countdown"
	EventTimerUpdate   EventType = "timerUpdate"
	EventQuestion      EventType = "question"
	EventAnswer        EventType = "answer"
	EventLeaderboard   EventType = "leaderboard"
	EventAnswerResult  EventType = "answerResult"
	EventRosterUpdated EventType = "rosterUpdated"
	EventError         EventType = "error"

	// host-only replies
	EventQuizLoaded EventType = "quizLoaded"
	EventState      EventType = "state"
)

// Event is the envelope delivered to participants and the host.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

type JoinedPayload struct {
	ParticipantID string `json:"participantId"`
	QuizTitle     string `json:"quizTitle"`
}

type CountdownPayload struct {
	Seconds int `json:"seconds"`
}

type TimerUpdatePayload struct {
	Value int `json:"value"`
}

type QuestionPayload struct {
	Index          int      `json:"index"`
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	TotalQuestions int      `json:"totalQuestions"`
}

type AnswerPayload struct {
	QuestionIndex      int `json:"questionIndex"`
	CorrectOptionIndex int `json:"correctOptionIndex"`
}

type LeaderboardPayload struct {
	Entries    []LeaderboardEntry `json:"entries"`
	IsGameOver bool               `json:"isGameOver"`
}

// AnswerResultPayload is unicast to the submitting session only.
type AnswerResultPayload struct {
	IsCorrect  bool `json:"isCorrect"`
	Score      int  `json:"score"`
	TotalScore int  `json:"totalScore"`
}

// RosterPayload is sent to the host only.
type RosterPayload struct {
	Participants []RosterEntry `json:"participants"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// QuizLoadedPayload answers a host load command.
type QuizLoadedPayload struct {
	QuizID         string `json:"quizId"`
	QuizTitle      string `json:"quizTitle"`
	TotalQuestions int    `json:"totalQuestions"`
	JoinURL        string `json:"joinUrl"`
}
