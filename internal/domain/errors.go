package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidQuiz is returned when loaded quiz content is malformed.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrEngineStopped is returned by engine calls made while the engine is not running.
	ErrEngineStopped = errors.New("game engine is not running")
	// ErrNoQuizLoaded is returned when quiz info is requested before any quiz was assigned.
	ErrNoQuizLoaded = errors.New("no quiz loaded")
	// ErrResultNotFound is returned when no finished game was recorded for a quiz.
	ErrResultNotFound = errors.New("result not found")
)
