package yamlquiz

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"lan-quiz-service/internal/domain"
)

// File is the on-disk layout of a quiz file:
//
//	quizzes:
//	  - id: "1"
//	    title: Warmup
//	    questions:
//	      - text: What is 2 + 2?
//	        options: ["3", "4"]
//	        correct_option: 1
type File struct {
	Quizzes []domain.Quiz `yaml:"quizzes"`
}

// Loader serves quizzes from a YAML file. The file is read on every load so edits show
// up once the repository cache expires.
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

func (l *Loader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	quizzes, err := ReadFile(l.path)
	if err != nil {
		return domain.Quiz{}, err
	}
	for _, quiz := range quizzes {
		if quiz.ID == quizID {
			return quiz, nil
		}
	}
	return domain.Quiz{}, fmt.Errorf("quiz %s in %s: %w", quizID, l.path, domain.ErrQuizNotFound)
}

// ReadFile parses every quiz in path.
func ReadFile(path string) ([]domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quiz file: %w", err)
	}
	return Parse(data)
}

// Parse decodes quiz file content. Quizzes without an id get their 1-based position.
func Parse(data []byte) ([]domain.Quiz, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse quiz file: %w", err)
	}
	for i := range f.Quizzes {
		if f.Quizzes[i].ID == "" {
			f.Quizzes[i].ID = strconv.Itoa(i + 1)
		}
	}
	return f.Quizzes, nil
}
