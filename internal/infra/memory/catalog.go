package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"live-quiz-service/internal/domain"
)

// Catalog is the on-disk seed for quizzes and events when no database is configured.
type Catalog struct {
	Quizzes []domain.Quiz  `yaml:"quizzes"`
	Events  []domain.Event `yaml:"events"`
}

// LoadCatalog reads and validates a YAML catalog file.
func LoadCatalog(path string) (Catalog, error) {
	var catalog Catalog
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog, err
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return catalog, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	for _, quiz := range catalog.Quizzes {
		if quiz.ID == "" {
			return catalog, fmt.Errorf("catalog %s: quiz without id", path)
		}
		if err := quiz.Validate(); err != nil {
			return catalog, err
		}
	}
	return catalog, nil
}

// QuizMap indexes the catalog quizzes by id for StaticQuizLoader.
func (c Catalog) QuizMap() map[string]domain.Quiz {
	out := make(map[string]domain.Quiz, len(c.Quizzes))
	for _, quiz := range c.Quizzes {
		out[quiz.ID] = quiz
	}
	return out
}
