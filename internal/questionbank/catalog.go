package questionbank

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/victornm/trivia/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Categories []struct {
		Category  string `yaml:"category"`
		Questions []struct {
			ID          int      `yaml:"id"`
			Difficulty  string   `yaml:"difficulty"`
			Prompt      string   `yaml:"prompt"`
			Options     []string `yaml:"options"`
			Correct     int      `yaml:"correct"`
			Explanation string   `yaml:"explanation"`
		} `yaml:"questions"`
	} `yaml:"categories"`
}

// Default builds a bank from the embedded catalog.
func Default(opts ...Option) (*Bank, error) {
	return Load(bytes.NewReader(defaultCatalog), opts...)
}

// LoadFile builds a bank from a YAML catalog file. An empty path means the embedded catalog.
func LoadFile(path string, opts ...Option) (*Bank, error) {
	if path == "" {
		return Default(opts...)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("question bank: open catalog: %w", err)
	}
	defer f.Close()

	return Load(f, opts...)
}

// Load decodes a YAML catalog and builds a bank from it.
func Load(r io.Reader, opts ...Option) (*Bank, error) {
	var cf catalogFile
	if err := yaml.NewDecoder(r).Decode(&cf); err != nil {
		return nil, fmt.Errorf("question bank: decode catalog: %w", err)
	}

	var questions []domain.Question
	for _, c := range cf.Categories {
		category, err := domain.ParseCategory(c.Category)
		if err != nil {
			return nil, fmt.Errorf("question bank: %w", err)
		}

		for _, q := range c.Questions {
			questions = append(questions, domain.Question{
				ID:                 q.ID,
				Category:           category,
				Difficulty:         domain.Difficulty(q.Difficulty),
				Prompt:             q.Prompt,
				Options:            q.Options,
				CorrectOptionIndex: q.Correct,
				Explanation:        q.Explanation,
			})
		}
	}

	return New(questions, opts...)
}
