package questionbank

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
)

// Bank is the read-only question catalog. It is safe for concurrent use.
type Bank struct {
	pools map[domain.Category][]domain.Question
	byID  map[int]domain.Question

	mu  sync.Mutex // guards rnd
	rnd *rand.Rand
}

type Option func(b *Bank)

// WithRand sets the random source used to draw questions. Tests pass a seeded source.
func WithRand(r *rand.Rand) Option {
	return func(b *Bank) {
		b.rnd = r
	}
}

// New validates the questions and builds a bank from them.
func New(questions []domain.Question, opts ...Option) (*Bank, error) {
	b := &Bank{
		pools: make(map[domain.Category][]domain.Question),
		byID:  make(map[int]domain.Question, len(questions)),
		rnd:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}

	for _, opt := range opts {
		opt(b)
	}

	for _, q := range questions {
		if err := validate(q); err != nil {
			return nil, err
		}
		if _, ok := b.byID[q.ID]; ok {
			return nil, fmt.Errorf("question bank: duplicate question id %d", q.ID)
		}

		q.Options = slices.Clone(q.Options)
		b.byID[q.ID] = q
		b.pools[q.Category] = append(b.pools[q.Category], q)
	}

	return b, nil
}

func validate(q domain.Question) error {
	switch {
	case !q.Category.Valid():
		return fmt.Errorf("question bank: question %d: invalid category", q.ID)
	case !q.Difficulty.Valid():
		return fmt.Errorf("question bank: question %d: invalid difficulty %q", q.ID, q.Difficulty)
	case len(q.Options) != domain.OptionCount:
		return fmt.Errorf("question bank: question %d: %d options, want %d", q.ID, len(q.Options), domain.OptionCount)
	case q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= domain.OptionCount:
		return fmt.Errorf("question bank: question %d: correct option %d out of range", q.ID, q.CorrectOptionIndex)
	case q.Prompt == "":
		return fmt.Errorf("question bank: question %d: empty prompt", q.ID)
	}
	return nil
}

// CategorySummary describes the pool of one category.
type CategorySummary struct {
	Category           domain.Category           `json:"category"`
	TotalQuestions     int                       `json:"totalQuestions"`
	CountsByDifficulty map[domain.Difficulty]int `json:"countsByDifficulty"`
}

// ListCategories returns a summary of every category that has questions, in category order.
func (b *Bank) ListCategories() []CategorySummary {
	var res []CategorySummary
	for _, c := range domain.Categories() {
		pool, ok := b.pools[c]
		if !ok {
			continue
		}

		s := CategorySummary{
			Category:       c,
			TotalQuestions: len(pool),
			CountsByDifficulty: map[domain.Difficulty]int{
				domain.DifficultyEasy:   0,
				domain.DifficultyMedium: 0,
				domain.DifficultyHard:   0,
			},
		}
		for _, q := range pool {
			s.CountsByDifficulty[q.Difficulty]++
		}
		res = append(res, s)
	}

	return res
}

// Draw picks count distinct questions of the category uniformly at random.
// It never returns fewer questions than requested.
func (b *Bank) Draw(category domain.Category, count int) ([]domain.Question, error) {
	pool, ok := b.pools[category]
	if !ok {
		return nil, domain.ErrCategoryNotFound.With(errors.WithMessagef("category %q has no questions", category))
	}

	if count < 1 {
		return nil, domain.ErrInvalidCount.With(errors.WithMessagef("question count must be positive, got %d", count))
	}

	if count > len(pool) {
		return nil, domain.ErrInsufficientQuestions.With(errors.WithMessagef("category %q has %d questions, %d requested", category, len(pool), count))
	}

	drawn := slices.Clone(pool)

	b.mu.Lock()
	// partial Fisher-Yates: the first count slots end up a uniform sample without replacement
	for i := 0; i < count; i++ {
		j := i + b.rnd.IntN(len(drawn)-i)
		drawn[i], drawn[j] = drawn[j], drawn[i]
	}
	b.mu.Unlock()

	return drawn[:count:count], nil
}

// Question returns the question with the given id.
func (b *Bank) Question(id int) (domain.Question, bool) {
	q, ok := b.byID[id]
	return q, ok
}
