package questionbank_test

import (
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/questionbank"
)

func TestDefault_ListCategories(t *testing.T) {
	b, err := questionbank.Default()
	require.NoError(t, err)

	got := b.ListCategories()
	require.Len(t, got, 4)

	assert.Equal(t, domain.CategoryEntrepreneurship, got[0].Category)
	assert.Equal(t, 5, got[0].TotalQuestions)
	assert.Equal(t, map[domain.Difficulty]int{
		domain.DifficultyEasy:   1,
		domain.DifficultyMedium: 3,
		domain.DifficultyHard:   1,
	}, got[0].CountsByDifficulty)

	for _, s := range got {
		sum := 0
		for _, n := range s.CountsByDifficulty {
			sum += n
		}
		assert.Equal(t, s.TotalQuestions, sum, "difficulty counts of %s should add up", s.Category)
	}
}

func TestBank_Draw(t *testing.T) {
	b, err := questionbank.Default(questionbank.WithRand(rand.New(rand.NewPCG(1, 2))))
	require.NoError(t, err)

	tests := map[string]struct {
		category domain.Category
		count    int
		wantErr  error
	}{
		"full pool should return every question once": {
			category: domain.CategoryEntrepreneurship,
			count:    5,
		},
		"partial draw should return distinct questions": {
			category: domain.CategoryLaborLaw,
			count:    3,
		},
		"more than the pool should fail instead of truncating": {
			category: domain.CategoryEntrepreneurship,
			count:    100,
			wantErr:  domain.ErrInsufficientQuestions,
		},
		"category without questions should be not found": {
			category: domain.CategoryGovernance,
			count:    1,
			wantErr:  domain.ErrCategoryNotFound,
		},
		"zero count should fail": {
			category: domain.CategoryEntrepreneurship,
			count:    0,
			wantErr:  domain.ErrInvalidCount,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			qs, err := b.Draw(tt.category, tt.count)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, qs)
				return
			}

			require.NoError(t, err)
			require.Len(t, qs, tt.count)

			seen := make(map[int]bool)
			for _, q := range qs {
				assert.False(t, seen[q.ID], "question %d drawn twice", q.ID)
				seen[q.ID] = true
				assert.Equal(t, tt.category, q.Category)
			}
		})
	}
}

func TestBank_Draw_SeededIsDeterministic(t *testing.T) {
	draw := func() []int {
		b, err := questionbank.Default(questionbank.WithRand(rand.New(rand.NewPCG(7, 7))))
		require.NoError(t, err)

		qs, err := b.Draw(domain.CategoryPhilosophy, 3)
		require.NoError(t, err)

		ids := make([]int, 0, len(qs))
		for _, q := range qs {
			ids = append(ids, q.ID)
		}
		return ids
	}

	assert.Equal(t, draw(), draw())
}

func TestBank_Draw_Uniform(t *testing.T) {
	b, err := questionbank.Default(questionbank.WithRand(rand.New(rand.NewPCG(3, 4))))
	require.NoError(t, err)

	const rounds = 5000
	hits := make(map[int]int)
	for i := 0; i < rounds; i++ {
		qs, err := b.Draw(domain.CategoryHealthyFinances, 1)
		require.NoError(t, err)
		hits[qs[0].ID]++
	}

	require.Len(t, hits, 5, "every question should be drawn eventually")
	for id, n := range hits {
		assert.InDelta(t, rounds/5, n, rounds/20, "question %d drawn %d times", id, n)
	}
}

func TestBank_Draw_Concurrent(t *testing.T) {
	b, err := questionbank.Default()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			qs, err := b.Draw(domain.CategoryEntrepreneurship, 5)
			assert.NoError(t, err)
			assert.Len(t, qs, 5)
		}()
	}
	wg.Wait()
}

func TestLoad_Validation(t *testing.T) {
	tests := map[string]string{
		"unknown category": `
categories:
  - category: Astrology
    questions: []`,
		"wrong option count": `
categories:
  - category: Economía
    questions:
      - {id: 1, difficulty: easy, prompt: p, options: [a, b], correct: 0}`,
		"correct index out of range": `
categories:
  - category: Economía
    questions:
      - {id: 1, difficulty: easy, prompt: p, options: [a, b, c, d], correct: 4}`,
		"unknown difficulty": `
categories:
  - category: Economía
    questions:
      - {id: 1, difficulty: extreme, prompt: p, options: [a, b, c, d], correct: 0}`,
		"duplicate id": `
categories:
  - category: Economía
    questions:
      - {id: 1, difficulty: easy, prompt: p, options: [a, b, c, d], correct: 0}
      - {id: 1, difficulty: hard, prompt: q, options: [a, b, c, d], correct: 1}`,
	}

	for name, catalog := range tests {
		catalog := catalog
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := questionbank.Load(strings.NewReader(catalog))
			require.Error(t, err)
		})
	}
}

func TestBank_Question(t *testing.T) {
	b, err := questionbank.Default()
	require.NoError(t, err)

	q, ok := b.Question(7)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryHealthyFinances, q.Category)
	assert.Equal(t, domain.DifficultyHard, q.Difficulty)

	_, ok = b.Question(999)
	assert.False(t, ok)
}
