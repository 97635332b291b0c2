package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/domain"
)

func TestParseCategory(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    domain.Category
		wantErr error
	}{
		"display name":                    {in: "Emprendimiento", want: domain.CategoryEntrepreneurship},
		"display name with spaces":        {in: "Finanzas Sanas", want: domain.CategoryHealthyFinances},
		"storage key":                     {in: "finanzas", want: domain.CategoryHealthyFinances},
		"case and whitespace insensitive": {in: "  filosofía coparmex ", want: domain.CategoryPhilosophy},
		"unknown category":                {in: "Astrology", wantErr: domain.ErrInvalidCategory},
		"empty":                           {in: "", wantErr: domain.ErrInvalidCategory},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := domain.ParseCategory(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategory_CanonicalMapping(t *testing.T) {
	for _, c := range domain.Categories() {
		byName, err := domain.ParseCategory(c.String())
		require.NoError(t, err)
		byKey, err := domain.ParseCategory(c.Key())
		require.NoError(t, err)

		assert.Equal(t, c, byName, "display name of %s should map back", c)
		assert.Equal(t, c, byKey, "key of %s should map back", c)
	}
}

func TestCategory_JSONMapKey(t *testing.T) {
	in := map[domain.Category]domain.CategoryStats{
		domain.CategoryLaborLaw: {Played: 1, Correct: 2},
	}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Leyes Laborales":{"played":1,"correct":2,"answered":0,"points":0}}`, string(b))

	var out map[domain.Category]domain.CategoryStats
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestDifficulty_Points(t *testing.T) {
	assert.Equal(t, 10, domain.DifficultyEasy.Points())
	assert.Equal(t, 20, domain.DifficultyMedium.Points())
	assert.Equal(t, 30, domain.DifficultyHard.Points())
	assert.Equal(t, 0, domain.Difficulty("legendary").Points())
}

func TestAccuracy(t *testing.T) {
	assert.Equal(t, 0.0, domain.Accuracy(0, 0))
	assert.Equal(t, 0.0, domain.Accuracy(3, 0))
	assert.Equal(t, 66.7, domain.Accuracy(2, 3))
	assert.Equal(t, 100.0, domain.Accuracy(5, 5))
	assert.Equal(t, 33.3, domain.Accuracy(1, 3))
}

func TestSession_Answer(t *testing.T) {
	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	newSession := func() *domain.Session {
		return domain.NewSession("s1", "u1", domain.CategoryEntrepreneurship, []domain.Question{
			{ID: 1, Difficulty: domain.DifficultyEasy, Options: []string{"a", "b", "c", "d"}, CorrectOptionIndex: 0},
			{ID: 2, Difficulty: domain.DifficultyMedium, Options: []string{"a", "b", "c", "d"}, CorrectOptionIndex: 1},
			{ID: 3, Difficulty: domain.DifficultyHard, Options: []string{"a", "b", "c", "d"}, CorrectOptionIndex: 2},
		}, now)
	}

	t.Run("correct answers should award the difficulty tariff", func(t *testing.T) {
		s := newSession()

		out, err := s.Answer(3, 2, 4.5, now)
		require.NoError(t, err)
		assert.True(t, out.Question.IsCorrect)
		assert.Equal(t, 30, out.Question.PointsAwarded)
		assert.False(t, out.CompletedNow)
		assert.Equal(t, 2, s.Remaining())
		require.NoError(t, s.Validate())
	})

	t.Run("incorrect answers should award nothing", func(t *testing.T) {
		s := newSession()

		out, err := s.Answer(3, 0, 1, now)
		require.NoError(t, err)
		assert.False(t, out.Question.IsCorrect)
		assert.Zero(t, out.Question.PointsAwarded)
		assert.Zero(t, s.TotalPoints)
		require.NoError(t, s.Validate())
	})

	t.Run("second answer to the same question should fail", func(t *testing.T) {
		s := newSession()

		_, err := s.Answer(1, 0, 1, now)
		require.NoError(t, err)
		_, err = s.Answer(1, 1, 1, now)
		require.ErrorIs(t, err, domain.ErrAlreadyAnswered)
		assert.Equal(t, 0, *s.Questions[0].ChosenIndex, "first answer must stay")
		require.NoError(t, s.Validate())
	})

	t.Run("out of range index should fail without mutation", func(t *testing.T) {
		s := newSession()

		_, err := s.Answer(1, 4, 1, now)
		require.ErrorIs(t, err, domain.ErrInvalidAnswerIndex)
		_, err = s.Answer(1, -1, 1, now)
		require.ErrorIs(t, err, domain.ErrInvalidAnswerIndex)
		assert.Zero(t, s.AnsweredCount)
		assert.False(t, s.Questions[0].Answered)
	})

	t.Run("unknown question should fail", func(t *testing.T) {
		s := newSession()

		_, err := s.Answer(42, 0, 1, now)
		require.ErrorIs(t, err, domain.ErrQuestionNotInSession)
	})

	t.Run("last answer should complete the session exactly once", func(t *testing.T) {
		s := newSession()

		for i, q := range s.Clone().Questions {
			out, err := s.Answer(q.QuestionID, q.CorrectOptionIndex, 1, now.Add(time.Duration(i)*time.Second))
			require.NoError(t, err)
			assert.Equal(t, i == 2, out.CompletedNow)
		}

		assert.Equal(t, domain.SessionStatusCompleted, s.Status)
		require.NotNil(t, s.CompletedAt)
		assert.Equal(t, 60, s.TotalPoints)
		require.NoError(t, s.Validate())

		_, err := s.Answer(1, 0, 1, now)
		require.ErrorIs(t, err, domain.ErrSessionNotActive)
	})
}

func TestSession_Abandon(t *testing.T) {
	now := time.Now()
	s := domain.NewSession("s1", "u1", domain.CategoryEconomy, []domain.Question{
		{ID: 1, Difficulty: domain.DifficultyEasy, Options: []string{"a", "b", "c", "d"}},
	}, now)

	require.NoError(t, s.Abandon(now))
	assert.Equal(t, domain.SessionStatusAbandoned, s.Status)
	require.ErrorIs(t, s.Abandon(now), domain.ErrSessionNotActive)

	_, err := s.Answer(1, 0, 1, now)
	require.ErrorIs(t, err, domain.ErrSessionNotActive)
}

func TestSession_MarkAggregated(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := domain.NewSession("s1", "u1", domain.CategoryEconomy, []domain.Question{
		{ID: 1, Difficulty: domain.DifficultyEasy, Options: []string{"a", "b", "c", "d"}},
	}, now)

	require.ErrorIs(t, s.MarkAggregated(now), domain.ErrSessionNotActive, "active sessions are not aggregated")

	_, err := s.Answer(1, 0, 1, now)
	require.NoError(t, err)

	require.NoError(t, s.MarkAggregated(now))
	require.NoError(t, s.MarkAggregated(now.Add(time.Hour)))
	require.NotNil(t, s.AggregatedAt)
	assert.Equal(t, now, *s.AggregatedAt, "the first mark is kept")
	assert.NoError(t, s.Validate())

	c := s.Clone()
	*c.AggregatedAt = now.Add(time.Minute)
	assert.Equal(t, now, *s.AggregatedAt, "clones do not share the mark")
}

func TestSession_BestStreak(t *testing.T) {
	tests := map[string]struct {
		// correctness in answer order
		answers []bool
		want    int
	}{
		"no answers":         {answers: nil, want: 0},
		"all wrong":          {answers: []bool{false, false, false}, want: 0},
		"all correct":        {answers: []bool{true, true, true, true}, want: 4},
		"run in the middle":  {answers: []bool{false, true, true, true, false, true}, want: 3},
		"broken then longer": {answers: []bool{true, false, true, true}, want: 2},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			qs := make([]domain.Question, len(tt.answers))
			for i := range qs {
				qs[i] = domain.Question{ID: i + 1, Difficulty: domain.DifficultyEasy, Options: []string{"a", "b", "c", "d"}}
			}
			s := domain.NewSession("s1", "u1", domain.CategoryEconomy, qs, time.Now())

			// answer in reverse question order to make sure answer order is what counts
			for i := len(tt.answers) - 1; i >= 0; i-- {
				chosen := 1
				if tt.answers[len(tt.answers)-1-i] {
					chosen = 0
				}
				_, err := s.Answer(i+1, chosen, 1, time.Now())
				require.NoError(t, err)
			}

			assert.Equal(t, tt.want, s.BestStreak())
		})
	}
}

func TestUserStats_Apply(t *testing.T) {
	var u domain.UserStats
	u.Apply(domain.Completion{Category: domain.CategoryLaborLaw, Correct: 3, Answered: 5, Points: 60, Streak: 2})
	u.Apply(domain.Completion{Category: domain.CategoryLaborLaw, Correct: 1, Answered: 5, Points: 10, Streak: 1})

	assert.Equal(t, 2, u.TotalGames)
	assert.Equal(t, 4, u.TotalCorrect)
	assert.Equal(t, 10, u.TotalAnswered)
	assert.Equal(t, 70, u.TotalPoints)
	assert.Equal(t, 2, u.BestStreak, "best streak should never decrease")
	assert.Equal(t, domain.CategoryStats{Played: 2, Correct: 4, Answered: 10, Points: 70}, u.Categories[domain.CategoryLaborLaw])
	assert.Equal(t, 40.0, u.Accuracy())
}
