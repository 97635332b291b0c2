package domain

import "time"

// CategoryStats is a user's running total within one category.
type CategoryStats struct {
	Played   int `json:"played"`
	Correct  int `json:"correct"`
	Answered int `json:"answered"`
	Points   int `json:"points"`
}

// UserStats is the aggregate of every completed session of a user.
type UserStats struct {
	UserID        string                     `json:"userId"`
	TotalGames    int                        `json:"totalGames"`
	TotalCorrect  int                        `json:"totalCorrect"`
	TotalAnswered int                        `json:"totalAnswered"`
	TotalPoints   int                        `json:"totalPoints"`
	BestStreak    int                        `json:"bestStreak"`
	Categories    map[Category]CategoryStats `json:"categories"`
	UpdatedAt     time.Time                  `json:"updatedAt"`
}

// Completion is what a completed session contributes to its owner's stats.
type Completion struct {
	SessionID string
	UserID    string
	Category  Category
	Correct   int
	Answered  int
	Points    int
	Streak    int
	At        time.Time
}

// CompletionOf derives the contribution of s.
func CompletionOf(s *Session) Completion {
	c := Completion{
		SessionID: s.SessionID,
		UserID:    s.UserID,
		Category:  s.Category,
		Correct:   s.CorrectCount,
		Answered:  s.AnsweredCount,
		Points:    s.TotalPoints,
		Streak:    s.BestStreak(),
	}
	if s.CompletedAt != nil {
		c.At = *s.CompletedAt
	}
	return c
}

// Apply folds c into the stats.
func (u *UserStats) Apply(c Completion) {
	if u.Categories == nil {
		u.Categories = make(map[Category]CategoryStats)
	}

	u.TotalGames++
	u.TotalCorrect += c.Correct
	u.TotalAnswered += c.Answered
	u.TotalPoints += c.Points
	u.BestStreak = max(u.BestStreak, c.Streak)

	cs := u.Categories[c.Category]
	cs.Played++
	cs.Correct += c.Correct
	cs.Answered += c.Answered
	cs.Points += c.Points
	u.Categories[c.Category] = cs

	u.UpdatedAt = c.At
}

func (u UserStats) Accuracy() float64 {
	return Accuracy(u.TotalCorrect, u.TotalAnswered)
}

func (c CategoryStats) Accuracy() float64 {
	return Accuracy(c.Correct, c.Answered)
}

// Member is the user directory record relevant to ranking.
type Member struct {
	UserID    string
	Region    string
	CreatedAt time.Time
}

// LeaderboardEntry is a ranked row, computed at query time.
type LeaderboardEntry struct {
	UserID      string  `json:"userId"`
	TotalPoints int     `json:"totalPoints"`
	GamesPlayed int     `json:"gamesPlayed"`
	Accuracy    float64 `json:"accuracy"`
	Rank        int     `json:"rank"`
}
