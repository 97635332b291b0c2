package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/victornm/trivia/internal/errors"
)

// Category is the closed set of trivia categories. The same value is used by
// the question bank, game sessions and user stats.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryEntrepreneurship
	CategoryHealthyFinances
	CategoryGovernance
	CategoryFamilyBusiness
	CategoryEconomy
	CategoryLaborLaw
	CategoryForeignTrade
	CategoryPhilosophy
)

type categoryInfo struct {
	key  string
	name string
}

// categories is the single mapping between a category, its storage key and its display name.
var categories = map[Category]categoryInfo{
	CategoryEntrepreneurship: {key: "emprendimiento", name: "Emprendimiento"},
	CategoryHealthyFinances:  {key: "finanzas", name: "Finanzas Sanas"},
	CategoryGovernance:       {key: "gobernabilidad", name: "Gobernabilidad"},
	CategoryFamilyBusiness:   {key: "empresasFamiliares", name: "Empresas Familiares"},
	CategoryEconomy:          {key: "economia", name: "Economía"},
	CategoryLaborLaw:         {key: "leyesLaborales", name: "Leyes Laborales"},
	CategoryForeignTrade:     {key: "comercioExterior", name: "Comercio Exterior"},
	CategoryPhilosophy:       {key: "filosofiaCoparmex", name: "Filosofía COPARMEX"},
}

// Categories returns all known categories in declaration order.
func Categories() []Category {
	cs := make([]Category, 0, len(categories))
	for c := CategoryEntrepreneurship; c <= CategoryPhilosophy; c++ {
		cs = append(cs, c)
	}
	return cs
}

// ParseCategory accepts a display name or a storage key, ignoring case.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for c, info := range categories {
		if strings.EqualFold(s, info.name) || strings.EqualFold(s, info.key) {
			return c, nil
		}
	}

	return CategoryUnknown, ErrInvalidCategory.With(errors.WithMessagef("unknown category %q", s))
}

func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Key is the canonical storage key of the category.
func (c Category) Key() string {
	return categories[c].key
}

func (c Category) String() string {
	if info, ok := categories[c]; ok {
		return info.name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("marshal category: invalid value %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Points is the tariff awarded for a correct answer of this difficulty.
func (d Difficulty) Points() int {
	switch d {
	case DifficultyEasy:
		return 10
	case DifficultyMedium:
		return 20
	case DifficultyHard:
		return 30
	}
	return 0
}

// OptionCount is the number of options every question carries.
const OptionCount = 4

// Question is an immutable entry of the question bank.
type Question struct {
	ID                 int
	Category           Category
	Difficulty         Difficulty
	Prompt             string
	Options            []string
	CorrectOptionIndex int
	Explanation        string
}

// Accuracy returns correct/answered as a percentage rounded to one decimal, or 0 when nothing was answered.
func Accuracy(correct, answered int) float64 {
	if answered <= 0 {
		return 0
	}

	return decimal.NewFromInt(int64(correct)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(answered)), 1).
		InexactFloat64()
}
