// Package namegen generates display names for anonymous commenters,
// e.g. "Hasty Beige Fox".
package namegen

import (
	"strings"
	"sync"
	"unicode/utf8"

	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Generator produces adjective-color-animal names. It is safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
	caser cases.Caser
}

// New returns a randomly seeded Generator.
func New() *Generator {
	return NewSeeded(0)
}

// NewSeeded returns a deterministic Generator; seed 0 picks a random seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{
		faker: gofakeit.New(seed),
		caser: cases.Title(language.English),
	}
}

// Name returns a fresh capitalised three-part name.
func (g *Generator) Name() string {
	g.mu.Lock()
	parts := []string{g.faker.Adjective(), g.faker.Color(), g.faker.Animal()}
	g.mu.Unlock()

	name := g.caser.String(strings.Join(parts, " "))
	if utf8.RuneCountInString(name) > models.MaxCommentName {
		name = string([]rune(name)[:models.MaxCommentName])
		name = strings.TrimSpace(name)
	}
	return name
}
