// Package render produces the status card shown after every interaction.
// Image rendering proper is an external collaborator; the bot falls back to
// the text card whenever no CardRenderer is configured.
package render

import (
	"fmt"
	"strings"
	"time"

	"catbot/internal/pet"
)

// CardRenderer draws a status image for a cat and returns the file path.
type CardRenderer interface {
	Render(cat pet.Cat) (imagePath string, err error)
}

// TextCard renders the plain-text status card.
func TextCard(cat pet.Cat, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🐱 %s (%s)\n", cat.Name, cat.Color)
	fmt.Fprintf(&b, "Age: %d days\n\n", cat.AgeDays(now))
	fmt.Fprintf(&b, "Hunger:    %s\n", statBar(cat.Hunger))
	fmt.Fprintf(&b, "Happiness: %s\n", statBar(cat.Happiness))
	fmt.Fprintf(&b, "Energy:    %s", statBar(cat.Energy))
	if cat.WalkTime != "" {
		fmt.Fprintf(&b, "\n\nWalk at %s 🚶", cat.WalkTime)
	}
	return b.String()
}

func statBar(v int) string {
	return strings.Repeat("●", v) + strings.Repeat("○", pet.StatMax-v)
}
