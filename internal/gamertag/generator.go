package gamertag

import (
	"fmt"
	"math/rand"
)

// Grammar-based gamertag synthesis. A tag is assembled from a small grammar:
//
//	tag        := [prefix] adjective noun [suffix]
//	prefix     := honorific (1 in 4)
//	suffix     := two-digit number (1 in 2)
//
// Every choice is drawn from the provided source, so the same seed always
// yields the same tag.

var prefixes = []string{
	"Sir", "Lady", "Doc", "Captain", "Elder", "Neo",
}

var adjectives = []string{
	"Crimson", "Hollow", "Radiant", "Sleepy", "Feral", "Pixel",
	"Maiden", "Cursed", "Lucky", "Petal", "Shiny", "Vagrant",
}

var nouns = []string{
	"Blossom", "Ronin", "Shogun", "Kitsune", "Senpai", "Golem",
	"Raccoon", "Katana", "Oni", "Dango", "Tanuki", "Shrine",
}

// Generate draws a gamertag from the grammar using r.
func Generate(r *rand.Rand) string {
	tag := adjectives[r.Intn(len(adjectives))] + nouns[r.Intn(len(nouns))]
	if r.Intn(4) == 0 {
		tag = prefixes[r.Intn(len(prefixes))] + tag
	}
	if r.Intn(2) == 0 {
		tag = fmt.Sprintf("%s%02d", tag, r.Intn(100))
	}
	return tag
}

// FromSeed returns the deterministic tag for a seed.
func FromSeed(seed int64) string {
	return Generate(rand.New(rand.NewSource(seed)))
}
