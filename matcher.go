package main

import "github.com/agnivade/levenshtein"

// similarity is a normalized edit-distance ratio in [0, 1]; 1 means equal.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// matchesAnswer decides whether a guess hits the current answer.
//
// Picklist guesses (fuzzy=false) must equal the label exactly. Free-text
// guesses tolerate typos: the guess is ranked against every candidate label,
// and it counts as a hit only when the best-scoring candidate IS the true
// label and its similarity clears the cutoff. Being merely close to some
// other club is not enough.
func matchesAnswer(guess, trueLabel string, candidates []string, fuzzy bool, cutoff float64) bool {
	if guess == "" {
		return false
	}
	if guess == trueLabel {
		return true
	}
	if !fuzzy {
		return false
	}

	best := ""
	bestScore := 0.0
	for _, candidate := range candidates {
		score := similarity(guess, candidate)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	return best == trueLabel && bestScore >= cutoff
}
