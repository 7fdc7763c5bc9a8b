package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesAnswer(t *testing.T) {
	t.Parallel()

	candidates := []string{"Arsenal", "Inter", "AC Milan", "Real Madrid"}

	testCases := []struct {
		desc   string
		guess  string
		label  string
		fuzzy  bool
		cutoff float64
		want   bool
	}{
		{desc: "exact hit", guess: "Arsenal", label: "Arsenal", want: true},
		{desc: "exact is case sensitive", guess: "arsenal", label: "Arsenal", want: false},
		{desc: "empty guess never matches", guess: "", label: "Arsenal", fuzzy: true, cutoff: 0, want: false},
		{desc: "wrong club", guess: "Inter", label: "Arsenal", want: false},
		{desc: "typo tolerated in free text", guess: "Arsnal", label: "Arsenal", fuzzy: true, cutoff: 0.6, want: true},
		{desc: "typo rejected without fuzzy", guess: "Arsnal", label: "Arsenal", want: false},
		{desc: "close to the wrong club", guess: "Intr", label: "Arsenal", fuzzy: true, cutoff: 0.6, want: false},
		{desc: "best candidate but below cutoff", guess: "Arl", label: "Arsenal", fuzzy: true, cutoff: 0.6, want: false},
		{desc: "case slip in free text", guess: "arsenal", label: "Arsenal", fuzzy: true, cutoff: 0.6, want: true},
		{desc: "garbage free text", guess: "zzzzzzzz", label: "Arsenal", fuzzy: true, cutoff: 0.6, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got := matchesAnswer(tc.guess, tc.label, candidates, tc.fuzzy, tc.cutoff)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, similarity("Inter", "Inter"))
	assert.Equal(t, 1.0, similarity("", ""))
	assert.InDelta(t, 0.857, similarity("Arsnal", "Arsenal"), 0.01)
	assert.Equal(t, 0.0, similarity("abc", "xyz"))
	assert.GreaterOrEqual(t, similarity("Napoli", "Nap"), 0.5)
}
