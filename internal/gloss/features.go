// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gloss

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/pmezard/go-difflib/difflib"
)

// FeatureNames lists the classifier inputs in vector order.
var FeatureNames = []string{
	"char_eq",
	"char_temp_in_def",
	"char_def_in_temp",
	"char_levenshtein",
	"char_levenshtein_co8",
	"char_longest_match",
	"char_ratio",
	"word_eq",
	"word_longest_match",
	"word_ratio",
	"word_levenshtein",
	"word_levenshtein_co5",
	"word_temp_in_def",
	"word_def_in_temp",
	"tversky_0.32",
	"fuzzy_tversky_0.06",
}

const (
	// maxEditLen caps edit distance computations; longer inputs score -1.
	maxEditLen = 50

	tverskyAlpha      = 0.32
	fuzzyTverskyAlpha = 0.06
)

var wordRE = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Featurize computes the feature vector for a template gloss against one
// recorded definition. Both inputs are lower-cased and trimmed first.
func Featurize(templateGloss, definition string) []float64 {
	def := strings.ToLower(strings.TrimSpace(definition))
	temp := strings.ToLower(strings.TrimSpace(templateGloss))
	defRunes, tempRunes := []rune(def), []rune(temp)

	f := make([]float64, 0, len(FeatureNames))
	f = append(f,
		boolFeature(def == temp),
		boolFeature(strings.Contains(def, temp)),
		boolFeature(strings.Contains(temp, def)),
	)

	charLev := cappedDistance(defRunes, tempRunes)
	f = append(f, float64(charLev), float64(min(charLev, 8)))

	charLongest, charRatio := sequenceMatch(splitRunes(defRunes), splitRunes(tempRunes))
	f = append(f, float64(charLongest), charRatio)

	dws := wordRE.FindAllString(def, -1)
	tws := wordRE.FindAllString(temp, -1)
	f = append(f, boolFeature(slicesEqual(dws, tws)))

	wordLongest, wordRatio := sequenceMatch(dws, tws)
	f = append(f, float64(wordLongest), wordRatio)

	da, ta := wordsAsRunes(dws, tws)
	wordLev := cappedDistance(da, ta)
	f = append(f, float64(wordLev), float64(min(wordLev, 5)))

	dset, tset := toSet(dws), toSet(tws)
	var common, defOnly, tempOnly int
	for w := range dset {
		if tset[w] {
			common++
		} else {
			defOnly++
		}
	}
	for w := range tset {
		if !dset[w] {
			tempOnly++
		}
	}
	f = append(f,
		boolFeature(tempOnly == 0),
		boolFeature(defOnly == 0),
		tversky(float64(common), float64(defOnly), float64(tempOnly), tverskyAlpha),
		fuzzyTversky(dset, tset),
	)
	return f
}

// cappedDistance is the Levenshtein distance, or -1 when either input
// reaches maxEditLen symbols.
func cappedDistance(a, b []rune) int {
	la, lb := len(a)+1, len(b)+1
	if abs(la-lb) > maxEditLen || la > maxEditLen || lb > maxEditLen {
		return -1
	}
	d := levenshtein.ComputeDistance(string(a), string(b))
	if d > maxEditLen {
		return -1
	}
	return d
}

// wordsAsRunes maps each distinct word to a private-use rune so word-level
// edit distance can reuse the rune-based implementation.
func wordsAsRunes(a, b []string) ([]rune, []rune) {
	ids := map[string]rune{}
	conv := func(words []string) []rune {
		out := make([]rune, len(words))
		for i, w := range words {
			r, ok := ids[w]
			if !ok {
				r = rune(0xE000 + len(ids))
				ids[w] = r
			}
			out[i] = r
		}
		return out
	}
	return conv(a), conv(b)
}

// sequenceMatch returns the longest common block and the similarity ratio
// of a ratcliff/obershelp match without junk heuristics.
func sequenceMatch(a, b []string) (int, float64) {
	m := difflib.NewMatcherWithJunk(a, b, false, nil)
	longest := 0
	for _, blk := range m.GetMatchingBlocks() {
		longest = max(longest, blk.Size)
	}
	return longest, m.Ratio()
}

func tversky(common, aOnly, bOnly, alpha float64) float64 {
	if common == 0 {
		return 0
	}
	return common / (common + alpha*aOnly + (1-alpha)*bOnly)
}

// fuzzyTversky credits near-identical words: each word contributes the best
// 1/(1+distance) it achieves against the other side.
func fuzzyTversky(dset, tset map[string]bool) float64 {
	dbest := map[string]float64{}
	tbest := map[string]float64{}
	for d := range dset {
		for t := range tset {
			lev := cappedDistance([]rune(d), []rune(t))
			sim := 0.0
			if lev >= 0 {
				sim = 1 / (1 + float64(lev))
			}
			dbest[d] = max(dbest[d], sim)
			tbest[t] = max(tbest[t], sim)
		}
	}
	var dsum, tsum, dmiss, tmiss float64
	for d := range dset {
		dsum += dbest[d]
		dmiss += 1 - dbest[d]
	}
	for t := range tset {
		tsum += tbest[t]
		tmiss += 1 - tbest[t]
	}
	return tversky((dsum+tsum)/2, dmiss, tmiss, fuzzyTverskyAlpha)
}

func splitRunes(rs []rune) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

func toSet(words []string) map[string]bool {
	s := make(map[string]bool, len(words))
	for _, w := range words {
		s[w] = true
	}
	return s
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
