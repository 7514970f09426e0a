package decoder

import "math"

// epsilon is the float64 machine epsilon. Probabilities below it are
// treated as zero: they could only ever add -Inf to a path.
const epsilon = 0x1p-52

// negligible reports whether p cannot be told apart from zero.
func negligible(p float64) bool {
	return !(p >= epsilon)
}

// UnigramScore extends cur by a phrase reached without bigram context.
// The factors are multiplied first and a single logarithm is taken.
func UnigramScore(cur, elemProb, pronunciationProb, unigramLambda float64) float64 {
	return cur + math.Log(elemProb*pronunciationProb*unigramLambda)
}

// BigramScore extends cur by a phrase seen after the current context,
// interpolating the bigram and unigram estimates.
func BigramScore(cur, bigramProb, unigramProb, pronunciationProb, bigramLambda float64) float64 {
	return cur + math.Log(Interpolate(bigramProb, unigramProb, bigramLambda)*pronunciationProb)
}

// Interpolate mixes the bigram and unigram estimates. The explicit
// conversions stop the compiler from fusing the multiply-adds, so the
// result rounds identically on every platform.
func Interpolate(bigramProb, unigramProb, bigramLambda float64) float64 {
	unigramLambda := 1 - bigramLambda
	return float64(bigramLambda*bigramProb) + float64(unigramLambda*unigramProb)
}

// finite reports whether score can be stored on a path.
func finite(score float64) bool {
	return !math.IsInf(score, 0) && !math.IsNaN(score)
}
