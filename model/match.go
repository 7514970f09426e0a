package model

// Match is one phrase of a decoded result, covering lattice positions
// [Start, End).
type Match struct {
	Token Token    `json:"token"`
	Start int      `json:"start"`
	End   int      `json:"end"`
	Keys  []string `json:"keys"`
}

// MatchResult is the phrase sequence reconstructed by backtrace. Prefix is
// the seed token the winning path started from.
type MatchResult struct {
	Prefix  Token   `json:"prefix"`
	Matches []Match `json:"matches"`
}

// Tokens returns the matched phrase tokens in order, excluding the prefix.
func (r MatchResult) Tokens() []Token {
	tokens := make([]Token, len(r.Matches))
	for i, m := range r.Matches {
		tokens[i] = m.Token
	}
	return tokens
}
