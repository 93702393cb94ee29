// Package token implements the lazy, restartable word tokenizer that the
// LCS engine and three-way merger operate on (see internal/lcs,
// internal/merge). A token is a maximal run of non-whitespace bytes
// followed by its trailing run of whitespace bytes.
package token

// Whitespace bytes recognized by the tokenizer: space, tab, CR, LF.
// Extending this to Unicode whitespace classes was left to the
// implementer by the source material; ASCII-only keeps byte offsets
// simple and matches the reference tokenizer's behavior exactly.
func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n':
		return true
	default:
		return false
	}
}

// Token is a byte-offset/length pair into some source string. Equality
// between tokens from (possibly different) sources is byte-wise, via
// [Token.Equal].
type Token struct {
	Offset int
	Length int
}

// Bytes returns the slice of source covered by t.
func (t Token) Bytes(source string) string {
	return source[t.Offset : t.Offset+t.Length]
}

// Equal reports whether t (read from sourceA) and other (read from
// sourceB) cover byte-identical content.
func (t Token) Equal(sourceA string, other Token, sourceB string) bool {
	return t.Bytes(sourceA) == other.Bytes(sourceB)
}

// Iterator is a cheap-to-clone cursor over a token sequence. The zero
// value is not useful; construct with [New]. Cloning an Iterator is an
// O(1) value copy, which is what lets the LCS search queue up many
// divergent tasks without re-scanning the source from the start.
type Iterator struct {
	source string
	pos    int
}

// New returns an Iterator positioned at the start of source.
func New(source string) Iterator {
	return Iterator{source: source}
}

// Clone returns an independent copy of it positioned at the same offset.
func (it Iterator) Clone() Iterator {
	return it
}

// Done reports whether the iterator has no more tokens.
func (it Iterator) Done() bool {
	return it.pos >= len(it.source)
}

// Next returns the next token and advances the iterator. ok is false
// once the source is exhausted.
func (it *Iterator) Next() (tok Token, ok bool) {
	if it.pos >= len(it.source) {
		return Token{}, false
	}

	start := it.pos
	i := start

	for i < len(it.source) && !isSpace(it.source[i]) {
		i++
	}

	for i < len(it.source) && isSpace(it.source[i]) {
		i++
	}

	it.pos = i

	return Token{Offset: start, Length: i - start}, true
}

// Peek returns the next token without advancing it.
func (it Iterator) Peek() (Token, bool) {
	clone := it.Clone()

	return clone.Next()
}

// Tokens tokenizes source eagerly into a slice, for callers (such as
// internal/merge byte-span materialization) that want random access
// rather than a restartable cursor.
func Tokens(source string) []Token {
	it := New(source)

	tokens := make([]Token, 0, len(source)/6+1)

	for {
		tok, ok := it.Next()
		if !ok {
			break
		}

		tokens = append(tokens, tok)
	}

	return tokens
}
