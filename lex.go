package bibaux

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceToken int = iota
	atToken
	junkToken
	nameToken
	keyToken
	braceBlockToken
	parenBlockToken
	quotedToken
	equalToken
	commaToken
	hashToken
)

var whitespaceMatcher = parsly.NewToken(whitespaceToken, "Whitespace", matcher.NewWhiteSpace())
var atMatcher = parsly.NewToken(atToken, "@", matcher.NewByte('@'))
var junkMatcher = parsly.NewToken(junkToken, "Junk", &junkMatch{})
var nameMatcher = parsly.NewToken(nameToken, "Name", &nameMatch{})
var keyMatcher = parsly.NewToken(keyToken, "Key", &keyMatch{})
var braceBlockMatcher = parsly.NewToken(braceBlockToken, "{ .... }", &blockMatch{open: '{', close: '}'})
var parenBlockMatcher = parsly.NewToken(parenBlockToken, "( .... )", &blockMatch{open: '(', close: ')'})
var quotedMatcher = parsly.NewToken(quotedToken, "\" .... \"", &quoteMatch{})
var equalMatcher = parsly.NewToken(equalToken, "=", matcher.NewByte('='))
var commaMatcher = parsly.NewToken(commaToken, ",", matcher.NewByte(','))
var hashMatcher = parsly.NewToken(hashToken, "#", matcher.NewByte('#'))

// junkMatch consumes text between entries, i.e. everything up to the next '@'.
type junkMatch struct{}

func (j *junkMatch) Match(cursor *parsly.Cursor) int {
	pos := cursor.Pos
	for pos < cursor.InputSize && cursor.Input[pos] != AT {
		pos++
	}
	return pos - cursor.Pos
}

type nameMatch struct{}

func (n *nameMatch) Match(cursor *parsly.Cursor) int {
	pos := cursor.Pos
	for pos < cursor.InputSize && isNameByte(cursor.Input[pos]) {
		pos++
	}
	return pos - cursor.Pos
}

func isNameByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f', '"', '#', '%', '\'', '(', ')', ',', '=', '{', '}':
		return false
	}
	return true
}

// keyMatch accepts anything up to the comma that ends a citation key.
type keyMatch struct{}

func (k *keyMatch) Match(cursor *parsly.Cursor) int {
	pos := cursor.Pos
	for pos < cursor.InputSize {
		switch cursor.Input[pos] {
		case ',', ' ', '\t', '\n', '\r', '}', ')':
			return pos - cursor.Pos
		}
		pos++
	}
	return pos - cursor.Pos
}

// blockMatch matches a delimited block; delimiters only close at brace depth zero,
// so "@article(k, title={a)b})" is one block.
type blockMatch struct {
	open, close byte
}

func (m *blockMatch) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	if cursor.Pos >= cursor.InputSize || input[cursor.Pos] != m.open {
		return 0
	}
	depth, braces := 1, 0
	if m.open == LBRACE {
		braces = 1
	}
	for i := cursor.Pos + 1; i < cursor.InputSize; i++ {
		switch input[i] {
		case LBRACE:
			braces++
			if m.open == LBRACE {
				depth++
			}
		case RBRACE:
			braces--
			if m.close == RBRACE {
				depth--
			}
		case m.open:
			if braces == 0 {
				depth++
			}
		case m.close:
			if braces == 0 {
				depth--
			}
		}
		if depth == 0 {
			return i - cursor.Pos + 1
		}
	}
	return 0
}

// quoteMatch matches a "..." value; quotes nested in braces do not terminate it.
type quoteMatch struct{}

func (q *quoteMatch) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	if cursor.Pos >= cursor.InputSize || input[cursor.Pos] != QUOTE {
		return 0
	}
	braces := 0
	for i := cursor.Pos + 1; i < cursor.InputSize; i++ {
		switch input[i] {
		case LBRACE:
			braces++
		case RBRACE:
			braces--
		case QUOTE:
			if braces == 0 {
				return i - cursor.Pos + 1
			}
		}
	}
	return 0
}
