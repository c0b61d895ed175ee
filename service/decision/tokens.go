package decision

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	nameCode
	openSquareBracketCode
	closeSquareBracketCode
	openParenCode
	closeParenCode
	commaCode
	actionTypeCode
	reasonCode
)

// Token definitions
var (
	whitespaceToken         = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	nameToken               = parsly.NewToken(nameCode, "Name", newNameMatcher())
	openSquareBracketToken  = parsly.NewToken(openSquareBracketCode, "[", matcher.NewByte('['))
	closeSquareBracketToken = parsly.NewToken(closeSquareBracketCode, "]", matcher.NewByte(']'))
	openParenToken          = parsly.NewToken(openParenCode, "(", matcher.NewByte('('))
	closeParenToken         = parsly.NewToken(closeParenCode, ")", matcher.NewByte(')'))
	commaToken              = parsly.NewToken(commaCode, ",", matcher.NewByte(','))
	actionTypeToken         = parsly.NewToken(actionTypeCode, "ActionType", newActionTypeMatcher())
	reasonToken             = parsly.NewToken(reasonCode, "Reason", newReasonMatcher())
)

func newNameMatcher() parsly.Matcher       { return &nameMatcher{} }
func newActionTypeMatcher() parsly.Matcher { return &actionTypeMatcher{} }
func newReasonMatcher() parsly.Matcher     { return &reasonMatcher{} }

// nameMatcher matches a constraint name: a letter or underscore followed by
// letters, digits, underscores or dashes.
type nameMatcher struct{}

func (m *nameMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		if isLetter(input[i]) || isDigit(input[i]) || input[i] == '_' || input[i] == '-' {
			matched++
			continue
		}
		break
	}
	return matched
}

// actionTypeMatcher matches one forbidden action type inside the square
// bracket list; dots are allowed for namespaced types.
type actionTypeMatcher struct{}

func (m *actionTypeMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	matched := 0
	for i := pos; i < size; i++ {
		if isLetter(input[i]) || isDigit(input[i]) || input[i] == '_' || input[i] == '-' || input[i] == '.' {
			matched++
			continue
		}
		break
	}
	return matched
}

// reasonMatcher captures everything up to the closing parenthesis.
type reasonMatcher struct{}

func (m *reasonMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	matched := 0
	for i := pos; i < size; i++ {
		if input[i] == ')' {
			break
		}
		matched++
	}
	return matched
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
