package decision

import (
	"fmt"
	"strings"

	"github.com/viant/parsly"
)

// ParseRule parses a safety constraint declared in the textual format:
//
//	name[actionType1,actionType2](reason text)
//
// e.g. "plant_lockdown[shutdown,purge](plant is in commissioning phase)".
// The reason may be empty; at least one action type is required.
func ParseRule(input []byte) (*Constraint, error) {
	cursor := parsly.NewCursor("", input, 0)
	constraint := &Constraint{}

	matched := cursor.MatchAfterOptional(whitespaceToken, nameToken)
	if matched.Code != nameToken.Code {
		return nil, cursor.NewError(nameToken)
	}
	constraint.Name = matched.Text(cursor)

	matched = cursor.MatchOne(openSquareBracketToken)
	if matched.Code != openSquareBracketToken.Code {
		return nil, cursor.NewError(openSquareBracketToken)
	}

	for {
		matched = cursor.MatchAfterOptional(whitespaceToken, actionTypeToken)
		if matched.Code != actionTypeToken.Code {
			return nil, cursor.NewError(actionTypeToken)
		}
		constraint.Forbid = append(constraint.Forbid, matched.Text(cursor))

		matched = cursor.MatchAfterOptional(whitespaceToken, commaToken, closeSquareBracketToken)
		switch matched.Code {
		case commaToken.Code:
			continue
		case closeSquareBracketToken.Code:
		default:
			return nil, cursor.NewError(closeSquareBracketToken)
		}
		break
	}

	matched = cursor.MatchAfterOptional(whitespaceToken, openParenToken)
	if matched.Code != openParenToken.Code {
		return nil, cursor.NewError(openParenToken)
	}

	matched = cursor.MatchAny(reasonToken, closeParenToken)
	switch matched.Code {
	case closeParenToken.Code:
		return constraint, nil
	case reasonToken.Code:
		constraint.Reason = strings.TrimSpace(matched.Text(cursor))
	default:
		return nil, cursor.NewError(reasonToken)
	}

	matched = cursor.MatchOne(closeParenToken)
	if matched.Code != closeParenToken.Code {
		return nil, cursor.NewError(closeParenToken)
	}
	if len(constraint.Forbid) == 0 {
		return nil, fmt.Errorf("constraint %s forbids no action types", constraint.Name)
	}
	return constraint, nil
}
