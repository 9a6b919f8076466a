package service

import (
	"strings"
	"unicode"
)

// Intent is the outcome of classifying a free-form user reply to a
// yes/no question.
type Intent int

const (
	IntentUnclear Intent = iota
	IntentAffirmative
	IntentNegative
)

func (i Intent) String() string {
	switch i {
	case IntentAffirmative:
		return "affirmative"
	case IntentNegative:
		return "negative"
	default:
		return "unclear"
	}
}

var affirmativeTokens = map[string]struct{}{
	// English
	"yes": {}, "yeah": {}, "yep": {}, "yup": {}, "sure": {}, "ok": {},
	"okay": {}, "please": {}, "absolutely": {}, "definitely": {},
	"gladly": {}, "certainly": {}, "love": {}, "want": {},
	// Russian
	"да": {}, "ага": {}, "угу": {}, "конечно": {}, "давай": {},
	"давайте": {}, "хочу": {}, "можно": {}, "ладно": {}, "окей": {},
	"обязательно": {}, "разумеется": {},
}

var negativeTokens = map[string]struct{}{
	// English. Tokenization splits "don't" into "don" and "t".
	"no": {}, "nope": {}, "nah": {}, "not": {}, "never": {},
	"don": {}, "dont": {}, "skip": {}, "stop": {}, "later": {},
	// Russian
	"нет": {}, "не": {}, "неа": {}, "потом": {}, "хватит": {},
	"откажусь": {},
}

// ClassifyYesNo decides whether a reply is a yes or a no. Tokens are matched
// case-insensitively across English and Russian; a single negative token
// outweighs any number of affirmative ones, so "no thanks" stays a no.
// Anything without a recognized token is IntentUnclear.
func ClassifyYesNo(reply string) Intent {
	tokens := strings.FieldsFunc(strings.ToLower(reply), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	affirmative := false
	for _, tok := range tokens {
		if _, ok := negativeTokens[tok]; ok {
			return IntentNegative
		}
		if _, ok := affirmativeTokens[tok]; ok {
			affirmative = true
		}
	}
	if affirmative {
		return IntentAffirmative
	}
	return IntentUnclear
}
