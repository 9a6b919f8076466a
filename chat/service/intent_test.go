package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyYesNo(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  Intent
	}{
		{"plain yes", "yes", IntentAffirmative},
		{"enthusiastic yes", "Yes please!!", IntentAffirmative},
		{"casual yes", "okay sounds fun", IntentAffirmative},
		{"russian yes", "Да, конечно", IntentAffirmative},
		{"russian casual yes", "давай", IntentAffirmative},
		{"plain no", "no", IntentNegative},
		{"polite no", "No thanks", IntentNegative},
		{"contraction no", "I don't want that", IntentNegative},
		{"russian no", "нет", IntentNegative},
		{"russian soft no", "не надо", IntentNegative},
		{"negative outweighs affirmative", "yeah no", IntentNegative},
		{"later counts as no", "maybe later", IntentNegative},
		{"unrelated text", "what did you have for breakfast", IntentUnclear},
		{"empty", "", IntentUnclear},
		{"punctuation only", "?!", IntentUnclear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyYesNo(tt.reply))
		})
	}
}
