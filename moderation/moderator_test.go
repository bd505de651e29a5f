package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModerator_Censor(t *testing.T) {
	moderator, err := NewModerator([]string{"badword", "slur"}, '*')
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
		found    []string
	}{
		{
			name:     "clean text untouched",
			input:    "hello everyone",
			expected: "hello everyone",
		},
		{
			name:     "plain match masked",
			input:    "what a badword here",
			expected: "what a ******* here",
			found:    []string{"badword"},
		},
		{
			name:     "case trick defeated",
			input:    "BaDwOrD",
			expected: "*******",
			found:    []string{"badword"},
		},
		{
			name:     "spacing trick defeated",
			input:    "b a d w o r d",
			expected: "*************",
			found:    []string{"badword"},
		},
		{
			name:     "punctuation trick defeated",
			input:    "s.l.u.r",
			expected: "*******",
			found:    []string{"slur"},
		},
		{
			name:     "multiple matches",
			input:    "badword then slur",
			expected: "******* then ****",
			found:    []string{"badword", "slur"},
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			censored, found := moderator.Censor(tt.input)
			req.Equal(tt.expected, censored)
			req.ElementsMatch(tt.found, found)
		})
	}
}

func TestModerator_NoWordsIsPassthrough(t *testing.T) {
	req := require.New(t)
	moderator, err := NewModerator(nil, '*')
	req.NoError(err)

	censored, found := moderator.Censor("anything at all")
	req.Equal("anything at all", censored)
	req.Empty(found)
}
