package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmission_InputKey(t *testing.T) {
	base := Submission{SubjectID: "nft-42", RequesterID: "0xabc", Prompt: "a dragon at dawn", Style: "anime"}

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, base.InputKey(), base.InputKey())
		assert.Len(t, base.InputKey(), 64)
	})

	t.Run("collaborators do not affect the key", func(t *testing.T) {
		other := base
		other.Collaborators = []string{"0xdef"}
		assert.Equal(t, base.InputKey(), other.InputKey())
	})

	t.Run("each field participates", func(t *testing.T) {
		variants := []Submission{
			{SubjectID: "nft-43", RequesterID: base.RequesterID, Prompt: base.Prompt, Style: base.Style},
			{SubjectID: base.SubjectID, RequesterID: "0xdef", Prompt: base.Prompt, Style: base.Style},
			{SubjectID: base.SubjectID, RequesterID: base.RequesterID, Prompt: "a dragon at dusk", Style: base.Style},
			{SubjectID: base.SubjectID, RequesterID: base.RequesterID, Prompt: base.Prompt, Style: ""},
		}
		for _, v := range variants {
			assert.NotEqual(t, base.InputKey(), v.InputKey())
		}
	})

	t.Run("field boundaries are unambiguous", func(t *testing.T) {
		a := Submission{SubjectID: "ab", RequesterID: "c", Prompt: "p"}
		b := Submission{SubjectID: "a", RequesterID: "bc", Prompt: "p"}
		assert.NotEqual(t, a.InputKey(), b.InputKey())
	})
}

func TestSubmission_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		in        Submission
		wantErr   bool
		errString string
	}{
		{
			name: "valid",
			in:   Submission{SubjectID: " nft-1 ", RequesterID: "0xabc", Prompt: " hello ", Collaborators: []string{" 0xdef ", ""}},
		},
		{
			name:      "missing subject",
			in:        Submission{RequesterID: "0xabc", Prompt: "hello"},
			wantErr:   true,
			errString: "subject_id is required",
		},
		{
			name:      "missing requester",
			in:        Submission{SubjectID: "nft-1", Prompt: "hello"},
			wantErr:   true,
			errString: "requester_id is required",
		},
		{
			name:      "blank prompt",
			in:        Submission{SubjectID: "nft-1", RequesterID: "0xabc", Prompt: "   "},
			wantErr:   true,
			errString: "prompt is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.in.Normalize()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidSubmission)
				assert.Contains(t, err.Error(), tt.errString)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "nft-1", out.SubjectID)
			assert.Equal(t, "hello", out.Prompt)
			assert.Equal(t, []string{"0xdef"}, out.Collaborators)
		})
	}
}

func TestState(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StatePending.Terminal())
	assert.True(t, StateProcessing.Active())
	assert.False(t, StateFailed.Active())

	s, ok := ParseState("PROCESSING")
	assert.True(t, ok)
	assert.Equal(t, StateProcessing, s)

	_, ok = ParseState("CANCELED")
	assert.False(t, ok)
}
