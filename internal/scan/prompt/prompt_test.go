package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
	apperrors "github.com/leadscan/telegram-lead-scanner/internal/core/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		wantErr  bool
	}{
		{"default template", DefaultTemplate, false},
		{"custom with placeholder", "classify:\n${messagesText}\nrespond in JSON", false},
		{"missing placeholder", "classify these messages please", true},
		{"empty", "", true},
		{"wrong placeholder name", "${messages}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.template)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrTemplateMissingPlaceholder)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildBlockFormat(t *testing.T) {
	batch := []domain.RawMessage{
		{
			ID:           "100_1",
			ChatID:       "100",
			ChannelTitle: "Freelance Jobs",
			Author:       "@alice",
			Text:         "Looking for a logo designer",
			Timestamp:    1767225600000, // 2026-01-01T00:00:00Z
		},
		{
			ID:           "100_2",
			ChatID:       "100",
			ChannelTitle: "Freelance Jobs",
			Author:       "@bob",
			Text:         "good morning",
			Timestamp:    1767225660000,
		},
	}

	out, err := Build("intro\n"+PlaceholderMessages+"\noutro", batch)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "intro\n"))
	assert.True(t, strings.HasSuffix(out, "\noutro"))

	assert.Contains(t, out, "Message 1:\nID: 100_1\nChannel: Freelance Jobs\nAuthor: @alice\nTimestamp: 2026-01-01T00:00:00Z\nContent: Looking for a logo designer\n---\n")
	assert.Contains(t, out, "Message 2:\nID: 100_2\n")

	// Batch order is preserved.
	assert.Less(t, strings.Index(out, "Message 1:"), strings.Index(out, "Message 2:"))
}

func TestBuildEmptyBatch(t *testing.T) {
	out, err := Build("before ${messagesText} after", nil)
	require.NoError(t, err)
	assert.Equal(t, "before  after", out)
}

func TestBuildRejectsBrokenTemplate(t *testing.T) {
	_, err := Build("no placeholder here", []domain.RawMessage{{ID: "1_1"}})
	assert.ErrorIs(t, err, apperrors.ErrTemplateMissingPlaceholder)
}

func TestBuildReplacesAllPlaceholderOccurrences(t *testing.T) {
	out, err := Build("${messagesText}${messagesText}", []domain.RawMessage{{ID: "1_1", Timestamp: 1767225600000}})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "ID: 1_1"))
}
