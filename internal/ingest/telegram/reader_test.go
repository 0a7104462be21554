package telegram

import (
	"testing"
	"time"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectWindowKeepsWindowedTextMessages(t *testing.T) {
	since := time.Unix(1_700_000_000, 0)

	messages := []tg.MessageClass{
		&tg.Message{ID: 40, Date: 1_700_000_300, Message: "need a designer"},
		&tg.MessageService{ID: 35, Date: 1_700_000_250},
		&tg.Message{ID: 30, Date: 1_700_000_200},
		&tg.Message{ID: 20, Date: 1_700_000_100, Message: "good morning", PostAuthor: "@alice"},
		&tg.Message{ID: 10, Date: 1_699_999_000, Message: "before the window"},
	}

	page := collectWindow(messages, 100, "Jobs", since)

	require.Len(t, page.messages, 2)
	assert.Equal(t, "100_40", page.messages[0].ID)
	assert.Equal(t, "100", page.messages[0].ChatID)
	assert.Equal(t, "Jobs", page.messages[0].ChannelTitle)
	assert.Equal(t, int64(1_700_000_300_000), page.messages[0].Timestamp)
	assert.Equal(t, "@alice", page.messages[1].Author)

	assert.Equal(t, 10, page.oldestID, "next offset must be the oldest ID on the page, service messages included")
	assert.True(t, page.crossedWindow)
}

func TestCollectWindowInsideWindowContinuesPaging(t *testing.T) {
	since := time.Unix(1_700_000_000, 0)

	page := collectWindow([]tg.MessageClass{
		&tg.Message{ID: 2, Date: 1_700_000_200, Message: "b"},
		&tg.Message{ID: 1, Date: 1_700_000_100, Message: "a"},
	}, 7, "Chat", since)

	assert.Len(t, page.messages, 2)
	assert.Equal(t, 1, page.oldestID)
	assert.False(t, page.crossedWindow, "a page fully inside the window must not stop pagination")
}

func TestMessageAuthorFallbacks(t *testing.T) {
	assert.Equal(t, "sig", messageAuthor(&tg.Message{PostAuthor: "sig"}, "Chan"))
	assert.Equal(t, "user_42", messageAuthor(&tg.Message{FromID: &tg.PeerUser{UserID: 42}}, "Chan"))
	assert.Equal(t, "Chan", messageAuthor(&tg.Message{}, "Chan"))
}
