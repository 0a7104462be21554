// Package telegram reads messages from Telegram chats over MTProto.
package telegram

import (
	"context"
	"time"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
)

// Source produces the raw messages a scan run classifies. Implementations
// return messages newest-last, with canonical epoch-millisecond timestamps.
type Source interface {
	// FetchMessages returns messages from the given chats posted at or
	// after since.
	FetchMessages(ctx context.Context, chatIDs []int64, since time.Time) ([]domain.RawMessage, error)
}
