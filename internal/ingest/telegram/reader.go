package telegram

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/config"
)

// ErrChatNotFound indicates a configured chat is absent from the account's
// dialogs.
var ErrChatNotFound = errors.New("chat not found in dialogs")

const (
	floodWaitErrType = "FLOOD_WAIT"

	dialogsFetchLimit = 100

	maxFloodWaitRetries = 3
)

// Reader fetches chat history over a gotd MTProto session.
type Reader struct {
	cfg    *config.Config
	logger *zerolog.Logger
}

// NewReader creates the Telegram message source.
func NewReader(cfg *config.Config, logger *zerolog.Logger) *Reader {
	return &Reader{cfg: cfg, logger: logger}
}

// FetchMessages implements Source. It runs a client session for the
// duration of the fetch; the session file keeps authentication across
// calls.
func (r *Reader) FetchMessages(ctx context.Context, chatIDs []int64, since time.Time) ([]domain.RawMessage, error) {
	client := telegram.NewClient(r.cfg.TGAPIID, r.cfg.TGAPIHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{
			Path: r.cfg.TGSessionPath,
		},
	})

	var out []domain.RawMessage

	err := client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, r.authFlow()); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}

		api := tg.NewClient(client)

		peers, err := r.resolvePeers(ctx, api, chatIDs)
		if err != nil {
			return err
		}

		for _, chatID := range chatIDs {
			peer, ok := peers[chatID]
			if !ok {
				r.logger.Warn().Int64("chat_id", chatID).Msg("chat not found in dialogs, skipping")

				continue
			}

			msgs, err := r.fetchChatMessages(ctx, api, chatID, peer, since)
			if err != nil {
				return fmt.Errorf("fetch chat %d: %w", chatID, err)
			}

			out = append(out, msgs...)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})

	return out, nil
}

type resolvedPeer struct {
	input *tg.InputPeerChannel
	title string
}

// resolvePeers walks the account's dialogs and maps the requested chat IDs
// to input peers with access hashes.
func (r *Reader) resolvePeers(ctx context.Context, api *tg.Client, chatIDs []int64) (map[int64]resolvedPeer, error) {
	wanted := make(map[int64]struct{}, len(chatIDs))
	for _, id := range chatIDs {
		wanted[id] = struct{}{}
	}

	dialogs, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		Limit:      dialogsFetchLimit,
		OffsetPeer: &tg.InputPeerEmpty{},
	})
	if err != nil {
		return nil, fmt.Errorf("get dialogs: %w", err)
	}

	var chats []tg.ChatClass

	switch d := dialogs.(type) {
	case *tg.MessagesDialogs:
		chats = d.Chats
	case *tg.MessagesDialogsSlice:
		chats = d.Chats
	}

	peers := make(map[int64]resolvedPeer, len(chatIDs))

	for _, chat := range chats {
		channel, ok := chat.(*tg.Channel)
		if !ok {
			continue
		}

		if _, want := wanted[channel.ID]; !want {
			continue
		}

		peers[channel.ID] = resolvedPeer{
			input: &tg.InputPeerChannel{
				ChannelID:  channel.ID,
				AccessHash: channel.AccessHash,
			},
			title: channel.Title,
		}
	}

	return peers, nil
}

// fetchChatMessages pages backwards through the chat history, newest first,
// until a page crosses the start of the scan window or the history runs out.
func (r *Reader) fetchChatMessages(ctx context.Context, api *tg.Client, chatID int64, peer resolvedPeer, since time.Time) ([]domain.RawMessage, error) {
	var out []domain.RawMessage

	offsetID := 0

	for {
		messages, err := r.historyPage(ctx, api, chatID, peer, offsetID)
		if err != nil {
			return nil, err
		}

		if len(messages) == 0 {
			break
		}

		page := collectWindow(messages, chatID, peer.title, since)
		out = append(out, page.messages...)

		if page.crossedWindow || len(messages) < r.cfg.ReaderFetchLimit {
			break
		}

		offsetID = page.oldestID
	}

	r.logger.Debug().
		Int64("chat_id", chatID).
		Int("count", len(out)).
		Msg("fetched chat messages")

	return out, nil
}

// historyPage fetches one page of history older than offsetID, waiting out a
// bounded number of FLOOD_WAIT responses.
func (r *Reader) historyPage(ctx context.Context, api *tg.Client, chatID int64, peer resolvedPeer, offsetID int) ([]tg.MessageClass, error) {
	for attempt := 0; ; attempt++ {
		history, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     peer.input,
			OffsetID: offsetID,
			Limit:    r.cfg.ReaderFetchLimit,
		})
		if err == nil {
			switch h := history.(type) {
			case *tg.MessagesMessages:
				return h.Messages, nil
			case *tg.MessagesMessagesSlice:
				return h.Messages, nil
			case *tg.MessagesChannelMessages:
				return h.Messages, nil
			default:
				return nil, nil
			}
		}

		floodErr, ok := tgerr.As(err)
		if !ok || floodErr.Type != floodWaitErrType || attempt >= maxFloodWaitRetries {
			return nil, fmt.Errorf("get history: %w", err)
		}

		r.logger.Warn().
			Int("seconds", floodErr.Argument).
			Int("attempt", attempt+1).
			Int64("chat_id", chatID).
			Msg("flood wait")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(floodErr.Argument) * time.Second):
		}
	}
}

// windowPage is the usable slice of one history page.
type windowPage struct {
	messages []domain.RawMessage
	// oldestID is the smallest message ID on the page, the OffsetID for
	// the next page.
	oldestID int
	// crossedWindow is set once any message predates the scan window, so
	// older pages need not be fetched.
	crossedWindow bool
}

// collectWindow converts one history page, keeping non-empty messages inside
// the scan window.
func collectWindow(messages []tg.MessageClass, chatID int64, channelTitle string, since time.Time) windowPage {
	page := windowPage{}

	for _, m := range messages {
		if id := m.GetID(); page.oldestID == 0 || id < page.oldestID {
			page.oldestID = id
		}

		msg, ok := m.(*tg.Message)
		if !ok {
			continue
		}

		posted := time.Unix(int64(msg.Date), 0)
		if posted.Before(since) {
			page.crossedWindow = true

			continue
		}

		if msg.Message == "" {
			continue
		}

		page.messages = append(page.messages, domain.RawMessage{
			ID:           fmt.Sprintf("%d_%d", chatID, msg.ID),
			ChatID:       strconv.FormatInt(chatID, 10),
			ChannelTitle: channelTitle,
			Author:       messageAuthor(msg, channelTitle),
			Text:         msg.Message,
			Timestamp:    posted.UnixMilli(),
		})
	}

	return page
}

// messageAuthor picks the best available author label: post author
// signature, sender user ID, or the channel title.
func messageAuthor(msg *tg.Message, channelTitle string) string {
	if msg.PostAuthor != "" {
		return msg.PostAuthor
	}

	if msg.FromID != nil {
		if user, ok := msg.FromID.(*tg.PeerUser); ok {
			return "user_" + strconv.FormatInt(user.UserID, 10)
		}
	}

	return channelTitle
}

var _ Source = (*Reader)(nil)
