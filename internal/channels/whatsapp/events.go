package whatsapp

import (
	"context"
	"strings"
	"time"

	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/nextlevelbuilder/waindex/internal/model"
)

const ingestTimeout = 30 * time.Second

// handleEvent is the central dispatcher registered with the whatsmeow
// client.
func (c *Connector) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Connected:
		c.log.Info("connected")
	case *events.Disconnected:
		c.log.Warn("disconnected by server")
	case *events.Message:
		c.handleMessage(v)
	case *events.HistorySync:
		c.handleHistorySync(v)
	case *events.LoggedOut:
		c.log.Warn("logged out, device must be paired again")
	}
}

// handleMessage processes one live message. Protocol messages sit on the
// same event: a revoke becomes a delete, an edit re-ingests the original
// ID with the new content.
func (c *Connector) handleMessage(evt *events.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	if pm := evt.Message.GetProtocolMessage(); pm != nil {
		c.handleProtocolMessage(ctx, pm)
		return
	}

	ev := c.eventFromInfo(evt.Info, evt.Message)
	if err := c.sink.Ingest(ctx, ev); err != nil {
		c.log.Error("ingest failed", "id", ev.ID, "err", err)
	}
}

func (c *Connector) handleProtocolMessage(ctx context.Context, pm *waE2E.ProtocolMessage) {
	targetID := pm.GetKey().GetID()
	if targetID == "" {
		return
	}

	switch pm.GetType() {
	case waE2E.ProtocolMessage_REVOKE:
		if err := c.sink.IngestDelete(ctx, targetID); err != nil {
			c.log.Error("delete failed", "id", targetID, "err", err)
		}
	case waE2E.ProtocolMessage_MESSAGE_EDIT:
		edited := pm.GetEditedMessage()
		if edited == nil {
			return
		}
		ev := model.RawMessageEvent{
			ID:        targetID,
			ChatID:    pm.GetKey().GetRemoteJID(),
			IsFromMe:  pm.GetKey().GetFromMe(),
			Content:   extractBody(edited),
			MediaType: mediaTypeOf(edited),
			Timestamp: time.Now().UnixMilli(),
		}
		if ev.IsFromMe {
			ev.SenderName = model.SelfSender
		}
		if err := c.sink.IngestEdit(ctx, targetID, ev); err != nil {
			c.log.Error("edit ingest failed", "id", targetID, "err", err)
		}
	}
}

// handleHistorySync walks the server-provided history batches and feeds
// every message through the same ingestion path as live traffic.
func (c *Connector) handleHistorySync(evt *events.HistorySync) {
	conversations := evt.Data.GetConversations()
	c.log.Info("history sync", "conversations", len(conversations))

	for _, conv := range conversations {
		chatJID := conv.GetID()
		chatName := conv.GetDisplayName()
		isGroup := strings.HasSuffix(chatJID, "@g.us")

		for _, hsMsg := range conv.GetMessages() {
			webMsg := hsMsg.GetMessage()
			if webMsg == nil || webMsg.GetKey() == nil {
				continue
			}
			e2e := webMsg.GetMessage()
			ev := model.RawMessageEvent{
				ID:             webMsg.GetKey().GetID(),
				ChatID:         chatJID,
				ChatName:       chatName,
				IsGroupMessage: isGroup,
				SenderName:     webMsg.GetPushName(),
				SenderNumber:   extractNumber(webMsg.GetKey().GetParticipant()),
				Content:        extractBody(e2e),
				MediaType:      mediaTypeOf(e2e),
				Timestamp:      int64(webMsg.GetMessageTimestamp()) * 1000,
				IsFromMe:       webMsg.GetKey().GetFromMe(),
			}
			if ev.IsFromMe {
				ev.SenderName = model.SelfSender
			}

			ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
			if err := c.sink.Ingest(ctx, ev); err != nil {
				c.log.Error("history ingest failed", "id", ev.ID, "err", err)
			}
			cancel()
		}
	}
}

func (c *Connector) eventFromInfo(info types.MessageInfo, msg *waE2E.Message) model.RawMessageEvent {
	ev := model.RawMessageEvent{
		ID:             info.ID,
		ChatID:         info.Chat.String(),
		ChatName:       chatDisplayName(info),
		IsGroupMessage: info.IsGroup,
		SenderName:     info.PushName,
		SenderNumber:   info.Sender.User,
		Content:        extractBody(msg),
		MediaType:      mediaTypeOf(msg),
		Timestamp:      info.Timestamp.UnixMilli(),
		IsFromMe:       info.IsFromMe,
	}
	if ev.IsFromMe {
		ev.SenderName = model.SelfSender
	}
	return ev
}

// chatDisplayName falls back to the JID user part; proper group subjects
// arrive via history sync.
func chatDisplayName(info types.MessageInfo) string {
	if !info.IsGroup && info.PushName != "" {
		return info.PushName
	}
	return info.Chat.User
}

// extractBody pulls the text body out of whichever sub-message carries
// it, including media captions.
func extractBody(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if c := msg.GetConversation(); c != "" {
		return c
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	if img := msg.GetImageMessage(); img != nil {
		return img.GetCaption()
	}
	if vid := msg.GetVideoMessage(); vid != nil {
		return vid.GetCaption()
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		return doc.GetCaption()
	}
	if loc := msg.GetLocationMessage(); loc != nil {
		return loc.GetName()
	}
	if contact := msg.GetContactMessage(); contact != nil {
		return contact.GetDisplayName()
	}
	return ""
}

// mediaTypeOf maps the transport sub-message onto the classifier's media
// type vocabulary. Empty string means plain text.
func mediaTypeOf(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	switch {
	case msg.GetImageMessage() != nil:
		return "image"
	case msg.GetVideoMessage() != nil:
		return "video"
	case msg.GetAudioMessage() != nil:
		return "audio"
	case msg.GetDocumentMessage() != nil:
		return "document"
	case msg.GetLocationMessage() != nil:
		return "location"
	case msg.GetContactMessage() != nil:
		return "contact"
	case msg.GetStickerMessage() != nil:
		return "media"
	}
	return ""
}

// extractNumber strips the server part of a JID string.
func extractNumber(jid string) string {
	if at := strings.Index(jid, "@"); at != -1 {
		return jid[:at]
	}
	return jid
}
