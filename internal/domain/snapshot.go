package domain

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the persisted form of a chat store: chats in display order.
type Snapshot []*Chat

// EncodeSnapshot serializes chats into the persisted layout.
func EncodeSnapshot(chats []*Chat) ([]byte, error) {
	if chats == nil {
		chats = []*Chat{}
	}
	data, err := json.Marshal(Snapshot(chats))
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a persisted snapshot and checks every record carries
// the fields the store relies on.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("snapshot is not a list of chats")
	}
	seen := make(map[ChatId]struct{}, len(snap))
	for i, chat := range snap {
		if chat == nil || chat.Id == "" || chat.ParticipantId == "" {
			return nil, fmt.Errorf("chat #%d: missing id", i)
		}
		if chat.Id != chat.ParticipantId {
			return nil, fmt.Errorf("chat %s: belongs to participant %s", chat.Id, chat.ParticipantId)
		}
		if _, dup := seen[chat.Id]; dup {
			return nil, fmt.Errorf("chat %s: duplicated", chat.Id)
		}
		seen[chat.Id] = struct{}{}
		if chat.Messages == nil {
			chat.Messages = []*Message{}
		}
		for j, msg := range chat.Messages {
			if msg == nil || msg.Id == "" || msg.SenderId == "" {
				return nil, fmt.Errorf("chat %s, message #%d: missing id", chat.Id, j)
			}
			if msg.CreatedAt.IsZero() {
				return nil, fmt.Errorf("chat %s, message %s: missing timestamp", chat.Id, msg.Id)
			}
			if msg.Body == "" && msg.Attachment == nil {
				return nil, fmt.Errorf("chat %s, message %s: empty", chat.Id, msg.Id)
			}
		}
	}
	return snap, nil
}
