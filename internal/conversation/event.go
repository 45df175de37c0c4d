package conversation

import "time"

type EventKind int

const (
	EventText EventKind = iota
	EventCommand
)

const (
	CommandStart  = "start"
	CommandCancel = "cancel"
)

// Event is one normalized inbound message. Command holds the lower-cased
// command name without the leading slash; Text holds the raw message body.
type Event struct {
	ChatID     int64
	MessageID  int64
	Kind       EventKind
	Command    string
	Text       string
	ReceivedAt time.Time
}

func NewCommandEvent(chatID, messageID int64, name string) Event {
	return Event{ChatID: chatID, MessageID: messageID, Kind: EventCommand, Command: name}
}

func NewTextEvent(chatID, messageID int64, text string) Event {
	return Event{ChatID: chatID, MessageID: messageID, Kind: EventText, Text: text}
}
