package client

import (
	"strconv"
	"sync"
	"time"
)

// MessageType distinguishes user messages from assistant/system messages.
type MessageType string

const (
	MessageUser MessageType = "user"
	MessageBot  MessageType = "bot"
)

// maxTitleLen is how much of the triggering message becomes a chat title.
const maxTitleLen = 30

// defaultChatTitle labels a chat created with no prior message to name it.
const defaultChatTitle = "New Chat"

// Message is one client-visible chat entry. IDs are time-based tokens;
// uniqueness is not strictly guaranteed under high-frequency bursts.
type Message struct {
	ID        string
	Type      MessageType
	Content   string
	Timestamp time.Time
}

// Chat groups the messages of one conversation. Messages only grow; there
// is no deletion or edit path.
type Chat struct {
	ID        string
	Title     string
	Messages  []Message
	Timestamp time.Time
}

// Log holds the client's chat state: the current transcript plus the chat
// list. A chat is created lazily on the first exchange when none is active.
// All methods are safe for concurrent use, though in practice updates
// arrive from a single event stream.
type Log struct {
	mu       sync.Mutex
	messages []Message
	chats    []*Chat
	activeID string
}

// NewLog creates an empty chat log.
func NewLog() *Log {
	return &Log{}
}

// AppendUser records an outgoing user message, creating the active chat
// from it if none exists. The title is the first 30 characters of the
// message.
func (l *Log) AppendUser(content string) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := newMessage(MessageUser, content)
	l.messages = append(l.messages, msg)
	l.appendToActiveLocked(msg, deriveTitle(content))
	return msg
}

// AppendBot records an inbound assistant (or notice) message. If no chat is
// active, one is created titled after the most recent prior message, else a
// default label.
func (l *Log) AppendBot(content string) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	title := defaultChatTitle
	if n := len(l.messages); n > 0 {
		title = deriveTitle(l.messages[n-1].Content)
	}

	msg := newMessage(MessageBot, content)
	l.messages = append(l.messages, msg)
	l.appendToActiveLocked(msg, title)
	return msg
}

// appendToActiveLocked appends to the active chat, creating it first when
// none is active. Caller must hold the lock.
func (l *Log) appendToActiveLocked(msg Message, title string) {
	if l.activeID == "" {
		chat := &Chat{
			ID:        strconv.FormatInt(time.Now().UnixNano(), 10),
			Title:     title,
			Messages:  append([]Message(nil), l.messages...),
			Timestamp: time.Now(),
		}
		l.chats = append([]*Chat{chat}, l.chats...)
		l.activeID = chat.ID
		return
	}

	for _, chat := range l.chats {
		if chat.ID == l.activeID {
			chat.Messages = append(chat.Messages, msg)
			chat.Timestamp = time.Now()
			return
		}
	}
}

// Messages returns a copy of the current transcript.
func (l *Log) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Chats returns copies of all chats, newest first.
func (l *Log) Chats() []Chat {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Chat, 0, len(l.chats))
	for _, chat := range l.chats {
		c := *chat
		c.Messages = append([]Message(nil), chat.Messages...)
		out = append(out, c)
	}
	return out
}

// ActiveChatID returns the ID of the active chat, or "" if none.
func (l *Log) ActiveChatID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.activeID
}

// SelectChat makes an existing chat active and loads its transcript.
func (l *Log) SelectChat(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, chat := range l.chats {
		if chat.ID == id {
			l.activeID = id
			l.messages = append([]Message(nil), chat.Messages...)
			return true
		}
	}
	return false
}

func newMessage(t MessageType, content string) Message {
	return Message{
		ID:        strconv.FormatInt(time.Now().UnixNano(), 10),
		Type:      t,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func deriveTitle(content string) string {
	if content == "" {
		return defaultChatTitle
	}
	runes := []rune(content)
	if len(runes) > maxTitleLen {
		return string(runes[:maxTitleLen]) + "..."
	}
	return content
}
