package client

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLazyChatCreation(t *testing.T) {
	l := NewLog()
	assert.Empty(t, l.ActiveChatID())
	assert.Empty(t, l.Chats())

	l.AppendUser("Tesla Model 3")

	require.Len(t, l.Chats(), 1)
	assert.NotEmpty(t, l.ActiveChatID())
	assert.Equal(t, "Tesla Model 3", l.Chats()[0].Title)
}

func TestLogTitleTruncation(t *testing.T) {
	l := NewLog()
	long := strings.Repeat("a", 50)
	l.AppendUser(long)

	title := l.Chats()[0].Title
	assert.Equal(t, strings.Repeat("a", 30)+"...", title)
}

func TestLogTitleTruncationMultibyte(t *testing.T) {
	l := NewLog()
	long := strings.Repeat("ü", 40)
	l.AppendUser(long)

	title := l.Chats()[0].Title
	assert.Equal(t, strings.Repeat("ü", 30)+"...", title)
}

func TestBotCreatedChatHasDefaultTitle(t *testing.T) {
	l := NewLog()
	l.AppendBot("Hello! Ask me about any vehicle.")

	require.Len(t, l.Chats(), 1)
	assert.Equal(t, defaultChatTitle, l.Chats()[0].Title,
		"a bot message with no history creates a default-titled chat")
}

func TestLogTranscriptOrder(t *testing.T) {
	l := NewLog()
	l.AppendUser("q1")
	l.AppendBot("a1")
	l.AppendUser("q2")
	l.AppendBot("a2")

	msgs := l.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, MessageUser, msgs[0].Type)
	assert.Equal(t, "q1", msgs[0].Content)
	assert.Equal(t, MessageBot, msgs[1].Type)
	assert.Equal(t, "a2", msgs[3].Content)

	// All four land in the one active chat.
	chats := l.Chats()
	require.Len(t, chats, 1)
	assert.Len(t, chats[0].Messages, 4)
}

func TestMessagesReturnsCopy(t *testing.T) {
	l := NewLog()
	l.AppendUser("original")

	msgs := l.Messages()
	msgs[0].Content = "mutated"

	assert.Equal(t, "original", l.Messages()[0].Content)
}

func TestSelectChat(t *testing.T) {
	l := NewLog()
	l.AppendUser("first chat question")
	first := l.ActiveChatID()

	assert.False(t, l.SelectChat("no-such-chat"))
	assert.Equal(t, first, l.ActiveChatID())

	assert.True(t, l.SelectChat(first))
	require.Len(t, l.Messages(), 1)
	assert.Equal(t, "first chat question", l.Messages()[0].Content)
}
