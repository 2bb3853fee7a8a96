package callscript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const responseURL = "https://alerts.example.org/api/emergency/call-response"

func TestBuildWithAudio(t *testing.T) {
	b := NewBuilder(responseURL)
	doc, err := b.Build(Speech{Text: "hello", AudioURL: "https://alerts.example.org/audio/a.mp3"})
	require.NoError(t, err)

	assert.Contains(t, doc, "<Response>")
	assert.Contains(t, doc, "<Play>https://alerts.example.org/audio/a.mp3</Play>")
	assert.NotContains(t, doc, ">hello<")
	assert.Contains(t, doc, `numDigits="1"`)
	assert.Contains(t, doc, `action="`+responseURL+`"`)
	assert.Contains(t, doc, `method="POST"`)
	assert.Contains(t, doc, `timeout="5"`)
	assert.Contains(t, doc, `length="2"`)
	assert.Contains(t, doc, MenuPrompt)
	assert.Contains(t, doc, "<Hangup")

	// Menu precedes the gather, closing follows it.
	assert.Less(t, strings.Index(doc, MenuPrompt), strings.Index(doc, "<Gather"))
	assert.Less(t, strings.Index(doc, "<Gather"), strings.Index(doc, ClosingMessage))
}

func TestBuildFallsBackToSay(t *testing.T) {
	b := NewBuilder(responseURL)
	doc, err := b.Build(Speech{Text: "Jordan needs help & support"})
	require.NoError(t, err)

	assert.NotContains(t, doc, "<Play")
	assert.Contains(t, doc, `voice="Polly.Joanna"`)
	assert.Contains(t, doc, "Jordan needs help &amp; support")
}

func TestBuildRejectsEmptySpeech(t *testing.T) {
	_, err := NewBuilder(responseURL).Build(Speech{})
	assert.Error(t, err)
}

func TestClosing(t *testing.T) {
	doc, err := NewBuilder(responseURL).Closing()
	require.NoError(t, err)
	assert.Contains(t, doc, ClosingMessage)
	assert.Contains(t, doc, "<Hangup")
	assert.NotContains(t, doc, "<Gather")
}
