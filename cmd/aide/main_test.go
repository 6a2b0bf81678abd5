package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/aide/internal/profile"
)

func TestTelegramIngestAllowed(t *testing.T) {
	p := &profile.Profile{IncludeTelegram: true, TelegramBotToken: "123:abc"}

	// With the chat channel running on the same token, the ingest
	// source must not open a second getUpdates poll.
	assert.False(t, telegramIngestAllowed(p, true))
	assert.True(t, telegramIngestAllowed(p, false))

	assert.False(t, telegramIngestAllowed(&profile.Profile{IncludeTelegram: true}, false))
	assert.False(t, telegramIngestAllowed(&profile.Profile{TelegramBotToken: "123:abc"}, false))
}
