package notifications

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ChannelPrefix namespaces the per-recipient pub/sub channels.
const ChannelPrefix = "notify:"

func ChannelFor(recipient uuid.UUID) string {
	return ChannelPrefix + recipient.String()
}

// RecipientFromChannel is the inverse of ChannelFor.
func RecipientFromChannel(channel string) (uuid.UUID, bool) {
	if !strings.HasPrefix(channel, ChannelPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(channel, ChannelPrefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

type publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// PubSubChannel publishes each notification on notify:<recipient>.
type PubSubChannel struct {
	pub publisher
}

func NewPubSubChannel(pub publisher) *PubSubChannel {
	return &PubSubChannel{pub: pub}
}

func (c *PubSubChannel) Publish(ctx context.Context, recipient uuid.UUID, payload []byte) error {
	return c.pub.Publish(ctx, ChannelFor(recipient), payload)
}
