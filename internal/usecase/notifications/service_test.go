package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hirelane/internal/domain"
	"hirelane/internal/domain/notification"
	"hirelane/internal/repository/memory"
)

type captureChannel struct {
	mu   sync.Mutex
	sent map[uuid.UUID][][]byte
	err  error
}

func newCaptureChannel() *captureChannel {
	return &captureChannel{sent: make(map[uuid.UUID][][]byte)}
}

func (c *captureChannel) Publish(_ context.Context, recipient uuid.UUID, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent[recipient] = append(c.sent[recipient], payload)
	return nil
}

type capturePublisher struct {
	channel string
	payload []byte
}

func (p *capturePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.channel, p.payload = channel, payload
	return nil
}

func TestDispatchFansOutToPartiesButActor(t *testing.T) {
	store := memory.NewStore()
	ch := newCaptureChannel()
	svc := NewService(store.Notifications(), ch, nil, nil)
	ctx := context.Background()

	actor, talent, owner := uuid.New(), uuid.New(), uuid.New()
	out, err := svc.Dispatch(ctx, notification.Event{
		Kind:    notification.KindApplicationStatus,
		ActorID: &actor,
		Parties: []uuid.UUID{talent, owner, actor, talent},
		Title:   "Application updated",
		Message: "moved",
		Data:    map[string]string{"application_id": "a1"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)

	for _, rid := range []uuid.UUID{talent, owner} {
		require.Len(t, ch.sent[rid], 1)
		var msg Message
		require.NoError(t, json.Unmarshal(ch.sent[rid][0], &msg))
		assert.Equal(t, rid, msg.Recipient)
		assert.Equal(t, notification.KindApplicationStatus, msg.Kind)
		assert.Equal(t, "a1", msg.Data["application_id"])
	}
	assert.Empty(t, ch.sent[actor])
}

func TestDispatchKeepsRowsWhenPublishFails(t *testing.T) {
	store := memory.NewStore()
	ch := newCaptureChannel()
	ch.err = errors.New("redis down")
	svc := NewService(store.Notifications(), ch, nil, nil)
	ctx := context.Background()

	recipient := uuid.New()
	out, err := svc.Dispatch(ctx, notification.Event{Kind: notification.KindJobPaid, Parties: []uuid.UUID{recipient}})
	require.NoError(t, err)
	require.Len(t, out, 1)

	n, err := svc.UnreadCount(ctx, domain.Actor{ID: recipient, Role: domain.RoleBusiness})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDispatchWithoutRecipients(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Notifications(), nil, nil, nil)

	actor := uuid.New()
	out, err := svc.Dispatch(context.Background(), notification.Event{
		Kind:    notification.KindJobClosed,
		ActorID: &actor,
		Parties: []uuid.UUID{actor, uuid.Nil},
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestListAndMarkRead(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Notifications(), nil, nil, nil)
	ctx := context.Background()

	me := domain.Actor{ID: uuid.New(), Role: domain.RoleTalent}
	other := domain.Actor{ID: uuid.New(), Role: domain.RoleTalent}
	for i := 0; i < 3; i++ {
		_, err := svc.Dispatch(ctx, notification.Event{Kind: notification.KindOfferSent, Parties: []uuid.UUID{me.ID}})
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, me, false, 20, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	_, err = svc.MarkRead(ctx, other, all[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	read, err := svc.MarkRead(ctx, me, all[0].ID)
	require.NoError(t, err)
	require.NotNil(t, read.ReadAt)

	again, err := svc.MarkRead(ctx, me, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, *read.ReadAt, *again.ReadAt)

	unread, err := svc.List(ctx, me, true, 20, 0)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	count, err := svc.UnreadCount(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = svc.List(ctx, domain.SystemActor(), false, 20, 0)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestPubSubChannel(t *testing.T) {
	pub := &capturePublisher{}
	recipient := uuid.New()

	require.NoError(t, NewPubSubChannel(pub).Publish(context.Background(), recipient, []byte(`{}`)))
	assert.Equal(t, "notify:"+recipient.String(), pub.channel)

	got, ok := RecipientFromChannel(pub.channel)
	require.True(t, ok)
	assert.Equal(t, recipient, got)

	_, ok = RecipientFromChannel("notify:not-a-uuid")
	assert.False(t, ok)
	_, ok = RecipientFromChannel("other:" + recipient.String())
	assert.False(t, ok)
}
