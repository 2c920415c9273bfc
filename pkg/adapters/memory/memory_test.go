package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunTrackerStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	tr := domain.NewTracker(domain.TrackerSeed{SessionID: "s"})
	require.NoError(t, store.Save(ctx, "s", tr))

	tr.Append(domain.NewMessage("s", domain.RoleAI, "later", nil, false))
	loaded, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, loaded.History())
}

func TestLoader(t *testing.T) {
	l := memory.NewLoader("inline", []byte("a: 1"))
	assert.Equal(t, "inline", l.Source())

	raw, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a: 1", string(raw))

	l.Replace([]byte("b: 2"))
	raw, _ = l.Load(context.Background())
	assert.Equal(t, "b: 2", string(raw))
}

func TestChannel(t *testing.T) {
	ch := memory.NewChannel(4)
	ctx := context.Background()

	require.NoError(t, ch.Say("hello"))
	in, err := ch.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", in.Text)

	msg := domain.NewMessage("s", domain.RoleAI, "hi", nil, false)
	require.NoError(t, ch.Send(ctx, msg))
	assert.Equal(t, msg, <-ch.Messages())
	assert.Len(t, ch.Sent(), 1)

	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = ch.Receive(tctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	_, err = ch.Receive(ctx)
	assert.ErrorIs(t, err, domain.ErrChannelClosed)
	assert.ErrorIs(t, ch.Send(ctx, msg), domain.ErrChannelClosed)
	assert.ErrorIs(t, ch.Say("late"), domain.ErrChannelClosed)
}

func TestChatLog(t *testing.T) {
	cl := memory.NewChatLog()
	ctx := context.Background()

	require.NoError(t, cl.SaveMessages(ctx, []domain.MessageRecord{{MessageID: "m1"}}))
	require.NoError(t, cl.SaveSession(ctx, domain.SessionRecord{SessionID: "s"}))
	require.NoError(t, cl.SaveTicket(ctx, domain.TicketRecord{TicketID: "7"}))
	require.NoError(t, cl.SaveFeedback(ctx, domain.FeedbackRecord{Feedback: "good"}))
	assert.Len(t, cl.Messages(), 1)
	assert.Len(t, cl.Sessions(), 1)
	assert.Len(t, cl.Tickets(), 1)
	assert.Len(t, cl.Feedback(), 1)

	cl.Err = errors.New("down")
	assert.Error(t, cl.SaveSession(ctx, domain.SessionRecord{}))
	assert.Len(t, cl.Sessions(), 1)
}
