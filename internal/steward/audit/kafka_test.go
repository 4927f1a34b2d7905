package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/steward/internal/steward/audit"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisherKeysByAccount(t *testing.T) {
	w := &fakeWriter{}
	p := audit.NewKafkaPublisherWithWriter(w)

	at := time.Unix(1700000000, 0).UTC()
	err := p.Publish(context.Background(),
		audit.Event{Type: audit.TypeAccountWarned, AccountID: "U1", LastActivity: 1000, OccurredAt: at},
		audit.Event{Type: audit.TypeAccountDeactivated, AccountID: "U2", OccurredAt: at},
	)
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)

	require.Equal(t, "U1", string(w.msgs[0].Key))
	require.Equal(t, audit.TypeAccountWarned, string(w.msgs[0].Headers[0].Value))

	var ev audit.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	require.EqualValues(t, 1000, ev.LastActivity)
	require.True(t, at.Equal(ev.OccurredAt))
}

func TestKafkaPublisherWrapsWriteErrors(t *testing.T) {
	boom := errors.New("broker down")
	p := audit.NewKafkaPublisherWithWriter(&fakeWriter{err: boom})

	err := p.Publish(context.Background(), audit.Event{Type: audit.TypeAccountWarned, AccountID: "U1"})
	require.ErrorIs(t, err, boom)
	require.NoError(t, p.Publish(context.Background()))
}
