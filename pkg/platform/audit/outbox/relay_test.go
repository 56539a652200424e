//go:build integration

package outbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "eligo/pkg/platform/audit"
	"eligo/pkg/platform/audit/outbox"
	auditpostgres "eligo/pkg/platform/audit/store/postgres"
	"eligo/pkg/testutil/containers"
)

type recordingProducer struct {
	records []*kgo.Record
	err     error
}

func (p *recordingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if p.err == nil {
			p.records = append(p.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func appendEvents(t *testing.T, store *auditpostgres.Store, checkIDs ...string) {
	t.Helper()
	for _, id := range checkIDs {
		require.NoError(t, store.Append(context.Background(), audit.Event{
			Timestamp: time.Now(),
			Type:      audit.EventCheckResolved,
			CheckID:   id,
			Outcome:   "eligible",
		}))
	}
}

func TestRelay_PublishesAndMarksRows(t *testing.T) {
	pg := containers.GetManager().GetPostgres(t)
	ctx := context.Background()
	require.NoError(t, pg.Reset(ctx))

	appendEvents(t, auditpostgres.New(pg.DB), "check-1", "check-2", "check-3")
	producer := &recordingProducer{}
	relay := outbox.NewRelay(pg.DB, producer, "eligibility.audit", outbox.WithBatchSize(2))

	n, err := relay.PublishBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = relay.PublishBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = relay.PublishBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "published rows are not sent again")

	require.Len(t, producer.records, 3)
	keys := make([]string, 0, 3)
	for _, r := range producer.records {
		assert.Equal(t, "eligibility.audit", r.Topic)
		require.Len(t, r.Headers, 1)
		assert.Equal(t, string(audit.EventCheckResolved), string(r.Headers[0].Value))
		keys = append(keys, string(r.Key))
	}
	assert.ElementsMatch(t, []string{"check-1", "check-2", "check-3"}, keys)
}

func TestRelay_ProduceFailureLeavesRowsPending(t *testing.T) {
	pg := containers.GetManager().GetPostgres(t)
	ctx := context.Background()
	require.NoError(t, pg.Reset(ctx))

	appendEvents(t, auditpostgres.New(pg.DB), "check-1")
	producer := &recordingProducer{err: errors.New("broker unavailable")}
	relay := outbox.NewRelay(pg.DB, producer, "eligibility.audit")

	_, err := relay.PublishBatch(ctx)
	require.Error(t, err)

	producer.err = nil
	n, err := relay.PublishBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
