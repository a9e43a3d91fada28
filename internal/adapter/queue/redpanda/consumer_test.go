package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/noeyos-p/hirehub-ai/internal/domain"
)

// scriptedFetcher replays fetches in order, then reports the client closed.
type scriptedFetcher struct {
	mu     sync.Mutex
	script []kgo.Fetches
	marked []*kgo.Record
	rewind map[string]map[int32]kgo.EpochOffset
	closed bool
}

func (f *scriptedFetcher) PollFetches(context.Context) kgo.Fetches {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.script) == 0 {
		return partitionFetches(nil, kgo.ErrClientClosed)
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next
}

func (f *scriptedFetcher) MarkCommitRecords(rs ...*kgo.Record) {
	f.mu.Lock()
	f.marked = append(f.marked, rs...)
	f.mu.Unlock()
}

func (f *scriptedFetcher) SetOffsets(offsets map[string]map[int32]kgo.EpochOffset) {
	f.mu.Lock()
	f.rewind = offsets
	f.mu.Unlock()
}

func (f *scriptedFetcher) Close() { f.closed = true }

func partitionFetches(recs []*kgo.Record, err error) kgo.Fetches {
	return kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      TopicModerationRequests,
		Partitions: []kgo.FetchPartition{{Partition: 0, Records: recs, Err: err}},
	}}}}
}

func jobRecord(t *testing.T, id, content string, offset int64) *kgo.Record {
	t.Helper()
	b, err := json.Marshal(domain.ModerationJob{ID: id, Content: content})
	require.NoError(t, err)
	return &kgo.Record{
		Topic:   TopicModerationRequests,
		Key:     []byte(id),
		Value:   b,
		Offset:  offset,
		Headers: []kgo.RecordHeader{{Key: headerRequestID, Value: []byte("req-" + id)}},
	}
}

type approveAll struct{}

func (approveAll) Process(_ context.Context, job domain.ModerationJob) domain.ModerationOutcome {
	return domain.ModerationOutcome{ID: job.ID, Decision: domain.ModerationDecision{Approve: true}}
}

type recordingSink struct {
	mu   sync.Mutex
	outs []domain.ModerationOutcome
	fail map[string]bool
}

func (s *recordingSink) PublishOutcome(_ context.Context, out domain.ModerationOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[out.ID] {
		return errors.New("broker unavailable")
	}
	s.outs = append(s.outs, out)
	return nil
}

func noSleep(context.Context, time.Duration) {}

func TestConsumer_ProcessesAndMarks(t *testing.T) {
	recs := []*kgo.Record{jobRecord(t, "a", "hello", 1), jobRecord(t, "b", "world", 2), jobRecord(t, "c", "!", 3)}
	f := &scriptedFetcher{script: []kgo.Fetches{partitionFetches(recs, nil)}}
	sink := &recordingSink{}
	c := newConsumer(f, approveAll{}, sink, 2)
	c.sleep = noSleep

	require.NoError(t, c.Run(context.Background()))
	assert.Len(t, sink.outs, 3)
	assert.ElementsMatch(t, recs, f.marked)
}

func TestConsumer_UnpublishedRecordsAreNotMarked(t *testing.T) {
	recs := []*kgo.Record{jobRecord(t, "ok", "x", 1), jobRecord(t, "bad", "y", 2)}
	f := &scriptedFetcher{script: []kgo.Fetches{partitionFetches(recs, nil)}}
	sink := &recordingSink{fail: map[string]bool{"bad": true}}
	c := newConsumer(f, approveAll{}, sink, 4)
	c.sleep = noSleep

	require.NoError(t, c.Run(context.Background()))
	require.Len(t, f.marked, 1)
	assert.Equal(t, "ok", string(f.marked[0].Key))
	assert.Equal(t, map[string]map[int32]kgo.EpochOffset{
		TopicModerationRequests: {0: {Epoch: -1, Offset: 2}},
	}, f.rewind)
}

func TestConsumer_FailedRecordHoldsBackLaterOffsets(t *testing.T) {
	onPartition := func(r *kgo.Record, p int32) *kgo.Record { r.Partition = p; return r }
	held := []*kgo.Record{
		onPartition(jobRecord(t, "p0-5", "x", 5), 0),
		onPartition(jobRecord(t, "p0-6", "x", 6), 0),
		onPartition(jobRecord(t, "p0-7", "x", 7), 0),
	}
	clean := []*kgo.Record{
		onPartition(jobRecord(t, "p1-3", "x", 3), 1),
		onPartition(jobRecord(t, "p1-4", "x", 4), 1),
	}
	fetches := kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic: TopicModerationRequests,
		Partitions: []kgo.FetchPartition{
			{Partition: 0, Records: held},
			{Partition: 1, Records: clean},
		},
	}}}}
	f := &scriptedFetcher{script: []kgo.Fetches{fetches}}
	sink := &recordingSink{fail: map[string]bool{"p0-5": true}}
	var waits []time.Duration
	c := newConsumer(f, approveAll{}, sink, 3)
	c.sleep = func(_ context.Context, d time.Duration) { waits = append(waits, d) }

	require.NoError(t, c.Run(context.Background()))
	assert.ElementsMatch(t, clean, f.marked, "nothing past the failed offset is committed")
	assert.Equal(t, map[string]map[int32]kgo.EpochOffset{
		TopicModerationRequests: {0: {Epoch: -1, Offset: 5}},
	}, f.rewind)
	assert.Len(t, sink.outs, 4)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, waits)
}

func TestSettle(t *testing.T) {
	rec := func(p int32, off int64) *kgo.Record {
		return &kgo.Record{Topic: TopicModerationRequests, Partition: p, Offset: off}
	}
	tests := []struct {
		name       string
		records    []*kgo.Record
		ok         []bool
		wantMarked []int64
		wantRewind map[int32]int64
	}{
		{"all ok", []*kgo.Record{rec(0, 1), rec(0, 2)}, []bool{true, true}, []int64{1, 2}, nil},
		{"first fails", []*kgo.Record{rec(0, 1), rec(0, 2)}, []bool{false, true}, nil, map[int32]int64{0: 1}},
		{"middle fails", []*kgo.Record{rec(0, 1), rec(0, 2), rec(0, 3)}, []bool{true, false, true}, []int64{1}, map[int32]int64{0: 2}},
		{"out of order input", []*kgo.Record{rec(0, 3), rec(0, 1), rec(0, 2)}, []bool{true, true, false}, []int64{1}, map[int32]int64{0: 2}},
		{"independent partitions", []*kgo.Record{rec(0, 1), rec(1, 1)}, []bool{false, true}, []int64{1}, map[int32]int64{0: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			done, rewind := settle(tc.records, tc.ok)
			var marked []int64
			for _, r := range done {
				marked = append(marked, r.Offset)
			}
			assert.ElementsMatch(t, tc.wantMarked, marked)
			if tc.wantRewind == nil {
				assert.Empty(t, rewind)
				return
			}
			require.Len(t, rewind[TopicModerationRequests], len(tc.wantRewind))
			for p, off := range tc.wantRewind {
				assert.Equal(t, off, rewind[TopicModerationRequests][p].Offset)
			}
		})
	}
}

func TestConsumer_PoisonRecordIsSkippedAndMarked(t *testing.T) {
	poison := &kgo.Record{Topic: TopicModerationRequests, Value: []byte("not json")}
	f := &scriptedFetcher{script: []kgo.Fetches{partitionFetches([]*kgo.Record{poison}, nil)}}
	sink := &recordingSink{}
	c := newConsumer(f, approveAll{}, sink, 1)
	c.sleep = noSleep

	require.NoError(t, c.Run(context.Background()))
	assert.Empty(t, sink.outs)
	assert.Equal(t, []*kgo.Record{poison}, f.marked)
}

func TestConsumer_BacksOffOnFetchErrors(t *testing.T) {
	f := &scriptedFetcher{script: []kgo.Fetches{
		partitionFetches(nil, errors.New("leader not available")),
		partitionFetches(nil, errors.New("leader not available")),
		partitionFetches([]*kgo.Record{jobRecord(t, "a", "x", 1)}, nil),
	}}
	var waits []time.Duration
	c := newConsumer(f, approveAll{}, &recordingSink{}, 1)
	c.sleep = func(_ context.Context, d time.Duration) { waits = append(waits, d) }

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, waits)
	assert.Equal(t, 0, c.backoff.Failures(), "a clean poll resets the backoff")
	assert.Len(t, f.marked, 1)
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newConsumer(&scriptedFetcher{}, approveAll{}, &recordingSink{}, 1)
	assert.ErrorIs(t, c.Run(ctx), context.Canceled)
}

func TestPollBackoff_Caps(t *testing.T) {
	b := newPollBackoff(time.Second, 5*time.Second)
	assert.Equal(t, time.Second, b.Failure())
	assert.Equal(t, 2*time.Second, b.Failure())
	assert.Equal(t, 4*time.Second, b.Failure())
	assert.Equal(t, 5*time.Second, b.Failure())
	b.Success()
	assert.Equal(t, time.Second, b.Failure())
}
