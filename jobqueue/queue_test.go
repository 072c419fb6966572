package jobqueue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"repair-ops/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProcessor fails the first failUntil calls and succeeds afterwards.
type stubProcessor struct {
	mu        sync.Mutex
	calls     int
	failUntil int
}

func (p *stubProcessor) Process(job *Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failUntil {
		return errors.New("upstream temporarily unavailable")
	}
	return nil
}

func (p *stubProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newTestQueue(t *testing.T, workers int) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	q := NewQueue(workers)
	t.Cleanup(q.Stop)
	return q
}

func waitForStatus(t *testing.T, q *Queue, jobID string, want JobStatus) *Job {
	t.Helper()
	var job *Job
	require.Eventually(t, func() bool {
		j, err := q.GetJob(jobID)
		if err != nil {
			return false
		}
		job = j
		return j.Status == want
	}, 10*time.Second, 25*time.Millisecond)
	return job
}

func TestQueueProcessesEnqueuedJob(t *testing.T) {
	q := newTestQueue(t, 1)
	proc := &stubProcessor{}
	q.Register(JobTypeVideoMerge, proc)
	q.Start()

	jobID, err := q.Enqueue(JobTypeVideoMerge, VideoMergeJobPayload{
		WaybillNo:     "WB-1001",
		FirstMediaID:  1,
		SecondMediaID: 2,
		RequestedBy:   "manager",
	}.ToMap())
	require.NoError(t, err)

	job := waitForStatus(t, q, jobID, JobStatusCompleted)
	assert.Equal(t, 1, proc.callCount())
	assert.NotNil(t, job.ProcessedAt)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)
}

func TestQueueRetriesTransientFailure(t *testing.T) {
	q := newTestQueue(t, 1)
	proc := &stubProcessor{failUntil: 2}
	q.Register(JobTypeVideoMerge, proc)
	q.Start()

	jobID, err := q.Enqueue(JobTypeVideoMerge, map[string]interface{}{"waybill_no": "WB-1002"})
	require.NoError(t, err)

	job := waitForStatus(t, q, jobID, JobStatusCompleted)
	assert.Equal(t, 3, proc.callCount())
	assert.Equal(t, 2, job.RetryCount)
}

func TestQueueFailsPermanentlyAfterMaxRetries(t *testing.T) {
	q := newTestQueue(t, 1)
	proc := &stubProcessor{failUntil: DefaultMaxRetries + 1}
	q.Register(JobTypeVideoMerge, proc)
	q.Start()

	jobID, err := q.Enqueue(JobTypeVideoMerge, map[string]interface{}{"waybill_no": "WB-1003"})
	require.NoError(t, err)

	job := waitForStatus(t, q, jobID, JobStatusFailed)
	assert.Equal(t, DefaultMaxRetries, job.RetryCount)
	assert.Equal(t, DefaultMaxRetries, proc.callCount())
	assert.Equal(t, "upstream temporarily unavailable", job.ErrorMsg)
}

func TestQueueRejectsUnregisteredType(t *testing.T) {
	q := newTestQueue(t, 1)
	q.Start()

	jobID, err := q.Enqueue(JobType("thumbnail"), map[string]interface{}{})
	require.NoError(t, err)

	job := waitForStatus(t, q, jobID, JobStatusFailed)
	assert.Contains(t, job.ErrorMsg, "no processor registered")
	assert.Equal(t, 0, job.RetryCount)
}
