package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"repair-ops/cache"
	"repair-ops/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefixes
	JobKeyPrefix     = "job:"
	JobQueueKey      = "job_queue"
	JobProcessingKey = "job_processing"

	// Job settings
	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour
)

// Processor handles one job type.
type Processor interface {
	Process(job *Job) error
}

// Queue manages background jobs using Redis
type Queue struct {
	client     *redis.Client
	processors map[JobType]Processor
	workers    int
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

// NewQueue creates a new job queue
func NewQueue(workers int) *Queue {
	if workers <= 0 {
		workers = 2
	}

	return &Queue{
		client:     cache.GetClient(),
		processors: make(map[JobType]Processor),
		workers:    workers,
		stopCh:     make(chan struct{}),
	}
}

// Register binds a processor to a job type. Must be called before Start.
func (q *Queue) Register(jobType JobType, p Processor) {
	q.processors[jobType] = p
}

// Enqueue stores a job and pushes its id onto the queue.
func (q *Queue) Enqueue(jobType JobType, payload map[string]interface{}) (string, error) {
	now := time.Now()
	job := &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}

	ctx := context.Background()
	if err := q.saveJob(ctx, job); err != nil {
		return "", err
	}
	if err := q.client.LPush(ctx, JobQueueKey, job.ID).Err(); err != nil {
		return "", fmt.Errorf("failed to push job onto queue: %w", err)
	}

	logger.Infof("[JobQueue] Enqueued %s job %s", job.Type, job.ID)
	return job.ID, nil
}

// GetJob loads a job by id.
func (q *Queue) GetJob(jobID string) (*Job, error) {
	data, err := q.client.Get(context.Background(), JobKeyPrefix+jobID).Result()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (q *Queue) saveJob(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now()
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err()
}

// Start starts the job queue workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.running = true
	logger.Infof("[JobQueue] Starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop stops the job queue workers
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	logger.Info("[JobQueue] Stopping workers...")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	logger.Info("[JobQueue] All workers stopped")
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		default:
		}

		jobID, err := q.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, 2*time.Second).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			logger.Error(fmt.Sprintf("[JobQueue] Worker %d pop error", id), err)
			time.Sleep(time.Second)
			continue
		}

		q.processJob(ctx, jobID)
	}
}

func (q *Queue) processJob(ctx context.Context, jobID string) {
	defer q.client.LRem(ctx, JobProcessingKey, 1, jobID)

	job, err := q.GetJob(jobID)
	if err != nil {
		logger.Error(fmt.Sprintf("[JobQueue] Job %s data missing", jobID), err)
		return
	}

	processor, ok := q.processors[job.Type]
	if !ok {
		job.Status = JobStatusFailed
		job.ErrorMsg = fmt.Sprintf("no processor registered for type %s", job.Type)
		_ = q.saveJob(ctx, job)
		logger.Error("[JobQueue] "+job.ErrorMsg, nil)
		return
	}

	now := time.Now()
	job.Status = JobStatusProcessing
	job.ProcessedAt = &now
	_ = q.saveJob(ctx, job)

	if err := processor.Process(job); err != nil {
		job.RetryCount++
		job.ErrorMsg = err.Error()
		if job.RetryCount < job.MaxRetries {
			job.Status = JobStatusRetrying
			_ = q.saveJob(ctx, job)
			_ = q.client.LPush(ctx, JobQueueKey, job.ID).Err()
			logger.Warning(fmt.Sprintf("[JobQueue] Job %s failed (retry %d/%d): %v", job.ID, job.RetryCount, job.MaxRetries, err))
		} else {
			job.Status = JobStatusFailed
			_ = q.saveJob(ctx, job)
			logger.Error(fmt.Sprintf("[JobQueue] Job %s failed permanently after %d retries", job.ID, job.RetryCount), err)
		}
		return
	}

	done := time.Now()
	job.Status = JobStatusCompleted
	job.CompletedAt = &done
	job.ErrorMsg = ""
	_ = q.saveJob(ctx, job)
	logger.Success(fmt.Sprintf("[JobQueue] Job %s (%s) completed", job.ID, job.Type))
}
