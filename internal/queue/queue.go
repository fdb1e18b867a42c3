package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const queueKey = "queue:jobs"

// JobType identifies the handler a job is dispatched to
type JobType string

// Job is one unit of background work
type Job struct {
	ID        uuid.UUID       `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// JobHandler processes a dequeued job
type JobHandler func(ctx context.Context, job Job) error

// Queue is the enqueue-side contract services depend on
type Queue interface {
	Enqueue(ctx context.Context, jobType JobType, payload interface{}) (uuid.UUID, error)
}

// RedisQueue is a Redis-backed job queue. Jobs are pushed to a list and a
// single worker goroutine pops and dispatches them.
type RedisQueue struct {
	client   *redis.Client
	handlers map[JobType]JobHandler
	stop     chan struct{}
}

// NewRedisQueue creates a new Redis-backed queue
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{
		client:   client,
		handlers: make(map[JobType]JobHandler),
		stop:     make(chan struct{}),
	}
}

// RegisterHandler registers a handler for a job type. Handlers must be
// registered before StartProcessing.
func (q *RedisQueue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.handlers[jobType] = handler
}

// Enqueue serializes a job and pushes it onto the queue
func (q *RedisQueue) Enqueue(ctx context.Context, jobType JobType, payload interface{}) (uuid.UUID, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := Job{
		ID:        uuid.New(),
		Type:      jobType,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.LPush(ctx, queueKey, data).Err(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return job.ID, nil
}

// StartProcessing runs the worker loop until Stop is called
func (q *RedisQueue) StartProcessing() {
	go q.run()
}

// Stop terminates the worker loop
func (q *RedisQueue) Stop() {
	close(q.stop)
}

func (q *RedisQueue) run() {
	ctx := context.Background()
	for {
		select {
		case <-q.stop:
			return
		default:
		}

		result, err := q.client.BRPop(ctx, 5*time.Second, queueKey).Result()
		if err != nil {
			if err != redis.Nil {
				log.Printf("queue: error popping job: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("queue: discarding malformed job: %v", err)
			continue
		}

		handler, ok := q.handlers[job.Type]
		if !ok {
			log.Printf("queue: no handler for job type %s", job.Type)
			continue
		}

		if err := handler(ctx, job); err != nil {
			log.Printf("queue: job %s (%s) failed: %v", job.ID, job.Type, err)
		}
	}
}
