package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opstwin/autonomy/service/messaging"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"
)

// Config holds configuration for the file-backed queue. The queue exists so
// that an external process can poll exported audit entries and lifecycle
// events from disk (or any afs-supported scheme).
type Config struct {
	BasePath   string
	MaxRetries int
}

// DefaultConfig returns the standard file queue configuration.
func DefaultConfig() Config {
	return Config{
		BasePath:   "/tmp/autonomy/queue",
		MaxRetries: 3,
	}
}

// envelope is the on-disk representation of a message.
type envelope[T any] struct {
	ID        string    `json:"id"`
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Retries   int       `json:"retries"`
	Error     string    `json:"error,omitempty"`
}

// Message implements messaging.Message for the file-backed queue.
type Message[T any] struct {
	env       envelope[T]
	queue     *Queue[T]
	mu        sync.Mutex
	processed bool
}

// T returns the message payload.
func (m *Message[T]) T() *T { return &m.env.Data }

// Ack archives the message file.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.env.UpdatedAt = time.Now()
	return m.queue.archive(context.Background(), &m.env)
}

// Nack returns the message to the pending directory for another attempt, or
// to the dead-letter directory once retries are exhausted.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.env.Retries++
	m.env.UpdatedAt = time.Now()
	if err != nil {
		m.env.Error = err.Error()
	}
	return m.queue.requeue(context.Background(), &m.env)
}

// Queue implements a file-backed messaging.Queue on top of afs.
type Queue[T any] struct {
	fs          afs.Service
	config      Config
	pendingDir  string
	inflightDir string
	archiveDir  string
	dlqDir      string
	mu          sync.Mutex
}

// NewQueue creates a file-backed queue rooted at config.BasePath.
func NewQueue[T any](fs afs.Service, config Config) (*Queue[T], error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	q := &Queue[T]{
		fs:          fs,
		config:      config,
		pendingDir:  path.Join(config.BasePath, "pending"),
		inflightDir: path.Join(config.BasePath, "inflight"),
		archiveDir:  path.Join(config.BasePath, "archive"),
		dlqDir:      path.Join(config.BasePath, "dlq"),
	}
	ctx := context.Background()
	for _, dir := range []string{q.pendingDir, q.inflightDir, q.archiveDir, q.dlqDir} {
		if exists, _ := fs.Exists(ctx, dir); exists {
			continue
		}
		if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return q, nil
}

// Publish writes a new message into the pending directory.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if t == nil {
		return fmt.Errorf("nil payload")
	}
	now := time.Now()
	env := envelope[T]{
		ID:        uuid.New().String(),
		Data:      *t,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return q.write(ctx, path.Join(q.pendingDir, q.filename(&env)), &env)
}

// Consume claims the oldest pending message by moving it into the inflight
// directory. It returns (nil, nil) when the queue is empty.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	objects, err := q.fs.List(ctx, q.pendingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending messages: %w", err)
	}
	var candidates []storage.Object
	for _, obj := range objects {
		if !obj.IsDir() && strings.HasSuffix(obj.Name(), ".json") {
			candidates = append(candidates, obj)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	// names carry the creation timestamp, so the lexicographic minimum is
	// the oldest message regardless of listing order
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Name() < candidates[j].Name()
	})
	obj := candidates[0]

	env, err := q.read(ctx, obj.URL())
	if err != nil {
		// Unreadable message, park it in the dead-letter directory.
		_ = q.fs.Move(ctx, obj.URL(), path.Join(q.dlqDir, "invalid-"+obj.Name()))
		return nil, err
	}
	env.UpdatedAt = time.Now()
	if err := q.write(ctx, path.Join(q.inflightDir, obj.Name()), env); err != nil {
		return nil, fmt.Errorf("failed to claim message: %w", err)
	}
	if err := q.fs.Delete(ctx, obj.URL()); err != nil {
		return nil, fmt.Errorf("failed to remove pending message: %w", err)
	}
	return &Message[T]{env: *env, queue: q}, nil
}

func (q *Queue[T]) archive(ctx context.Context, env *envelope[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	name := q.filename(env)
	if err := q.write(ctx, path.Join(q.archiveDir, name), env); err != nil {
		return err
	}
	return q.discardInflight(ctx, name)
}

func (q *Queue[T]) requeue(ctx context.Context, env *envelope[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	name := q.filename(env)
	target := path.Join(q.pendingDir, name)
	if env.Retries > q.config.MaxRetries {
		target = path.Join(q.dlqDir, name)
	}
	if err := q.write(ctx, target, env); err != nil {
		return err
	}
	return q.discardInflight(ctx, name)
}

func (q *Queue[T]) discardInflight(ctx context.Context, name string) error {
	inflight := path.Join(q.inflightDir, name)
	if exists, _ := q.fs.Exists(ctx, inflight); exists {
		return q.fs.Delete(ctx, inflight)
	}
	return nil
}

// filename prefixes the zero-padded creation time so that names sort in
// publish order; requeued messages keep their original position.
func (q *Queue[T]) filename(env *envelope[T]) string {
	return fmt.Sprintf("%020d_%s.json", env.CreatedAt.UnixNano(), env.ID)
}

func (q *Queue[T]) write(ctx context.Context, dest string, env *envelope[T]) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return q.fs.Upload(ctx, dest, file.DefaultFileOsMode, bytes.NewBuffer(data))
}

func (q *Queue[T]) read(ctx context.Context, url string) (*envelope[T], error) {
	data, err := q.fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", url, err)
	}
	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", url, err)
	}
	return &env, nil
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
