package jobs

import (
	"context"
	"fmt"
	"time"

	"academy/backend/services/progress"
	"academy/backend/utils"

	"github.com/bytedance/sonic"
	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
)

const (
	TypeRefreshProfile = "profile:refresh"
)

type ProfilePayload struct {
	UserID uint `json:"user_id"`
}

// Dispatcher hands work to the background. Controllers only see this.
type Dispatcher interface {
	EnqueueProfileRefresh(ctx context.Context, userID uint) error
}

// NewDispatcher returns an asynq-backed dispatcher when redisURL is set and
// an inline one otherwise. The returned stop function is always safe to call.
func NewDispatcher(redisURL string, refresher *progress.ProfileRefresher, log *utils.Logger) (Dispatcher, func(), error) {
	if redisURL == "" {
		return &InlineDispatcher{Refresher: refresher, Log: log}, func() {}, nil
	}
	jm, err := NewJobManager(redisURL, log)
	if err != nil {
		return nil, nil, err
	}
	jm.RegisterHandlers(refresher)
	if err := jm.Start(); err != nil {
		return nil, nil, err
	}
	return jm, jm.Stop, nil
}

// InlineDispatcher runs jobs on the calling goroutine.
type InlineDispatcher struct {
	Refresher *progress.ProfileRefresher
	Log       *utils.Logger
}

func (d *InlineDispatcher) EnqueueProfileRefresh(ctx context.Context, userID uint) error {
	_, err := d.Refresher.Refresh(ctx, userID)
	if err != nil && d.Log != nil {
		d.Log.Error(err, "inline profile refresh user=%d", userID)
	}
	return err
}

type JobManager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *utils.Logger
}

func NewJobManager(redisURL string, log *utils.Logger) (*JobManager, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse REDIS_URL")
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"default": 3,
			"low":     1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error(err, "job failed: type=%s", task.Type())
		}),
		Logger: &asynqLogger{log: log},
	})

	return &JobManager{
		client: asynq.NewClient(redisOpt),
		server: server,
		mux:    asynq.NewServeMux(),
		log:    log,
	}, nil
}

func (jm *JobManager) RegisterHandlers(refresher *progress.ProfileRefresher) {
	jm.mux.HandleFunc(TypeRefreshProfile, handleRefreshProfile(refresher, jm.log))
}

// Start launches the worker without blocking.
func (jm *JobManager) Start() error {
	jm.log.Info("starting job queue worker")
	return jm.server.Start(jm.mux)
}

func (jm *JobManager) Stop() {
	jm.log.Info("stopping job queue")
	jm.server.Shutdown()
	jm.client.Close()
}

func (jm *JobManager) EnqueueProfileRefresh(ctx context.Context, userID uint) error {
	payload, err := sonic.Marshal(ProfilePayload{UserID: userID})
	if err != nil {
		return errors.Wrap(err, "marshal profile payload")
	}

	task := asynq.NewTask(TypeRefreshProfile, payload)
	info, err := jm.client.EnqueueContext(ctx, task,
		asynq.Queue("low"),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Unique(time.Minute),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "enqueue profile refresh")
	}
	jm.log.Info("queued profile refresh id=%s user=%d", info.ID, userID)
	return nil
}

func handleRefreshProfile(refresher *progress.ProfileRefresher, log *utils.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload ProfilePayload
		if err := sonic.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal profile payload: %v: %w", err, asynq.SkipRetry)
		}
		if _, err := refresher.Refresh(ctx, payload.UserID); err != nil {
			return err
		}
		log.Info("refreshed profile user=%d", payload.UserID)
		return nil
	}
}

type asynqLogger struct {
	log *utils.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {}

func (l *asynqLogger) Info(args ...interface{}) {
	l.log.Info("%s", fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.log.Warn("%s", fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.log.Error(errors.New(fmt.Sprint(args...)), "asynq")
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.log.Error(errors.New(fmt.Sprint(args...)), "asynq fatal")
}
