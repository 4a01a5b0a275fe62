package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"ludobackend/internal/tasks"
)

// Server wraps an asynq.Server, registering every background task handler
// the application needs and exposing Start/Shutdown for bootstrap to drive.
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logrus.Entry
}

func NewServer(redisOpt asynq.RedisClientOpt) *Server {
	log := logrus.WithField("component", "worker_server")

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.WithField("task_type", task.Type()).WithError(err).Error("background task failed")
		}),
	})

	return &Server{server: server, mux: asynq.NewServeMux(), log: log}
}

// RegisterEventLogCompaction wires the compaction handler into the server's
// mux. Split from NewServer so bootstrap can build the handler with its own
// duration type without this package importing time-conversion helpers.
func (s *Server) RegisterEventLogCompaction(handler *EventLogCompactionHandler) {
	s.mux.HandleFunc(tasks.TypeEventLogCompaction, handler.ProcessTask)
}

// Start runs the server; call from its own goroutine.
func (s *Server) Start() {
	s.log.Info("worker server starting")
	if err := s.server.Run(s.mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			s.log.WithError(err).Fatal("worker server stopped unexpectedly")
		}
	}
	s.log.Info("worker server stopped")
}

func (s *Server) Shutdown() {
	s.log.Info("worker server shutting down")
	s.server.Shutdown()
}
