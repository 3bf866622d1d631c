package tasksvc

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// Handler executes one task. A returned error is logged; redelivery is the
// broker's concern.
type Handler func(args json.RawMessage) error

// Worker consumes the task subject as part of a queue group, so tasks are
// load-balanced across worker processes.
type Worker struct {
	conn     *nats.Conn
	subject  string
	queue    string
	handlers map[string]Handler
	logger   core.Logger
	sub      *nats.Subscription
}

func NewWorker(conn *nats.Conn, conf *core.Config, logger core.Logger) *Worker {
	return &Worker{
		conn:     conn,
		subject:  conf.Nats.TaskSubject,
		queue:    conf.Nats.WorkerQueue,
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register binds a handler to a task name. Not safe to call after Start.
func (w *Worker) Register(taskName string, h Handler) {
	w.handlers[taskName] = h
}

func (w *Worker) Start() error {
	sub, err := w.conn.QueueSubscribe(w.subject, w.queue, w.dispatch)
	if err != nil {
		return errors.Wrap(err, "subscribing to task subject")
	}
	w.sub = sub
	return nil
}

func (w *Worker) Stop() error {
	if w.sub == nil {
		return nil
	}
	return w.sub.Drain()
}

func (w *Worker) dispatch(msg *nats.Msg) {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		w.logger.Error("dropping unparseable task", errors.Wrap(err, "unmarshalling task envelope"))
		return
	}
	h, ok := w.handlers[env.Task]
	if !ok {
		w.logger.Error("dropping task with no registered handler", map[string]interface{}{"task": env.Task})
		return
	}
	if err := h(env.Args); err != nil {
		w.logger.Error("task failed", errors.Wrapf(err, "running task %q", env.Task))
	}
}
