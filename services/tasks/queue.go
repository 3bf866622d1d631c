// Package tasksvc is the deferred task layer: request handlers enqueue
// named tasks on NATS and return immediately; a worker pool picks them up
// out of the request path.
package tasksvc

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// envelope is the wire form of a queued task.
type envelope struct {
	Task string          `json:"task"`
	Args json.RawMessage `json:"args"`
}

type natsQueue struct {
	conn    *nats.Conn
	subject string
}

var _ core.TaskQueue = (*natsQueue)(nil)

// Connect opens the NATS connection shared by the queue and the worker.
func Connect(conf *core.Config) (*nats.Conn, error) {
	conn, err := nats.Connect(
		conf.Nats.URL,
		nats.MaxReconnects(-1),
		nats.Name(conf.AppName),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to NATS")
	}
	return conn, nil
}

func NewQueue(conn *nats.Conn, conf *core.Config) core.TaskQueue {
	return &natsQueue{conn: conn, subject: conf.Nats.TaskSubject}
}

func (q *natsQueue) Enqueue(taskName string, args interface{}) error {
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return errors.Wrapf(err, "marshalling args for task %q", taskName)
	}
	data, err := json.Marshal(envelope{Task: taskName, Args: rawArgs})
	if err != nil {
		return errors.Wrapf(err, "marshalling task %q", taskName)
	}
	if err = q.conn.Publish(q.subject, data); err != nil {
		return errors.Wrapf(core.ErrQueueUnavailable, "publishing task %q: %v", taskName, err)
	}
	return nil
}
