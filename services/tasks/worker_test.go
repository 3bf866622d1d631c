package tasksvc

import (
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
)

type loggerStub struct {
	errored int
}

func (l *loggerStub) Debug(string, ...interface{}) {}
func (l *loggerStub) Info(string, ...interface{})  {}
func (l *loggerStub) Warn(string, ...interface{})  {}
func (l *loggerStub) Error(string, ...interface{}) { l.errored++ }
func (l *loggerStub) Fatal(string, ...interface{}) {}

func newTestWorker() (*Worker, *loggerStub) {
	logger := new(loggerStub)
	conf := &core.Config{Nats: core.NatsConfig{TaskSubject: "darasa.tasks", WorkerQueue: "darasa-workers"}}
	return NewWorker(nil, conf, logger), logger
}

func taskMsg(t *testing.T, task string, args interface{}) *nats.Msg {
	t.Helper()
	rawArgs, err := json.Marshal(args)
	require.NoError(t, err)
	data, err := json.Marshal(envelope{Task: task, Args: rawArgs})
	require.NoError(t, err)
	return &nats.Msg{Subject: "darasa.tasks", Data: data}
}

func TestWorker_dispatch(t *testing.T) {
	t.Run("routes to the registered handler", func(t *testing.T) {
		w, logger := newTestWorker()

		var got core.EnrollmentEmailArgs
		w.Register(core.TaskSendEnrollmentEmail, func(args json.RawMessage) error {
			return json.Unmarshal(args, &got)
		})

		w.dispatch(taskMsg(t, core.TaskSendEnrollmentEmail, core.EnrollmentEmailArgs{CourseID: 7, StudentID: 3}))

		assert.Equal(t, core.EnrollmentEmailArgs{CourseID: 7, StudentID: 3}, got)
		assert.Zero(t, logger.errored)
	})

	t.Run("unparseable payload is dropped", func(t *testing.T) {
		w, logger := newTestWorker()
		w.dispatch(&nats.Msg{Data: []byte(`{not json`)})
		assert.Equal(t, 1, logger.errored)
	})

	t.Run("unknown task is dropped", func(t *testing.T) {
		w, logger := newTestWorker()
		w.dispatch(taskMsg(t, "no_such_task", nil))
		assert.Equal(t, 1, logger.errored)
	})

	t.Run("handler error is logged, not fatal", func(t *testing.T) {
		w, logger := newTestWorker()
		w.Register(core.TaskSendMaterialEmail, func(json.RawMessage) error {
			return errors.New("smtp down")
		})
		w.dispatch(taskMsg(t, core.TaskSendMaterialEmail, core.MaterialEmailArgs{CourseID: 1}))
		assert.Equal(t, 1, logger.errored)
	})
}
