package core

import "github.com/pkg/errors"

// ErrQueueUnavailable is returned when a deferred task could not be handed
// to the queue. The originating write has already been committed by then;
// callers surface the error without rolling anything back.
var ErrQueueUnavailable = errors.New("task queue unavailable")

// Task names.
const (
	TaskSendEnrollmentEmail = "send_enrollment_email"
	TaskSendMaterialEmail   = "send_material_email"
)

type (
	// EnrollmentEmailArgs are the args for TaskSendEnrollmentEmail.
	EnrollmentEmailArgs struct {
		CourseID  int `json:"course_id"`
		StudentID int `json:"student_id"`
	}

	// MaterialEmailArgs are the args for TaskSendMaterialEmail.
	MaterialEmailArgs struct {
		CourseID int `json:"course_id"`
	}

	// TaskQueue hands units of work to an out-of-process worker pool.
	// Execution is at-least-once with the queue's own retry policy;
	// Enqueue returns as soon as the task has been accepted by the broker.
	TaskQueue interface {
		Enqueue(taskName string, args interface{}) error
	}
)
