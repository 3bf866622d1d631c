package realtime

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

// Bridge reacts to persistence creation events with two independent
// effects: a deferred notification email handed to the task queue, and an
// immediate best-effort live publish into the registry. Either effect may
// fail without affecting the other or the committed write.
type Bridge struct {
	registry *Registry
	queue    core.TaskQueue
	logger   core.Logger
}

var _ course.EventSink = (*Bridge)(nil)

func NewBridge(registry *Registry, queue core.TaskQueue, logger core.Logger) *Bridge {
	return &Bridge{registry: registry, queue: queue, logger: logger}
}

// EnrollmentCreated notifies the course's instructor: a queued email task
// plus a live "enrollment" notification to the instructor's group.
func (b *Bridge) EnrollmentCreated(crs course.Course, enr course.Enrollment) error {
	var queueErr error
	if err := b.queue.Enqueue(core.TaskSendEnrollmentEmail, core.EnrollmentEmailArgs{
		CourseID:  crs.ID,
		StudentID: enr.Student.ID,
	}); err != nil {
		queueErr = errors.Wrap(err, "queuing enrollment email")
	}

	b.registry.Publish(NotificationGroup(crs.Instructor.Username), Notification{
		Message: fmt.Sprintf("%s has enrolled in your course: %s.", enr.Student.FullName, crs.Title),
		Type:    NotificationEnrollment,
	})
	return queueErr
}

// MaterialCreated notifies every enrolled student: one queued email task
// covering all of them, and one live "new_material" notification per
// student (each student's group is distinct).
func (b *Bridge) MaterialCreated(crs course.Course, _ course.Material, enrolledStudents []user.User) error {
	var queueErr error
	if err := b.queue.Enqueue(core.TaskSendMaterialEmail, core.MaterialEmailArgs{
		CourseID: crs.ID,
	}); err != nil {
		queueErr = errors.Wrap(err, "queuing material email")
	}

	msg := fmt.Sprintf("New material added to your course: %s.", crs.Title)
	for _, student := range enrolledStudents {
		b.registry.Publish(NotificationGroup(student.Username), Notification{
			Message: msg,
			Type:    NotificationNewMaterial,
		})
	}
	return queueErr
}
