package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type enqueued struct {
	task string
	args interface{}
}

type fakeQueue struct {
	tasks []enqueued
	err   error
}

func (q *fakeQueue) Enqueue(task string, args interface{}) error {
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, enqueued{task, args})
	return nil
}

func bridgeFixtures() (course.Course, user.User) {
	instructor := user.User{ID: 1, Username: "profsmith", Email: "smith@test.cd", FullName: "Prof Smith", Role: user.RoleTeacher}
	crs := course.Course{ID: 7, Title: "Introduction to Go", Instructor: instructor}
	return crs, instructor
}

func TestBridge_EnrollmentCreated(t *testing.T) {
	reg := NewRegistry()
	queue := &fakeQueue{}
	bridge := NewBridge(reg, queue, testLogger{})

	crs, instructor := bridgeFixtures()
	student := user.User{ID: 2, Username: "alice", FullName: "Alice W", Role: user.RoleStudent}

	sub := NewSubscriber()
	reg.Join(NotificationGroup(instructor.Username), sub)

	err := bridge.EnrollmentCreated(crs, course.Enrollment{Student: student, CourseID: crs.ID})
	assert.NoError(t, err)

	// exactly one email task, addressed by record IDs
	assert.Len(t, queue.tasks, 1)
	assert.Equal(t, core.TaskSendEnrollmentEmail, queue.tasks[0].task)
	assert.Equal(t, core.EnrollmentEmailArgs{CourseID: crs.ID, StudentID: student.ID}, queue.tasks[0].args)

	// exactly one live notification to the instructor's group
	evts := drain(sub)
	assert.Len(t, evts, 1)
	notif := evts[0].(Notification)
	assert.Equal(t, NotificationEnrollment, notif.Type)
	assert.Equal(t, "Alice W has enrolled in your course: Introduction to Go.", notif.Message)
}

func TestBridge_MaterialCreated(t *testing.T) {
	reg := NewRegistry()
	queue := &fakeQueue{}
	bridge := NewBridge(reg, queue, testLogger{})

	crs, _ := bridgeFixtures()
	studentA := user.User{ID: 2, Username: "alice", Role: user.RoleStudent}
	studentB := user.User{ID: 3, Username: "bob", Role: user.RoleStudent}

	subA := NewSubscriber()
	subB := NewSubscriber()
	reg.Join(NotificationGroup("alice"), subA)
	reg.Join(NotificationGroup("bob"), subB)

	mat := course.Material{ID: 11, CourseID: crs.ID, Name: "week1.pdf"}
	err := bridge.MaterialCreated(crs, mat, []user.User{studentA, studentB})
	assert.NoError(t, err)

	assert.Len(t, queue.tasks, 1)
	assert.Equal(t, core.TaskSendMaterialEmail, queue.tasks[0].task)

	// one separate publish per enrolled student
	for _, sub := range []*Subscriber{subA, subB} {
		evts := drain(sub)
		assert.Len(t, evts, 1)
		notif := evts[0].(Notification)
		assert.Equal(t, NotificationNewMaterial, notif.Type)
		assert.Equal(t, "New material added to your course: Introduction to Go.", notif.Message)
	}
}

func TestBridge_QueueFailureDoesNotBlockBroadcast(t *testing.T) {
	reg := NewRegistry()
	queue := &fakeQueue{err: core.ErrQueueUnavailable}
	bridge := NewBridge(reg, queue, testLogger{})

	crs, instructor := bridgeFixtures()
	student := user.User{ID: 2, Username: "alice", FullName: "Alice W"}

	sub := NewSubscriber()
	reg.Join(NotificationGroup(instructor.Username), sub)

	err := bridge.EnrollmentCreated(crs, course.Enrollment{Student: student, CourseID: crs.ID})
	assert.Error(t, err, "queue failure surfaces to the caller")

	// ... but the live notification still went out
	assert.Len(t, drain(sub), 1)
}

func TestBridge_MaterialCreatedNoStudents(t *testing.T) {
	reg := NewRegistry()
	queue := &fakeQueue{}
	bridge := NewBridge(reg, queue, testLogger{})

	crs, _ := bridgeFixtures()
	err := bridge.MaterialCreated(crs, course.Material{CourseID: crs.ID}, nil)
	assert.NoError(t, err)
	assert.Len(t, queue.tasks, 1, "email task still queued; worker resolves recipients")
}
