package course

import "github.com/trezcool/darasa/core/user"

// EventSink receives persistence creation events after the corresponding
// database write has committed. Implementations trigger side effects
// (deferred emails, live notifications); an error from a sink surfaces to
// the caller but never rolls the write back.
type EventSink interface {
	EnrollmentCreated(crs Course, enr Enrollment) error
	MaterialCreated(crs Course, mat Material, enrolledStudents []user.User) error
}

// NopSink is an EventSink that does nothing.
type NopSink struct{}

func (NopSink) EnrollmentCreated(Course, Enrollment) error              { return nil }
func (NopSink) MaterialCreated(Course, Material, []user.User) error     { return nil }
