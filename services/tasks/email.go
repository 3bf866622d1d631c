package tasksvc

import (
	"encoding/json"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

// EmailTasks holds the notification email handlers. Records are re-fetched
// by ID at execution time so a retried task always sees current data.
type EmailTasks struct {
	courseRepo course.Repository
	userRepo   user.Repository
	mailSvc    core.EmailService
}

func NewEmailTasks(courseRepo course.Repository, userRepo user.Repository, mailSvc core.EmailService) *EmailTasks {
	return &EmailTasks{courseRepo: courseRepo, userRepo: userRepo, mailSvc: mailSvc}
}

// RegisterHandlers binds the email tasks on the worker.
func (t *EmailTasks) RegisterHandlers(w *Worker) {
	w.Register(core.TaskSendEnrollmentEmail, t.SendEnrollmentEmail)
	w.Register(core.TaskSendMaterialEmail, t.SendMaterialEmail)
}

// SendEnrollmentEmail emails the course's instructor about a new enrollment.
func (t *EmailTasks) SendEnrollmentEmail(rawArgs json.RawMessage) error {
	var args core.EnrollmentEmailArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return errors.Wrap(err, "unmarshalling enrollment email args")
	}

	crs, err := t.courseRepo.GetCourseByID(args.CourseID)
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	student, err := t.userRepo.GetUserByID(args.StudentID)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}

	t.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: crs.Instructor.FullName, Address: crs.Instructor.Email}},
		Subject: "New Enrollment",
		BodyStr: fmt.Sprintf("%s has enrolled in your course: %s.", student.FullName, crs.Title),
	})
	return nil
}

// SendMaterialEmail emails every enrolled student about new course material.
func (t *EmailTasks) SendMaterialEmail(rawArgs json.RawMessage) error {
	var args core.MaterialEmailArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return errors.Wrap(err, "unmarshalling material email args")
	}

	crs, err := t.courseRepo.GetCourseByID(args.CourseID)
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	students, err := t.courseRepo.QueryEnrolledStudents(crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrolled students")
	}
	if len(students) == 0 {
		return nil
	}

	to := make([]mail.Address, 0, len(students))
	for _, s := range students {
		to = append(to, mail.Address{Name: s.FullName, Address: s.Email})
	}
	t.mailSvc.SendMessages(&core.EmailMessage{
		To:      to,
		Subject: "New Course Material",
		BodyStr: fmt.Sprintf("New material has been added to your course: %s.", crs.Title),
	})
	return nil
}
