package course

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("course not found")
	ErrMaterialNotFound = errors.New("material not found")
	ErrFeedbackNotFound = errors.New("feedback not found")
	ErrAlreadyEnrolled  = errors.New("student is already enrolled in this course")
	ErrNotEnrolled      = errors.New("student is not enrolled in this course")
)

type (
	Repository interface {
		CreateCourse(crs Course) (Course, error)
		QueryAllCourses() ([]Course, error)
		GetCourseByID(id int) (Course, error)
		DeleteCourse(id int) error

		CreateEnrollment(enr Enrollment) (Enrollment, error)
		GetEnrollment(studentID, courseID int) (Enrollment, error)
		DeleteEnrollment(studentID, courseID int) error
		// QueryEnrolledStudents returns the users enrolled in the course.
		QueryEnrolledStudents(courseID int) ([]user.User, error)

		CreateMaterial(mat Material) (Material, error)
		GetMaterialByID(id int) (Material, error)
		QueryCourseMaterials(courseID int) ([]Material, error)
		DeleteMaterial(id int) error

		CreateFeedback(fb Feedback) (Feedback, error)
		GetFeedbackByID(id int) (Feedback, error)
		QueryCourseFeedback(courseID int) ([]Feedback, error)
		DeleteFeedback(id int) error
	}

	Service struct {
		repo Repository
		sink EventSink
	}
)

func NewService(repo Repository, sink EventSink) *Service {
	if sink == nil {
		sink = NopSink{}
	}
	return &Service{repo: repo, sink: sink}
}

func (svc *Service) Create(instructor user.User, nc NewCourse) (Course, error) {
	return svc.repo.CreateCourse(Course{
		Title:       core.CleanString(nc.Title),
		Description: core.CleanString(nc.Description),
		Instructor:  instructor,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) QueryAll() ([]Course, error) {
	return svc.repo.QueryAllCourses()
}

func (svc *Service) GetByID(id int) (Course, error) {
	return svc.repo.GetCourseByID(id)
}

func (svc *Service) Delete(id int) error {
	return svc.repo.DeleteCourse(id)
}

// Enroll enrolls student in the course. Once the enrollment is committed,
// the event sink fires the notification side effects; a sink error is
// returned alongside the (already persisted) enrollment.
func (svc *Service) Enroll(student user.User, courseID int) (Enrollment, error) {
	crs, err := svc.repo.GetCourseByID(courseID)
	if err != nil {
		return Enrollment{}, err
	}
	enr, err := svc.repo.CreateEnrollment(Enrollment{
		Student:      student,
		CourseID:     crs.ID,
		DateEnrolled: time.Now().UTC(),
	})
	if err != nil {
		return Enrollment{}, err
	}
	if err = svc.sink.EnrollmentCreated(crs, enr); err != nil {
		return enr, errors.Wrap(err, "dispatching enrollment event")
	}
	return enr, nil
}

func (svc *Service) Unenroll(student user.User, courseID int) error {
	return svc.repo.DeleteEnrollment(student.ID, courseID)
}

func (svc *Service) IsEnrolled(student user.User, courseID int) bool {
	_, err := svc.repo.GetEnrollment(student.ID, courseID)
	return err == nil
}

func (svc *Service) EnrolledStudents(courseID int) ([]user.User, error) {
	return svc.repo.QueryEnrolledStudents(courseID)
}

// AddMaterial records uploaded course material. Like Enroll, the sink
// fires after commit and its error does not undo the write.
func (svc *Service) AddMaterial(courseID int, nm NewMaterial) (Material, error) {
	crs, err := svc.repo.GetCourseByID(courseID)
	if err != nil {
		return Material{}, err
	}
	mat, err := svc.repo.CreateMaterial(Material{
		CourseID: crs.ID,
		Name:     core.CleanString(nm.Name),
		File:     nm.File,
	})
	if err != nil {
		return Material{}, err
	}
	students, err := svc.repo.QueryEnrolledStudents(crs.ID)
	if err != nil {
		return mat, errors.Wrap(err, "querying enrolled students")
	}
	if err = svc.sink.MaterialCreated(crs, mat, students); err != nil {
		return mat, errors.Wrap(err, "dispatching material event")
	}
	return mat, nil
}

func (svc *Service) GetMaterial(id int) (Material, error) {
	return svc.repo.GetMaterialByID(id)
}

func (svc *Service) Materials(courseID int) ([]Material, error) {
	return svc.repo.QueryCourseMaterials(courseID)
}

func (svc *Service) DeleteMaterial(id int) error {
	return svc.repo.DeleteMaterial(id)
}

func (svc *Service) LeaveFeedback(student user.User, courseID int, nf NewFeedback) (Feedback, error) {
	if _, err := svc.repo.GetEnrollment(student.ID, courseID); err != nil {
		return Feedback{}, err
	}
	return svc.repo.CreateFeedback(Feedback{
		CourseID:  courseID,
		Student:   student,
		Text:      core.CleanString(nf.Text),
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) GetFeedback(id int) (Feedback, error) {
	return svc.repo.GetFeedbackByID(id)
}

func (svc *Service) Feedback(courseID int) ([]Feedback, error) {
	return svc.repo.QueryCourseFeedback(courseID)
}

func (svc *Service) DeleteFeedback(id int) error {
	return svc.repo.DeleteFeedback(id)
}
