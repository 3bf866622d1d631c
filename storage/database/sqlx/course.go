package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

// course rows join the instructor in one round trip; the u_ prefix keeps
// sqlx column mapping unambiguous.
type courseRow struct {
	ID          int       `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	Instructor  userRow   `db:"u"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Instructor:  r.Instructor.toUser(),
		CreatedAt:   r.CreatedAt,
	}
}

const courseColumns = `
	c.id, c.title, c.description, c.created_at,
	u.id "u.id", u.username "u.username", u.email "u.email", u.full_name "u.full_name",
	u.role "u.role", u.photo "u.photo", u.is_active "u.is_active", u.password_hash "u.password_hash",
	u.created_at "u.created_at", u.updated_at "u.updated_at", u.last_login "u.last_login"`

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sql.DB) course.Repository {
	return &courseRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *courseRepository) CreateCourse(crs course.Course) (course.Course, error) {
	query := repo.db.Rebind(`
		INSERT INTO course (title, description, instructor_id, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`)
	err := repo.db.QueryRow(query, crs.Title, crs.Description, crs.Instructor.ID, crs.CreatedAt).Scan(&crs.ID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo *courseRepository) QueryAllCourses() ([]course.Course, error) {
	var rows []courseRow
	query := `SELECT ` + courseColumns + ` FROM course c JOIN "user" u ON u.id = c.instructor_id ORDER BY c.created_at DESC`
	if err := repo.db.Select(&rows, query); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(id int) (course.Course, error) {
	var row courseRow
	query := repo.db.Rebind(`SELECT ` + courseColumns + ` FROM course c JOIN "user" u ON u.id = c.instructor_id WHERE c.id = ?`)
	if err := repo.db.Get(&row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) DeleteCourse(id int) error {
	res, err := repo.db.Exec(repo.db.Rebind(`DELETE FROM course WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrNotFound
	}
	return nil
}

// Enrollments

func (repo *courseRepository) CreateEnrollment(enr course.Enrollment) (course.Enrollment, error) {
	query := repo.db.Rebind(`
		INSERT INTO enrollment (student_id, course_id, date_enrolled)
		VALUES (?, ?, ?)
		RETURNING id`)
	err := repo.db.QueryRow(query, enr.Student.ID, enr.CourseID, enr.DateEnrolled).Scan(&enr.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

func (repo *courseRepository) GetEnrollment(studentID, courseID int) (course.Enrollment, error) {
	var row struct {
		ID           int       `db:"id"`
		CourseID     int       `db:"course_id"`
		DateEnrolled time.Time `db:"date_enrolled"`
		Student      userRow   `db:"u"`
	}
	query := repo.db.Rebind(`
		SELECT e.id, e.course_id, e.date_enrolled,
		       u.id "u.id", u.username "u.username", u.email "u.email", u.full_name "u.full_name",
		       u.role "u.role", u.photo "u.photo", u.is_active "u.is_active", u.password_hash "u.password_hash",
		       u.created_at "u.created_at", u.updated_at "u.updated_at", u.last_login "u.last_login"
		FROM enrollment e JOIN "user" u ON u.id = e.student_id
		WHERE e.student_id = ? AND e.course_id = ?`)
	if err := repo.db.Get(&row, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return course.Enrollment{}, course.ErrNotEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return course.Enrollment{
		ID:           row.ID,
		Student:      row.Student.toUser(),
		CourseID:     row.CourseID,
		DateEnrolled: row.DateEnrolled,
	}, nil
}

func (repo *courseRepository) DeleteEnrollment(studentID, courseID int) error {
	query := repo.db.Rebind(`DELETE FROM enrollment WHERE student_id = ? AND course_id = ?`)
	res, err := repo.db.Exec(query, studentID, courseID)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrNotEnrolled
	}
	return nil
}

func (repo *courseRepository) QueryEnrolledStudents(courseID int) ([]user.User, error) {
	var rows []userRow
	query := repo.db.Rebind(`
		SELECT u.id, u.username, u.email, u.full_name, u.role, u.photo, u.is_active,
		       u.password_hash, u.created_at, u.updated_at, u.last_login
		FROM "user" u JOIN enrollment e ON e.student_id = u.id
		WHERE e.course_id = ?
		ORDER BY e.date_enrolled`)
	if err := repo.db.Select(&rows, query, courseID); err != nil {
		return nil, errors.Wrap(err, "querying enrolled students")
	}
	students := make([]user.User, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toUser())
	}
	return students, nil
}

// Materials

type materialRow struct {
	ID       int    `db:"id"`
	CourseID int    `db:"course_id"`
	Name     string `db:"name"`
	File     string `db:"file"`
}

func (r materialRow) toMaterial() course.Material {
	return course.Material{ID: r.ID, CourseID: r.CourseID, Name: r.Name, File: r.File}
}

func (repo *courseRepository) CreateMaterial(mat course.Material) (course.Material, error) {
	query := repo.db.Rebind(`INSERT INTO course_material (course_id, name, file) VALUES (?, ?, ?) RETURNING id`)
	err := repo.db.QueryRow(query, mat.CourseID, mat.Name, mat.File).Scan(&mat.ID)
	if err != nil {
		return course.Material{}, errors.Wrap(err, "creating material")
	}
	return mat, nil
}

func (repo *courseRepository) GetMaterialByID(id int) (course.Material, error) {
	var row materialRow
	query := repo.db.Rebind(`SELECT id, course_id, name, file FROM course_material WHERE id = ?`)
	if err := repo.db.Get(&row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Material{}, course.ErrMaterialNotFound
		}
		return course.Material{}, errors.Wrap(err, "getting material")
	}
	return row.toMaterial(), nil
}

func (repo *courseRepository) QueryCourseMaterials(courseID int) ([]course.Material, error) {
	var rows []materialRow
	query := repo.db.Rebind(`SELECT id, course_id, name, file FROM course_material WHERE course_id = ? ORDER BY id`)
	if err := repo.db.Select(&rows, query, courseID); err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	materials := make([]course.Material, 0, len(rows))
	for _, row := range rows {
		materials = append(materials, row.toMaterial())
	}
	return materials, nil
}

func (repo *courseRepository) DeleteMaterial(id int) error {
	res, err := repo.db.Exec(repo.db.Rebind(`DELETE FROM course_material WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting material")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrMaterialNotFound
	}
	return nil
}

// Feedback

func (repo *courseRepository) CreateFeedback(fb course.Feedback) (course.Feedback, error) {
	query := repo.db.Rebind(`
		INSERT INTO feedback (course_id, student_id, text, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`)
	err := repo.db.QueryRow(query, fb.CourseID, fb.Student.ID, fb.Text, fb.CreatedAt).Scan(&fb.ID)
	if err != nil {
		return course.Feedback{}, errors.Wrap(err, "creating feedback")
	}
	return fb, nil
}

func (repo *courseRepository) GetFeedbackByID(id int) (course.Feedback, error) {
	var row struct {
		ID        int       `db:"id"`
		CourseID  int       `db:"course_id"`
		Text      string    `db:"text"`
		CreatedAt time.Time `db:"created_at"`
		Student   userRow   `db:"u"`
	}
	query := repo.db.Rebind(`
		SELECT f.id, f.course_id, f.text, f.created_at,
		       u.id "u.id", u.username "u.username", u.email "u.email", u.full_name "u.full_name",
		       u.role "u.role", u.photo "u.photo", u.is_active "u.is_active", u.password_hash "u.password_hash",
		       u.created_at "u.created_at", u.updated_at "u.updated_at", u.last_login "u.last_login"
		FROM feedback f JOIN "user" u ON u.id = f.student_id
		WHERE f.id = ?`)
	if err := repo.db.Get(&row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Feedback{}, course.ErrFeedbackNotFound
		}
		return course.Feedback{}, errors.Wrap(err, "getting feedback")
	}
	return course.Feedback{
		ID:        row.ID,
		CourseID:  row.CourseID,
		Student:   row.Student.toUser(),
		Text:      row.Text,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (repo *courseRepository) QueryCourseFeedback(courseID int) ([]course.Feedback, error) {
	type fbRow struct {
		ID        int       `db:"id"`
		CourseID  int       `db:"course_id"`
		Text      string    `db:"text"`
		CreatedAt time.Time `db:"created_at"`
		Student   userRow   `db:"u"`
	}
	var rows []fbRow
	query := repo.db.Rebind(`
		SELECT f.id, f.course_id, f.text, f.created_at,
		       u.id "u.id", u.username "u.username", u.email "u.email", u.full_name "u.full_name",
		       u.role "u.role", u.photo "u.photo", u.is_active "u.is_active", u.password_hash "u.password_hash",
		       u.created_at "u.created_at", u.updated_at "u.updated_at", u.last_login "u.last_login"
		FROM feedback f JOIN "user" u ON u.id = f.student_id
		WHERE f.course_id = ?
		ORDER BY f.created_at DESC`)
	if err := repo.db.Select(&rows, query, courseID); err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	fbs := make([]course.Feedback, 0, len(rows))
	for _, row := range rows {
		fbs = append(fbs, course.Feedback{
			ID:        row.ID,
			CourseID:  row.CourseID,
			Student:   row.Student.toUser(),
			Text:      row.Text,
			CreatedAt: row.CreatedAt,
		})
	}
	return fbs, nil
}

func (repo *courseRepository) DeleteFeedback(id int) error {
	res, err := repo.db.Exec(repo.db.Rebind(`DELETE FROM feedback WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting feedback")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrFeedbackNotFound
	}
	return nil
}
