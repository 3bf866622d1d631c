package dummydb

import (
	"sort"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

var (
	coursePKCount     int
	materialPKCount   int
	enrollmentPKCount int
	feedbackPKCount   int
)

type courseRepository struct {
	db          *courseTable
	materials   *materialTable
	enrollments *enrollmentTable
	feedback    *feedbackTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{
		db:          db.course,
		materials:   db.material,
		enrollments: db.enrollment,
		feedback:    db.feedback,
	}
}

func (repo *courseRepository) CreateCourse(crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	coursePKCount++
	crs.ID = coursePKCount
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) QueryAllCourses() ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.table))
	for _, crs := range repo.db.table {
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(id int) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) DeleteCourse(id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

// Enrollments

func (repo *courseRepository) CreateEnrollment(enr course.Enrollment) (course.Enrollment, error) {
	repo.enrollments.Lock()
	defer repo.enrollments.Unlock()

	for _, existing := range repo.enrollments.table {
		if existing.Student.ID == enr.Student.ID && existing.CourseID == enr.CourseID {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
	}

	enrollmentPKCount++
	enr.ID = enrollmentPKCount
	repo.enrollments.table[enr.ID] = &enr
	return enr, nil
}

func (repo *courseRepository) GetEnrollment(studentID, courseID int) (course.Enrollment, error) {
	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()

	for _, enr := range repo.enrollments.table {
		if enr.Student.ID == studentID && enr.CourseID == courseID {
			return *enr, nil
		}
	}
	return course.Enrollment{}, course.ErrNotEnrolled
}

func (repo *courseRepository) DeleteEnrollment(studentID, courseID int) error {
	repo.enrollments.Lock()
	defer repo.enrollments.Unlock()

	for id, enr := range repo.enrollments.table {
		if enr.Student.ID == studentID && enr.CourseID == courseID {
			delete(repo.enrollments.table, id)
			return nil
		}
	}
	return course.ErrNotEnrolled
}

func (repo *courseRepository) QueryEnrolledStudents(courseID int) ([]user.User, error) {
	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()

	var enrs []course.Enrollment
	for _, enr := range repo.enrollments.table {
		if enr.CourseID == courseID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].DateEnrolled.Before(enrs[j].DateEnrolled) })

	students := make([]user.User, 0, len(enrs))
	for _, enr := range enrs {
		students = append(students, enr.Student)
	}
	return students, nil
}

// Materials

func (repo *courseRepository) CreateMaterial(mat course.Material) (course.Material, error) {
	repo.materials.Lock()
	defer repo.materials.Unlock()

	materialPKCount++
	mat.ID = materialPKCount
	repo.materials.table[mat.ID] = &mat
	return mat, nil
}

func (repo *courseRepository) GetMaterialByID(id int) (course.Material, error) {
	repo.materials.RLock()
	defer repo.materials.RUnlock()

	if mat, ok := repo.materials.table[id]; ok {
		return *mat, nil
	}
	return course.Material{}, course.ErrMaterialNotFound
}

func (repo *courseRepository) QueryCourseMaterials(courseID int) ([]course.Material, error) {
	repo.materials.RLock()
	defer repo.materials.RUnlock()

	var mats []course.Material
	for _, mat := range repo.materials.table {
		if mat.CourseID == courseID {
			mats = append(mats, *mat)
		}
	}
	sort.Slice(mats, func(i, j int) bool { return mats[i].ID < mats[j].ID })
	return mats, nil
}

func (repo *courseRepository) DeleteMaterial(id int) error {
	repo.materials.Lock()
	defer repo.materials.Unlock()

	if _, ok := repo.materials.table[id]; !ok {
		return course.ErrMaterialNotFound
	}
	delete(repo.materials.table, id)
	return nil
}

// Feedback

func (repo *courseRepository) CreateFeedback(fb course.Feedback) (course.Feedback, error) {
	repo.feedback.Lock()
	defer repo.feedback.Unlock()

	feedbackPKCount++
	fb.ID = feedbackPKCount
	repo.feedback.table[fb.ID] = &fb
	return fb, nil
}

func (repo *courseRepository) GetFeedbackByID(id int) (course.Feedback, error) {
	repo.feedback.RLock()
	defer repo.feedback.RUnlock()

	if fb, ok := repo.feedback.table[id]; ok {
		return *fb, nil
	}
	return course.Feedback{}, course.ErrFeedbackNotFound
}

func (repo *courseRepository) QueryCourseFeedback(courseID int) ([]course.Feedback, error) {
	repo.feedback.RLock()
	defer repo.feedback.RUnlock()

	var fbs []course.Feedback
	for _, fb := range repo.feedback.table {
		if fb.CourseID == courseID {
			fbs = append(fbs, *fb)
		}
	}
	sort.Slice(fbs, func(i, j int) bool { return fbs[i].CreatedAt.After(fbs[j].CreatedAt) })
	return fbs, nil
}

func (repo *courseRepository) DeleteFeedback(id int) error {
	repo.feedback.Lock()
	defer repo.feedback.Unlock()

	if _, ok := repo.feedback.table[id]; !ok {
		return course.ErrFeedbackNotFound
	}
	delete(repo.feedback.table, id)
	return nil
}
