package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		user       *userTable
		status     *statusTable
		course     *courseTable
		material   *materialTable
		enrollment *enrollmentTable
		feedback   *feedbackTable
	}

	userTable struct {
		sync.RWMutex
		table map[int]*user.User
	}

	statusTable struct {
		sync.RWMutex
		table map[int]*user.Status
	}

	courseTable struct {
		sync.RWMutex
		table map[int]*course.Course
	}

	materialTable struct {
		sync.RWMutex
		table map[int]*course.Material
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[int]*course.Enrollment
	}

	feedbackTable struct {
		sync.RWMutex
		table map[int]*course.Feedback
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[int]*user.User)},
		status:     &statusTable{table: make(map[int]*user.Status)},
		course:     &courseTable{table: make(map[int]*course.Course)},
		material:   &materialTable{table: make(map[int]*course.Material)},
		enrollment: &enrollmentTable{table: make(map[int]*course.Enrollment)},
		feedback:   &feedbackTable{table: make(map[int]*course.Feedback)},
	}
	return db, nil
}
