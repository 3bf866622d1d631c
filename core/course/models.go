package course

import (
	"time"

	"github.com/trezcool/darasa/core/user"
)

type Course struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Instructor  user.User `json:"instructor"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// Material is a file uploaded to a course. File storage mechanics live
// elsewhere; the record only carries the stored path.
type Material struct {
	ID       int    `json:"id"`
	CourseID int    `json:"course_id"`
	Name     string `json:"name"`
	File     string `json:"file"`
}

type Enrollment struct {
	ID           int       `json:"id"`
	Student      user.User `json:"student"`
	CourseID     int       `json:"course_id"`
	DateEnrolled time.Time `json:"date_enrolled"` // UTC
}

type Feedback struct {
	ID        int       `json:"id"`
	CourseID  int       `json:"course_id"`
	Student   user.User `json:"student"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"` // UTC
}
