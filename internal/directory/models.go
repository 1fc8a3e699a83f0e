package directory

import "time"

// Degrees offered by the college. "Course" at this level means the degree
// program; taught units are Subjects.
var Degrees = []string{"BTech", "MTech", "BPharma"}

// ValidDegree reports whether course is an offered degree.
func ValidDegree(course string) bool {
	for _, d := range Degrees {
		if d == course {
			return true
		}
	}
	return false
}

// User is a login identity. rollOrId doubles as roll number (students) or
// employee id (faculty) and is globally unique.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	RollOrID     string    `json:"rollOrId"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Student is the role profile owned 1:1 by a student User.
type Student struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	RollNo    string    `json:"rollNo"`
	Course    string    `json:"course"`
	Branch    string    `json:"branch"`
	Semester  int       `json:"semester"`
	CreatedAt time.Time `json:"createdAt"`
	// Joined user fields for admin listings.
	Username string `json:"username,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Faculty is the role profile owned 1:1 by a faculty User.
type Faculty struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	EmployeeID string    `json:"employeeId"`
	Department string    `json:"department"`
	SubjectIDs []string  `json:"subjectIds,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	Username   string    `json:"username,omitempty"`
	Phone      string    `json:"phone,omitempty"`
}

// Branch is an admin-managed specialization under a degree course.
// Deleting one does not rewrite Student.Branch strings; dangling references
// are allowed.
type Branch struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Course      string    `json:"course"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Subject is a taught unit, distinct from the degree "course".
type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	FacultyID string    `json:"facultyId"`
	Branch    string    `json:"branch"`
	Semester  int       `json:"semester"`
	CreatedAt time.Time `json:"createdAt"`
}
