package dashboard

import (
	"context"

	"collegehub/internal/assignment"
	"collegehub/internal/attendance"
	"collegehub/internal/directory"
	"collegehub/internal/marks"
	"collegehub/internal/schedule"
)

// The dashboard composes read models owned by other services; it holds no
// storage of its own.
type (
	DirectoryReader interface {
		StudentByUserID(ctx context.Context, userID string) (directory.Student, error)
		FindStudent(ctx context.Context, query string) (directory.Student, error)
		FacultyByUserID(ctx context.Context, userID string) (directory.Faculty, error)
		SubjectsByFaculty(ctx context.Context, facultyID string) ([]directory.Subject, error)
		Counts(ctx context.Context) (directory.Counts, error)
		RecentUsers(ctx context.Context, role string, limit int) ([]directory.User, error)
	}

	ScheduleReader interface {
		TodayForBranch(ctx context.Context, course, branch string) ([]schedule.Entry, error)
		TodayForFaculty(ctx context.Context, facultyID string) ([]schedule.Entry, error)
	}

	AttendanceReader interface {
		StudentRate(ctx context.Context, studentID string) (int, error)
		CoursesRate(ctx context.Context, courseIDs []string) (int, error)
		OverallRate(ctx context.Context) (int, error)
		ByStatus(ctx context.Context) (map[string]int, error)
		History(ctx context.Context, studentID string) ([]attendance.Record, error)
	}

	MarksReader interface {
		ByStudent(ctx context.Context, studentID string) (marks.Record, error)
	}

	AssignmentReader interface {
		ForStudent(ctx context.Context, studentID string) (assignment.StudentView, error)
		ByFaculty(ctx context.Context, facultyID string) ([]assignment.Assignment, error)
		Totals(ctx context.Context) (assignment.Totals, error)
	}

	Service struct {
		dir   DirectoryReader
		sched ScheduleReader
		att   AttendanceReader
		marks MarksReader
		work  AssignmentReader
	}
)

// NewService creates a dashboard service.
func NewService(dir DirectoryReader, sched ScheduleReader, att AttendanceReader, marksReader MarksReader, work AssignmentReader) *Service {
	return &Service{dir: dir, sched: sched, att: att, marks: marksReader, work: work}
}

// StudentHome is the student landing projection.
type StudentHome struct {
	Student        directory.Student      `json:"student"`
	TodayClasses   []schedule.Entry       `json:"todayClasses"`
	AttendanceRate int                    `json:"attendanceRate"`
	Marks          marks.Record           `json:"marks"`
	Assignments    assignment.StudentView `json:"assignments"`
}

// StudentHome assembles the student dashboard from the user's profile.
func (s *Service) StudentHome(ctx context.Context, userID string) (StudentHome, error) {
	student, err := s.dir.StudentByUserID(ctx, userID)
	if err != nil {
		return StudentHome{}, err
	}
	home := StudentHome{Student: student}
	if home.TodayClasses, err = s.sched.TodayForBranch(ctx, student.Course, student.Branch); err != nil {
		return StudentHome{}, err
	}
	if home.AttendanceRate, err = s.att.StudentRate(ctx, student.ID); err != nil {
		return StudentHome{}, err
	}
	if home.Marks, err = s.marks.ByStudent(ctx, student.ID); err != nil {
		return StudentHome{}, err
	}
	if home.Assignments, err = s.work.ForStudent(ctx, student.ID); err != nil {
		return StudentHome{}, err
	}
	return home, nil
}

// FacultyHome is the faculty landing projection.
type FacultyHome struct {
	Faculty        directory.Faculty       `json:"faculty"`
	TodayClasses   []schedule.Entry        `json:"todayClasses"`
	Subjects       []directory.Subject     `json:"subjects"`
	Assignments    []assignment.Assignment `json:"assignments"`
	AttendanceRate int                     `json:"attendanceRate"`
}

// FacultyHome assembles the faculty dashboard. The attendance rate spans
// every subject the faculty member teaches.
func (s *Service) FacultyHome(ctx context.Context, userID string) (FacultyHome, error) {
	fac, err := s.dir.FacultyByUserID(ctx, userID)
	if err != nil {
		return FacultyHome{}, err
	}
	home := FacultyHome{Faculty: fac}
	if home.TodayClasses, err = s.sched.TodayForFaculty(ctx, fac.ID); err != nil {
		return FacultyHome{}, err
	}
	if home.Subjects, err = s.dir.SubjectsByFaculty(ctx, fac.ID); err != nil {
		return FacultyHome{}, err
	}
	if home.Assignments, err = s.work.ByFaculty(ctx, fac.ID); err != nil {
		return FacultyHome{}, err
	}
	courseIDs := make([]string, 0, len(home.Subjects))
	for _, sub := range home.Subjects {
		courseIDs = append(courseIDs, sub.ID)
	}
	if home.AttendanceRate, err = s.att.CoursesRate(ctx, courseIDs); err != nil {
		return FacultyHome{}, err
	}
	return home, nil
}

// AdminHome is the admin landing projection.
type AdminHome struct {
	Counts             directory.Counts  `json:"counts"`
	Workload           assignment.Totals `json:"workload"`
	AttendanceRate     int               `json:"attendanceRate"`
	AttendanceByStatus map[string]int    `json:"attendanceByStatus"`
	RecentStudents     []directory.User  `json:"recentStudents"`
	RecentFaculty      []directory.User  `json:"recentFaculty"`
}

// AdminHome assembles the college-wide dashboard.
func (s *Service) AdminHome(ctx context.Context) (AdminHome, error) {
	var home AdminHome
	var err error
	if home.Counts, err = s.dir.Counts(ctx); err != nil {
		return AdminHome{}, err
	}
	if home.Workload, err = s.work.Totals(ctx); err != nil {
		return AdminHome{}, err
	}
	if home.AttendanceRate, err = s.att.OverallRate(ctx); err != nil {
		return AdminHome{}, err
	}
	if home.AttendanceByStatus, err = s.att.ByStatus(ctx); err != nil {
		return AdminHome{}, err
	}
	if home.RecentStudents, err = s.dir.RecentUsers(ctx, "student", 5); err != nil {
		return AdminHome{}, err
	}
	if home.RecentFaculty, err = s.dir.RecentUsers(ctx, "faculty", 5); err != nil {
		return AdminHome{}, err
	}
	return home, nil
}

// StudentProfile is the drill-down an admin or faculty member sees after
// searching for one student.
type StudentProfile struct {
	Student           directory.Student      `json:"student"`
	AttendanceRate    int                    `json:"attendanceRate"`
	AttendanceHistory []attendance.Record    `json:"attendanceHistory"`
	Marks             marks.Record           `json:"marks"`
	Assignments       assignment.StudentView `json:"assignments"`
}

// SearchStudent resolves a roll number or username to the full profile.
// The query must identify exactly one student.
func (s *Service) SearchStudent(ctx context.Context, query string) (StudentProfile, error) {
	student, err := s.dir.FindStudent(ctx, query)
	if err != nil {
		return StudentProfile{}, err
	}
	profile := StudentProfile{Student: student}
	if profile.AttendanceRate, err = s.att.StudentRate(ctx, student.ID); err != nil {
		return StudentProfile{}, err
	}
	if profile.AttendanceHistory, err = s.att.History(ctx, student.ID); err != nil {
		return StudentProfile{}, err
	}
	if profile.Marks, err = s.marks.ByStudent(ctx, student.ID); err != nil {
		return StudentProfile{}, err
	}
	if profile.Assignments, err = s.work.ForStudent(ctx, student.ID); err != nil {
		return StudentProfile{}, err
	}
	return profile, nil
}
