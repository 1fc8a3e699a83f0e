package attendance

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Statuses a record may carry.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

// ValidStatus reports whether status is one of present/absent/late.
func ValidStatus(status string) bool {
	switch status {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

// Record is one attendance mark, unique per (courseId, studentId, date).
// course and branch are denormalized at mark time so history keeps meaning
// even if the subject is later edited.
type Record struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"courseId"`
	StudentID   string    `json:"studentId"`
	TimetableID string    `json:"timetableId,omitempty"`
	Course      string    `json:"course"`
	Branch      string    `json:"branch"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
}

// Repo persists attendance records in Postgres.
type Repo struct {
	db *sql.DB
}

// NewRepo creates a repo.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Upsert writes one record, replacing the status if the student was already
// marked for that course and day.
func (r *Repo) Upsert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	var timetableID any
	if rec.TimetableID != "" {
		timetableID = rec.TimetableID
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, course_id, student_id, timetable_id, course, branch, date, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (course_id, student_id, date)
		DO UPDATE SET status = EXCLUDED.status, timetable_id = EXCLUDED.timetable_id
		RETURNING id
	`, rec.ID, rec.CourseID, rec.StudentID, timetableID, rec.Course, rec.Branch, rec.Date, rec.Status)
	if err := row.Scan(&rec.ID); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListByStudent returns a student's full history, newest first.
func (r *Repo) ListByStudent(ctx context.Context, studentID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, course_id, student_id, COALESCE(timetable_id, ''), course, branch, date, status
		FROM attendance WHERE student_id = $1 ORDER BY date DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.CourseID, &rec.StudentID, &rec.TimetableID,
			&rec.Course, &rec.Branch, &rec.Date, &rec.Status); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByStudent returns (present, total) for one student.
func (r *Repo) CountByStudent(ctx context.Context, studentID string) (int, int, error) {
	var present, total int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FILTER (WHERE status = 'present'), COUNT(1)
		FROM attendance WHERE student_id = $1
	`, studentID).Scan(&present, &total)
	return present, total, err
}

// CountByCourses returns (present, total) across the given subject ids.
func (r *Repo) CountByCourses(ctx context.Context, courseIDs []string) (int, int, error) {
	if len(courseIDs) == 0 {
		return 0, 0, nil
	}
	placeholders := make([]string, len(courseIDs))
	args := make([]any, len(courseIDs))
	for i, id := range courseIDs {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}
	var present, total int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FILTER (WHERE status = 'present'), COUNT(1)
		FROM attendance WHERE course_id IN (`+strings.Join(placeholders, ",")+`)
	`, args...).Scan(&present, &total)
	return present, total, err
}

// CountAll returns (present, total) across every record.
func (r *Repo) CountAll(ctx context.Context) (int, int, error) {
	var present, total int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FILTER (WHERE status = 'present'), COUNT(1) FROM attendance
	`).Scan(&present, &total)
	return present, total, err
}

// CountByStatus groups record counts by status for analytics.
func (r *Repo) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM attendance GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
