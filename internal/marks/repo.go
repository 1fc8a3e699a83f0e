package marks

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"collegehub/internal/directory"
)

// Record is a student's grading aggregate. averageMarks is always
// totalMarks/reviewedCount rounded half-up to one decimal, 0 when nothing
// has been reviewed yet. rollNo, course, and branch are denormalized at
// registration for grade-sheet exports.
type Record struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"studentId"`
	RollNo        string    `json:"rollNo"`
	Course        string    `json:"course"`
	Branch        string    `json:"branch"`
	TotalMarks    float64   `json:"totalMarks"`
	ReviewedCount int       `json:"reviewedCount"`
	AverageMarks  float64   `json:"averageMarks"`
	CreatedAt     time.Time `json:"createdAt"`
	Entries       []Entry   `json:"entries,omitempty"`
}

// Entry is one graded assignment inside a record, unique per assignment.
type Entry struct {
	ID              string    `json:"id"`
	AssignmentID    string    `json:"assignmentId"`
	AssignmentTitle string    `json:"assignmentTitle"`
	Marks           float64   `json:"marks"`
	ReviewedAt      time.Time `json:"reviewedAt"`
}

// Querier covers *sql.DB and *sql.Tx so grade application can run inside
// the caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo persists marks aggregates in Postgres.
type Repo struct {
	db *sql.DB
}

// NewRepo creates a repo.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// InitRecord seeds the zero aggregate for a new student. Safe to call
// more than once.
func (r *Repo) InitRecord(ctx context.Context, studentID, rollNo, course, branch string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO marks (id, student_id, roll_no, course, branch, total_marks, reviewed_count, average_marks)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 0)
		ON CONFLICT (student_id) DO NOTHING
	`, uuid.NewString(), studentID, rollNo, course, branch)
	return err
}

// DeleteByStudent removes the aggregate; entries go with it via cascade.
func (r *Repo) DeleteByStudent(ctx context.Context, studentID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM marks WHERE student_id = $1`, studentID)
	return err
}

// ByStudent returns the aggregate with its per-assignment entries.
func (r *Repo) ByStudent(ctx context.Context, studentID string) (Record, error) {
	rec, err := r.record(ctx, r.db, studentID)
	if err != nil {
		return Record{}, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, assignment_id, assignment_title, marks, reviewed_at
		FROM marks_entries WHERE marks_id = $1 ORDER BY reviewed_at
	`, rec.ID)
	if err != nil {
		return Record{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AssignmentID, &e.AssignmentTitle, &e.Marks, &e.ReviewedAt); err != nil {
			return Record{}, err
		}
		rec.Entries = append(rec.Entries, e)
	}
	return rec, rows.Err()
}

// ApplyGrade folds one grade into a student's aggregate inside q. A
// re-grade of the same assignment applies only the delta; a first grade
// appends an entry and bumps reviewedCount. The counters move by atomic
// SQL increments so concurrent grades of different assignments never lose
// an update.
func (r *Repo) ApplyGrade(ctx context.Context, q Querier, studentID, assignmentID, assignmentTitle string, grade float64) (Record, error) {
	rec, err := r.record(ctx, q, studentID)
	if err != nil {
		return Record{}, err
	}

	var prev sql.NullFloat64
	err = q.QueryRowContext(ctx, `
		SELECT marks FROM marks_entries WHERE marks_id = $1 AND assignment_id = $2 FOR UPDATE
	`, rec.ID, assignmentID).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Record{}, err
	}

	delta := grade
	reviewedDelta := 1
	if prev.Valid {
		delta = grade - prev.Float64
		reviewedDelta = 0
	}

	if _, err := q.ExecContext(ctx, `
		INSERT INTO marks_entries (id, marks_id, assignment_id, assignment_title, marks)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (marks_id, assignment_id)
		DO UPDATE SET marks = EXCLUDED.marks, assignment_title = EXCLUDED.assignment_title, reviewed_at = NOW()
	`, uuid.NewString(), rec.ID, assignmentID, assignmentTitle, grade); err != nil {
		return Record{}, err
	}

	row := q.QueryRowContext(ctx, `
		UPDATE marks
		SET total_marks = total_marks + $2, reviewed_count = reviewed_count + $3
		WHERE id = $1
		RETURNING total_marks, reviewed_count
	`, rec.ID, delta, reviewedDelta)
	if err := row.Scan(&rec.TotalMarks, &rec.ReviewedCount); err != nil {
		return Record{}, err
	}

	rec.AverageMarks = Average(rec.TotalMarks, rec.ReviewedCount)
	if _, err := q.ExecContext(ctx, `
		UPDATE marks SET average_marks = $2 WHERE id = $1
	`, rec.ID, rec.AverageMarks); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// SetCounters overwrites a student's aggregate counters directly, leaving
// the per-assignment entries alone. Used by admin corrections.
func (r *Repo) SetCounters(ctx context.Context, studentID string, total float64, reviewed int) (Record, error) {
	avg := Average(total, reviewed)
	row := r.db.QueryRowContext(ctx, `
		UPDATE marks
		SET total_marks = $2, reviewed_count = $3, average_marks = $4
		WHERE student_id = $1
		RETURNING id, student_id, roll_no, course, branch, total_marks, reviewed_count, average_marks, created_at
	`, studentID, total, reviewed, avg)
	return scanRecord(row)
}

// SetBaselineAll overwrites totalMarks and/or averageMarks on every record
// in one statement. A nil field keeps the stored value. Entries and
// reviewed counts are untouched.
func (r *Repo) SetBaselineAll(ctx context.Context, total, average *float64) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE marks
		SET total_marks   = COALESCE($1, total_marks),
		    average_marks = COALESCE($2, average_marks)
	`, total, average)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ListByCourseBranch returns aggregates for a branch, for grade sheets.
func (r *Repo) ListByCourseBranch(ctx context.Context, course, branch string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, roll_no, course, branch, total_marks, reviewed_count, average_marks, created_at
		FROM marks WHERE course = $1 AND branch = $2 ORDER BY roll_no
	`, course, branch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.RollNo, &rec.Course, &rec.Branch,
			&rec.TotalMarks, &rec.ReviewedCount, &rec.AverageMarks, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repo) record(ctx context.Context, q Querier, studentID string) (Record, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, student_id, roll_no, course, branch, total_marks, reviewed_count, average_marks, created_at
		FROM marks WHERE student_id = $1
	`, studentID)
	return scanRecord(row)
}

func scanRecord(row *sql.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.RollNo, &rec.Course, &rec.Branch,
		&rec.TotalMarks, &rec.ReviewedCount, &rec.AverageMarks, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, directory.ErrNotFound
	}
	return rec, err
}

// Average rounds total/count half-up to one decimal place; 0 when count
// is 0.
func Average(total float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return math.Floor(total/float64(count)*10+0.5) / 10
}
