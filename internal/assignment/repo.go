package assignment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"collegehub/internal/directory"
)

// Assignment is one piece of work posted to a branch. course and branch
// are denormalized from the subject at creation time.
type Assignment struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"courseId"`
	FacultyID   string    `json:"facultyId"`
	Course      string    `json:"course"`
	Branch      string    `json:"branch"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Submission is one student's answer to an assignment, unique per
// (assignment, student). Grade is nil until a faculty member reviews it.
type Submission struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignmentId"`
	StudentID    string    `json:"studentId"`
	SubmittedAt  time.Time `json:"submittedAt"`
	FileURL      string    `json:"fileUrl"`
	Grade        *float64  `json:"grade,omitempty"`
	Feedback     string    `json:"feedback"`
	IsReviewed   bool      `json:"isReviewed"`
	StudentName  string    `json:"studentName,omitempty"`
	RollNo       string    `json:"rollNo,omitempty"`
}

// Repo persists assignments and submissions in Postgres.
type Repo struct {
	db *sql.DB
}

// NewRepo creates a repo.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// DB exposes the handle for workflows that span repos in one transaction.
func (r *Repo) DB() *sql.DB { return r.db }

const assignmentCols = `id, course_id, faculty_id, course, branch, title, description, due_date, created_at, updated_at`

// Create inserts an assignment.
func (r *Repo) Create(ctx context.Context, a Assignment) (Assignment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO assignments (id, course_id, faculty_id, course, branch, title, description, due_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at
	`, a.ID, a.CourseID, a.FacultyID, a.Course, a.Branch, a.Title, a.Description, a.DueDate)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// ByID fetches one assignment.
func (r *Repo) ByID(ctx context.Context, id string) (Assignment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assignmentCols+` FROM assignments WHERE id = $1`, id)
	return scanAssignment(row)
}

// Update rewrites the editable fields.
func (r *Repo) Update(ctx context.Context, a Assignment) (Assignment, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE assignments
		SET title = $2, description = $3, due_date = $4, updated_at = NOW()
		WHERE id = $1
	`, a.ID, a.Title, a.Description, a.DueDate)
	if err != nil {
		return Assignment{}, err
	}
	if err := requireRow(res); err != nil {
		return Assignment{}, err
	}
	return r.ByID(ctx, a.ID)
}

// Delete removes an assignment; submissions cascade.
func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ListByCourseBranch returns a branch's assignments, nearest deadline
// first.
func (r *Repo) ListByCourseBranch(ctx context.Context, course, branch string) ([]Assignment, error) {
	return r.queryAssignments(ctx, `
		SELECT `+assignmentCols+` FROM assignments WHERE course = $1 AND branch = $2 ORDER BY due_date
	`, course, branch)
}

// ListByFaculty returns everything one faculty member has posted.
func (r *Repo) ListByFaculty(ctx context.Context, facultyID string) ([]Assignment, error) {
	return r.queryAssignments(ctx, `
		SELECT `+assignmentCols+` FROM assignments WHERE faculty_id = $1 ORDER BY due_date DESC
	`, facultyID)
}

// CountAll returns the total assignment count.
func (r *Repo) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM assignments`).Scan(&n)
	return n, err
}

// CountSubmissions returns (total, awaiting review) across every submission.
func (r *Repo) CountSubmissions(ctx context.Context) (int, int, error) {
	var total, pending int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1), COUNT(1) FILTER (WHERE NOT is_reviewed) FROM submissions
	`).Scan(&total, &pending)
	return total, pending, err
}

// SubmissionByID fetches one submission.
func (r *Repo) SubmissionByID(ctx context.Context, id string) (Submission, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, assignment_id, student_id, submitted_at, file_url, grade, feedback, is_reviewed
		FROM submissions WHERE id = $1
	`, id)
	return scanSubmission(row)
}

// SubmissionFor fetches a student's submission to one assignment.
func (r *Repo) SubmissionFor(ctx context.Context, assignmentID, studentID string) (Submission, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, assignment_id, student_id, submitted_at, file_url, grade, feedback, is_reviewed
		FROM submissions WHERE assignment_id = $1 AND student_id = $2
	`, assignmentID, studentID)
	return scanSubmission(row)
}

// CreateSubmission inserts a fresh submission.
func (r *Repo) CreateSubmission(ctx context.Context, s Submission) (Submission, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO submissions (id, assignment_id, student_id, file_url)
		VALUES ($1,$2,$3,$4)
		RETURNING submitted_at
	`, s.ID, s.AssignmentID, s.StudentID, s.FileURL)
	if err := row.Scan(&s.SubmittedAt); err != nil {
		return Submission{}, err
	}
	return s, nil
}

// ReplaceSubmission swaps the file on an unreviewed submission and
// refreshes its timestamp.
func (r *Repo) ReplaceSubmission(ctx context.Context, id, fileURL string) (Submission, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE submissions SET file_url = $2, submitted_at = NOW() WHERE id = $1 AND NOT is_reviewed
	`, id, fileURL)
	if err != nil {
		return Submission{}, err
	}
	if err := requireRow(res); err != nil {
		return Submission{}, err
	}
	return r.SubmissionByID(ctx, id)
}

// MarkReviewed writes the grade inside tx so the marks aggregate moves in
// the same transaction.
func (r *Repo) MarkReviewed(ctx context.Context, tx *sql.Tx, id string, grade float64, feedback string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE submissions SET grade = $2, feedback = $3, is_reviewed = TRUE WHERE id = $1
	`, id, grade, feedback)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SubmissionsByAssignment lists submissions with the submitting student's
// name and roll number joined in.
func (r *Repo) SubmissionsByAssignment(ctx context.Context, assignmentID string) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sub.id, sub.assignment_id, sub.student_id, sub.submitted_at, sub.file_url,
		       sub.grade, sub.feedback, sub.is_reviewed, st.name, st.roll_no
		FROM submissions sub
		JOIN students st ON st.id = sub.student_id
		WHERE sub.assignment_id = $1
		ORDER BY sub.submitted_at
	`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []Submission
	for rows.Next() {
		var s Submission
		var grade sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.SubmittedAt, &s.FileURL,
			&grade, &s.Feedback, &s.IsReviewed, &s.StudentName, &s.RollNo); err != nil {
			return nil, err
		}
		if grade.Valid {
			s.Grade = &grade.Float64
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// SubmissionsByStudent returns everything one student has handed in.
func (r *Repo) SubmissionsByStudent(ctx context.Context, studentID string) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, assignment_id, student_id, submitted_at, file_url, grade, feedback, is_reviewed
		FROM submissions WHERE student_id = $1 ORDER BY submitted_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []Submission
	for rows.Next() {
		var s Submission
		var grade sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.SubmittedAt, &s.FileURL,
			&grade, &s.Feedback, &s.IsReviewed); err != nil {
			return nil, err
		}
		if grade.Valid {
			s.Grade = &grade.Float64
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *Repo) queryAssignments(ctx context.Context, query string, args ...any) ([]Assignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.CourseID, &a.FacultyID, &a.Course, &a.Branch,
			&a.Title, &a.Description, &a.DueDate, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func scanAssignment(row *sql.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.CourseID, &a.FacultyID, &a.Course, &a.Branch,
		&a.Title, &a.Description, &a.DueDate, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{}, directory.ErrNotFound
	}
	return a, err
}

func scanSubmission(row *sql.Row) (Submission, error) {
	var s Submission
	var grade sql.NullFloat64
	err := row.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.SubmittedAt, &s.FileURL,
		&grade, &s.Feedback, &s.IsReviewed)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, directory.ErrNotFound
	}
	if grade.Valid {
		s.Grade = &grade.Float64
	}
	return s, err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return directory.ErrNotFound
	}
	return nil
}
