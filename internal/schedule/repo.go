package schedule

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"collegehub/internal/directory"
)

// Entry is one recurring weekly class slot. course and branch are
// denormalized from the linked subject at write time for fast filtering;
// they are never re-validated against the subject later.
type Entry struct {
	ID            string      `json:"id"`
	CourseID      string      `json:"courseId"`
	FacultyID     string      `json:"facultyId"`
	Course        string      `json:"course"`
	Branch        string      `json:"branch"`
	DayOfWeek     string      `json:"dayOfWeek"`
	StartTime     string      `json:"startTime"`
	EndTime       string      `json:"endTime"`
	Room          string      `json:"room"`
	IsLive        bool        `json:"isLive"`
	LectureNumber int         `json:"lectureNumber"`
	CreatedAt     time.Time   `json:"createdAt"`
	Status        ClassStatus `json:"status,omitempty"`
}

// Repo persists timetable entries in Postgres.
type Repo struct {
	db *sql.DB
}

// NewRepo creates a repo.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

const entryCols = `id, course_id, faculty_id, course, branch, day_of_week, start_time, end_time, room, is_live, lecture_number, created_at`

// Create inserts an entry.
func (r *Repo) Create(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.LectureNumber <= 0 {
		e.LectureNumber = 1
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO timetable (id, course_id, faculty_id, course, branch, day_of_week, start_time, end_time, room, is_live, lecture_number)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,FALSE,$10)
		RETURNING created_at
	`, e.ID, e.CourseID, e.FacultyID, e.Course, e.Branch, e.DayOfWeek, e.StartTime, e.EndTime, e.Room, e.LectureNumber)
	if err := row.Scan(&e.CreatedAt); err != nil {
		return Entry{}, err
	}
	e.IsLive = false
	return e, nil
}

// ByID fetches one entry.
func (r *Repo) ByID(ctx context.Context, id string) (Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryCols+` FROM timetable WHERE id = $1`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, directory.ErrNotFound
	}
	return e, err
}

// Update writes the schedulable fields.
func (r *Repo) Update(ctx context.Context, e Entry) (Entry, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE timetable
		SET course_id = $2, faculty_id = $3, course = $4, branch = $5, day_of_week = $6,
		    start_time = $7, end_time = $8, room = $9, lecture_number = $10
		WHERE id = $1
	`, e.ID, e.CourseID, e.FacultyID, e.Course, e.Branch, e.DayOfWeek, e.StartTime, e.EndTime, e.Room, e.LectureNumber)
	if err != nil {
		return Entry{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Entry{}, err
	}
	if n == 0 {
		return Entry{}, directory.ErrNotFound
	}
	return r.ByID(ctx, e.ID)
}

// Delete removes an entry.
func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timetable WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return directory.ErrNotFound
	}
	return nil
}

// SetLive persists the live flag.
func (r *Repo) SetLive(ctx context.Context, id string, live bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE timetable SET is_live = $2 WHERE id = $1`, id, live)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return directory.ErrNotFound
	}
	return nil
}

// List returns entries with optional course/branch filters ("" or "all"
// match everything).
func (r *Repo) List(ctx context.Context, course, branch string) ([]Entry, error) {
	query := `SELECT ` + entryCols + ` FROM timetable WHERE 1=1`
	args := []any{}
	if course != "" && course != "all" {
		args = append(args, course)
		query += ` AND course = $1`
	}
	if branch != "" && branch != "all" {
		args = append(args, branch)
		query += ` AND branch = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY course, branch, day_of_week, start_time`
	return r.query(ctx, query, args...)
}

// ListByFaculty returns the full weekly schedule of one faculty member.
func (r *Repo) ListByFaculty(ctx context.Context, facultyID string) ([]Entry, error) {
	return r.query(ctx, `
		SELECT `+entryCols+` FROM timetable WHERE faculty_id = $1 ORDER BY day_of_week, start_time
	`, facultyID)
}

// ListByFacultyDay returns one faculty member's slots for one weekday.
func (r *Repo) ListByFacultyDay(ctx context.Context, facultyID, day string) ([]Entry, error) {
	return r.query(ctx, `
		SELECT `+entryCols+` FROM timetable WHERE faculty_id = $1 AND day_of_week = $2 ORDER BY start_time
	`, facultyID, day)
}

// ListByCourseBranch returns a branch's full weekly timetable.
func (r *Repo) ListByCourseBranch(ctx context.Context, course, branch string) ([]Entry, error) {
	return r.query(ctx, `
		SELECT `+entryCols+` FROM timetable WHERE course = $1 AND branch = $2 ORDER BY day_of_week, start_time
	`, course, branch)
}

// ListByCourseBranchDay returns a branch's slots for one weekday.
func (r *Repo) ListByCourseBranchDay(ctx context.Context, course, branch, day string) ([]Entry, error) {
	return r.query(ctx, `
		SELECT `+entryCols+` FROM timetable WHERE course = $1 AND branch = $2 AND day_of_week = $3 ORDER BY start_time
	`, course, branch, day)
}

// ListLive returns every entry currently flagged live, for the sweeper.
func (r *Repo) ListLive(ctx context.Context) ([]Entry, error) {
	return r.query(ctx, `SELECT `+entryCols+` FROM timetable WHERE is_live ORDER BY start_time`)
}

// ListAllByFaculty returns every entry ordered by faculty for the derived
// teacher-schedule view.
func (r *Repo) ListAllByFaculty(ctx context.Context) ([]Entry, error) {
	return r.query(ctx, `SELECT `+entryCols+` FROM timetable ORDER BY faculty_id, day_of_week, start_time`)
}

func (r *Repo) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CourseID, &e.FacultyID, &e.Course, &e.Branch, &e.DayOfWeek,
			&e.StartTime, &e.EndTime, &e.Room, &e.IsLive, &e.LectureNumber, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row *sql.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.CourseID, &e.FacultyID, &e.Course, &e.Branch, &e.DayOfWeek,
		&e.StartTime, &e.EndTime, &e.Room, &e.IsLive, &e.LectureNumber, &e.CreatedAt)
	return e, err
}
