package store

import "database/sql"

// migrate applies the schema. Idempotent, so it runs on every startup.
func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		roll_or_id    TEXT UNIQUE NOT NULL,
		phone         TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS students (
		id         TEXT PRIMARY KEY,
		user_id    TEXT UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		roll_no    TEXT UNIQUE NOT NULL,
		course     TEXT NOT NULL,
		branch     TEXT NOT NULL,
		semester   INT  NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS faculty (
		id          TEXT PRIMARY KEY,
		user_id     TEXT UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		employee_id TEXT UNIQUE NOT NULL,
		department  TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS branches (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		course      TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (name, course)
	);

	CREATE TABLE IF NOT EXISTS subjects (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		code       TEXT UNIQUE NOT NULL,
		faculty_id TEXT NOT NULL,
		branch     TEXT NOT NULL,
		semester   INT  NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS faculty_subjects (
		faculty_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		PRIMARY KEY (faculty_id, subject_id)
	);

	CREATE TABLE IF NOT EXISTS timetable (
		id             TEXT PRIMARY KEY,
		course_id      TEXT NOT NULL,
		faculty_id     TEXT NOT NULL,
		course         TEXT NOT NULL,
		branch         TEXT NOT NULL,
		day_of_week    TEXT NOT NULL,
		start_time     TEXT NOT NULL,
		end_time       TEXT NOT NULL,
		room           TEXT NOT NULL,
		is_live        BOOLEAN NOT NULL DEFAULT FALSE,
		lecture_number INT NOT NULL DEFAULT 1,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_timetable_course_branch_day ON timetable(course, branch, day_of_week);
	CREATE INDEX IF NOT EXISTS idx_timetable_faculty_day       ON timetable(faculty_id, day_of_week);

	CREATE TABLE IF NOT EXISTS assignments (
		id          TEXT PRIMARY KEY,
		course_id   TEXT NOT NULL,
		faculty_id  TEXT NOT NULL,
		course      TEXT NOT NULL,
		branch      TEXT NOT NULL,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		due_date    TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_assignments_course_branch ON assignments(course, branch, due_date);
	CREATE INDEX IF NOT EXISTS idx_assignments_faculty       ON assignments(faculty_id);

	CREATE TABLE IF NOT EXISTS submissions (
		id           TEXT PRIMARY KEY,
		assignment_id TEXT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		student_id   TEXT NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		file_url     TEXT NOT NULL DEFAULT '',
		grade        DOUBLE PRECISION,
		feedback     TEXT NOT NULL DEFAULT '',
		is_reviewed  BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (assignment_id, student_id)
	);

	CREATE TABLE IF NOT EXISTS marks (
		id             TEXT PRIMARY KEY,
		student_id     TEXT UNIQUE NOT NULL,
		roll_no        TEXT NOT NULL,
		course         TEXT NOT NULL,
		branch         TEXT NOT NULL,
		total_marks    DOUBLE PRECISION NOT NULL DEFAULT 0,
		reviewed_count INT NOT NULL DEFAULT 0,
		average_marks  DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_marks_roll_no ON marks(roll_no);

	CREATE TABLE IF NOT EXISTS marks_entries (
		id               TEXT PRIMARY KEY,
		marks_id         TEXT NOT NULL REFERENCES marks(id) ON DELETE CASCADE,
		assignment_id    TEXT NOT NULL,
		assignment_title TEXT NOT NULL,
		marks            DOUBLE PRECISION NOT NULL,
		reviewed_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (marks_id, assignment_id)
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id           TEXT PRIMARY KEY,
		course_id    TEXT NOT NULL,
		student_id   TEXT NOT NULL,
		timetable_id TEXT,
		course       TEXT NOT NULL DEFAULT '',
		branch       TEXT NOT NULL DEFAULT '',
		date         DATE NOT NULL,
		status       TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (course_id, student_id, date)
	);
	CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance(student_id);
	`
	_, err := db.Exec(schema)
	return err
}
