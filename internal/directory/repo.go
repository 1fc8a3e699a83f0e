package directory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// Repo persists directory entities in Postgres.
type Repo struct {
	db *sql.DB
}

// NewRepo creates a repo.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// ---------- users ----------

// CreateUser inserts a user.
func (r *Repo) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, roll_or_id, phone)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, u.ID, u.Username, u.PasswordHash, u.Role, u.RollOrID, u.Phone)
	if err := row.Scan(&u.CreatedAt); err != nil {
		return User{}, err
	}
	return u, nil
}

// UserByID fetches a user by id.
func (r *Repo) UserByID(ctx context.Context, id string) (User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, roll_or_id, phone, created_at
		FROM users WHERE id = $1
	`, id))
}

// UserByIdentifier fetches by exact username or rollOrId match.
func (r *Repo) UserByIdentifier(ctx context.Context, identifier string) (User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, roll_or_id, phone, created_at
		FROM users WHERE username = $1 OR roll_or_id = $1
	`, identifier))
}

// UsernameTaken reports whether a user already holds the username.
func (r *Repo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE username = $1`, username).Scan(&n)
	return n > 0, err
}

// RollOrIDTaken reports whether a user already holds the roll number / employee id.
func (r *Repo) RollOrIDTaken(ctx context.Context, rollOrID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE roll_or_id = $1`, rollOrID).Scan(&n)
	return n > 0, err
}

// UpdateUserPhone sets the phone field.
func (r *Repo) UpdateUserPhone(ctx context.Context, id, phone string) (User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users SET phone = $2 WHERE id = $1
		RETURNING id, username, password_hash, role, roll_or_id, phone, created_at
	`, id, phone))
}

// UpdateUserPassword replaces the stored hash.
func (r *Repo) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteUser removes a user; role profiles cascade via FK.
func (r *Repo) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RecentUsersByRole lists the newest registrations for one role.
func (r *Repo) RecentUsersByRole(ctx context.Context, role string, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, password_hash, role, roll_or_id, phone, created_at
		FROM users WHERE role = $1 ORDER BY created_at DESC LIMIT $2
	`, role, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.RollOrID, &u.Phone, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.PasswordHash = ""
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *Repo) scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.RollOrID, &u.Phone, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// ---------- students ----------

// CreateStudent inserts a student profile.
func (r *Repo) CreateStudent(ctx context.Context, s Student) (Student, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, user_id, name, roll_no, course, branch, semester)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, s.ID, s.UserID, s.Name, s.RollNo, s.Course, s.Branch, s.Semester)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return Student{}, err
	}
	return s, nil
}

const studentCols = `s.id, s.user_id, s.name, s.roll_no, s.course, s.branch, s.semester, s.created_at, u.username, u.phone`

// StudentByID fetches one student with joined user fields.
func (r *Repo) StudentByID(ctx context.Context, id string) (Student, error) {
	return scanStudent(r.db.QueryRowContext(ctx, `
		SELECT `+studentCols+` FROM students s JOIN users u ON u.id = s.user_id WHERE s.id = $1
	`, id))
}

// StudentByUserID fetches the profile owned by a user.
func (r *Repo) StudentByUserID(ctx context.Context, userID string) (Student, error) {
	return scanStudent(r.db.QueryRowContext(ctx, `
		SELECT `+studentCols+` FROM students s JOIN users u ON u.id = s.user_id WHERE s.user_id = $1
	`, userID))
}

// ListStudents returns all students with joined user fields.
func (r *Repo) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+studentCols+` FROM students s JOIN users u ON u.id = s.user_id ORDER BY s.roll_no
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStudents(rows)
}

// SearchStudents matches a case-insensitive partial identifier against
// username or rollOrId.
func (r *Repo) SearchStudents(ctx context.Context, q string) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+studentCols+`
		FROM students s JOIN users u ON u.id = s.user_id
		WHERE u.username ILIKE '%' || $1 || '%' OR u.roll_or_id ILIKE '%' || $1 || '%'
		ORDER BY s.roll_no
	`, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStudents(rows)
}

// StudentsByCourseBranch lists students of one branch under one degree.
func (r *Repo) StudentsByCourseBranch(ctx context.Context, course, branch string) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+studentCols+`
		FROM students s JOIN users u ON u.id = s.user_id
		WHERE s.course = $1 AND s.branch = $2 ORDER BY s.roll_no
	`, course, branch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStudents(rows)
}

// UpdateStudent writes the mutable profile fields.
func (r *Repo) UpdateStudent(ctx context.Context, s Student) (Student, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students SET name = $2, branch = $3, semester = $4 WHERE id = $1
	`, s.ID, s.Name, s.Branch, s.Semester)
	if err != nil {
		return Student{}, err
	}
	if err := requireRow(res); err != nil {
		return Student{}, err
	}
	return r.StudentByID(ctx, s.ID)
}

// CountStudents returns the student total.
func (r *Repo) CountStudents(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM students`).Scan(&n)
	return n, err
}

func scanStudent(row *sql.Row) (Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.RollNo, &s.Course, &s.Branch, &s.Semester, &s.CreatedAt, &s.Username, &s.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	return s, err
}

func collectStudents(rows *sql.Rows) ([]Student, error) {
	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.RollNo, &s.Course, &s.Branch, &s.Semester, &s.CreatedAt, &s.Username, &s.Phone); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// ---------- faculty ----------

// CreateFaculty inserts a faculty profile.
func (r *Repo) CreateFaculty(ctx context.Context, f Faculty) (Faculty, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO faculty (id, user_id, name, employee_id, department)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, f.ID, f.UserID, f.Name, f.EmployeeID, f.Department)
	if err := row.Scan(&f.CreatedAt); err != nil {
		return Faculty{}, err
	}
	return f, nil
}

const facultyCols = `f.id, f.user_id, f.name, f.employee_id, f.department, f.created_at, u.username, u.phone`

// FacultyByID fetches one faculty member.
func (r *Repo) FacultyByID(ctx context.Context, id string) (Faculty, error) {
	return r.scanFaculty(ctx, r.db.QueryRowContext(ctx, `
		SELECT `+facultyCols+` FROM faculty f JOIN users u ON u.id = f.user_id WHERE f.id = $1
	`, id))
}

// FacultyByUserID fetches the profile owned by a user.
func (r *Repo) FacultyByUserID(ctx context.Context, userID string) (Faculty, error) {
	return r.scanFaculty(ctx, r.db.QueryRowContext(ctx, `
		SELECT `+facultyCols+` FROM faculty f JOIN users u ON u.id = f.user_id WHERE f.user_id = $1
	`, userID))
}

// ListFaculty returns all faculty with joined user fields.
func (r *Repo) ListFaculty(ctx context.Context) ([]Faculty, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+facultyCols+` FROM faculty f JOIN users u ON u.id = f.user_id ORDER BY f.employee_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Faculty
	for rows.Next() {
		var f Faculty
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.EmployeeID, &f.Department, &f.CreatedAt, &f.Username, &f.Phone); err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

// UpdateFaculty writes the mutable profile fields.
func (r *Repo) UpdateFaculty(ctx context.Context, f Faculty) (Faculty, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE faculty SET name = $2, department = $3 WHERE id = $1
	`, f.ID, f.Name, f.Department)
	if err != nil {
		return Faculty{}, err
	}
	if err := requireRow(res); err != nil {
		return Faculty{}, err
	}
	return r.FacultyByID(ctx, f.ID)
}

// CountFaculty returns the faculty total.
func (r *Repo) CountFaculty(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM faculty`).Scan(&n)
	return n, err
}

// CountBranches returns the branch total.
func (r *Repo) CountBranches(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM branches`).Scan(&n)
	return n, err
}

// CountSubjects returns the subject total.
func (r *Repo) CountSubjects(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM subjects`).Scan(&n)
	return n, err
}

// AddFacultySubject links a subject into the faculty member's course list.
func (r *Repo) AddFacultySubject(ctx context.Context, facultyID, subjectID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO faculty_subjects (faculty_id, subject_id)
		VALUES ($1, $2)
		ON CONFLICT (faculty_id, subject_id) DO NOTHING
	`, facultyID, subjectID)
	return err
}

func (r *Repo) scanFaculty(ctx context.Context, row *sql.Row) (Faculty, error) {
	var f Faculty
	err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.EmployeeID, &f.Department, &f.CreatedAt, &f.Username, &f.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return Faculty{}, ErrNotFound
	}
	if err != nil {
		return Faculty{}, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT subject_id FROM faculty_subjects WHERE faculty_id = $1`, f.ID)
	if err != nil {
		return Faculty{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return Faculty{}, err
		}
		f.SubjectIDs = append(f.SubjectIDs, id)
	}
	return f, rows.Err()
}

// ---------- branches ----------

// CreateBranch inserts a branch.
func (r *Repo) CreateBranch(ctx context.Context, b Branch) (Branch, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO branches (id, name, course, description)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, b.ID, b.Name, b.Course, b.Description)
	if err := row.Scan(&b.CreatedAt); err != nil {
		return Branch{}, err
	}
	return b, nil
}

// BranchByNameCourse looks up the unique (name, course) pair.
func (r *Repo) BranchByNameCourse(ctx context.Context, name, course string) (Branch, error) {
	var b Branch
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, course, description, created_at FROM branches WHERE name = $1 AND course = $2
	`, name, course).Scan(&b.ID, &b.Name, &b.Course, &b.Description, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Branch{}, ErrNotFound
	}
	return b, err
}

// ListBranches returns branches, optionally filtered by degree course.
func (r *Repo) ListBranches(ctx context.Context, course string) ([]Branch, error) {
	query := `SELECT id, name, course, description, created_at FROM branches`
	args := []any{}
	if course != "" && course != "all" {
		query += ` WHERE course = $1`
		args = append(args, course)
	}
	query += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var branches []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Course, &b.Description, &b.CreatedAt); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

// UpdateBranch writes name and description.
func (r *Repo) UpdateBranch(ctx context.Context, id, name, description string) (Branch, error) {
	var b Branch
	err := r.db.QueryRowContext(ctx, `
		UPDATE branches SET name = $2, description = $3 WHERE id = $1
		RETURNING id, name, course, description, created_at
	`, id, name, description).Scan(&b.ID, &b.Name, &b.Course, &b.Description, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Branch{}, ErrNotFound
	}
	return b, err
}

// DeleteBranch removes the branch row only. Student.branch strings that
// referenced it keep their value.
func (r *Repo) DeleteBranch(ctx context.Context, id string) (Branch, error) {
	var b Branch
	err := r.db.QueryRowContext(ctx, `
		DELETE FROM branches WHERE id = $1
		RETURNING id, name, course, description, created_at
	`, id).Scan(&b.ID, &b.Name, &b.Course, &b.Description, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Branch{}, ErrNotFound
	}
	return b, err
}

// ---------- subjects ----------

// CreateSubject inserts a subject.
func (r *Repo) CreateSubject(ctx context.Context, s Subject) (Subject, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO subjects (id, name, code, faculty_id, branch, semester)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, s.ID, s.Name, s.Code, s.FacultyID, s.Branch, s.Semester)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return Subject{}, err
	}
	return s, nil
}

// SubjectByID fetches one subject.
func (r *Repo) SubjectByID(ctx context.Context, id string) (Subject, error) {
	var s Subject
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, code, faculty_id, branch, semester, created_at FROM subjects WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Code, &s.FacultyID, &s.Branch, &s.Semester, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Subject{}, ErrNotFound
	}
	return s, err
}

// SubjectCodeTaken reports whether a subject already uses the code.
func (r *Repo) SubjectCodeTaken(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM subjects WHERE code = $1`, code).Scan(&n)
	return n > 0, err
}

// ListSubjects returns all subjects.
func (r *Repo) ListSubjects(ctx context.Context) ([]Subject, error) {
	return r.querySubjects(ctx, `
		SELECT id, name, code, faculty_id, branch, semester, created_at FROM subjects ORDER BY branch, name
	`)
}

// ListSubjectsByFaculty returns the subjects taught by one faculty member.
func (r *Repo) ListSubjectsByFaculty(ctx context.Context, facultyID string) ([]Subject, error) {
	return r.querySubjects(ctx, `
		SELECT id, name, code, faculty_id, branch, semester, created_at FROM subjects WHERE faculty_id = $1 ORDER BY name
	`, facultyID)
}

// UpdateSubject writes the mutable fields.
func (r *Repo) UpdateSubject(ctx context.Context, s Subject) (Subject, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subjects SET name = $2, branch = $3, semester = $4, faculty_id = $5 WHERE id = $1
	`, s.ID, s.Name, s.Branch, s.Semester, s.FacultyID)
	if err != nil {
		return Subject{}, err
	}
	if err := requireRow(res); err != nil {
		return Subject{}, err
	}
	return r.SubjectByID(ctx, s.ID)
}

// DeleteSubject removes a subject.
func (r *Repo) DeleteSubject(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repo) querySubjects(ctx context.Context, query string, args ...any) ([]Subject, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.FacultyID, &s.Branch, &s.Semester, &s.CreatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
