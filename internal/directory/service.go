package directory

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"collegehub/internal/apperr"
	"collegehub/internal/auth"
	"collegehub/internal/realtime"
)

var (
	// ErrNotFound is returned by repositories when an entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned when login verification fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const bcryptCost = 12

type (
	// Repository is the storage surface the service needs.
	Repository interface {
		CreateUser(ctx context.Context, u User) (User, error)
		UserByID(ctx context.Context, id string) (User, error)
		UserByIdentifier(ctx context.Context, identifier string) (User, error)
		UsernameTaken(ctx context.Context, username string) (bool, error)
		RollOrIDTaken(ctx context.Context, rollOrID string) (bool, error)
		UpdateUserPhone(ctx context.Context, id, phone string) (User, error)
		UpdateUserPassword(ctx context.Context, id, passwordHash string) error
		DeleteUser(ctx context.Context, id string) error
		RecentUsersByRole(ctx context.Context, role string, limit int) ([]User, error)

		CreateStudent(ctx context.Context, s Student) (Student, error)
		StudentByID(ctx context.Context, id string) (Student, error)
		StudentByUserID(ctx context.Context, userID string) (Student, error)
		ListStudents(ctx context.Context) ([]Student, error)
		SearchStudents(ctx context.Context, q string) ([]Student, error)
		StudentsByCourseBranch(ctx context.Context, course, branch string) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		CountStudents(ctx context.Context) (int, error)

		CreateFaculty(ctx context.Context, f Faculty) (Faculty, error)
		FacultyByID(ctx context.Context, id string) (Faculty, error)
		FacultyByUserID(ctx context.Context, userID string) (Faculty, error)
		ListFaculty(ctx context.Context) ([]Faculty, error)
		UpdateFaculty(ctx context.Context, f Faculty) (Faculty, error)
		CountFaculty(ctx context.Context) (int, error)
		CountBranches(ctx context.Context) (int, error)
		CountSubjects(ctx context.Context) (int, error)
		AddFacultySubject(ctx context.Context, facultyID, subjectID string) error

		CreateBranch(ctx context.Context, b Branch) (Branch, error)
		BranchByNameCourse(ctx context.Context, name, course string) (Branch, error)
		ListBranches(ctx context.Context, course string) ([]Branch, error)
		UpdateBranch(ctx context.Context, id, name, description string) (Branch, error)
		DeleteBranch(ctx context.Context, id string) (Branch, error)

		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		SubjectByID(ctx context.Context, id string) (Subject, error)
		SubjectCodeTaken(ctx context.Context, code string) (bool, error)
		ListSubjects(ctx context.Context) ([]Subject, error)
		ListSubjectsByFaculty(ctx context.Context, facultyID string) ([]Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error
	}

	// MarksStore creates and removes the marks aggregate alongside a student.
	MarksStore interface {
		InitRecord(ctx context.Context, studentID, rollNo, course, branch string) error
		DeleteByStudent(ctx context.Context, studentID string) error
	}

	// Emitter publishes fan-out events; may be nil.
	Emitter interface {
		Emit(evt realtime.Event)
	}

	// Service owns registration, login verification, and directory CRUD.
	Service struct {
		repo   Repository
		marks  MarksStore
		events Emitter
	}
)

// NewService creates a directory service.
func NewService(repo Repository, marks MarksStore, events Emitter) *Service {
	return &Service{repo: repo, marks: marks, events: events}
}

// RegisterInput carries a registration request for any role.
type RegisterInput struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	RollOrID   string `json:"rollOrId"`
	Phone      string `json:"phone"`
	Name       string `json:"name"`
	Semester   int    `json:"semester"`
	Course     string `json:"course"`
	Branch     string `json:"branch"`
	Department string `json:"department"`
}

// Register creates the User plus the role profile. Students additionally
// get an empty Marks record so grading always has an aggregate to update.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.RollOrID = strings.TrimSpace(in.RollOrID)
	if in.Username == "" || in.Password == "" || in.Role == "" || in.RollOrID == "" {
		return User{}, apperr.Validation("username, password, role, and rollOrId are required")
	}
	if !auth.ValidRole(in.Role) {
		return User{}, apperr.Validation("unknown role %q", in.Role)
	}
	if taken, err := s.repo.UsernameTaken(ctx, in.Username); err != nil {
		return User{}, apperr.Internal(err)
	} else if taken {
		return User{}, apperr.Conflict("username is already taken")
	}
	if taken, err := s.repo.RollOrIDTaken(ctx, in.RollOrID); err != nil {
		return User{}, apperr.Internal(err)
	} else if taken {
		return User{}, apperr.Conflict("roll number / employee id is already registered")
	}

	// Validate the role profile before creating anything.
	switch in.Role {
	case auth.RoleStudent:
		if in.Name == "" {
			return User{}, apperr.Validation("name is required")
		}
		if !ValidDegree(in.Course) {
			return User{}, apperr.Validation("invalid course, must be one of: %s", strings.Join(Degrees, ", "))
		}
		if in.Branch == "" {
			return User{}, apperr.Validation("branch is required for student registration")
		}
		if _, err := s.repo.BranchByNameCourse(ctx, in.Branch, in.Course); err != nil {
			if errors.Is(err, ErrNotFound) {
				return User{}, apperr.Validation("branch %q does not exist under %s", in.Branch, in.Course)
			}
			return User{}, apperr.Internal(err)
		}
		if in.Semester <= 0 {
			in.Semester = 1
		}
	case auth.RoleFaculty:
		if in.Name == "" {
			return User{}, apperr.Validation("name is required")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return User{}, apperr.Internal(err)
	}
	user, err := s.repo.CreateUser(ctx, User{
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         in.Role,
		RollOrID:     in.RollOrID,
		Phone:        in.Phone,
	})
	if err != nil {
		return User{}, apperr.Internal(err)
	}

	switch in.Role {
	case auth.RoleStudent:
		student, err := s.repo.CreateStudent(ctx, Student{
			UserID:   user.ID,
			Name:     in.Name,
			RollNo:   in.RollOrID,
			Course:   in.Course,
			Branch:   in.Branch,
			Semester: in.Semester,
		})
		if err != nil {
			_ = s.repo.DeleteUser(ctx, user.ID)
			return User{}, apperr.Internal(err)
		}
		if err := s.marks.InitRecord(ctx, student.ID, student.RollNo, student.Course, student.Branch); err != nil {
			_ = s.repo.DeleteUser(ctx, user.ID)
			return User{}, apperr.Internal(err)
		}
	case auth.RoleFaculty:
		if _, err := s.repo.CreateFaculty(ctx, Faculty{
			UserID:     user.ID,
			Name:       in.Name,
			EmployeeID: in.RollOrID,
			Department: in.Department,
		}); err != nil {
			_ = s.repo.DeleteUser(ctx, user.ID)
			return User{}, apperr.Internal(err)
		}
	}
	user.PasswordHash = ""
	return user, nil
}

// Authenticate verifies identifier (username or rollOrId) + password.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (User, error) {
	if identifier == "" || password == "" {
		return User{}, apperr.Validation("identifier and password are required")
	}
	user, err := s.repo.UserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, apperr.Internal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	user.PasswordHash = ""
	return user, nil
}

// Me returns the user without the password hash.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	user, err := s.repo.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, apperr.Internal(err)
	}
	user.PasswordHash = ""
	return user, nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" || next == "" {
		return apperr.Validation("current and new password are required")
	}
	user, err := s.repo.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.repo.UpdateUserPassword(ctx, userID, string(hash)); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// UpdatePhone updates the contact number.
func (s *Service) UpdatePhone(ctx context.Context, userID, phone string) (User, error) {
	user, err := s.repo.UpdateUserPhone(ctx, userID, phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, apperr.Internal(err)
	}
	user.PasswordHash = ""
	return user, nil
}

// DeleteAccount removes the user, the role profile (FK cascade), and for
// students the marks aggregate.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.repo.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal(err)
	}
	if user.Role == auth.RoleStudent {
		if student, err := s.repo.StudentByUserID(ctx, userID); err == nil {
			_ = s.marks.DeleteByStudent(ctx, student.ID)
		}
	}
	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// ---------- students & faculty (admin) ----------

// ListStudents returns every student profile.
func (s *Service) ListStudents(ctx context.Context) ([]Student, error) {
	students, err := s.repo.ListStudents(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return students, nil
}

// StudentByID loads one student.
func (s *Service) StudentByID(ctx context.Context, id string) (Student, error) {
	student, err := s.repo.StudentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Student{}, apperr.NotFound("student not found")
		}
		return Student{}, apperr.Internal(err)
	}
	return student, nil
}

// StudentByUserID loads the profile owned by a user.
func (s *Service) StudentByUserID(ctx context.Context, userID string) (Student, error) {
	student, err := s.repo.StudentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Student{}, apperr.NotFound("student profile not found")
		}
		return Student{}, apperr.Internal(err)
	}
	return student, nil
}

// UpdateStudent writes name/branch/semester.
func (s *Service) UpdateStudent(ctx context.Context, st Student) (Student, error) {
	updated, err := s.repo.UpdateStudent(ctx, st)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Student{}, apperr.NotFound("student not found")
		}
		return Student{}, apperr.Internal(err)
	}
	return updated, nil
}

// DeleteStudent cascades profile -> user and removes the marks aggregate.
func (s *Service) DeleteStudent(ctx context.Context, id string) error {
	student, err := s.repo.StudentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("student not found")
		}
		return apperr.Internal(err)
	}
	_ = s.marks.DeleteByStudent(ctx, student.ID)
	if err := s.repo.DeleteUser(ctx, student.UserID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// FindStudent resolves a case-insensitive partial identifier to exactly one
// student profile, otherwise NotFound.
func (s *Service) FindStudent(ctx context.Context, q string) (Student, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return Student{}, apperr.Validation("search query is required")
	}
	matches, err := s.repo.SearchStudents(ctx, q)
	if err != nil {
		return Student{}, apperr.Internal(err)
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return Student{}, apperr.NotFound("no student matches %q", q)
	default:
		return Student{}, apperr.NotFound("identifier %q matches %d students, be more specific", q, len(matches))
	}
}

// ListFaculty returns every faculty profile.
func (s *Service) ListFaculty(ctx context.Context) ([]Faculty, error) {
	list, err := s.repo.ListFaculty(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// FacultyByUserID loads the profile owned by a user.
func (s *Service) FacultyByUserID(ctx context.Context, userID string) (Faculty, error) {
	f, err := s.repo.FacultyByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Faculty{}, apperr.NotFound("faculty profile not found")
		}
		return Faculty{}, apperr.Internal(err)
	}
	return f, nil
}

// UpdateFaculty writes name/department.
func (s *Service) UpdateFaculty(ctx context.Context, f Faculty) (Faculty, error) {
	updated, err := s.repo.UpdateFaculty(ctx, f)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Faculty{}, apperr.NotFound("faculty not found")
		}
		return Faculty{}, apperr.Internal(err)
	}
	return updated, nil
}

// DeleteFaculty cascades profile -> user.
func (s *Service) DeleteFaculty(ctx context.Context, id string) error {
	f, err := s.repo.FacultyByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("faculty not found")
		}
		return apperr.Internal(err)
	}
	if err := s.repo.DeleteUser(ctx, f.UserID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// SubjectsByFaculty returns the subjects one faculty member teaches.
func (s *Service) SubjectsByFaculty(ctx context.Context, facultyID string) ([]Subject, error) {
	subjects, err := s.repo.ListSubjectsByFaculty(ctx, facultyID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return subjects, nil
}

// Counts is the headline directory census for the admin dashboard.
type Counts struct {
	Students int `json:"students"`
	Faculty  int `json:"faculty"`
	Branches int `json:"branches"`
	Subjects int `json:"subjects"`
}

// Counts tallies the directory.
func (s *Service) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	var err error
	if c.Students, err = s.repo.CountStudents(ctx); err != nil {
		return Counts{}, apperr.Internal(err)
	}
	if c.Faculty, err = s.repo.CountFaculty(ctx); err != nil {
		return Counts{}, apperr.Internal(err)
	}
	if c.Branches, err = s.repo.CountBranches(ctx); err != nil {
		return Counts{}, apperr.Internal(err)
	}
	if c.Subjects, err = s.repo.CountSubjects(ctx); err != nil {
		return Counts{}, apperr.Internal(err)
	}
	return c, nil
}

// RecentUsers returns the newest users of one role, hashes stripped.
func (s *Service) RecentUsers(ctx context.Context, role string, limit int) ([]User, error) {
	users, err := s.repo.RecentUsersByRole(ctx, role, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// ---------- branches ----------

// CreateBranch enforces the (name, course) uniqueness and notifies admins.
func (s *Service) CreateBranch(ctx context.Context, name, course, description string) (Branch, error) {
	name = strings.TrimSpace(name)
	if name == "" || course == "" {
		return Branch{}, apperr.Validation("branch name and course are required")
	}
	if !ValidDegree(course) {
		return Branch{}, apperr.Validation("invalid course, must be one of: %s", strings.Join(Degrees, ", "))
	}
	if _, err := s.repo.BranchByNameCourse(ctx, name, course); err == nil {
		return Branch{}, apperr.Conflict("branch %q already exists under %s", name, course)
	} else if !errors.Is(err, ErrNotFound) {
		return Branch{}, apperr.Internal(err)
	}
	branch, err := s.repo.CreateBranch(ctx, Branch{Name: name, Course: course, Description: description})
	if err != nil {
		return Branch{}, apperr.Internal(err)
	}
	if s.events != nil {
		s.events.Emit(realtime.Event{
			Name:  realtime.EventBranchCreated,
			Rooms: []string{realtime.RoomAdmin},
			Payload: map[string]any{
				"branchId": branch.ID, "name": branch.Name, "course": branch.Course,
			},
		})
	}
	return branch, nil
}

// ListBranches returns branches, optionally filtered by degree.
func (s *Service) ListBranches(ctx context.Context, course string) ([]Branch, error) {
	branches, err := s.repo.ListBranches(ctx, course)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return branches, nil
}

// UpdateBranch writes name and description.
func (s *Service) UpdateBranch(ctx context.Context, id, name, description string) (Branch, error) {
	branch, err := s.repo.UpdateBranch(ctx, id, name, description)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Branch{}, apperr.NotFound("branch not found")
		}
		return Branch{}, apperr.Internal(err)
	}
	return branch, nil
}

// DeleteBranch removes the branch. Existing students keep their branch
// string; nothing is rewritten.
func (s *Service) DeleteBranch(ctx context.Context, id string) (Branch, error) {
	branch, err := s.repo.DeleteBranch(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Branch{}, apperr.NotFound("branch not found")
		}
		return Branch{}, apperr.Internal(err)
	}
	return branch, nil
}

// ---------- subjects ----------

// CreateSubject validates the unique code and links the subject into the
// owning faculty member's course list.
func (s *Service) CreateSubject(ctx context.Context, sub Subject) (Subject, error) {
	if sub.Name == "" || sub.Code == "" || sub.FacultyID == "" || sub.Branch == "" || sub.Semester <= 0 {
		return Subject{}, apperr.Validation("name, code, facultyId, branch, and semester are all required")
	}
	if taken, err := s.repo.SubjectCodeTaken(ctx, sub.Code); err != nil {
		return Subject{}, apperr.Internal(err)
	} else if taken {
		return Subject{}, apperr.Conflict("subject code %q already exists", sub.Code)
	}
	if _, err := s.repo.FacultyByID(ctx, sub.FacultyID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Subject{}, apperr.NotFound("faculty not found")
		}
		return Subject{}, apperr.Internal(err)
	}
	created, err := s.repo.CreateSubject(ctx, sub)
	if err != nil {
		return Subject{}, apperr.Internal(err)
	}
	if err := s.repo.AddFacultySubject(ctx, created.FacultyID, created.ID); err != nil {
		return Subject{}, apperr.Internal(err)
	}
	return created, nil
}

// ListSubjects returns all subjects.
func (s *Service) ListSubjects(ctx context.Context) ([]Subject, error) {
	subjects, err := s.repo.ListSubjects(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return subjects, nil
}

// UpdateSubject writes the mutable fields.
func (s *Service) UpdateSubject(ctx context.Context, sub Subject) (Subject, error) {
	updated, err := s.repo.UpdateSubject(ctx, sub)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Subject{}, apperr.NotFound("subject not found")
		}
		return Subject{}, apperr.Internal(err)
	}
	return updated, nil
}

// DeleteSubject removes a subject.
func (s *Service) DeleteSubject(ctx context.Context, id string) error {
	if err := s.repo.DeleteSubject(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("subject not found")
		}
		return apperr.Internal(err)
	}
	return nil
}
