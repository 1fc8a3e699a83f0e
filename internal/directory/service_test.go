package directory

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"collegehub/internal/apperr"
)

type fakeRepo struct {
	Repository
	users        map[string]User
	students     map[string]Student
	branches     map[string]Branch
	deletedUsers []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    make(map[string]User),
		students: make(map[string]Student),
		branches: make(map[string]Branch),
	}
}

func (r *fakeRepo) CreateUser(ctx context.Context, u User) (User, error) {
	u.ID = "u" + u.Username
	r.users[u.ID] = u
	return u, nil
}

func (r *fakeRepo) UserByIdentifier(ctx context.Context, identifier string) (User, error) {
	for _, u := range r.users {
		if u.Username == identifier || u.RollOrID == identifier {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *fakeRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) RollOrIDTaken(ctx context.Context, rollOrID string) (bool, error) {
	for _, u := range r.users {
		if u.RollOrID == rollOrID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) DeleteUser(ctx context.Context, id string) error {
	delete(r.users, id)
	r.deletedUsers = append(r.deletedUsers, id)
	return nil
}

func (r *fakeRepo) CreateStudent(ctx context.Context, s Student) (Student, error) {
	s.ID = "s" + s.RollNo
	r.students[s.ID] = s
	return s, nil
}

func (r *fakeRepo) SearchStudents(ctx context.Context, q string) ([]Student, error) {
	var out []Student
	for _, s := range r.students {
		if s.RollNo == q || s.Name == q {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeRepo) BranchByNameCourse(ctx context.Context, name, course string) (Branch, error) {
	for _, b := range r.branches {
		if b.Name == name && b.Course == course {
			return b, nil
		}
	}
	return Branch{}, ErrNotFound
}

func (r *fakeRepo) CreateBranch(ctx context.Context, b Branch) (Branch, error) {
	b.ID = "b" + b.Name
	r.branches[b.ID] = b
	return b, nil
}

func (r *fakeRepo) DeleteBranch(ctx context.Context, id string) (Branch, error) {
	b, ok := r.branches[id]
	if !ok {
		return Branch{}, ErrNotFound
	}
	delete(r.branches, id)
	return b, nil
}

type fakeMarks struct {
	initialized []string
	deleted     []string
	failInit    bool
}

func (m *fakeMarks) InitRecord(ctx context.Context, studentID, rollNo, course, branch string) error {
	if m.failInit {
		return errors.New("marks init failed")
	}
	m.initialized = append(m.initialized, studentID)
	return nil
}

func (m *fakeMarks) DeleteByStudent(ctx context.Context, studentID string) error {
	m.deleted = append(m.deleted, studentID)
	return nil
}

func seedBranch(repo *fakeRepo) {
	repo.branches["b1"] = Branch{ID: "b1", Name: "AI", Course: "BTech"}
}

func studentInput() RegisterInput {
	return RegisterInput{
		Username: "asha", Password: "secret12", Role: "student",
		RollOrID: "BT21-007", Name: "Asha", Course: "BTech", Branch: "AI",
	}
}

func TestRegisterStudentInitializesMarks(t *testing.T) {
	repo := newFakeRepo()
	seedBranch(repo)
	marks := &fakeMarks{}
	svc := NewService(repo, marks, nil)

	user, err := svc.Register(context.Background(), studentInput())
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.PasswordHash != "" {
		t.Fatal("password hash must not be returned")
	}
	if len(marks.initialized) != 1 {
		t.Fatalf("marks record not initialized: %v", marks.initialized)
	}
	if len(repo.students) != 1 {
		t.Fatalf("student profile not created")
	}
}

func TestRegisterRejectsUnknownBranch(t *testing.T) {
	repo := newFakeRepo() // no branches
	svc := NewService(repo, &fakeMarks{}, nil)

	_, err := svc.Register(context.Background(), studentInput())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("unknown branch should be a validation error, got %v", err)
	}
	if len(repo.users) != 0 {
		t.Fatal("no user should have been created")
	}
}

func TestRegisterRollsBackUserOnMarksFailure(t *testing.T) {
	repo := newFakeRepo()
	seedBranch(repo)
	svc := NewService(repo, &fakeMarks{failInit: true}, nil)

	_, err := svc.Register(context.Background(), studentInput())
	if err == nil {
		t.Fatal("Register should fail when the marks record cannot be created")
	}
	if len(repo.users) != 0 {
		t.Fatal("user should have been rolled back")
	}
	if len(repo.deletedUsers) != 1 {
		t.Fatalf("expected one rollback delete, got %v", repo.deletedUsers)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := newFakeRepo()
	seedBranch(repo)
	svc := NewService(repo, &fakeMarks{}, nil)

	if _, err := svc.Register(context.Background(), studentInput()); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	in := studentInput()
	in.RollOrID = "BT21-008"
	_, err := svc.Register(context.Background(), in)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("duplicate username should conflict, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	repo := newFakeRepo()
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret12"), bcrypt.MinCost)
	repo.users["u1"] = User{ID: "u1", Username: "asha", RollOrID: "BT21-007", PasswordHash: string(hash)}
	svc := NewService(repo, &fakeMarks{}, nil)

	if _, err := svc.Authenticate(context.Background(), "asha", "secret12"); err != nil {
		t.Fatalf("login by username failed: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "BT21-007", "secret12"); err != nil {
		t.Fatalf("login by roll number failed: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "asha", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password should be ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "ghost", "secret12"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown identifier should be ErrInvalidCredentials, got %v", err)
	}
}

func TestFindStudentRequiresSingleMatch(t *testing.T) {
	repo := newFakeRepo()
	repo.students["s1"] = Student{ID: "s1", RollNo: "BT21-007", Name: "Asha"}
	repo.students["s2"] = Student{ID: "s2", RollNo: "BT21-008", Name: "Asha"}
	svc := NewService(repo, &fakeMarks{}, nil)

	student, err := svc.FindStudent(context.Background(), "BT21-007")
	if err != nil {
		t.Fatalf("unique match returned error: %v", err)
	}
	if student.ID != "s1" {
		t.Fatalf("wrong student: %s", student.ID)
	}

	if _, err := svc.FindStudent(context.Background(), "Asha"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("ambiguous match should be not found, got %v", err)
	}
	if _, err := svc.FindStudent(context.Background(), "nobody"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("zero matches should be not found, got %v", err)
	}
}

func TestDeleteBranchLeavesStudents(t *testing.T) {
	repo := newFakeRepo()
	seedBranch(repo)
	repo.students["s1"] = Student{ID: "s1", RollNo: "BT21-007", Course: "BTech", Branch: "AI"}
	svc := NewService(repo, &fakeMarks{}, nil)

	if _, err := svc.DeleteBranch(context.Background(), "b1"); err != nil {
		t.Fatalf("DeleteBranch returned error: %v", err)
	}
	if len(repo.branches) != 0 {
		t.Fatal("branch should be gone")
	}
	// Students keep their branch string; nothing cascades.
	if repo.students["s1"].Branch != "AI" {
		t.Fatal("student branch reference must survive branch deletion")
	}
}

func TestCreateBranchDuplicate(t *testing.T) {
	repo := newFakeRepo()
	seedBranch(repo)
	svc := NewService(repo, &fakeMarks{}, nil)

	_, err := svc.CreateBranch(context.Background(), "AI", "BTech", "")
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("duplicate (name, course) should conflict, got %v", err)
	}
	// Same name under a different degree is fine.
	if _, err := svc.CreateBranch(context.Background(), "AI", "MTech", ""); err != nil {
		t.Fatalf("same name under another course returned error: %v", err)
	}
}
