package assignment

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"collegehub/internal/apperr"
	"collegehub/internal/directory"
	"collegehub/internal/marks"
	"collegehub/internal/realtime"
)

type fakeRepo struct {
	Repository
	assignments map[string]Assignment
	submissions map[string]Submission // keyed by id
	nextSubID   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		assignments: make(map[string]Assignment),
		submissions: make(map[string]Submission),
	}
}

func (r *fakeRepo) Create(ctx context.Context, a Assignment) (Assignment, error) {
	if a.ID == "" {
		a.ID = "a1"
	}
	r.assignments[a.ID] = a
	return a, nil
}

func (r *fakeRepo) ByID(ctx context.Context, id string) (Assignment, error) {
	a, ok := r.assignments[id]
	if !ok {
		return Assignment{}, directory.ErrNotFound
	}
	return a, nil
}

func (r *fakeRepo) SubmissionByID(ctx context.Context, id string) (Submission, error) {
	s, ok := r.submissions[id]
	if !ok {
		return Submission{}, directory.ErrNotFound
	}
	return s, nil
}

func (r *fakeRepo) SubmissionFor(ctx context.Context, assignmentID, studentID string) (Submission, error) {
	for _, s := range r.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			return s, nil
		}
	}
	return Submission{}, directory.ErrNotFound
}

func (r *fakeRepo) CreateSubmission(ctx context.Context, s Submission) (Submission, error) {
	r.nextSubID++
	s.ID = "sub" + string(rune('0'+r.nextSubID))
	s.SubmittedAt = time.Now()
	r.submissions[s.ID] = s
	return s, nil
}

func (r *fakeRepo) ReplaceSubmission(ctx context.Context, id, fileURL string) (Submission, error) {
	s, ok := r.submissions[id]
	if !ok || s.IsReviewed {
		return Submission{}, directory.ErrNotFound
	}
	s.FileURL = fileURL
	s.SubmittedAt = time.Now()
	r.submissions[id] = s
	return s, nil
}

func (r *fakeRepo) MarkReviewed(ctx context.Context, tx *sql.Tx, id string, grade float64, feedback string) error {
	s, ok := r.submissions[id]
	if !ok {
		return directory.ErrNotFound
	}
	s.Grade = &grade
	s.Feedback = feedback
	s.IsReviewed = true
	r.submissions[id] = s
	return nil
}

func (r *fakeRepo) ListByCourseBranch(ctx context.Context, course, branch string) ([]Assignment, error) {
	var out []Assignment
	for _, a := range r.assignments {
		if a.Course == course && a.Branch == branch {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) SubmissionsByStudent(ctx context.Context, studentID string) ([]Submission, error) {
	var out []Submission
	for _, s := range r.submissions {
		if s.StudentID == studentID {
			out = append(out, s)
		}
	}
	return out, nil
}

// fakeMarks records applied grades and keeps a running aggregate the way
// the real repo does.
type fakeMarks struct {
	total    float64
	reviewed int
	grades   map[string]float64 // by assignment id
}

func newFakeMarks() *fakeMarks {
	return &fakeMarks{grades: make(map[string]float64)}
}

func (m *fakeMarks) ApplyGrade(ctx context.Context, q marks.Querier, studentID, assignmentID, assignmentTitle string, grade float64) (marks.Record, error) {
	if prev, ok := m.grades[assignmentID]; ok {
		m.total += grade - prev
	} else {
		m.total += grade
		m.reviewed++
	}
	m.grades[assignmentID] = grade
	return marks.Record{
		StudentID: studentID, TotalMarks: m.total, ReviewedCount: m.reviewed,
		AverageMarks: marks.Average(m.total, m.reviewed),
	}, nil
}

type fakeStudents struct {
	students map[string]directory.Student
}

func (f *fakeStudents) StudentByID(ctx context.Context, id string) (directory.Student, error) {
	s, ok := f.students[id]
	if !ok {
		return directory.Student{}, directory.ErrNotFound
	}
	return s, nil
}

// typedLookup fails the way *directory.Service does: a typed not-found
// rather than the raw storage sentinel.
type typedLookup struct{}

func (typedLookup) StudentByID(ctx context.Context, id string) (directory.Student, error) {
	return directory.Student{}, apperr.NotFound("student not found")
}

type captureEmitter struct {
	events []realtime.Event
}

func (c *captureEmitter) Emit(evt realtime.Event) { c.events = append(c.events, evt) }

var due = time.Date(2026, 9, 10, 23, 59, 0, 0, time.UTC)

func testService(repo *fakeRepo, marksApplier MarksApplier, emitter Emitter) *Service {
	students := &fakeStudents{students: map[string]directory.Student{
		"s1": {ID: "s1", Course: "BTech", Branch: "AI"},
		"s2": {ID: "s2", Course: "BTech", Branch: "Cyber"},
	}}
	svc := NewService(repo, marksApplier, students, emitter, nil)
	return svc.WithNow(func() time.Time { return due.Add(-24 * time.Hour) })
}

func seedAssignment(repo *fakeRepo) Assignment {
	a := Assignment{
		ID: "a1", CourseID: "subj1", FacultyID: "f1",
		Course: "BTech", Branch: "AI", Title: "Lab 1", DueDate: due,
	}
	repo.assignments[a.ID] = a
	return a
}

func TestCreateEmitsToBranchRoom(t *testing.T) {
	repo := newFakeRepo()
	emitter := &captureEmitter{}
	svc := testService(repo, newFakeMarks(), emitter)

	_, err := svc.Create(context.Background(), Assignment{
		CourseID: "subj1", FacultyID: "f1", Course: "BTech", Branch: "AI",
		Title: "Lab 1", DueDate: due,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(emitter.events) != 1 || emitter.events[0].Name != realtime.EventAssignmentCreated {
		t.Fatalf("expected one assignment:created event, got %+v", emitter.events)
	}
	if emitter.events[0].Rooms[0] != realtime.BranchRoom("BTech", "AI") {
		t.Fatalf("event rooms = %v", emitter.events[0].Rooms)
	}
}

func TestSubmitRejectsOtherBranch(t *testing.T) {
	repo := newFakeRepo()
	seedAssignment(repo)
	svc := testService(repo, newFakeMarks(), nil)

	_, err := svc.Submit(context.Background(), "s2", "a1", "https://files/x.pdf")
	if !apperr.IsKind(err, apperr.KindPermission) {
		t.Fatalf("cross-branch submit should be a permission error, got %v", err)
	}
}

func TestSubmitRejectsAfterDeadline(t *testing.T) {
	repo := newFakeRepo()
	seedAssignment(repo)
	svc := testService(repo, newFakeMarks(), nil).WithNow(func() time.Time { return due.Add(time.Minute) })

	_, err := svc.Submit(context.Background(), "s1", "a1", "https://files/x.pdf")
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("late submit should be a conflict error, got %v", err)
	}
}

func TestSubmitReplacesUnreviewed(t *testing.T) {
	repo := newFakeRepo()
	seedAssignment(repo)
	svc := testService(repo, newFakeMarks(), nil)

	first, err := svc.Submit(context.Background(), "s1", "a1", "https://files/v1.pdf")
	if err != nil {
		t.Fatalf("first submit returned error: %v", err)
	}
	second, err := svc.Submit(context.Background(), "s1", "a1", "https://files/v2.pdf")
	if err != nil {
		t.Fatalf("resubmit returned error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("resubmit should replace in place, got new id %s", second.ID)
	}
	if second.FileURL != "https://files/v2.pdf" {
		t.Fatalf("file url not replaced: %s", second.FileURL)
	}
	if len(repo.submissions) != 1 {
		t.Fatalf("expected a single submission row, got %d", len(repo.submissions))
	}
}

func TestSubmitFrozenAfterReview(t *testing.T) {
	repo := newFakeRepo()
	seedAssignment(repo)
	svc := testService(repo, newFakeMarks(), nil)

	sub, err := svc.Submit(context.Background(), "s1", "a1", "https://files/v1.pdf")
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	if _, err := svc.Grade(context.Background(), sub.ID, 80, "ok"); err != nil {
		t.Fatalf("grade returned error: %v", err)
	}
	_, err = svc.Submit(context.Background(), "s1", "a1", "https://files/v2.pdf")
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("submitting over a reviewed submission should conflict, got %v", err)
	}
}

func TestGradeRangeValidation(t *testing.T) {
	repo := newFakeRepo()
	seedAssignment(repo)
	svc := testService(repo, newFakeMarks(), nil)

	if _, err := svc.Grade(context.Background(), "whatever", -1, ""); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("negative grade should be a validation error, got %v", err)
	}
	if _, err := svc.Grade(context.Background(), "whatever", 101, ""); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("grade above 100 should be a validation error, got %v", err)
	}
}

func TestGradeUpdatesAggregateAndEmits(t *testing.T) {
	repo := newFakeRepo()
	seedAssignment(repo)
	applier := newFakeMarks()
	emitter := &captureEmitter{}
	svc := testService(repo, applier, emitter)

	sub, err := svc.Submit(context.Background(), "s1", "a1", "https://files/v1.pdf")
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	graded, err := svc.Grade(context.Background(), sub.ID, 80, "good")
	if err != nil {
		t.Fatalf("grade returned error: %v", err)
	}
	if !graded.IsReviewed || graded.Grade == nil || *graded.Grade != 80 {
		t.Fatalf("graded submission not marked reviewed: %+v", graded)
	}
	if applier.total != 80 || applier.reviewed != 1 {
		t.Fatalf("aggregate = (%v, %d), want (80, 1)", applier.total, applier.reviewed)
	}
	last := emitter.events[len(emitter.events)-1]
	if last.Name != realtime.EventMarksUpdated {
		t.Fatalf("expected marks:updated event, got %s", last.Name)
	}
}

func TestRegradeAppliesDeltaOnly(t *testing.T) {
	repo := newFakeRepo()
	seedAssignment(repo)
	applier := newFakeMarks()
	svc := testService(repo, applier, nil)

	sub, _ := svc.Submit(context.Background(), "s1", "a1", "https://files/v1.pdf")
	if _, err := svc.Grade(context.Background(), sub.ID, 80, ""); err != nil {
		t.Fatalf("first grade returned error: %v", err)
	}
	if _, err := svc.Grade(context.Background(), sub.ID, 90, ""); err != nil {
		t.Fatalf("regrade returned error: %v", err)
	}
	if applier.total != 90 || applier.reviewed != 1 {
		t.Fatalf("aggregate after regrade = (%v, %d), want (90, 1)", applier.total, applier.reviewed)
	}
}

func TestMissingStudentStaysNotFound(t *testing.T) {
	repo := newFakeRepo()
	seedAssignment(repo)
	svc := NewService(repo, newFakeMarks(), typedLookup{}, nil, nil).
		WithNow(func() time.Time { return due.Add(-24 * time.Hour) })

	_, err := svc.Submit(context.Background(), "ghost", "a1", "https://files/x.pdf")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("missing student on submit should stay not found, got %v", err)
	}
	if _, err := svc.ForStudent(context.Background(), "ghost"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("missing student on listing should stay not found, got %v", err)
	}
}

func TestForStudentSplitsByProgress(t *testing.T) {
	repo := newFakeRepo()
	seedAssignment(repo)
	repo.assignments["a2"] = Assignment{
		ID: "a2", CourseID: "subj1", FacultyID: "f1",
		Course: "BTech", Branch: "AI", Title: "Lab 2", DueDate: due,
	}
	repo.assignments["a3"] = Assignment{
		ID: "a3", CourseID: "subj1", FacultyID: "f1",
		Course: "BTech", Branch: "AI", Title: "Lab 3", DueDate: due,
	}
	svc := testService(repo, newFakeMarks(), nil)

	sub, _ := svc.Submit(context.Background(), "s1", "a1", "https://files/v1.pdf")
	if _, err := svc.Grade(context.Background(), sub.ID, 75, ""); err != nil {
		t.Fatalf("grade returned error: %v", err)
	}
	if _, err := svc.Submit(context.Background(), "s1", "a2", "https://files/v2.pdf"); err != nil {
		t.Fatalf("submit returned error: %v", err)
	}

	view, err := svc.ForStudent(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ForStudent returned error: %v", err)
	}
	if len(view.Reviewed) != 1 || view.Reviewed[0].Assignment.ID != "a1" {
		t.Fatalf("reviewed split wrong: %+v", view.Reviewed)
	}
	if len(view.Submitted) != 1 || view.Submitted[0].Assignment.ID != "a2" {
		t.Fatalf("submitted split wrong: %+v", view.Submitted)
	}
	if len(view.Pending) != 1 || view.Pending[0].Assignment.ID != "a3" {
		t.Fatalf("pending split wrong: %+v", view.Pending)
	}
}
