package assignment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"collegehub/internal/apperr"
	"collegehub/internal/directory"
	"collegehub/internal/marks"
	"collegehub/internal/realtime"
)

type (
	// Repository is the storage surface the service needs.
	Repository interface {
		Create(ctx context.Context, a Assignment) (Assignment, error)
		ByID(ctx context.Context, id string) (Assignment, error)
		Update(ctx context.Context, a Assignment) (Assignment, error)
		Delete(ctx context.Context, id string) error
		ListByCourseBranch(ctx context.Context, course, branch string) ([]Assignment, error)
		ListByFaculty(ctx context.Context, facultyID string) ([]Assignment, error)
		SubmissionByID(ctx context.Context, id string) (Submission, error)
		SubmissionFor(ctx context.Context, assignmentID, studentID string) (Submission, error)
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		ReplaceSubmission(ctx context.Context, id, fileURL string) (Submission, error)
		MarkReviewed(ctx context.Context, tx *sql.Tx, id string, grade float64, feedback string) error
		SubmissionsByAssignment(ctx context.Context, assignmentID string) ([]Submission, error)
		SubmissionsByStudent(ctx context.Context, studentID string) ([]Submission, error)
		CountAll(ctx context.Context) (int, error)
		CountSubmissions(ctx context.Context) (int, int, error)
	}

	// MarksApplier folds a reviewed grade into the student's aggregate.
	MarksApplier interface {
		ApplyGrade(ctx context.Context, q marks.Querier, studentID, assignmentID, assignmentTitle string, grade float64) (marks.Record, error)
	}

	// StudentLookup resolves the submitting student's profile for the
	// course/branch eligibility check.
	StudentLookup interface {
		StudentByID(ctx context.Context, id string) (directory.Student, error)
	}

	// Emitter publishes fan-out events; may be nil.
	Emitter interface {
		Emit(evt realtime.Event)
	}

	// Service runs the assignment workflow: post, submit, grade. db may be
	// nil in tests; grading then skips the transaction wrapper.
	Service struct {
		repo     Repository
		marks    MarksApplier
		students StudentLookup
		events   Emitter
		db       *sql.DB
		now      func() time.Time
	}
)

// NewService creates an assignment service.
func NewService(repo Repository, marksApplier MarksApplier, students StudentLookup, events Emitter, db *sql.DB) *Service {
	return &Service{repo: repo, marks: marksApplier, students: students, events: events, db: db, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// studentLookupErr maps a failed student lookup. The lookup may be backed
// by the raw repo (which returns the storage sentinel) or by the directory
// service (which returns a typed not-found); both mean a missing student.
func studentLookupErr(err error) error {
	if errors.Is(err, directory.ErrNotFound) || apperr.IsKind(err, apperr.KindNotFound) {
		return apperr.NotFound("student not found")
	}
	return apperr.Internal(err)
}

// Create validates and posts an assignment to its branch.
func (s *Service) Create(ctx context.Context, a Assignment) (Assignment, error) {
	if a.CourseID == "" || a.FacultyID == "" || a.Course == "" || a.Branch == "" || a.Title == "" {
		return Assignment{}, apperr.Validation("courseId, facultyId, course, branch, and title are all required")
	}
	if a.DueDate.IsZero() {
		return Assignment{}, apperr.Validation("dueDate is required")
	}
	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return Assignment{}, apperr.Internal(err)
	}
	if s.events != nil {
		s.events.Emit(realtime.Event{
			Name:  realtime.EventAssignmentCreated,
			Rooms: []string{realtime.BranchRoom(created.Course, created.Branch), realtime.RoomAdmin},
			Payload: map[string]any{
				"assignmentId": created.ID,
				"courseId":     created.CourseID,
				"title":        created.Title,
				"dueDate":      created.DueDate,
				"course":       created.Course,
				"branch":       created.Branch,
			},
		})
	}
	return created, nil
}

// Update rewrites title, description, and due date.
func (s *Service) Update(ctx context.Context, a Assignment) (Assignment, error) {
	if a.Title == "" || a.DueDate.IsZero() {
		return Assignment{}, apperr.Validation("title and dueDate are required")
	}
	updated, err := s.repo.Update(ctx, a)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Assignment{}, apperr.NotFound("assignment not found")
		}
		return Assignment{}, apperr.Internal(err)
	}
	return updated, nil
}

// Delete removes an assignment and its submissions.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return apperr.NotFound("assignment not found")
		}
		return apperr.Internal(err)
	}
	return nil
}

// ByID fetches one assignment.
func (s *Service) ByID(ctx context.Context, id string) (Assignment, error) {
	a, err := s.repo.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Assignment{}, apperr.NotFound("assignment not found")
		}
		return Assignment{}, apperr.Internal(err)
	}
	return a, nil
}

// Submit hands in a file for a student. Only students of the assignment's
// branch may submit, the deadline is hard, a reviewed submission is
// frozen, and an unreviewed one is replaced in place.
func (s *Service) Submit(ctx context.Context, studentID, assignmentID, fileURL string) (Submission, error) {
	if fileURL == "" {
		return Submission{}, apperr.Validation("fileUrl is required")
	}
	a, err := s.repo.ByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Submission{}, apperr.NotFound("assignment not found")
		}
		return Submission{}, apperr.Internal(err)
	}
	student, err := s.students.StudentByID(ctx, studentID)
	if err != nil {
		return Submission{}, studentLookupErr(err)
	}
	if student.Course != a.Course || student.Branch != a.Branch {
		return Submission{}, apperr.Permission("assignment belongs to a different branch")
	}
	if s.now().After(a.DueDate) {
		return Submission{}, apperr.Conflict("submission deadline has passed")
	}

	existing, err := s.repo.SubmissionFor(ctx, assignmentID, studentID)
	switch {
	case err == nil && existing.IsReviewed:
		return Submission{}, apperr.Conflict("submission has already been reviewed")
	case err == nil:
		replaced, err := s.repo.ReplaceSubmission(ctx, existing.ID, fileURL)
		if err != nil {
			return Submission{}, apperr.Internal(err)
		}
		return replaced, nil
	case errors.Is(err, directory.ErrNotFound):
		created, err := s.repo.CreateSubmission(ctx, Submission{
			AssignmentID: assignmentID,
			StudentID:    studentID,
			FileURL:      fileURL,
		})
		if err != nil {
			return Submission{}, apperr.Internal(err)
		}
		return created, nil
	default:
		return Submission{}, apperr.Internal(err)
	}
}

// Grade reviews a submission. The submission flip and the marks aggregate
// move in one transaction so a crash between them cannot leave the two
// out of step.
func (s *Service) Grade(ctx context.Context, submissionID string, grade float64, feedback string) (Submission, error) {
	if grade < 0 || grade > 100 {
		return Submission{}, apperr.Validation("grade must be between 0 and 100")
	}
	sub, err := s.repo.SubmissionByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Submission{}, apperr.NotFound("submission not found")
		}
		return Submission{}, apperr.Internal(err)
	}
	a, err := s.repo.ByID(ctx, sub.AssignmentID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Submission{}, apperr.NotFound("assignment not found")
		}
		return Submission{}, apperr.Internal(err)
	}

	var tx *sql.Tx
	var q marks.Querier
	if s.db != nil {
		tx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return Submission{}, apperr.Internal(err)
		}
		defer tx.Rollback()
		q = tx
	}
	if err := s.repo.MarkReviewed(ctx, tx, submissionID, grade, feedback); err != nil {
		return Submission{}, apperr.Internal(err)
	}
	rec, err := s.marks.ApplyGrade(ctx, q, sub.StudentID, a.ID, a.Title, grade)
	if err != nil {
		return Submission{}, apperr.Internal(err)
	}
	if tx != nil {
		if err := tx.Commit(); err != nil {
			return Submission{}, apperr.Internal(err)
		}
	}

	sub.Grade = &grade
	sub.Feedback = feedback
	sub.IsReviewed = true
	if s.events != nil {
		s.events.Emit(realtime.Event{
			Name:  realtime.EventMarksUpdated,
			Rooms: []string{realtime.BranchRoom(a.Course, a.Branch), realtime.RoomAdmin},
			Payload: map[string]any{
				"studentId":     sub.StudentID,
				"assignmentId":  a.ID,
				"grade":         grade,
				"totalMarks":    rec.TotalMarks,
				"reviewedCount": rec.ReviewedCount,
				"averageMarks":  rec.AverageMarks,
			},
		})
	}
	return sub, nil
}

// StudentItem pairs an assignment with the student's submission, if any.
type StudentItem struct {
	Assignment Assignment  `json:"assignment"`
	Submission *Submission `json:"submission,omitempty"`
}

// StudentView splits a branch's assignments by the student's progress.
type StudentView struct {
	Pending   []StudentItem `json:"pending"`
	Submitted []StudentItem `json:"submitted"`
	Reviewed  []StudentItem `json:"reviewed"`
}

// ForStudent builds the three-way split for one student's branch.
func (s *Service) ForStudent(ctx context.Context, studentID string) (StudentView, error) {
	student, err := s.students.StudentByID(ctx, studentID)
	if err != nil {
		return StudentView{}, studentLookupErr(err)
	}
	assignments, err := s.repo.ListByCourseBranch(ctx, student.Course, student.Branch)
	if err != nil {
		return StudentView{}, apperr.Internal(err)
	}
	subs, err := s.repo.SubmissionsByStudent(ctx, studentID)
	if err != nil {
		return StudentView{}, apperr.Internal(err)
	}
	byAssignment := make(map[string]Submission, len(subs))
	for _, sub := range subs {
		byAssignment[sub.AssignmentID] = sub
	}

	view := StudentView{}
	for _, a := range assignments {
		sub, ok := byAssignment[a.ID]
		switch {
		case !ok:
			view.Pending = append(view.Pending, StudentItem{Assignment: a})
		case sub.IsReviewed:
			s := sub
			view.Reviewed = append(view.Reviewed, StudentItem{Assignment: a, Submission: &s})
		default:
			s := sub
			view.Submitted = append(view.Submitted, StudentItem{Assignment: a, Submission: &s})
		}
	}
	return view, nil
}

// ByFaculty lists everything one faculty member has posted.
func (s *Service) ByFaculty(ctx context.Context, facultyID string) ([]Assignment, error) {
	assignments, err := s.repo.ListByFaculty(ctx, facultyID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return assignments, nil
}

// Totals is the college-wide workload snapshot.
type Totals struct {
	Assignments   int `json:"assignments"`
	Submissions   int `json:"submissions"`
	PendingReview int `json:"pendingReview"`
}

// Totals counts assignments and submissions across the whole college.
func (s *Service) Totals(ctx context.Context) (Totals, error) {
	assignments, err := s.repo.CountAll(ctx)
	if err != nil {
		return Totals{}, apperr.Internal(err)
	}
	subs, pending, err := s.repo.CountSubmissions(ctx)
	if err != nil {
		return Totals{}, apperr.Internal(err)
	}
	return Totals{Assignments: assignments, Submissions: subs, PendingReview: pending}, nil
}

// Submissions lists an assignment's submissions with student identity.
func (s *Service) Submissions(ctx context.Context, assignmentID string) ([]Submission, error) {
	if _, err := s.repo.ByID(ctx, assignmentID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, apperr.NotFound("assignment not found")
		}
		return nil, apperr.Internal(err)
	}
	subs, err := s.repo.SubmissionsByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return subs, nil
}
