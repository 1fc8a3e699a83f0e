package marks

import (
	"context"
	"errors"

	"collegehub/internal/apperr"
	"collegehub/internal/directory"
	"collegehub/internal/realtime"
)

type (
	// Repository is the storage surface the service needs.
	Repository interface {
		ByStudent(ctx context.Context, studentID string) (Record, error)
		SetCounters(ctx context.Context, studentID string, total float64, reviewed int) (Record, error)
		SetBaselineAll(ctx context.Context, total, average *float64) (int, error)
		ListByCourseBranch(ctx context.Context, course, branch string) ([]Record, error)
	}

	// Emitter publishes fan-out events; may be nil.
	Emitter interface {
		Emit(evt realtime.Event)
	}

	// Service serves marks snapshots and admin corrections. Grade
	// application itself runs inside the assignment workflow's
	// transaction, not here.
	Service struct {
		repo   Repository
		events Emitter
	}
)

// NewService creates a marks service.
func NewService(repo Repository, events Emitter) *Service {
	return &Service{repo: repo, events: events}
}

// ByStudent returns a student's aggregate with its entries.
func (s *Service) ByStudent(ctx context.Context, studentID string) (Record, error) {
	rec, err := s.repo.ByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Record{}, apperr.NotFound("marks record not found")
		}
		return Record{}, apperr.Internal(err)
	}
	return rec, nil
}

// SetCounters lets an admin overwrite a student's counters. Entries are
// left untouched so the per-assignment history stays auditable.
func (s *Service) SetCounters(ctx context.Context, studentID string, total float64, reviewed int) (Record, error) {
	if total < 0 || reviewed < 0 {
		return Record{}, apperr.Validation("totalMarks and reviewedCount must be non-negative")
	}
	rec, err := s.repo.SetCounters(ctx, studentID, total, reviewed)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Record{}, apperr.NotFound("marks record not found")
		}
		return Record{}, apperr.Internal(err)
	}
	s.emitUpdated(rec)
	return rec, nil
}

// SetBaseline writes one totalMarks/averageMarks baseline across every
// record. An omitted field keeps its stored value; entries and reviewed
// counts survive. This is an administrative reset, not a grading action,
// so the average is taken as given rather than recomputed.
func (s *Service) SetBaseline(ctx context.Context, total, average *float64) (int, error) {
	if total == nil && average == nil {
		return 0, apperr.Validation("totalMarks or averageMarks is required")
	}
	if (total != nil && *total < 0) || (average != nil && *average < 0) {
		return 0, apperr.Validation("totalMarks and averageMarks must be non-negative")
	}
	n, err := s.repo.SetBaselineAll(ctx, total, average)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	if s.events != nil {
		payload := map[string]any{"records": n}
		if total != nil {
			payload["totalMarks"] = *total
		}
		if average != nil {
			payload["averageMarks"] = *average
		}
		s.events.Emit(realtime.Event{
			Name:    realtime.EventMarksUpdated,
			Rooms:   []string{realtime.RoomAdmin},
			Payload: payload,
		})
	}
	return n, nil
}

// GradeSheet returns a branch's aggregates ordered by roll number.
func (s *Service) GradeSheet(ctx context.Context, course, branch string) ([]Record, error) {
	if course == "" || branch == "" {
		return nil, apperr.Validation("course and branch are required")
	}
	records, err := s.repo.ListByCourseBranch(ctx, course, branch)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return records, nil
}

func (s *Service) emitUpdated(rec Record) {
	if s.events == nil {
		return
	}
	rooms := []string{realtime.RoomAdmin}
	if rec.Course != "" && rec.Branch != "" {
		rooms = append(rooms, realtime.BranchRoom(rec.Course, rec.Branch))
	}
	s.events.Emit(realtime.Event{
		Name:  realtime.EventMarksUpdated,
		Rooms: rooms,
		Payload: map[string]any{
			"studentId":     rec.StudentID,
			"totalMarks":    rec.TotalMarks,
			"reviewedCount": rec.ReviewedCount,
			"averageMarks":  rec.AverageMarks,
		},
	})
}
