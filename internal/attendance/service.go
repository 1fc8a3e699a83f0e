package attendance

import (
	"context"
	"math"
	"time"

	"collegehub/internal/apperr"
	"collegehub/internal/realtime"
	"collegehub/internal/schedule"
)

type (
	// Repository is the storage surface the service needs.
	Repository interface {
		Upsert(ctx context.Context, rec Record) (Record, error)
		ListByStudent(ctx context.Context, studentID string) ([]Record, error)
		CountByStudent(ctx context.Context, studentID string) (int, int, error)
		CountByCourses(ctx context.Context, courseIDs []string) (int, int, error)
		CountAll(ctx context.Context) (int, int, error)
		CountByStatus(ctx context.Context) (map[string]int, error)
	}

	// EntryLookup resolves the timetable slot a marking session refers to,
	// supplying the denormalized course/branch pair.
	EntryLookup interface {
		ByID(ctx context.Context, id string) (schedule.Entry, error)
	}

	// Emitter publishes fan-out events; may be nil.
	Emitter interface {
		Emit(evt realtime.Event)
	}

	// Service upserts per-day marks and computes attendance rates.
	Service struct {
		repo    Repository
		entries EntryLookup
		events  Emitter
		now     func() time.Time
	}
)

// NewService creates an attendance service.
func NewService(repo Repository, entries EntryLookup, events Emitter) *Service {
	return &Service{repo: repo, entries: entries, events: events, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// StudentMark is one (student, status) pair in a marking batch.
type StudentMark struct {
	StudentID string `json:"studentId"`
	Status    string `json:"status"`
}

// MarkInput is a faculty marking session for one class on one day.
type MarkInput struct {
	CourseID    string        `json:"courseId"`
	TimetableID string        `json:"timetableId"`
	Course      string        `json:"course"`
	Branch      string        `json:"branch"`
	Records     []StudentMark `json:"records"`
}

// Mark upserts one record per student for today. Marking the same student
// twice on one day replaces the status rather than duplicating the row.
func (s *Service) Mark(ctx context.Context, in MarkInput) ([]Record, error) {
	if in.CourseID == "" || len(in.Records) == 0 {
		return nil, apperr.Validation("courseId and at least one record are required")
	}
	for _, m := range in.Records {
		if m.StudentID == "" || !ValidStatus(m.Status) {
			return nil, apperr.Validation("each record needs a studentId and a status of present, absent, or late")
		}
	}
	course, branch := in.Course, in.Branch
	if in.TimetableID != "" && s.entries != nil {
		if entry, err := s.entries.ByID(ctx, in.TimetableID); err == nil {
			course, branch = entry.Course, entry.Branch
		}
	}

	date := dayTruncate(s.now())
	records := make([]Record, 0, len(in.Records))
	for _, m := range in.Records {
		rec, err := s.repo.Upsert(ctx, Record{
			CourseID:    in.CourseID,
			StudentID:   m.StudentID,
			TimetableID: in.TimetableID,
			Course:      course,
			Branch:      branch,
			Date:        date,
			Status:      m.Status,
		})
		if err != nil {
			return nil, apperr.Internal(err)
		}
		records = append(records, rec)
	}

	if s.events != nil {
		rooms := []string{realtime.RoomAdmin}
		if course != "" && branch != "" {
			rooms = append(rooms, realtime.BranchRoom(course, branch))
		}
		s.events.Emit(realtime.Event{
			Name:  realtime.EventAttendanceUpdated,
			Rooms: rooms,
			Payload: map[string]any{
				"courseId": in.CourseID,
				"date":     date.Format("2006-01-02"),
				"course":   course,
				"branch":   branch,
			},
		})
	}
	return records, nil
}

// History returns a student's records, newest first.
func (s *Service) History(ctx context.Context, studentID string) ([]Record, error) {
	records, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return records, nil
}

// StudentRate returns round(present/total*100) for one student, 0 when no
// records exist.
func (s *Service) StudentRate(ctx context.Context, studentID string) (int, error) {
	present, total, err := s.repo.CountByStudent(ctx, studentID)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return rate(present, total), nil
}

// CoursesRate returns the rate across a set of subjects.
func (s *Service) CoursesRate(ctx context.Context, courseIDs []string) (int, error) {
	present, total, err := s.repo.CountByCourses(ctx, courseIDs)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return rate(present, total), nil
}

// OverallRate returns the college-wide rate.
func (s *Service) OverallRate(ctx context.Context) (int, error) {
	present, total, err := s.repo.CountAll(ctx)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return rate(present, total), nil
}

// ByStatus returns record counts grouped by status.
func (s *Service) ByStatus(ctx context.Context) (map[string]int, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return counts, nil
}

func rate(present, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

func dayTruncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
