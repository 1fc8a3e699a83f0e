package schedule

import (
	"context"
	"errors"
	"log"
	"time"

	"collegehub/internal/apperr"
	"collegehub/internal/directory"
	"collegehub/internal/realtime"
)

type (
	// Repository is the storage surface the service needs.
	Repository interface {
		Create(ctx context.Context, e Entry) (Entry, error)
		ByID(ctx context.Context, id string) (Entry, error)
		Update(ctx context.Context, e Entry) (Entry, error)
		Delete(ctx context.Context, id string) error
		SetLive(ctx context.Context, id string, live bool) error
		List(ctx context.Context, course, branch string) ([]Entry, error)
		ListByFaculty(ctx context.Context, facultyID string) ([]Entry, error)
		ListByFacultyDay(ctx context.Context, facultyID, day string) ([]Entry, error)
		ListByCourseBranch(ctx context.Context, course, branch string) ([]Entry, error)
		ListByCourseBranchDay(ctx context.Context, course, branch, day string) ([]Entry, error)
		ListLive(ctx context.Context) ([]Entry, error)
		ListAllByFaculty(ctx context.Context) ([]Entry, error)
	}

	// Emitter publishes fan-out events; may be nil.
	Emitter interface {
		Emit(evt realtime.Event)
	}

	// Service governs the timetable and the live-class state machine.
	Service struct {
		repo   Repository
		events Emitter
		now    func() time.Time
	}
)

// NewService creates a schedule service using wall-clock time.
func NewService(repo Repository, events Emitter) *Service {
	return &Service{repo: repo, events: events, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateEntry validates and stores a new slot.
func (s *Service) CreateEntry(ctx context.Context, e Entry) (Entry, error) {
	if err := validateEntry(e); err != nil {
		return Entry{}, err
	}
	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return Entry{}, apperr.Internal(err)
	}
	s.emitTimetableUpdated(created)
	return created, nil
}

// UpdateEntry rewrites a slot's schedulable fields.
func (s *Service) UpdateEntry(ctx context.Context, e Entry) (Entry, error) {
	if err := validateEntry(e); err != nil {
		return Entry{}, err
	}
	updated, err := s.repo.Update(ctx, e)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Entry{}, apperr.NotFound("timetable entry not found")
		}
		return Entry{}, apperr.Internal(err)
	}
	s.emitTimetableUpdated(updated)
	return updated, nil
}

// DeleteEntry removes a slot.
func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	entry, err := s.repo.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return apperr.NotFound("timetable entry not found")
		}
		return apperr.Internal(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	s.emitTimetableUpdated(entry)
	return nil
}

func validateEntry(e Entry) error {
	if e.CourseID == "" || e.FacultyID == "" || e.Course == "" || e.Branch == "" ||
		e.DayOfWeek == "" || e.StartTime == "" || e.EndTime == "" || e.Room == "" {
		return apperr.Validation("courseId, facultyId, course, branch, dayOfWeek, startTime, endTime, and room are all required")
	}
	if !ValidDay(e.DayOfWeek) {
		return apperr.Validation("unknown day of week %q", e.DayOfWeek)
	}
	start, err := TimeToMinutes(e.StartTime)
	if err != nil {
		return apperr.Validation("invalid startTime %q", e.StartTime)
	}
	end, err := TimeToMinutes(e.EndTime)
	if err != nil {
		return apperr.Validation("invalid endTime %q", e.EndTime)
	}
	if end <= start {
		return apperr.Validation("endTime must be after startTime")
	}
	return nil
}

// ToggleLive flips the slot's live flag. Stopping is always permitted;
// starting is rejected unless the current moment falls inside the slot's
// window on the matching weekday.
func (s *Service) ToggleLive(ctx context.Context, id string) (Entry, error) {
	entry, err := s.repo.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Entry{}, apperr.NotFound("class not found")
		}
		return Entry{}, apperr.Internal(err)
	}
	if !entry.IsLive && !IsActive(entry.DayOfWeek, entry.StartTime, entry.EndTime, s.now()) {
		return Entry{}, apperr.Transition("class can only go live during its scheduled window (%s %s-%s)",
			entry.DayOfWeek, entry.StartTime, entry.EndTime)
	}
	next := !entry.IsLive
	if err := s.repo.SetLive(ctx, id, next); err != nil {
		return Entry{}, apperr.Internal(err)
	}
	entry.IsLive = next
	s.emitClassLive(entry)
	return entry, nil
}

// Heal flips stored live flags that have outlived their window. Dashboard
// reads call this so a stale "live" badge never survives a read.
func (s *Service) Heal(ctx context.Context, entries []Entry) []Entry {
	now := s.now()
	for i := range entries {
		if entries[i].IsLive && !IsActive(entries[i].DayOfWeek, entries[i].StartTime, entries[i].EndTime, now) {
			if err := s.repo.SetLive(ctx, entries[i].ID, false); err != nil {
				log.Printf("schedule: heal %s failed: %v", entries[i].ID, err)
				continue
			}
			entries[i].IsLive = false
			s.emitClassLive(entries[i])
		}
		if status, err := Status(entries[i].DayOfWeek, entries[i].StartTime, entries[i].EndTime, now); err == nil {
			entries[i].Status = status
		}
	}
	return entries
}

// Sweep is the background variant of Heal used by the worker: it corrects
// every expired live flag in storage.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	live, err := s.repo.ListLive(ctx)
	if err != nil {
		return 0, err
	}
	corrected := 0
	now := s.now()
	for _, entry := range live {
		if IsActive(entry.DayOfWeek, entry.StartTime, entry.EndTime, now) {
			continue
		}
		if err := s.repo.SetLive(ctx, entry.ID, false); err != nil {
			log.Printf("schedule: sweep %s failed: %v", entry.ID, err)
			continue
		}
		entry.IsLive = false
		s.emitClassLive(entry)
		corrected++
	}
	return corrected, nil
}

// TodayForBranch returns today's healed schedule for one branch.
func (s *Service) TodayForBranch(ctx context.Context, course, branch string) ([]Entry, error) {
	entries, err := s.repo.ListByCourseBranchDay(ctx, course, branch, s.today())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.Heal(ctx, entries), nil
}

// TodayForFaculty returns today's healed schedule for one faculty member.
func (s *Service) TodayForFaculty(ctx context.Context, facultyID string) ([]Entry, error) {
	entries, err := s.repo.ListByFacultyDay(ctx, facultyID, s.today())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.Heal(ctx, entries), nil
}

// WeekForBranch returns a branch's full weekly timetable, healed.
func (s *Service) WeekForBranch(ctx context.Context, course, branch string) ([]Entry, error) {
	entries, err := s.repo.ListByCourseBranch(ctx, course, branch)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.Heal(ctx, entries), nil
}

// WeekForFaculty returns a faculty member's full weekly schedule, healed.
func (s *Service) WeekForFaculty(ctx context.Context, facultyID string) ([]Entry, error) {
	entries, err := s.repo.ListByFaculty(ctx, facultyID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.Heal(ctx, entries), nil
}

// List returns entries filtered by course/branch for the admin view.
func (s *Service) List(ctx context.Context, course, branch string) ([]Entry, error) {
	entries, err := s.repo.List(ctx, course, branch)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.Heal(ctx, entries), nil
}

// TeacherSchedule groups all entries by faculty; the grouping is derived
// from the timetable, not stored separately.
type TeacherSchedule struct {
	FacultyID string  `json:"facultyId"`
	Entries   []Entry `json:"entries"`
}

// GroupByFaculty builds the derived teacher schedule.
func (s *Service) GroupByFaculty(ctx context.Context) ([]TeacherSchedule, error) {
	entries, err := s.repo.ListAllByFaculty(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	entries = s.Heal(ctx, entries)
	var grouped []TeacherSchedule
	index := make(map[string]int)
	for _, entry := range entries {
		i, ok := index[entry.FacultyID]
		if !ok {
			i = len(grouped)
			index[entry.FacultyID] = i
			grouped = append(grouped, TeacherSchedule{FacultyID: entry.FacultyID})
		}
		grouped[i].Entries = append(grouped[i].Entries, entry)
	}
	return grouped, nil
}

func (s *Service) today() string {
	return days[int(s.now().Weekday())]
}

func (s *Service) emitClassLive(entry Entry) {
	if s.events == nil {
		return
	}
	s.events.Emit(realtime.Event{
		Name:  realtime.EventClassLive,
		Rooms: []string{realtime.BranchRoom(entry.Course, entry.Branch)},
		Payload: map[string]any{
			"timetableId": entry.ID,
			"courseId":    entry.CourseID,
			"isLive":      entry.IsLive,
			"course":      entry.Course,
			"branch":      entry.Branch,
		},
	})
}

func (s *Service) emitTimetableUpdated(entry Entry) {
	if s.events == nil {
		return
	}
	s.events.Emit(realtime.Event{
		Name:  realtime.EventTimetableUpdated,
		Rooms: []string{realtime.RoomAdmin, realtime.RoomFaculty},
		Payload: map[string]any{
			"timetableId": entry.ID,
			"course":      entry.Course,
			"branch":      entry.Branch,
			"dayOfWeek":   entry.DayOfWeek,
		},
	})
}
