package attendance

import (
	"context"
	"testing"
	"time"

	"collegehub/internal/apperr"
	"collegehub/internal/realtime"
	"collegehub/internal/schedule"
)

type fakeRepo struct {
	Repository
	records map[string]Record // keyed by course/student/date
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]Record)}
}

func key(rec Record) string {
	return rec.CourseID + "|" + rec.StudentID + "|" + rec.Date.Format("2006-01-02")
}

func (r *fakeRepo) Upsert(ctx context.Context, rec Record) (Record, error) {
	k := key(rec)
	if existing, ok := r.records[k]; ok {
		rec.ID = existing.ID
	} else {
		rec.ID = k
	}
	r.records[k] = rec
	return rec, nil
}

func (r *fakeRepo) CountByStudent(ctx context.Context, studentID string) (int, int, error) {
	present, total := 0, 0
	for _, rec := range r.records {
		if rec.StudentID != studentID {
			continue
		}
		total++
		if rec.Status == StatusPresent {
			present++
		}
	}
	return present, total, nil
}

type fakeEntries struct {
	entries map[string]schedule.Entry
}

func (f *fakeEntries) ByID(ctx context.Context, id string) (schedule.Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return schedule.Entry{}, apperr.NotFound("entry not found")
	}
	return e, nil
}

type captureEmitter struct {
	events []realtime.Event
}

func (c *captureEmitter) Emit(evt realtime.Event) { c.events = append(c.events, evt) }

func testService(repo *fakeRepo, emitter Emitter) *Service {
	entries := &fakeEntries{entries: map[string]schedule.Entry{
		"t1": {ID: "t1", Course: "BTech", Branch: "AI"},
	}}
	svc := NewService(repo, entries, emitter)
	return svc.WithNow(func() time.Time {
		return time.Date(2026, 8, 31, 10, 45, 12, 0, time.UTC)
	})
}

func TestMarkValidation(t *testing.T) {
	svc := testService(newFakeRepo(), nil)

	_, err := svc.Mark(context.Background(), MarkInput{CourseID: ""})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("missing courseId should be a validation error, got %v", err)
	}

	_, err = svc.Mark(context.Background(), MarkInput{
		CourseID: "c1",
		Records:  []StudentMark{{StudentID: "s1", Status: "asleep"}},
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("unknown status should be a validation error, got %v", err)
	}
}

func TestMarkUpsertsPerDay(t *testing.T) {
	repo := newFakeRepo()
	svc := testService(repo, nil)

	in := MarkInput{
		CourseID:    "c1",
		TimetableID: "t1",
		Records:     []StudentMark{{StudentID: "s1", Status: StatusAbsent}},
	}
	if _, err := svc.Mark(context.Background(), in); err != nil {
		t.Fatalf("first mark returned error: %v", err)
	}

	// Correcting the same day replaces the status instead of adding a row.
	in.Records[0].Status = StatusPresent
	records, err := svc.Mark(context.Background(), in)
	if err != nil {
		t.Fatalf("second mark returned error: %v", err)
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected one stored record, got %d", len(repo.records))
	}
	if records[0].Status != StatusPresent {
		t.Fatalf("status = %s, want present", records[0].Status)
	}
	if h, m, s := records[0].Date.Clock(); h+m+s != 0 {
		t.Fatalf("date should be truncated to midnight, got %v", records[0].Date)
	}
}

func TestMarkResolvesBranchFromTimetable(t *testing.T) {
	repo := newFakeRepo()
	emitter := &captureEmitter{}
	svc := testService(repo, emitter)

	records, err := svc.Mark(context.Background(), MarkInput{
		CourseID:    "c1",
		TimetableID: "t1",
		Records:     []StudentMark{{StudentID: "s1", Status: StatusPresent}},
	})
	if err != nil {
		t.Fatalf("Mark returned error: %v", err)
	}
	if records[0].Course != "BTech" || records[0].Branch != "AI" {
		t.Fatalf("denormalized fields = (%s, %s), want (BTech, AI)", records[0].Course, records[0].Branch)
	}
	if len(emitter.events) != 1 || emitter.events[0].Name != realtime.EventAttendanceUpdated {
		t.Fatalf("expected one attendance:updated event, got %+v", emitter.events)
	}
	rooms := emitter.events[0].Rooms
	if len(rooms) != 2 || rooms[1] != realtime.BranchRoom("BTech", "AI") {
		t.Fatalf("event rooms = %v", rooms)
	}
}

func TestStudentRateRounding(t *testing.T) {
	repo := newFakeRepo()
	svc := testService(repo, nil)

	// No records: rate is 0, not an error.
	rate, err := svc.StudentRate(context.Background(), "s1")
	if err != nil {
		t.Fatalf("StudentRate returned error: %v", err)
	}
	if rate != 0 {
		t.Fatalf("rate with no records = %d, want 0", rate)
	}

	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	statuses := []string{StatusPresent, StatusPresent, StatusAbsent} // 2/3 = 66.67 -> 67
	for i, status := range statuses {
		repo.records[StatusPresent+string(rune('0'+i))] = Record{
			CourseID: "c1", StudentID: "s1", Date: day.AddDate(0, 0, i), Status: status,
		}
	}
	rate, err = svc.StudentRate(context.Background(), "s1")
	if err != nil {
		t.Fatalf("StudentRate returned error: %v", err)
	}
	if rate != 67 {
		t.Fatalf("rate = %d, want 67", rate)
	}
}
