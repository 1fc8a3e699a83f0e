package marks

import (
	"context"
	"testing"

	"collegehub/internal/apperr"
	"collegehub/internal/realtime"
)

func TestAverage(t *testing.T) {
	cases := []struct {
		total float64
		count int
		want  float64
	}{
		{0, 0, 0},
		{100, 0, 0},
		{170, 2, 85.0},
		{85, 3, 28.3},  // 28.333 rounds down
		{86, 3, 28.7},  // 28.666 rounds up
		{25, 1000, 0},  // 0.025 rounds to 0.0
		{95, 2, 47.5},  // exact half stays
		{171, 2, 85.5},
	}
	for _, tc := range cases {
		if got := Average(tc.total, tc.count); got != tc.want {
			t.Fatalf("Average(%v, %d) = %v, want %v", tc.total, tc.count, got, tc.want)
		}
	}
}

type fakeMarksRepo struct {
	Repository
	rec Record
}

func (r *fakeMarksRepo) SetCounters(ctx context.Context, studentID string, total float64, reviewed int) (Record, error) {
	r.rec = Record{
		StudentID: studentID, Course: "BTech", Branch: "AI",
		TotalMarks: total, ReviewedCount: reviewed,
		AverageMarks: Average(total, reviewed),
	}
	return r.rec, nil
}

type captureEmitter struct {
	events []realtime.Event
}

func (c *captureEmitter) Emit(evt realtime.Event) { c.events = append(c.events, evt) }

func TestSetCountersRejectsNegative(t *testing.T) {
	svc := NewService(&fakeMarksRepo{}, nil)
	if _, err := svc.SetCounters(context.Background(), "s1", -1, 0); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("negative total should be a validation error, got %v", err)
	}
	if _, err := svc.SetCounters(context.Background(), "s1", 10, -2); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("negative reviewed count should be a validation error, got %v", err)
	}
}

func TestSetCountersRecomputesAverageAndEmits(t *testing.T) {
	repo := &fakeMarksRepo{}
	emitter := &captureEmitter{}
	svc := NewService(repo, emitter)

	rec, err := svc.SetCounters(context.Background(), "s1", 170, 2)
	if err != nil {
		t.Fatalf("SetCounters returned error: %v", err)
	}
	if rec.AverageMarks != 85.0 {
		t.Fatalf("average = %v, want 85.0", rec.AverageMarks)
	}
	if len(emitter.events) != 1 || emitter.events[0].Name != realtime.EventMarksUpdated {
		t.Fatalf("expected one marks:updated event, got %+v", emitter.events)
	}
	rooms := emitter.events[0].Rooms
	if len(rooms) != 2 || rooms[0] != realtime.RoomAdmin || rooms[1] != realtime.BranchRoom("BTech", "AI") {
		t.Fatalf("event rooms = %v", rooms)
	}
}

// fakeBaselineRepo holds several records so the all-records override can
// be observed; it applies the same keep-if-nil semantics as the SQL.
type fakeBaselineRepo struct {
	Repository
	records []Record
}

func (r *fakeBaselineRepo) SetBaselineAll(ctx context.Context, total, average *float64) (int, error) {
	for i := range r.records {
		if total != nil {
			r.records[i].TotalMarks = *total
		}
		if average != nil {
			r.records[i].AverageMarks = *average
		}
	}
	return len(r.records), nil
}

func TestSetBaselineAppliesToEveryRecord(t *testing.T) {
	repo := &fakeBaselineRepo{records: []Record{
		{StudentID: "s1", TotalMarks: 170, ReviewedCount: 2, AverageMarks: 85,
			Entries: []Entry{{AssignmentID: "a1", Marks: 80}, {AssignmentID: "a2", Marks: 90}}},
		{StudentID: "s2", TotalMarks: 40, ReviewedCount: 1, AverageMarks: 40,
			Entries: []Entry{{AssignmentID: "a1", Marks: 40}}},
	}}
	emitter := &captureEmitter{}
	svc := NewService(repo, emitter)

	total, average := 50.0, 50.0
	n, err := svc.SetBaseline(context.Background(), &total, &average)
	if err != nil {
		t.Fatalf("SetBaseline returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("updated %d records, want 2", n)
	}
	for _, rec := range repo.records {
		if rec.TotalMarks != 50 || rec.AverageMarks != 50 {
			t.Fatalf("record %s not at baseline: %+v", rec.StudentID, rec)
		}
	}
	// The override never touches grading history.
	if len(repo.records[0].Entries) != 2 || repo.records[0].Entries[0].Marks != 80 {
		t.Fatalf("entries modified by baseline: %+v", repo.records[0].Entries)
	}
	if repo.records[0].ReviewedCount != 2 || repo.records[1].ReviewedCount != 1 {
		t.Fatal("reviewed counts modified by baseline")
	}
	if len(emitter.events) != 1 || emitter.events[0].Rooms[0] != realtime.RoomAdmin {
		t.Fatalf("expected one admin-room event, got %+v", emitter.events)
	}
}

func TestSetBaselineValidation(t *testing.T) {
	svc := NewService(&fakeBaselineRepo{}, nil)
	if _, err := svc.SetBaseline(context.Background(), nil, nil); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("empty baseline should be a validation error, got %v", err)
	}
	neg := -1.0
	if _, err := svc.SetBaseline(context.Background(), &neg, nil); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("negative baseline should be a validation error, got %v", err)
	}
}

func TestGradeSheetRequiresScope(t *testing.T) {
	svc := NewService(&fakeMarksRepo{}, nil)
	if _, err := svc.GradeSheet(context.Background(), "", "AI"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("missing course should be a validation error, got %v", err)
	}
}
