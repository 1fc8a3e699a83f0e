package realtime

// Event names pushed to connected clients. Payloads are advisory: clients
// refetch their dashboard on arrival rather than trusting the payload as a
// source of truth.
const (
	EventClassLive         = "class:live"
	EventAttendanceUpdated = "attendance:updated"
	EventMarksUpdated      = "marks:updated"
	EventAssignmentCreated = "assignment:created"
	EventTimetableUpdated  = "timetable:updated"
	EventBranchCreated     = "branch:created"
)

// Well-known rooms. Branch rooms are derived with BranchRoom.
const (
	RoomAdmin   = "admin"
	RoomFaculty = "faculty"
)

// BranchRoom names the room for one branch under one degree course.
// Branch names are only unique per course, so both go into the name.
func BranchRoom(course, branch string) string {
	return "branch:" + course + ":" + branch
}

// Event is a named notification bound for one or more rooms.
type Event struct {
	Name    string         `json:"event"`
	Rooms   []string       `json:"rooms"`
	Payload map[string]any `json:"payload,omitempty"`
}
