package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"collegehub/internal/apperr"
	"collegehub/internal/assignment"
	"collegehub/internal/attendance"
	"collegehub/internal/auth"
	"collegehub/internal/config"
	"collegehub/internal/dashboard"
	"collegehub/internal/directory"
	"collegehub/internal/filestore"
	"collegehub/internal/marks"
	"collegehub/internal/realtime"
	"collegehub/internal/schedule"
)

// Handler carries the services behind the REST surface.
type Handler struct {
	cfg   config.App
	dir   *directory.Service
	sched *schedule.Service
	att   *attendance.Service
	marks *marks.Service
	work  *assignment.Service
	dash  *dashboard.Service
	files *filestore.Client
	hub   *realtime.Hub
}

// New creates a handler.
func New(cfg config.App, dir *directory.Service, sched *schedule.Service, att *attendance.Service,
	marksSvc *marks.Service, work *assignment.Service, dash *dashboard.Service,
	files *filestore.Client, hub *realtime.Hub) *Handler {
	return &Handler{
		cfg: cfg, dir: dir, sched: sched, att: att,
		marks: marksSvc, work: work, dash: dash, files: files, hub: hub,
	}
}

// Routes mounts the whole API surface on r.
func (h *Handler) Routes(r *gin.Engine) {
	api := r.Group("/api")

	authn := auth.RequireAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer)

	// Public: the registration form needs branches before anyone has a token.
	api.GET("/branches", h.listBranches)

	ag := api.Group("/auth")
	{
		ag.POST("/register", h.register)
		ag.POST("/login", h.login)
		ag.GET("/me", authn, h.me)
		ag.POST("/change-password", authn, h.changePassword)
		ag.PUT("/phone", authn, h.updatePhone)
		ag.DELETE("/account", authn, h.deleteAccount)
	}

	student := api.Group("/student", authn, auth.RequireRoles(auth.RoleStudent))
	{
		student.GET("/dashboard", h.studentDashboard)
		student.GET("/schedule/today", h.studentScheduleToday)
		student.GET("/schedule/week", h.studentScheduleWeek)
		student.GET("/attendance", h.studentAttendance)
		student.GET("/marks", h.studentMarks)
		student.GET("/assignments", h.studentAssignments)
		student.POST("/assignments/:id/submit", h.submitAssignment)
	}

	faculty := api.Group("/faculty", authn, auth.RequireRoles(auth.RoleFaculty))
	{
		faculty.GET("/dashboard", h.facultyDashboard)
		faculty.GET("/schedule/today", h.facultyScheduleToday)
		faculty.GET("/schedule/week", h.facultyScheduleWeek)
		faculty.GET("/subjects", h.facultySubjects)
		faculty.POST("/classes/:id/toggle-live", h.toggleLive)
		faculty.POST("/attendance", h.markAttendance)
		faculty.GET("/assignments", h.facultyAssignments)
		faculty.POST("/assignments", h.createAssignment)
		faculty.PUT("/assignments/:id", h.updateAssignment)
		faculty.DELETE("/assignments/:id", h.deleteAssignment)
		faculty.GET("/assignments/:id/submissions", h.listSubmissions)
		faculty.POST("/submissions/:id/grade", h.gradeSubmission)
		faculty.GET("/students/search", h.searchStudent)
	}

	admin := api.Group("/admin", authn, auth.RequireRoles(auth.RoleAdmin, auth.RoleSuperadmin))
	{
		admin.GET("/dashboard", h.adminDashboard)
		admin.GET("/students", h.listStudents)
		admin.POST("/students", h.createStudent)
		admin.GET("/students/search", h.searchStudent)
		admin.GET("/students/:id", h.getStudent)
		admin.PUT("/students/:id", h.updateStudent)
		admin.DELETE("/students/:id", h.deleteStudent)
		admin.GET("/faculty", h.listFaculty)
		admin.POST("/faculty", h.createFaculty)
		admin.PUT("/faculty/:id", h.updateFaculty)
		admin.DELETE("/faculty/:id", h.deleteFaculty)
		admin.GET("/branches", h.listBranches)
		admin.POST("/branches", h.createBranch)
		admin.PUT("/branches/:id", h.updateBranch)
		admin.DELETE("/branches/:id", h.deleteBranch)
		admin.GET("/subjects", h.listSubjects)
		admin.POST("/subjects", h.createSubject)
		admin.PUT("/subjects/:id", h.updateSubject)
		admin.DELETE("/subjects/:id", h.deleteSubject)
		admin.GET("/timetable", h.listTimetable)
		admin.GET("/timetable/teachers", h.teacherSchedules)
		admin.POST("/timetable", h.createTimetableEntry)
		admin.PUT("/timetable/:id", h.updateTimetableEntry)
		admin.DELETE("/timetable/:id", h.deleteTimetableEntry)
		admin.GET("/marks", h.gradeSheet)
		admin.PUT("/marks", h.bulkSetMarks)
		admin.PUT("/marks/:studentId", h.setMarks)
	}

	r.GET("/ws", authn, realtime.WSHandler(h.hub, h.authorizeRoom, h.cfg.AllowedOrigin))
}

// authorizeRoom gates room joins by role: students get their own branch
// room, faculty get branch rooms and the faculty room, admins get
// everything.
func (h *Handler) authorizeRoom(c *gin.Context, claims auth.Claims, room string) bool {
	switch claims.Role {
	case auth.RoleAdmin, auth.RoleSuperadmin:
		return true
	case auth.RoleFaculty:
		return room != realtime.RoomAdmin
	case auth.RoleStudent:
		student, err := h.dir.StudentByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			return false
		}
		return room == realtime.BranchRoom(student.Course, student.Branch)
	}
	return false
}

// respondErr maps service errors onto HTTP. Login failures stay 401 and
// internal details never leak.
func respondErr(c *gin.Context, err error) {
	if errors.Is(err, directory.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.PublicMessage(err)})
}
