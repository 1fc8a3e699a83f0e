package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"collegehub/internal/assignment"
	"collegehub/internal/attendance"
	"collegehub/internal/auth"
	"collegehub/internal/directory"
)

func (h *Handler) facultyDashboard(c *gin.Context) {
	claims := auth.FromContext(c)
	home, err := h.dash.FacultyHome(c.Request.Context(), claims.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, home)
}

func (h *Handler) facultyProfile(c *gin.Context) (directory.Faculty, bool) {
	claims := auth.FromContext(c)
	fac, err := h.dir.FacultyByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		respondErr(c, err)
		return directory.Faculty{}, false
	}
	return fac, true
}

func (h *Handler) facultyScheduleToday(c *gin.Context) {
	fac, ok := h.facultyProfile(c)
	if !ok {
		return
	}
	entries, err := h.sched.TodayForFaculty(c.Request.Context(), fac.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) facultyScheduleWeek(c *gin.Context) {
	fac, ok := h.facultyProfile(c)
	if !ok {
		return
	}
	entries, err := h.sched.WeekForFaculty(c.Request.Context(), fac.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) facultySubjects(c *gin.Context) {
	fac, ok := h.facultyProfile(c)
	if !ok {
		return
	}
	subjects, err := h.dir.SubjectsByFaculty(c.Request.Context(), fac.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

func (h *Handler) toggleLive(c *gin.Context) {
	entry, err := h.sched.ToggleLive(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) markAttendance(c *gin.Context) {
	var in attendance.MarkInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	records, err := h.att.Mark(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"records": records})
}

func (h *Handler) facultyAssignments(c *gin.Context) {
	fac, ok := h.facultyProfile(c)
	if !ok {
		return
	}
	assignments, err := h.work.ByFaculty(c.Request.Context(), fac.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": assignments})
}

type assignmentRequest struct {
	CourseID    string    `json:"courseId"`
	Course      string    `json:"course"`
	Branch      string    `json:"branch"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"`
}

func (h *Handler) createAssignment(c *gin.Context) {
	fac, ok := h.facultyProfile(c)
	if !ok {
		return
	}
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	created, err := h.work.Create(c.Request.Context(), assignment.Assignment{
		CourseID:    req.CourseID,
		FacultyID:   fac.ID,
		Course:      req.Course,
		Branch:      req.Branch,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) updateAssignment(c *gin.Context) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	updated, err := h.work.Update(c.Request.Context(), assignment.Assignment{
		ID:          c.Param("id"),
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) deleteAssignment(c *gin.Context) {
	if err := h.work.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) listSubmissions(c *gin.Context) {
	subs, err := h.work.Submissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

func (h *Handler) gradeSubmission(c *gin.Context) {
	var req struct {
		Grade    *float64 `json:"grade" binding:"required"`
		Feedback string   `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "grade is required"})
		return
	}
	sub, err := h.work.Grade(c.Request.Context(), c.Param("id"), *req.Grade, req.Feedback)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) searchStudent(c *gin.Context) {
	profile, err := h.dash.SearchStudent(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
