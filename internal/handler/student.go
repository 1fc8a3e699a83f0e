package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"collegehub/internal/auth"
	"collegehub/internal/directory"
	"collegehub/internal/filestore"
)

func (h *Handler) studentDashboard(c *gin.Context) {
	claims := auth.FromContext(c)
	home, err := h.dash.StudentHome(c.Request.Context(), claims.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, home)
}

func (h *Handler) studentProfile(c *gin.Context) (directory.Student, bool) {
	claims := auth.FromContext(c)
	student, err := h.dir.StudentByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		respondErr(c, err)
		return directory.Student{}, false
	}
	return student, true
}

func (h *Handler) studentScheduleToday(c *gin.Context) {
	student, ok := h.studentProfile(c)
	if !ok {
		return
	}
	entries, err := h.sched.TodayForBranch(c.Request.Context(), student.Course, student.Branch)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) studentScheduleWeek(c *gin.Context) {
	student, ok := h.studentProfile(c)
	if !ok {
		return
	}
	entries, err := h.sched.WeekForBranch(c.Request.Context(), student.Course, student.Branch)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) studentAttendance(c *gin.Context) {
	student, ok := h.studentProfile(c)
	if !ok {
		return
	}
	rate, err := h.att.StudentRate(c.Request.Context(), student.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	history, err := h.att.History(c.Request.Context(), student.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rate": rate, "records": history})
}

func (h *Handler) studentMarks(c *gin.Context) {
	student, ok := h.studentProfile(c)
	if !ok {
		return
	}
	rec, err := h.marks.ByStudent(c.Request.Context(), student.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) studentAssignments(c *gin.Context) {
	student, ok := h.studentProfile(c)
	if !ok {
		return
	}
	view, err := h.work.ForStudent(c.Request.Context(), student.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// submitAssignment accepts a multipart "file" upload or a JSON body with a
// pre-uploaded fileUrl.
func (h *Handler) submitAssignment(c *gin.Context) {
	student, ok := h.studentProfile(c)
	if !ok {
		return
	}

	fileURL := ""
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		if !h.files.Enabled() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "file storage not configured"})
			return
		}
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, filestore.MaxUploadBytes+1))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
			return
		}
		result, err := h.files.Upload(data, header.Filename, header.Header.Get("Content-Type"))
		if err != nil {
			respondErr(c, err)
			return
		}
		fileURL = result.SecureURL
	} else {
		var req struct {
			FileURL string `json:"fileUrl" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fileUrl is required"})
			return
		}
		fileURL = req.FileURL
	}

	sub, err := h.work.Submit(c.Request.Context(), student.ID, c.Param("id"), fileURL)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}
