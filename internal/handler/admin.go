package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collegehub/internal/auth"
	"collegehub/internal/directory"
	"collegehub/internal/schedule"
)

func (h *Handler) adminDashboard(c *gin.Context) {
	home, err := h.dash.AdminHome(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, home)
}

// ---------- students ----------

// createStudent is the admin-side register: same cascade, role forced.
func (h *Handler) createStudent(c *gin.Context) {
	var in directory.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	in.Role = auth.RoleStudent
	user, err := h.dir.Register(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *Handler) listStudents(c *gin.Context) {
	students, err := h.dir.ListStudents(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *Handler) getStudent(c *gin.Context) {
	student, err := h.dir.StudentByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h *Handler) updateStudent(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Branch   string `json:"branch"`
		Semester int    `json:"semester"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	student, err := h.dir.UpdateStudent(c.Request.Context(), directory.Student{
		ID: c.Param("id"), Name: req.Name, Branch: req.Branch, Semester: req.Semester,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h *Handler) deleteStudent(c *gin.Context) {
	if err := h.dir.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ---------- faculty ----------

func (h *Handler) createFaculty(c *gin.Context) {
	var in directory.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	in.Role = auth.RoleFaculty
	user, err := h.dir.Register(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *Handler) listFaculty(c *gin.Context) {
	list, err := h.dir.ListFaculty(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"faculty": list})
}

func (h *Handler) updateFaculty(c *gin.Context) {
	var req struct {
		Name       string `json:"name"`
		Department string `json:"department"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	fac, err := h.dir.UpdateFaculty(c.Request.Context(), directory.Faculty{
		ID: c.Param("id"), Name: req.Name, Department: req.Department,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, fac)
}

func (h *Handler) deleteFaculty(c *gin.Context) {
	if err := h.dir.DeleteFaculty(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ---------- branches ----------

func (h *Handler) listBranches(c *gin.Context) {
	branches, err := h.dir.ListBranches(c.Request.Context(), c.Query("course"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"branches": branches})
}

func (h *Handler) createBranch(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Course      string `json:"course" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and course are required"})
		return
	}
	branch, err := h.dir.CreateBranch(c.Request.Context(), req.Name, req.Course, req.Description)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, branch)
}

func (h *Handler) updateBranch(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	branch, err := h.dir.UpdateBranch(c.Request.Context(), c.Param("id"), req.Name, req.Description)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, branch)
}

func (h *Handler) deleteBranch(c *gin.Context) {
	branch, err := h.dir.DeleteBranch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "branch": branch})
}

// ---------- subjects ----------

func (h *Handler) listSubjects(c *gin.Context) {
	subjects, err := h.dir.ListSubjects(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

func (h *Handler) createSubject(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		Code      string `json:"code"`
		FacultyID string `json:"facultyId"`
		Branch    string `json:"branch"`
		Semester  int    `json:"semester"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	subject, err := h.dir.CreateSubject(c.Request.Context(), directory.Subject{
		Name: req.Name, Code: req.Code, FacultyID: req.FacultyID,
		Branch: req.Branch, Semester: req.Semester,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, subject)
}

func (h *Handler) updateSubject(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Branch   string `json:"branch"`
		Semester int    `json:"semester"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	subject, err := h.dir.UpdateSubject(c.Request.Context(), directory.Subject{
		ID: c.Param("id"), Name: req.Name, Branch: req.Branch, Semester: req.Semester,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, subject)
}

func (h *Handler) deleteSubject(c *gin.Context) {
	if err := h.dir.DeleteSubject(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ---------- timetable ----------

func (h *Handler) listTimetable(c *gin.Context) {
	entries, err := h.sched.List(c.Request.Context(), c.Query("course"), c.Query("branch"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) teacherSchedules(c *gin.Context) {
	schedules, err := h.sched.GroupByFaculty(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

func (h *Handler) createTimetableEntry(c *gin.Context) {
	var entry schedule.Entry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	created, err := h.sched.CreateEntry(c.Request.Context(), entry)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) updateTimetableEntry(c *gin.Context) {
	var entry schedule.Entry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	entry.ID = c.Param("id")
	updated, err := h.sched.UpdateEntry(c.Request.Context(), entry)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) deleteTimetableEntry(c *gin.Context) {
	if err := h.sched.DeleteEntry(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ---------- marks ----------

func (h *Handler) gradeSheet(c *gin.Context) {
	records, err := h.marks.GradeSheet(c.Request.Context(), c.Query("course"), c.Query("branch"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *Handler) setMarks(c *gin.Context) {
	var req struct {
		TotalMarks    *float64 `json:"totalMarks" binding:"required"`
		ReviewedCount *int     `json:"reviewedCount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totalMarks and reviewedCount are required"})
		return
	}
	rec, err := h.marks.SetCounters(c.Request.Context(), c.Param("studentId"), *req.TotalMarks, *req.ReviewedCount)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// bulkSetMarks writes one baseline across every marks record. Entries are
// never touched.
func (h *Handler) bulkSetMarks(c *gin.Context) {
	var req struct {
		TotalMarks   *float64 `json:"totalMarks"`
		AverageMarks *float64 `json:"averageMarks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	n, err := h.marks.SetBaseline(c.Request.Context(), req.TotalMarks, req.AverageMarks)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
