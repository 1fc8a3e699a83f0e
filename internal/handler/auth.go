package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collegehub/internal/auth"
	"collegehub/internal/directory"
)

func (h *Handler) register(c *gin.Context) {
	var in directory.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.dir.Register(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier and password are required"})
		return
	}
	user, err := h.dir.Authenticate(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	token, exp, err := auth.Issue(user.ID, user.Role, user.Username, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.TokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": exp.Unix(),
		"user":      user,
	})
}

func (h *Handler) me(c *gin.Context) {
	claims := auth.FromContext(c)
	user, err := h.dir.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	out := gin.H{"user": user}
	switch user.Role {
	case auth.RoleStudent:
		if student, err := h.dir.StudentByUserID(c.Request.Context(), claims.UserID); err == nil {
			out["student"] = student
		}
	case auth.RoleFaculty:
		if fac, err := h.dir.FacultyByUserID(c.Request.Context(), claims.UserID); err == nil {
			out["faculty"] = fac
		}
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) changePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "currentPassword and newPassword are required"})
		return
	}
	claims := auth.FromContext(c)
	if err := h.dir.ChangePassword(c.Request.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password changed"})
}

func (h *Handler) updatePhone(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}
	claims := auth.FromContext(c)
	user, err := h.dir.UpdatePhone(c.Request.Context(), claims.UserID, req.Phone)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) deleteAccount(c *gin.Context) {
	claims := auth.FromContext(c)
	if err := h.dir.DeleteAccount(c.Request.Context(), claims.UserID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "account deleted"})
}
