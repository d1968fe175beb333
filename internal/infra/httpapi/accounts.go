package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reactiontech/websa-api/internal/usecase"
)

type signupRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest("signup", "invalid JSON body"))
		return
	}

	id, err := h.accounts.Signup(c.Request.Context(), usecase.SignupInput(req))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user_id": id})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest("login", "invalid JSON body"))
		return
	}

	user, err := h.accounts.Login(c.Request.Context(), usecase.LoginInput(req))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful",
		"user_id":  user.ID,
		"username": user.Username,
	})
}

func (h *Handler) profile(c *gin.Context) {
	userID, err := parseID("profile", "userId", c.Query("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	p, err := h.accounts.Profile(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

type updateProfileRequest struct {
	UserID flexID   `json:"userId"`
	Age    *int     `json:"age"`
	State  string   `json:"state"`
	Sports []string `json:"sports"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest("update profile", "invalid JSON body"))
		return
	}

	err := h.accounts.UpdateProfile(c.Request.Context(), usecase.UpdateProfileInput{
		UserID: int64(req.UserID),
		Age:    req.Age,
		State:  req.State,
		Sports: req.Sports,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}
