package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tourbackend/internal/http/middleware"
	"tourbackend/internal/services"
)

type registerRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Patronymic string `json:"patronymic"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	BirthDate  string `json:"birth_date"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/register
func (h Handler) Register(c *gin.Context) {
	var req registerRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	token, _, err := h.auth(c).Register(c.Request.Context(), services.RegisterInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Patronymic: req.Patronymic,
		Email:      req.Email,
		Password:   req.Password,
		BirthDate:  req.BirthDate,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

// POST /api/login
func (h Handler) Login(c *gin.Context) {
	var req loginRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	token, _, err := h.auth(c).Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// GET /api/user
func (h Handler) Me(c *gin.Context) {
	u, err := h.auth(c).Me(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.ToPublic()})
}
