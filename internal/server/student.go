package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	studentdomain "github.com/smallbiznis/bursar/internal/student/domain"
)

type createStudentRequest struct {
	AdmissionNumber string `json:"admission_number"`
	Name            string `json:"name"`
	Grade           string `json:"grade"`
	Section         string `json:"section"`
}

func (s *Server) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.studentSvc.Create(c.Request.Context(), studentdomain.CreateStudentRequest{
		AdmissionNumber: strings.TrimSpace(req.AdmissionNumber),
		Name:            strings.TrimSpace(req.Name),
		Grade:           strings.TrimSpace(req.Grade),
		Section:         strings.TrimSpace(req.Section),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetStudentByID(c *gin.Context) {
	resp, err := s.studentSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
