package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	feedomain "github.com/smallbiznis/bursar/internal/feetransaction/domain"
	"go.uber.org/zap"
)

type createFeeRequest struct {
	StudentID   string          `json:"student_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	PaymentMode string          `json:"payment_mode"`
	Remarks     string          `json:"remarks"`
}

func (r createFeeRequest) toDomain() feedomain.CreateFeeRequest {
	return feedomain.CreateFeeRequest{
		StudentID:   strings.TrimSpace(r.StudentID),
		Amount:      r.Amount,
		PaymentDate: strings.TrimSpace(r.PaymentDate),
		PaymentMode: strings.TrimSpace(r.PaymentMode),
		Remarks:     r.Remarks,
	}
}

type importFeesRequest struct {
	Rows []createFeeRequest `json:"rows"`
}

func (s *Server) CreateFee(c *gin.Context) {
	var req createFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.feeSvc.Create(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListFees(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	resp, err := s.feeSvc.List(c.Request.Context(), feedomain.ListFeeRequest{Limit: limit})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ImportFees(c *gin.Context) {
	var req importFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rows := make([]feedomain.CreateFeeRequest, 0, len(req.Rows))
	for _, row := range req.Rows {
		rows = append(rows, row.toDomain())
	}

	resp, err := s.feeSvc.Import(c.Request.Context(), rows)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetFeeByID(c *gin.Context) {
	resp, err := s.feeSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteFee(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.feeSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("fee transaction deleted", zap.String("fee_transaction_id", id))
	c.Status(http.StatusNoContent)
}

func (s *Server) AssignSerial(c *gin.Context) {
	resp, err := s.feeSvc.AssignSerial(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
