package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/bursar/internal/receiptledger/domain"
)

type buildLedgerItem struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

type buildLedgerRequest struct {
	Items []buildLedgerItem `json:"items"`
}

func (s *Server) BuildLedger(c *gin.Context) {
	var req buildLedgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items := make([]ledgerdomain.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, ledgerdomain.ItemInput{Label: item.Label, Amount: item.Amount})
	}

	resp, err := s.ledgerSvc.BuildLedger(c.Request.Context(), ledgerdomain.BuildLedgerRequest{
		FeeTransactionID: strings.TrimSpace(c.Param("id")),
		Items:            items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) GetLedger(c *gin.Context) {
	resp, err := s.ledgerSvc.GetLedger(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListLedgers(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	resp, err := s.ledgerSvc.ListLedgers(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetReceiptPDF(c *gin.Context) {
	out, err := s.receipts.Render(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", out.Filename))
	c.Data(http.StatusOK, "application/pdf", out.PDF)
}
