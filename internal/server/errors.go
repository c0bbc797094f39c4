package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	feedomain "github.com/smallbiznis/bursar/internal/feetransaction/domain"
	ledgerdomain "github.com/smallbiznis/bursar/internal/receiptledger/domain"
	studentdomain "github.com/smallbiznis/bursar/internal/student/domain"
	"github.com/smallbiznis/bursar/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type              string            `json:"type"`
	Message           string            `json:"message"`
	Errors            []ValidationError `json:"errors,omitempty"`
	TransactionAmount string            `json:"transaction_amount,omitempty"`
	ItemsTotal        string            `json:"items_total,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

const serialPreconditionMessage = "serial must be assigned before ledger creation; call assign-serial first"

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var mismatch *ledgerdomain.TotalMismatchError
	if errors.As(err, &mismatch) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: mismatch.Error(),
			Errors: []ValidationError{
				{Field: "items", Code: ledgerdomain.ErrItemsTotalMismatch.Error(), Message: "items total does not match transaction amount"},
			},
			TransactionAmount: ledgerdomain.FormatAmount(mismatch.TransactionAmount),
			ItemsTotal:        ledgerdomain.FormatAmount(mismatch.ItemsTotal),
		}
	}

	var itemErr *ledgerdomain.ItemError
	if errors.As(err, &itemErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   fmt.Sprintf("items[%d].%s", itemErr.Index, itemErr.Field),
					Code:    itemErr.Err.Error(),
					Message: validationErrorMessage(itemErr.Err.Error()),
				},
			},
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ledgerdomain.ErrSerialNotAssigned):
		return http.StatusConflict, errorPayload{
			Type:    "precondition_failed",
			Message: serialPreconditionMessage,
		}
	case errors.Is(err, feedomain.ErrLedgerExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "fee transaction has a receipt ledger and cannot be deleted",
		}
	case errors.Is(err, studentdomain.ErrDuplicateAdmission):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "admission number already exists",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: notFoundMessage(err),
		}
	case db.IsImmutableErr(err):
		return http.StatusInternalServerError, errorPayload{
			Type:    "immutable",
			Message: "receipt records cannot be modified",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code written to the request log.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if status < http.StatusInternalServerError {
		code = err.Error()
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isStudentValidationError(err),
		isFeeValidationError(err),
		isLedgerValidationError(err):
		return true
	default:
		return false
	}
}

func isStudentValidationError(err error) bool {
	switch {
	case errors.Is(err, studentdomain.ErrInvalidID),
		errors.Is(err, studentdomain.ErrInvalidName),
		errors.Is(err, studentdomain.ErrInvalidAdmissionNumber):
		return true
	default:
		return false
	}
}

func isFeeValidationError(err error) bool {
	switch {
	case errors.Is(err, feedomain.ErrInvalidID),
		errors.Is(err, feedomain.ErrInvalidStudent),
		errors.Is(err, feedomain.ErrInvalidAmount),
		errors.Is(err, feedomain.ErrInvalidPaymentDate),
		errors.Is(err, feedomain.ErrInvalidPaymentMode),
		errors.Is(err, feedomain.ErrEmptyImport):
		return true
	default:
		return false
	}
}

func isLedgerValidationError(err error) bool {
	switch {
	case errors.Is(err, ledgerdomain.ErrInvalidID),
		errors.Is(err, ledgerdomain.ErrEmptyItems),
		errors.Is(err, ledgerdomain.ErrInvalidItemLabel),
		errors.Is(err, ledgerdomain.ErrInvalidItemAmount),
		errors.Is(err, ledgerdomain.ErrItemAmountPrecision),
		errors.Is(err, ledgerdomain.ErrItemsTotalMismatch):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, studentdomain.ErrNotFound),
		errors.Is(err, feedomain.ErrNotFound),
		errors.Is(err, feedomain.ErrStudentNotFound),
		errors.Is(err, ledgerdomain.ErrTransactionNotFound),
		errors.Is(err, ledgerdomain.ErrLedgerNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, feedomain.ErrStudentNotFound):
		return "student not found"
	case errors.Is(err, ledgerdomain.ErrLedgerNotFound):
		return "receipt ledger not found"
	case errors.Is(err, ledgerdomain.ErrTransactionNotFound),
		errors.Is(err, feedomain.ErrNotFound):
		return "fee transaction not found"
	default:
		return "not found"
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_student_id":
		return "student_id"
	case "empty_items", "items_total_mismatch":
		return "items"
	case "empty_import":
		return "rows"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_amount":
		return "amount must be greater than zero"
	case "invalid_payment_date":
		return "payment date must be YYYY-MM-DD"
	case "empty_items":
		return "at least one item is required"
	case "invalid_item_label":
		return "item label is required"
	case "invalid_item_amount":
		return "item amount must not be negative"
	case "item_amount_precision":
		return "item amount allows at most 4 decimal places and 10 integer digits"
	case "empty_import":
		return "at least one row is required"
	default:
		return "invalid value"
	}
}
