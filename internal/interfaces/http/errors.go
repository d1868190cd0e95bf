package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/nodue-clearance/internal/domain/workflow"
	"github.com/garyjia/nodue-clearance/pkg/utils"
)

// Response is the envelope for every JSON response
type Response struct {
	Success         bool              `json:"success"`
	Data            interface{}       `json:"data,omitempty"`
	Error           string            `json:"error,omitempty"`
	Code            string            `json:"code,omitempty"`
	CurrentPosition *int              `json:"current_position,omitempty"`
	Fields          map[string]string `json:"fields,omitempty"`
}

const (
	codeUnauthenticated = "UNAUTHENTICATED"
	codeForbidden       = "FORBIDDEN"
	codeValidation      = "VALIDATION_FAILED"
	codeBadRequest      = "BAD_REQUEST"
	codeInternal        = "INTERNAL_ERROR"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{workflow.ErrRequestNotFound, "REQUEST_NOT_FOUND"},
	{workflow.ErrStageNotFound, "STAGE_NOT_FOUND"},
	{workflow.ErrNotAuthorizedForDepartment, "NOT_AUTHORIZED_FOR_DEPARTMENT"},
	{workflow.ErrRemarksRequired, "REMARKS_REQUIRED"},
	{workflow.ErrInvalidDecision, "INVALID_DECISION"},
	{workflow.ErrNotCurrentStage, "NOT_CURRENT_STAGE"},
	{workflow.ErrAlreadyActioned, "ALREADY_ACTIONED"},
	{workflow.ErrDuplicateOpenRequest, "DUPLICATE_OPEN_REQUEST"},
	{workflow.ErrForbidden, codeForbidden},
	{workflow.ErrCertificateNotIssued, "CERTIFICATE_NOT_ISSUED"},
}

var kindStatus = map[workflow.Kind]int{
	workflow.KindInputRejected:       http.StatusBadRequest,
	workflow.KindAuthorizationDenied: http.StatusForbidden,
	workflow.KindStateConflict:       http.StatusConflict,
	workflow.KindNotFound:            http.StatusNotFound,
}

// errorCode returns the stable code for a workflow error
func errorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return codeInternal
}

// respondError writes err with the status of its kind. Internal errors are
// logged and reported without detail.
func (h *Handlers) respondError(c *gin.Context, err error) {
	var fields utils.ValidationErrors
	if errors.As(err, &fields) {
		c.JSON(http.StatusBadRequest, Response{
			Error:  err.Error(),
			Code:   codeValidation,
			Fields: fields,
		})
		return
	}

	status, ok := kindStatus[workflow.KindOf(err)]
	if !ok {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Error: "internal server error",
			Code:  codeInternal,
		})
		return
	}

	resp := Response{
		Error: err.Error(),
		Code:  errorCode(err),
	}
	var notCurrent *workflow.NotCurrentStageError
	if errors.As(err, &notCurrent) {
		pos := notCurrent.Current
		resp.CurrentPosition = &pos
	}
	c.JSON(status, resp)
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{Error: message, Code: code})
}
