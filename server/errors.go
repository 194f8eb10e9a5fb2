package server

import (
	"net/http"

	"boatbet/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var codeStatus = map[string]int{
	service.CodeNotFound:           http.StatusNotFound,
	service.CodeUnauthorized:       http.StatusForbidden,
	service.CodeInsufficientPoints: http.StatusPaymentRequired,
	service.CodeDeadlinePassed:     http.StatusConflict,
	service.CodeDuplicateCharge:    http.StatusConflict,
	service.CodeParseFailure:       http.StatusBadRequest,
	service.CodeInvalidRequest:     http.StatusBadRequest,
	service.CodeInternal:           http.StatusInternalServerError,
}

func statusFor(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func errorBody(code string) gin.H {
	return gin.H{"error": code, "message": service.ErrorMessage(code)}
}

// respondError maps a service error onto its status and stable code
func respondError(c *gin.Context, err error) {
	code := service.ErrorCode(err)
	if code == service.CodeInternal {
		log.WithFields(log.Fields{
			"path":  c.FullPath(),
			"error": err,
		}).Error("Request failed with internal error")
	}
	_ = c.Error(err)
	c.JSON(statusFor(code), errorBody(code))
}

// respondResult sends a structured result, using the failure code for the status
func respondResult(c *gin.Context, code string, body any) {
	if code == "" {
		c.JSON(http.StatusOK, body)
		return
	}
	c.JSON(statusFor(code), body)
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   service.CodeInvalidRequest,
		"message": err.Error(),
	})
}
