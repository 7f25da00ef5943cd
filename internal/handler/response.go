// Package handler exposes the services over HTTP with gin. Every response
// uses the {success, message, data} envelope.
package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/davesep77/evolentra/internal/errs"
	authpkg "github.com/davesep77/evolentra/pkg/auth"
	"github.com/davesep77/evolentra/pkg/helpers"
)

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

var validate = helpers.NewCustomValidator()

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func fail(c *gin.Context, status int, message string, data interface{}) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message, Data: data})
}

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrStateConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrInsufficientBalance):
		return http.StatusBadRequest
	case errors.Is(err, authpkg.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a service error. Persistence causes are kept out of
// the body and attached to the gin context for the request logger.
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	fail(c, status, errs.MessageOf(err), nil)
}

// bind decodes the JSON body into v and validates it. On failure the
// response has been written and bind returns false.
func bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		if errors.Is(err, io.EOF) {
			fail(c, http.StatusBadRequest, "Request body is required", nil)
		} else {
			fail(c, http.StatusBadRequest, "Invalid request body", nil)
		}
		return false
	}
	if err := validate.Validate(v); err != nil {
		fields, _ := helpers.ValidationFields(err)
		fail(c, http.StatusUnprocessableEntity, helpers.FirstMessage(err), gin.H{"errors": fields})
		return false
	}
	return true
}

// caller returns the authenticated user placed on the request by the auth
// middleware.
func caller(c *gin.Context) (*authpkg.UserContext, bool) {
	user, err := authpkg.GetUserFromContext(c.Request.Context())
	if err != nil {
		fail(c, http.StatusUnauthorized, "Unauthenticated", nil)
		return nil, false
	}
	return user, true
}

func pathID(c *gin.Context, name, message string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusNotFound, message, nil)
		return 0, false
	}
	return id, true
}
