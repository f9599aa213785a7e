package common

import (
	"net/http"
	"strconv"
	"strings"

	"bookameal/internal/apperr"
	"bookameal/internal/logging"
	"bookameal/internal/pagination"

	"github.com/gin-gonic/gin"
)

// Respond writes a success envelope carrying the request id
func Respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, CreateSuccessResponseWithRequestID(data, logging.GetRequestID(c)))
}

// RespondError maps err onto its status code and writes the error envelope
// with the error kind. Internal causes are recorded on the context for the
// request logger and never reach the client.
func RespondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	resp := CreateErrorResponseWithRequestID([]string{apperr.Message(err)}, logging.GetRequestID(c))
	resp.Kind = string(apperr.KindOf(err))
	c.AbortWithStatusJSON(status, resp)
}

// RespondStatus writes an error envelope with an explicit status, for
// failures that happen before a core operation runs.
func RespondStatus(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, CreateErrorResponseWithRequestID([]string{message}, logging.GetRequestID(c)))
}

// BindJSON decodes the body into dst; a decode failure is a validation error
func BindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Validation("invalid request body: %s", err.Error())
	}
	return nil
}

// ParseIDParam reads a positive integer path parameter
func ParseIDParam(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}

// PageParams reads ?page=&pageSize= and normalizes them against limits.
// Unparseable values are treated as absent.
func PageParams(c *gin.Context, limits pagination.Limits) pagination.Params {
	page, _ := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	size, _ := strconv.Atoi(strings.TrimSpace(c.Query("pageSize")))
	return limits.Normalize(page, size)
}
