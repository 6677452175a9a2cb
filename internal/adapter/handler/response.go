package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/store-inventory/internal/core/domain"
)

// Response is the wire form of a domain.Result, shared by HTTP and gRPC.
type Response struct {
	Code    string `json:"code,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func NewResponse(res domain.Result) Response {
	r := Response{
		Code:    string(res.Code),
		Status:  res.Status,
		Message: res.Message,
	}
	if res.Data != nil {
		r.Data = res.Data
	}
	return r
}

// HTTPStatus maps an outcome code onto an HTTP status code.
func HTTPStatus(code domain.Code) int {
	switch code {
	case domain.CodeSuccess:
		return http.StatusOK
	case domain.CodeCreated:
		return http.StatusCreated
	case domain.CodeAccepted:
		return http.StatusAccepted
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func emit(c *gin.Context, res domain.Result) {
	c.JSON(HTTPStatus(res.Code), NewResponse(res))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    string(domain.CodeFail),
		Status:  domain.StatusFail,
		Message: message,
	})
}
