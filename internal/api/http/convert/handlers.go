package convert

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zcyan2013/jupyterlab-extension/internal/convert/domain"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/service"
	"github.com/zcyan2013/jupyterlab-extension/internal/logging"
)

type Handler struct {
	svc service.Handler
}

func NewHandler(svc service.Handler) *Handler {
	return &Handler{svc: svc}
}

// Convert handles POST /convert.
func (h *Handler) Convert(c *gin.Context) {
	var req domain.ConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	res, err := h.svc.Handle(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			logging.NewLogger(c.Request.Context()).LogError("convert", err)
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, res)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPathOutsideRoot):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedConversion),
		errors.Is(err, domain.ErrUnrecognizedFormat),
		errors.Is(err, domain.ErrLossyConversion):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
