package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

const internalErrorMessage = "an internal error occurred"

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// handleError - renders every handler error as an ErrorResponse. Internal errors are logged and hidden.
func (that *Server) handleError(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}

	status, body := that.errorBody(err, ctx)

	if ctx.Request().Method == http.MethodHead {
		err = ctx.NoContent(status)
	} else {
		err = ctx.JSON(status, ErrorResponse{Error: body})
	}

	if err != nil {
		that.logger.Error("failed to write error response", "error", err)
	}
}

func (that *Server) errorBody(err error, ctx echo.Context) (int, ErrorBody) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}

		return httpErr.Code, ErrorBody{
			Code:    strings.ToUpper(strings.ReplaceAll(http.StatusText(httpErr.Code), " ", "_")),
			Message: message,
		}
	}

	if !apperror.IsExpected(err) {
		that.logger.Error("request failed", "method", ctx.Request().Method, "path", ctx.Path(), "error", err)

		return http.StatusInternalServerError, ErrorBody{Code: apperror.CodeInternal, Message: internalErrorMessage}
	}

	code := apperror.Code(err)

	return apperror.HTTPStatus(code), ErrorBody{Code: code, Message: err.Error()}
}
