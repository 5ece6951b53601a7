package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/untibullet/taskflow-backend/internal/models"
)

// Коды ошибок для API
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeDateOverlap       = "DATE_OVERLAP"
	ErrCodeInternal          = "INTERNAL"
)

// HeaderUserID — заголовок с ID пользователя, проставляется шлюзом после аутентификации
const HeaderUserID = "X-User-Id"

// ErrorResponse представляет структуру ошибки API
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newErrorResponse создает стандартный ответ с ошибкой
func newErrorResponse(code, message string) ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	return resp
}

// pathID разбирает числовой параметр пути
func pathID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// actorID извлекает ID пользователя из заголовка шлюза.
// Без заголовка действие считается системным.
func actorID(c echo.Context) int64 {
	id, err := strconv.ParseInt(c.Request().Header.Get(HeaderUserID), 10, 64)
	if err != nil {
		return models.SystemUserID
	}
	return id
}

// pageParams разбирает параметры пагинации с дефолтами как у журнала активности
func pageParams(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	return page, pageSize
}
