package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/teamlens/teamlens/server/service/chat"
)

// defaultUserID serves single-tenant deployments that send no user header.
const defaultUserID int32 = 1

type chatRequest struct {
	Message  string `json:"message"`
	PersonID *int32 `json:"personId,omitempty"`
	Topic    string `json:"topic,omitempty"`
}

func (s *APIV1Service) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	resp, err := s.chat.Chat(c.Request().Context(), &chat.TurnRequest{
		UserID:   currentUserID(c),
		PersonID: req.PersonID,
		Topic:    req.Topic,
		Message:  req.Message,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) handleInsights(c echo.Context) error {
	insights, err := s.insights.Generate(c.Request().Context(), currentUserID(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"insights": insights})
}

func currentUserID(c echo.Context) int32 {
	if raw := c.Request().Header.Get("X-User-ID"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 32); err == nil && id > 0 {
			return int32(id)
		}
	}
	return defaultUserID
}
