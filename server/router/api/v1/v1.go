// Package v1 exposes the engine over HTTP.
package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/teamlens/teamlens/internal/profile"
	"github.com/teamlens/teamlens/plugin/ai/insight"
	engineerrors "github.com/teamlens/teamlens/server/internal/errors"
	"github.com/teamlens/teamlens/server/internal/observability"
	"github.com/teamlens/teamlens/server/middleware"
	"github.com/teamlens/teamlens/server/service/chat"
	"github.com/teamlens/teamlens/store"
)

// InsightGenerator produces the proactive insight feed.
type InsightGenerator interface {
	Generate(ctx context.Context, userID int32) ([]insight.ProactiveInsight, error)
}

// DataStore is the store surface the handlers touch directly.
type DataStore interface {
	CreatePerson(ctx context.Context, create *store.Person) (*store.Person, error)
	GetPerson(ctx context.Context, find *store.FindPerson) (*store.Person, error)
	ListPersons(ctx context.Context, find *store.FindPerson) ([]*store.Person, error)
	UpdatePerson(ctx context.Context, update *store.UpdatePerson) (*store.Person, error)
	DeletePerson(ctx context.Context, delete *store.DeletePerson) error
	ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error)
}

// APIV1Service wires the engine services onto an echo group.
type APIV1Service struct {
	profile  *profile.Profile
	store    DataStore
	chat     *chat.Service
	insights InsightGenerator
	limiter  *middleware.RateLimiter
}

func NewAPIV1Service(p *profile.Profile, st DataStore, chatService *chat.Service, insights InsightGenerator) *APIV1Service {
	return &APIV1Service{
		profile:  p,
		store:    st,
		chat:     chatService,
		insights: insights,
		limiter:  middleware.NewRateLimiter(time.Second, 5),
	}
}

// RegisterRoutes mounts all handlers on e.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.health)

	group := e.Group("/api/v1", s.limiter.Middleware())
	group.POST("/chat", s.handleChat)
	group.GET("/insights", s.handleInsights)
	group.GET("/persons", s.listPersons)
	group.POST("/persons", s.createPerson)
	group.PATCH("/persons/:id", s.updatePerson)
	group.DELETE("/persons/:id", s.deletePerson)
	group.GET("/messages", s.listMessages)
}

func (s *APIV1Service) health(c echo.Context) error {
	total, failed := observability.GlobalMetrics().Totals()
	return c.JSON(http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.profile.Version,
		"requests":   total,
		"failures":   failed,
		"operations": observability.GlobalMetrics().Snapshot(),
	})
}

// toHTTPError maps engine errors onto echo's error type.
func toHTTPError(err error) error {
	if ee, ok := err.(*engineerrors.EngineError); ok {
		return echo.NewHTTPError(ee.HTTPStatus(), ee.Message)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
