package v1

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/teamlens/teamlens/store"
)

var validRelationships = map[store.Relationship]struct{}{
	store.RelationshipDirectReport: {},
	store.RelationshipManager:      {},
	store.RelationshipPeer:         {},
	store.RelationshipStakeholder:  {},
	store.RelationshipSelf:         {},
}

type personPayload struct {
	Name         string `json:"name"`
	Role         string `json:"role,omitempty"`
	Relationship string `json:"relationship"`
}

func (s *APIV1Service) listPersons(c echo.Context) error {
	userID := currentUserID(c)
	persons, err := s.store.ListPersons(c.Request().Context(), &store.FindPerson{CreatorID: &userID})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"persons": persons})
}

func (s *APIV1Service) createPerson(c echo.Context) error {
	var payload personPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	relationship := store.Relationship(payload.Relationship)
	if _, ok := validRelationships[relationship]; !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown relationship")
	}

	now := time.Now().Unix()
	person, err := s.store.CreatePerson(c.Request().Context(), &store.Person{
		CreatorID:    currentUserID(c),
		CreatedTs:    now,
		UpdatedTs:    now,
		Name:         payload.Name,
		Role:         strings.TrimSpace(payload.Role),
		Relationship: relationship,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, person)
}

func (s *APIV1Service) updatePerson(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.checkPersonOwner(c, id); err != nil {
		return err
	}
	var payload personPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	now := time.Now().Unix()
	update := &store.UpdatePerson{ID: id, UpdatedTs: &now}
	if role := strings.TrimSpace(payload.Role); role != "" {
		update.Role = &role
	}
	if payload.Relationship != "" {
		relationship := store.Relationship(payload.Relationship)
		if _, ok := validRelationships[relationship]; !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown relationship")
		}
		update.Relationship = &relationship
	}

	person, err := s.store.UpdatePerson(c.Request().Context(), update)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, person)
}

func (s *APIV1Service) deletePerson(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.checkPersonOwner(c, id); err != nil {
		return err
	}
	if err := s.store.DeletePerson(c.Request().Context(), &store.DeletePerson{ID: id}); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// checkPersonOwner rejects mutations of roster rows the requesting user does
// not own. Rows owned by someone else read as missing.
func (s *APIV1Service) checkPersonOwner(c echo.Context, id int32) error {
	userID := currentUserID(c)
	person, err := s.store.GetPerson(c.Request().Context(), &store.FindPerson{ID: &id, CreatorID: &userID})
	if err != nil {
		return toHTTPError(err)
	}
	if person == nil {
		return echo.NewHTTPError(http.StatusNotFound, "person not found")
	}
	return nil
}

func (s *APIV1Service) listMessages(c echo.Context) error {
	userID := currentUserID(c)
	find := &store.FindMessage{CreatorID: &userID}

	if raw := c.QueryParam("personId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid personId")
		}
		personID := int32(id)
		find.PersonID = &personID
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		find.Limit = &limit
	}

	messages, err := s.store.ListMessages(c.Request().Context(), find)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": messages})
}

func pathID(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return int32(id), nil
}
