package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamlens/teamlens/store"
)

type mockDataStore struct {
	persons map[int32]*store.Person
	updated []*store.UpdatePerson
	deleted []int32
}

func (m *mockDataStore) CreatePerson(_ context.Context, create *store.Person) (*store.Person, error) {
	create.ID = int32(len(m.persons) + 1)
	m.persons[create.ID] = create
	return create, nil
}

func (m *mockDataStore) GetPerson(_ context.Context, find *store.FindPerson) (*store.Person, error) {
	if find.ID == nil {
		return nil, nil
	}
	person, ok := m.persons[*find.ID]
	if !ok {
		return nil, nil
	}
	if find.CreatorID != nil && person.CreatorID != *find.CreatorID {
		return nil, nil
	}
	return person, nil
}

func (m *mockDataStore) ListPersons(_ context.Context, find *store.FindPerson) ([]*store.Person, error) {
	var out []*store.Person
	for _, p := range m.persons {
		if find.CreatorID != nil && p.CreatorID != *find.CreatorID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockDataStore) UpdatePerson(_ context.Context, update *store.UpdatePerson) (*store.Person, error) {
	m.updated = append(m.updated, update)
	return m.persons[update.ID], nil
}

func (m *mockDataStore) DeletePerson(_ context.Context, delete *store.DeletePerson) error {
	m.deleted = append(m.deleted, delete.ID)
	return nil
}

func (m *mockDataStore) ListMessages(_ context.Context, _ *store.FindMessage) ([]*store.Message, error) {
	return nil, nil
}

func newPersonStore() *mockDataStore {
	return &mockDataStore{
		persons: map[int32]*store.Person{
			1: {ID: 1, CreatorID: 1, Name: "Sarah", Relationship: store.RelationshipDirectReport},
		},
	}
}

func personRequest(t *testing.T, method, body, asUser string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, "/api/v1/persons/1", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("X-User-ID", asUser)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	return c, rec
}

func TestUpdatePersonScopedToOwner(t *testing.T) {
	t.Run("another user's row reads as missing", func(t *testing.T) {
		st := newPersonStore()
		s := &APIV1Service{store: st}

		c, _ := personRequest(t, http.MethodPatch, `{"role":"Engineer"}`, "2")
		err := s.updatePerson(c)
		require.Error(t, err)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, he.Code)
		assert.Empty(t, st.updated)
	})

	t.Run("owner updates", func(t *testing.T) {
		st := newPersonStore()
		s := &APIV1Service{store: st}

		c, rec := personRequest(t, http.MethodPatch, `{"role":"Staff Engineer"}`, "1")
		require.NoError(t, s.updatePerson(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, st.updated, 1)
		assert.Equal(t, "Staff Engineer", *st.updated[0].Role)
	})
}

func TestDeletePersonScopedToOwner(t *testing.T) {
	t.Run("another user's row reads as missing", func(t *testing.T) {
		st := newPersonStore()
		s := &APIV1Service{store: st}

		c, _ := personRequest(t, http.MethodDelete, "", "2")
		err := s.deletePerson(c)
		require.Error(t, err)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, he.Code)
		assert.Empty(t, st.deleted)
	})

	t.Run("owner deletes", func(t *testing.T) {
		st := newPersonStore()
		s := &APIV1Service{store: st}

		c, rec := personRequest(t, http.MethodDelete, "", "1")
		require.NoError(t, s.deletePerson(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []int32{1}, st.deleted)
	})
}
