package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/web3drender/internal/handlers/testutil"
)

type projectPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func TestProjectCRUD(t *testing.T) {
	env := testutil.NewEnv(t)
	auth := env.Register("Ada", "ada@example.com")

	w := env.Request(http.MethodPost, "/api/projects", map[string]string{
		"name":        "Bridge survey",
		"description": "Span 3",
	}, auth.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created projectPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &created)
	require.Equal(t, "active", created.Status)

	w = env.Request(http.MethodPut, "/api/projects/"+created.ID, map[string]string{"status": "archived"}, auth.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated projectPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &updated)
	require.Equal(t, "archived", updated.Status)
	require.Equal(t, "Bridge survey", updated.Name)

	w = env.Request(http.MethodPut, "/api/projects/"+created.ID, map[string]string{"status": "deleted"}, auth.Token)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = env.Request(http.MethodDelete, "/api/projects/"+created.ID, nil, auth.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/projects/"+created.ID, nil, auth.Token)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}

func TestProjectListPaginates(t *testing.T) {
	env := testutil.NewEnv(t)
	auth := env.Register("Ada", "ada@example.com")

	for i := 0; i < 3; i++ {
		env.CreateProject(auth.Token, fmt.Sprintf("Project %d", i))
	}

	w := env.Request(http.MethodGet, "/api/projects?page=2&limit=2", nil, auth.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	var page []projectPayload
	testutil.DecodeInto(t, resp.Data, &page)
	require.Len(t, page, 1)
	require.NotNil(t, resp.Meta)
	require.EqualValues(t, 3, resp.Meta.Total)
	require.Equal(t, 2, resp.Meta.TotalPages)
	require.False(t, resp.Meta.HasNext)
	require.True(t, resp.Meta.HasPrev)

	// listing reflects a write made after it was cached
	env.CreateProject(auth.Token, "Project 3")
	w = env.Request(http.MethodGet, "/api/projects?page=2&limit=2", nil, auth.Token)
	require.EqualValues(t, 4, testutil.DecodeResponse(t, w).Meta.Total)
}

func TestProjectsAreScopedToOwner(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Register("Ada", "ada@example.com")
	other := env.Register("Bob", "bob@example.com")

	projectID := env.CreateProject(owner.Token, "Private")

	w := env.Request(http.MethodGet, "/api/projects/"+projectID, nil, other.Token)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodDelete, "/api/projects/"+projectID, nil, other.Token)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodGet, "/api/projects", nil, other.Token)
	require.EqualValues(t, 0, testutil.DecodeResponse(t, w).Meta.Total)
}
