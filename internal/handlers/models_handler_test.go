package handlers_test

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/web3drender/internal/handlers/testutil"
)

type modelPayload struct {
	ID          string   `json:"id"`
	ProjectID   *string  `json:"project_id"`
	ProjectName string   `json:"project_name"`
	Name        string   `json:"name"`
	FilePath    string   `json:"file_path"`
	FileSize    int64    `json:"file_size"`
	FileType    string   `json:"file_type"`
	ModelType   string   `json:"model_type"`
	OriginLat   *float64 `json:"origin_lat"`
}

const objBody = "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

func TestModelUploadStoresFileAndRecord(t *testing.T) {
	env := testutil.NewEnv(t)
	auth := env.Register("Ada", "ada@example.com")
	projectID := env.CreateProject(auth.Token, "Bridge")

	w := env.Upload(auth.Token, "Cube.OBJ", []byte(objBody), map[string]string{
		"project_id": projectID,
		"origin_lat": "45.5",
		"origin_lon": "7.25",
		"metadata":   `{"source":"scanner"}`,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var model modelPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &model)
	require.Equal(t, "Cube.OBJ", model.Name)
	require.Equal(t, ".obj", model.FileType)
	require.Equal(t, "static", model.ModelType)
	require.Equal(t, "Bridge", model.ProjectName)
	require.EqualValues(t, len(objBody), model.FileSize)
	require.True(t, strings.HasPrefix(model.FilePath, "model-"))
	require.NotNil(t, model.OriginLat)
	require.InDelta(t, 45.5, *model.OriginLat, 1e-9)

	require.FileExists(t, filepath.Join(env.Storage.Dir(), model.FilePath))

	static := env.Request(http.MethodGet, "/uploads/"+model.FilePath, nil, "")
	require.Equal(t, http.StatusOK, static.Code)
	require.Equal(t, objBody, static.Body.String())
}

func TestModelUploadValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	auth := env.Register("Ada", "ada@example.com")
	projectID := env.CreateProject(auth.Token, "Bridge")

	w := env.Upload(auth.Token, "", nil, map[string]string{"project_id": projectID})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	require.Equal(t, "No file uploaded", testutil.DecodeResponse(t, w).Error.Message)

	w = env.Upload(auth.Token, "cube.obj", []byte(objBody), nil)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = env.Upload(auth.Token, "virus.exe", []byte("MZ"), map[string]string{"project_id": projectID})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = env.Upload(auth.Token, "cube.obj", []byte(objBody), map[string]string{
		"project_id": projectID,
		"origin_lat": "north",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = env.Upload(auth.Token, "scan.las", []byte("LASF"), map[string]string{
		"project_id": projectID,
		"model_type": "volumetric_video",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	entries, err := os.ReadDir(env.Storage.Dir())
	require.NoError(t, err)
	require.Empty(t, entries, "rejected uploads must not stay on disk")
}

func TestModelUploadRejectsForeignProject(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Register("Ada", "ada@example.com")
	other := env.Register("Bob", "bob@example.com")
	projectID := env.CreateProject(owner.Token, "Private")

	w := env.Upload(other.Token, "cube.obj", []byte(objBody), map[string]string{"project_id": projectID})
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	entries, err := os.ReadDir(env.Storage.Dir())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestModelUploadTooLarge(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithMaxUploadSize(8))
	auth := env.Register("Ada", "ada@example.com")
	projectID := env.CreateProject(auth.Token, "Bridge")

	w := env.Upload(auth.Token, "cube.obj", []byte(objBody), map[string]string{"project_id": projectID})
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
}

func TestModelListStatsUpdateDelete(t *testing.T) {
	env := testutil.NewEnv(t)
	auth := env.Register("Ada", "ada@example.com")
	projectID := env.CreateProject(auth.Token, "Bridge")
	modelID := env.UploadModel(auth.Token, projectID, map[string]string{"name": "Deck"})
	env.UploadModel(auth.Token, projectID, map[string]string{"name": "Pier"})

	w := env.Request(http.MethodGet, "/api/models?limit=1", nil, auth.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	require.EqualValues(t, 2, resp.Meta.Total)
	var page []modelPayload
	testutil.DecodeInto(t, resp.Data, &page)
	require.Len(t, page, 1)
	require.Equal(t, "Pier", page[0].Name)

	w = env.Request(http.MethodGet, "/api/models/stats", nil, auth.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats struct {
		TotalModels int64 `json:"total_models"`
		TotalSize   int64 `json:"total_size"`
		UniqueTypes int64 `json:"unique_types"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &stats)
	require.EqualValues(t, 2, stats.TotalModels)
	require.EqualValues(t, 2*len(objBody), stats.TotalSize)
	require.EqualValues(t, 1, stats.UniqueTypes)

	w = env.Request(http.MethodPut, "/api/models/"+modelID, map[string]string{"name": "Deck v2", "project_id": ""}, auth.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated modelPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &updated)
	require.Equal(t, "Deck v2", updated.Name)
	require.Nil(t, updated.ProjectID)

	w = env.Request(http.MethodGet, "/api/models/"+modelID, nil, auth.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var model modelPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &model)
	path := filepath.Join(env.Storage.Dir(), model.FilePath)
	require.FileExists(t, path)

	w = env.Request(http.MethodDelete, "/api/models/"+modelID, nil, auth.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoFileExists(t, path)

	w = env.Request(http.MethodGet, "/api/models/"+modelID, nil, auth.Token)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestModelGeoreferencingAndConversion(t *testing.T) {
	env := testutil.NewEnv(t)
	auth := env.Register("Ada", "ada@example.com")
	projectID := env.CreateProject(auth.Token, "Bridge")
	modelID := env.UploadModel(auth.Token, projectID, nil)

	convert := func(body map[string]any) (int, map[string]float64, string) {
		w := env.Request(http.MethodPost, "/api/models/"+modelID+"/convert-coordinates", body, auth.Token)
		resp := testutil.DecodeResponse(t, w)
		if !resp.Success {
			return w.Code, nil, resp.Error.Message
		}
		var out map[string]float64
		testutil.DecodeInto(t, resp.Data, &out)
		return w.Code, out, ""
	}

	status, _, message := convert(map[string]any{"direction": "to-geographic", "x": 1, "y": 2, "z": 3})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Model is not georeferenced", message)

	w := env.Request(http.MethodPut, "/api/models/"+modelID+"/georeferencing", map[string]any{
		"crs":             "EPSG:4326",
		"origin_lat":      45.0,
		"origin_lon":      7.0,
		"origin_altitude": 100.0,
	}, auth.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/models/"+modelID+"/georeferencing", nil, auth.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var geo struct {
		CRS           *string `json:"crs"`
		Georeferenced bool    `json:"georeferenced"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &geo)
	require.True(t, geo.Georeferenced)
	require.Equal(t, "EPSG:4326", *geo.CRS)

	status, out, _ := convert(map[string]any{"direction": "to-geographic", "x": 0, "y": 0, "z": 5})
	require.Equal(t, http.StatusOK, status)
	require.InDelta(t, 45.0, out["latitude"], 1e-9)
	require.InDelta(t, 7.0, out["longitude"], 1e-9)
	require.InDelta(t, 105.0, out["altitude"], 1e-9)

	status, out, _ = convert(map[string]any{"direction": "to-local", "lat": 45.0, "lon": 7.0})
	require.Equal(t, http.StatusOK, status)
	require.InDelta(t, 0, out["x"], 1e-6)
	require.InDelta(t, 0, out["y"], 1e-6)
	require.InDelta(t, -100, out["z"], 1e-9)

	status, _, message = convert(map[string]any{"direction": "to-geographic", "x": 1, "y": 2})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid conversion parameters", message)

	status, _, message = convert(map[string]any{"direction": "sideways"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid conversion parameters", message)

	status, _, message = convert(map[string]any{"direction": "to-local", "lat": 1e308, "lon": 7.0})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid conversion parameters", message)
}

func TestModelGeoreferencingIsOwnerScoped(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Register("Ada", "ada@example.com")
	other := env.Register("Bob", "bob@example.com")
	modelID := env.UploadModel(owner.Token, env.CreateProject(owner.Token, "Bridge"), nil)

	w := env.Request(http.MethodPut, "/api/models/"+modelID+"/georeferencing", map[string]any{
		"origin_lat": 1.0,
		"origin_lon": 2.0,
	}, other.Token)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	require.Equal(t, "Model not found", testutil.DecodeResponse(t, w).Error.Message)

	w = env.Request(http.MethodPost, "/api/models/"+modelID+"/convert-coordinates", map[string]any{
		"direction": "to-local", "lat": 1.0, "lon": 2.0,
	}, other.Token)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	w = env.Request(http.MethodPost, "/api/models/"+modelID+"/convert-coordinates", map[string]any{
		"direction": "sideways",
	}, other.Token)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	require.Equal(t, "Model not found", testutil.DecodeResponse(t, w).Error.Message)
}
