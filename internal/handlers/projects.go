package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/web3drender/internal/services"
	"github.com/charlesng35/web3drender/pkg/response"
)

// ProjectHandler exposes CRUD over the caller's projects.
type ProjectHandler struct {
	svc *services.ProjectService
}

func NewProjectHandler(svc *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

type createProjectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type updateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Status      *string `json:"status" validate:"omitempty,oneof=active archived"`
}

// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	page, err := h.svc.List(requestContext(c), currentUserID(c), pageRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, page.Items, response.NewMeta(page.Page, page.Limit, page.Total))
}

// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.svc.Get(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	project, err := h.svc.Create(requestContext(c), currentUserID(c), services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, project)
}

// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req updateProjectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	project, err := h.svc.Update(requestContext(c), currentUserID(c), c.Param("id"), services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func pageRequest(c *gin.Context) services.PageRequest {
	return services.PageRequest{
		Page:  parseIntQuery(c, "page", 1),
		Limit: parseIntQuery(c, "limit", 0),
	}
}
