package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/web3drender/internal/services"
	"github.com/charlesng35/web3drender/pkg/response"
)

// VolumetricVideoHandler manages frame sequences attached to models.
type VolumetricVideoHandler struct {
	svc *services.VolumetricVideoService
}

func NewVolumetricVideoHandler(svc *services.VolumetricVideoService) *VolumetricVideoHandler {
	return &VolumetricVideoHandler{svc: svc}
}

type createVolumetricVideoRequest struct {
	VideoPath        string          `json:"video_path" validate:"required,max=512"`
	FrameCount       *int            `json:"frame_count" validate:"omitempty,gte=0"`
	FPS              *float64        `json:"fps" validate:"omitempty,gt=0"`
	ResolutionWidth  *int            `json:"resolution_width" validate:"omitempty,gt=0"`
	ResolutionHeight *int            `json:"resolution_height" validate:"omitempty,gt=0"`
	Format           string          `json:"format" validate:"max=32"`
	Metadata         json.RawMessage `json:"metadata"`
}

type frameRequest struct {
	FrameNumber *int     `json:"frame_number" validate:"required,gte=0"`
	FramePath   string   `json:"frame_path" validate:"required,max=512"`
	Timestamp   *float64 `json:"timestamp"`
}

// POST /api/volumetric-video/models/:modelId
func (h *VolumetricVideoHandler) Create(c *gin.Context) {
	var req createVolumetricVideoRequest
	if !bindAndValidate(c, &req) {
		return
	}

	video, err := h.svc.Create(requestContext(c), currentUserID(c), c.Param("modelId"), services.CreateVolumetricVideoInput{
		VideoPath:        req.VideoPath,
		FrameCount:       req.FrameCount,
		FPS:              req.FPS,
		ResolutionWidth:  req.ResolutionWidth,
		ResolutionHeight: req.ResolutionHeight,
		Format:           req.Format,
		Metadata:         req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, video)
}

// GET /api/volumetric-video/models/:modelId
func (h *VolumetricVideoHandler) Latest(c *gin.Context) {
	video, err := h.svc.Latest(requestContext(c), currentUserID(c), c.Param("modelId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, video)
}

// GET /api/volumetric-video/:id
func (h *VolumetricVideoHandler) Get(c *gin.Context) {
	video, err := h.svc.Get(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, video)
}

// DELETE /api/volumetric-video/:id
func (h *VolumetricVideoHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/volumetric-video/:id/frames
func (h *VolumetricVideoHandler) Frames(c *gin.Context) {
	frames, err := h.svc.Frames(requestContext(c), currentUserID(c), c.Param("id"), services.FrameQuery{
		Start: optionalIntQuery(c, "start"),
		End:   optionalIntQuery(c, "end"),
		Limit: parseIntQuery(c, "limit", 0),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, frames)
}

// POST /api/volumetric-video/:id/frames
func (h *VolumetricVideoHandler) PutFrame(c *gin.Context) {
	var req frameRequest
	if !bindAndValidate(c, &req) {
		return
	}

	frame, err := h.svc.PutFrame(requestContext(c), currentUserID(c), c.Param("id"), services.FrameInput{
		FrameNumber: req.FrameNumber,
		FramePath:   req.FramePath,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, frame)
}
