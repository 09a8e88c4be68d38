package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/musicschool/internal/app/models/dto"
	"github.com/yigit/musicschool/internal/app/services"
	"github.com/yigit/musicschool/internal/middleware"
)

// CatalogController serves the lesson catalog and video playback
type CatalogController struct {
	catalogService *services.CatalogService
}

// NewCatalogController creates a new CatalogController
func NewCatalogController(catalogService *services.CatalogService) *CatalogController {
	return &CatalogController{catalogService: catalogService}
}

// Modules returns the catalog
// @Summary List catalog modules
// @Description Every module with its videos, flagged with whether the caller can play them
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.CatalogModuleResponse} "Catalog retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /catalog/modules [get]
func (c *CatalogController) Modules(ctx *gin.Context) {
	modules, err := c.catalogService.Modules(ctx.Request.Context(), middleware.CurrentPrincipal(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(modules, ""))
}

// Play returns the link of an unlocked video
// @Summary Play a video
// @Tags videos
// @Produce json
// @Security BearerAuth
// @Param videoId path int true "Video ID" minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.PlayVideoResponse} "Video link"
// @Failure 403 {object} dto.ErrorResponse "Video is locked"
// @Failure 404 {object} dto.ErrorResponse "Video not found"
// @Router /videos/{videoId}/play [get]
func (c *CatalogController) Play(ctx *gin.Context) {
	videoID, ok := parseVideoID(ctx)
	if !ok {
		return
	}

	resp, err := c.catalogService.Play(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), videoID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// Links returns every configured video link
// @Summary List video links
// @Tags videos
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.VideoLinksResponse} "Video links"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /videos/links [get]
func (c *CatalogController) Links(ctx *gin.Context) {
	links, err := c.catalogService.Links(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.VideoLinksResponse{Links: links}, ""))
}

// SetLink stores a video's YouTube link
// @Summary Set a video link
// @Tags videos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param videoId path int true "Video ID" minimum(1)
// @Param request body dto.SetVideoLinkRequest true "YouTube link"
// @Success 200 {object} dto.APIResponse "Video link updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid link"
// @Failure 404 {object} dto.ErrorResponse "Video not found"
// @Router /videos/{videoId}/link [put]
func (c *CatalogController) SetLink(ctx *gin.Context) {
	videoID, ok := parseVideoID(ctx)
	if !ok {
		return
	}

	var req dto.SetVideoLinkRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	if err := c.catalogService.SetLink(ctx.Request.Context(), videoID, req.URL); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Video link updated"))
}

// PurgeVideo revokes a video from every student and drops its link
// @Summary Purge a video
// @Tags videos
// @Produce json
// @Security BearerAuth
// @Param videoId path int true "Video ID" minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.PurgeVideoResponse} "Video purged"
// @Failure 400 {object} dto.ErrorResponse "Invalid video id"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /videos/{videoId} [delete]
func (c *CatalogController) PurgeVideo(ctx *gin.Context) {
	videoID, ok := parseVideoID(ctx)
	if !ok {
		return
	}

	affected, err := c.catalogService.PurgeVideo(ctx.Request.Context(), videoID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PurgeVideoResponse{VideoID: videoID, Affected: affected}, "Video purged"))
}
