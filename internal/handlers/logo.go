package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/muandane/special-stack/teamlogos/internal/logo"
)

// LogoService is the logo cache as seen by the HTTP layer.
type LogoService interface {
	GetLogo(ctx context.Context, teamID string, size logo.Size, preferWebP bool) (*logo.Result, bool)
	PreloadLogos(teamIDs []string, size logo.Size, preferWebP bool)
	ClearCache()
	ClearExpiredCache() int
	Stats() logo.Stats
}

type LogoHandler struct {
	svc    LogoService
	logger *slog.Logger
}

func NewLogoHandler(svc LogoService, logger *slog.Logger) *LogoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogoHandler{svc: svc, logger: logger}
}

type logoResponse struct {
	logo.Result
	Initials string `json:"initials"`
}

type missingLogoResponse struct {
	Error    string `json:"error"`
	TeamID   string `json:"teamId"`
	Initials string `json:"initials"`
}

type preloadRequest struct {
	TeamIDs    []string `json:"teamIds" binding:"required,max=500"`
	Size       string   `json:"size"`
	PreferWebP *bool    `json:"preferWebP"`
}

// GetLogo handles GET /logos/:teamId?size=&webp=&name=
func (h *LogoHandler) GetLogo(c *gin.Context) {
	teamID := strings.TrimSpace(c.Param("teamId"))
	size, err := logo.ParseSize(c.Query("size"))
	if err != nil {
		handleError(c, h.logger, &ValidationError{Field: "size", Message: err.Error()})
		return
	}
	preferWebP := true
	if raw := c.Query("webp"); raw != "" {
		preferWebP, err = strconv.ParseBool(raw)
		if err != nil {
			handleError(c, h.logger, &ValidationError{Field: "webp", Message: "must be a boolean"})
			return
		}
	}

	name := c.Query("name")
	res, ok := h.svc.GetLogo(c.Request.Context(), teamID, size, preferWebP)
	if !ok {
		c.JSON(http.StatusNotFound, missingLogoResponse{
			Error:    "logo not available",
			TeamID:   teamID,
			Initials: logo.Initials(name),
		})
		return
	}
	if res.TeamName != "" {
		name = res.TeamName
	}
	c.JSON(http.StatusOK, logoResponse{Result: *res, Initials: logo.Initials(name)})
}

// Preload handles POST /logos/preload
func (h *LogoHandler) Preload(c *gin.Context) {
	var req preloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.logger, &ValidationError{Field: "body", Message: err.Error()})
		return
	}
	size, err := logo.ParseSize(req.Size)
	if err != nil {
		handleError(c, h.logger, &ValidationError{Field: "size", Message: err.Error()})
		return
	}
	preferWebP := true
	if req.PreferWebP != nil {
		preferWebP = *req.PreferWebP
	}

	h.svc.PreloadLogos(req.TeamIDs, size, preferWebP)
	h.logger.Info("logo preload requested", "teams", len(req.TeamIDs), "size", size)
	c.JSON(http.StatusAccepted, h.svc.Stats())
}

// ClearCache handles DELETE /logos/cache
func (h *LogoHandler) ClearCache(c *gin.Context) {
	h.svc.ClearCache()
	h.logger.Info("logo cache cleared", "remote_addr", c.ClientIP())
	c.Status(http.StatusNoContent)
}

// Sweep handles POST /logos/cache/sweep
func (h *LogoHandler) Sweep(c *gin.Context) {
	removed := h.svc.ClearExpiredCache()
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// Stats handles GET /logos/stats
func (h *LogoHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}
