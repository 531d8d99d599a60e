package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/internal/application/usecase/backup"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

const maxImageSize = 5 << 20

type ProfileHandler struct {
	exportUC *backup.ExportUseCase
	logger   logger.Logger
}

func NewProfileHandler(exportUC *backup.ExportUseCase, log logger.Logger) *ProfileHandler {
	return &ProfileHandler{exportUC: exportUC, logger: log}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	ws, ok := GetWorkspaceFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("workspace not found in context"))
		return
	}
	c.JSON(http.StatusOK, ws.Profile.View())
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	ws, ok := GetWorkspaceFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("workspace not found in context"))
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for profile update", err))
		return
	}

	if _, err := ws.Profile.Save(c.Request.Context(), req.ToPatch()); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ws.Profile.View())
}

func (h *ProfileHandler) UploadImage(c *gin.Context) {
	ws, ok := GetWorkspaceFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("workspace not found in context"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.Error(apperror.NewInvalidInput("multipart field 'file' is required", err))
		return
	}
	if fileHeader.Size > maxImageSize {
		c.Error(apperror.NewInvalidInput("image exceeds 5MB", nil))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.Error(apperror.NewInvalidInput("cannot read uploaded file", err))
		return
	}
	defer file.Close()

	if _, err := ws.Profile.UploadImage(c.Request.Context(), file); err != nil {
		c.Error(err)
		return
	}
	h.logger.Info("Profile image updated", zap.String("file_name", fileHeader.Filename))
	c.JSON(http.StatusOK, ws.Profile.View())
}

func (h *ProfileHandler) ExportProfile(c *gin.Context) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("owner id not found in context"))
		return
	}
	if h.exportUC == nil {
		c.Error(apperror.NewInternal("profile export is not configured", nil))
		return
	}

	out, err := h.exportUC.Execute(c.Request.Context(), ownerID.String())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, out)
}
