package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/profile-editor/internal/application/section"
	"github.com/khoahotran/profile-editor/internal/application/session"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

// SectionHandler serves one list-valued section. Req is the request body for a
// single item.
type SectionHandler[T any, Req interface{ ToDomain() T }] struct {
	field  profile.Field
	pick   func(ws *session.Workspace) *section.Controller[T]
	logger logger.Logger
}

func NewSectionHandler[T any, Req interface{ ToDomain() T }](field profile.Field, pick func(*session.Workspace) *section.Controller[T], log logger.Logger) *SectionHandler[T, Req] {
	return &SectionHandler[T, Req]{field: field, pick: pick, logger: log}
}

// Register mounts the section under rg at /<field>.
func (h *SectionHandler[T, Req]) Register(rg *gin.RouterGroup) *gin.RouterGroup {
	g := rg.Group("/" + string(h.field))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	return g
}

func (h *SectionHandler[T, Req]) controller(c *gin.Context) (*section.Controller[T], bool) {
	ws, ok := GetWorkspaceFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("workspace not found in context"))
		return nil, false
	}
	return h.pick(ws), true
}

func (h *SectionHandler[T, Req]) List(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			c.Error(apperror.NewInvalidInput("page must be a number", err))
			return
		}
		c.JSON(http.StatusOK, ctrl.ChangePage(page))
		return
	}
	c.JSON(http.StatusOK, ctrl.View())
}

func (h *SectionHandler[T, Req]) Create(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req Req
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for "+string(h.field), err))
		return
	}

	item, err := ctrl.SaveAs(c.Request.Context(), "", req.ToDomain())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": item, "page": ctrl.View()})
}

func (h *SectionHandler[T, Req]) Update(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req Req
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for "+string(h.field), err))
		return
	}

	item, err := ctrl.SaveAs(c.Request.Context(), c.Param("id"), req.ToDomain())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "page": ctrl.View()})
}

// Delete removes an item only when confirm=true; otherwise the pending confirmation
// is cancelled and 428 returned.
func (h *SectionHandler[T, Req]) Delete(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	id := c.Param("id")
	conf, err := ctrl.Remove(id)
	if err != nil {
		c.Error(err)
		return
	}
	if c.Query("confirm") != "true" {
		conf.Cancel()
		c.Error(apperror.NewConfirmationRequired(string(h.field), id))
		return
	}
	if err := conf.Confirm(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ctrl.View())
}

// ReplaceSkills overwrites the whole skills set.
func ReplaceSkills(c *gin.Context) {
	ws, ok := GetWorkspaceFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("workspace not found in context"))
		return
	}
	var req ReplaceSkillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid JSON body for skills", err))
		return
	}
	if _, err := ws.Skills.ReplaceAll(c.Request.Context(), req.Skills); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ws.Skills.View())
}
