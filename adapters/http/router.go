package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/profile-editor/internal/application/section"
	"github.com/khoahotran/profile-editor/internal/application/session"
	"github.com/khoahotran/profile-editor/internal/application/usecase/backup"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/auth"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

type RouterDeps struct {
	AuthHandler *AuthHandler
	Export      *backup.ExportUseCase
	JWT         *auth.JWTService
	Sessions    SessionLookup
	Logger      logger.Logger
}

// RegisterRoutes mounts the API on router.
func RegisterRoutes(router *gin.Engine, deps RouterDeps) {
	profileHandler := NewProfileHandler(deps.Export, deps.Logger)
	education := NewSectionHandler[profile.EducationEntry, EducationRequest](profile.FieldEducation,
		func(ws *session.Workspace) *section.Controller[profile.EducationEntry] { return ws.Education }, deps.Logger)
	experience := NewSectionHandler[profile.ExperienceEntry, ExperienceRequest](profile.FieldExperience,
		func(ws *session.Workspace) *section.Controller[profile.ExperienceEntry] { return ws.Experience }, deps.Logger)
	certifications := NewSectionHandler[profile.CertificationEntry, CertificationRequest](profile.FieldCertifications,
		func(ws *session.Workspace) *section.Controller[profile.CertificationEntry] { return ws.Certifications }, deps.Logger)
	skills := NewSectionHandler[string, SkillRequest](profile.FieldSkills,
		func(ws *session.Workspace) *section.Controller[string] { return ws.Skills }, deps.Logger)

	router.Use(ErrorMiddleware(deps.Logger))

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
		api.POST("/auth/login", deps.AuthHandler.Login)

		private := api.Group("/")
		private.Use(AuthMiddleware(deps.JWT, deps.Sessions, deps.Logger))
		{
			private.POST("/auth/logout", deps.AuthHandler.Logout)

			private.GET("/profile", profileHandler.GetProfile)
			private.PATCH("/profile", profileHandler.UpdateProfile)
			private.POST("/profile/image", profileHandler.UploadImage)
			private.POST("/profile/export", profileHandler.ExportProfile)

			sections := private.Group("/sections")
			education.Register(sections)
			experience.Register(sections)
			certifications.Register(sections)
			skills.Register(sections).PUT("", ReplaceSkills)
		}
	}
}
