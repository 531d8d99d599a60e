package session

import (
	"context"
	"errors"

	"github.com/khoahotran/profile-editor/internal/application/section"
	"github.com/khoahotran/profile-editor/internal/application/service"
	profileuc "github.com/khoahotran/profile-editor/internal/application/usecase/profile"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

// Deps are the collaborators shared by every workspace.
type Deps struct {
	Store     profile.Store
	Uploader  service.Uploader
	Publisher service.EventPublisher
	PageSize  int
	Logger    logger.Logger
}

// Workspace is the set of controllers one session edits through. Each controller
// subscribes to the session on its own.
type Workspace struct {
	Session        *Session
	Profile        *profileuc.ProfileController
	Education      *section.Education
	Experience     *section.Experience
	Certifications *section.Certifications
	Skills         *section.Skills
}

func NewWorkspace(sess *Session, deps Deps) *Workspace {
	return &Workspace{
		Session:        sess,
		Profile:        profileuc.NewProfileController(deps.Store, deps.Uploader, deps.Publisher, deps.Logger),
		Education:      section.NewEducation(deps.Store, deps.Publisher, deps.PageSize, deps.Logger),
		Experience:     section.NewExperience(deps.Store, deps.Publisher, deps.PageSize, deps.Logger),
		Certifications: section.NewCertification(deps.Store, deps.Publisher, deps.PageSize, deps.Logger),
		Skills:         section.NewSkills(deps.Store, deps.Publisher, deps.PageSize, deps.Logger),
	}
}

// Open attaches every controller to the session, which loads the current identity's
// data. Load failures are joined; the controllers stay attached and usable.
func (w *Workspace) Open(ctx context.Context) error {
	return errors.Join(
		w.Profile.Attach(ctx, w.Session),
		w.Education.Attach(ctx, w.Session),
		w.Experience.Attach(ctx, w.Session),
		w.Certifications.Attach(ctx, w.Session),
		w.Skills.Attach(ctx, w.Session),
	)
}

// Close detaches every controller. Writes still in flight are discarded.
func (w *Workspace) Close() {
	w.Profile.Detach()
	w.Education.Detach()
	w.Experience.Detach()
	w.Certifications.Detach()
	w.Skills.Detach()
}
