package profile

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/internal/application/collection"
	"github.com/khoahotran/profile-editor/internal/application/service"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/internal/domain/user"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

const imageFolder = "profile-editor/profile"

var tracer = otel.Tracer("profile_usecase")

// SignOuter ends the current session.
type SignOuter interface {
	SignOut(ctx context.Context) error
}

// ProfileView is the scalar part of the profile as shown to the user. ProfileMissing
// is set when the user has no stored document yet.
type ProfileView struct {
	Profile        profile.UserProfile `json:"profile"`
	ProfileMissing bool                `json:"profileMissing"`
	State          string              `json:"state"`
}

// ProfileController mirrors the scalar profile fields of the signed-in user.
type ProfileController struct {
	store     profile.Store
	uploader  service.Uploader
	publisher service.EventPublisher
	logger    logger.Logger

	writeMu sync.Mutex

	mu          sync.RWMutex
	state       collection.State
	ownerID     string
	email       string
	profile     profile.UserProfile
	missing     bool
	generation  uint64
	signer      SignOuter
	unsubscribe func()
}

func NewProfileController(store profile.Store, uploader service.Uploader, publisher service.EventPublisher, log logger.Logger) *ProfileController {
	if publisher == nil {
		publisher = service.NopPublisher{}
	}
	return &ProfileController{
		store:     store,
		uploader:  uploader,
		publisher: publisher,
		logger:    log,
		state:     collection.Uninitialized,
	}
}

func (c *ProfileController) View() ProfileView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ProfileView{Profile: c.profile, ProfileMissing: c.missing, State: c.state.String()}
}

// Load fetches the profile of ownerID. The email always comes from the identity.
func (c *ProfileController) Load(ctx context.Context, ownerID, email string) (ProfileView, error) {
	if ownerID == "" {
		c.clear()
		return c.View(), apperror.NewNotAuthenticated("load profile")
	}

	ctx, span := tracer.Start(ctx, "Load")
	defer span.End()
	span.SetAttributes(attribute.String("owner_id", ownerID))

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.state = collection.Loading
	c.ownerID = ownerID
	c.email = email
	c.profile = profile.UserProfile{Email: email}
	c.missing = false
	c.mu.Unlock()

	doc, err := c.store.Get(ctx, ownerID)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return c.View(), collection.ErrSuperseded
	}
	switch {
	case err != nil:
		span.RecordError(err)
		c.logger.Error("Failed to fetch profile", err, zap.String("owner_id", ownerID))
		c.state = collection.Empty
		err = apperror.NewLoadFailed("profile", err)
	case doc == nil:
		c.logger.Info("No profile document found", zap.String("owner_id", ownerID))
		c.missing = true
		c.state = collection.Empty
	default:
		c.profile = doc.Profile
		c.profile.Email = email
		c.state = collection.Loaded
	}
	c.mu.Unlock()
	return c.View(), err
}

// Save merges patch into the stored profile. Fields left nil are untouched both
// locally and in the store. The local profile changes only after the store accepted it.
func (c *ProfileController) Save(ctx context.Context, patch profile.Patch) (profile.UserProfile, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	ownerID, gen, current := c.ownerID, c.generation, c.profile
	c.mu.RUnlock()
	if ownerID == "" {
		return profile.UserProfile{}, apperror.NewNotAuthenticated("save profile")
	}
	if patch.IsEmpty() {
		return current, nil
	}

	ctx, span := tracer.Start(ctx, "Save")
	defer span.End()
	span.SetAttributes(attribute.String("owner_id", ownerID))

	staged := patch.Apply(current)
	if err := c.store.SetMerge(ctx, ownerID, patch); err != nil {
		span.RecordError(err)
		c.logger.Error("Failed to save profile", err, zap.String("owner_id", ownerID))
		return current, apperror.NewRemoteWriteFailed("profile", err)
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.logger.Warn("Discarding profile save after identity change", zap.String("owner_id", ownerID))
		return staged, collection.ErrSuperseded
	}
	c.profile = staged
	c.missing = false
	c.state = collection.Loaded
	c.mu.Unlock()

	change := service.ProfileChange{
		OwnerID:    ownerID,
		Field:      "profile",
		ChangeType: service.ChangeMerged,
		OccurredAt: time.Now().UTC(),
	}
	go func() {
		if err := c.publisher.PublishProfileChange(context.Background(), change); err != nil {
			c.logger.Error("Failed to publish profile change", err, zap.String("owner_id", ownerID))
		}
	}()
	return staged, nil
}

// UploadImage stores the image in blob storage and saves its URL as the profile image.
func (c *ProfileController) UploadImage(ctx context.Context, file io.Reader) (profile.UserProfile, error) {
	c.mu.RLock()
	ownerID := c.ownerID
	c.mu.RUnlock()
	if ownerID == "" {
		return profile.UserProfile{}, apperror.NewNotAuthenticated("upload profile image")
	}
	if c.uploader == nil {
		return profile.UserProfile{}, apperror.NewInternal("no image uploader configured", nil)
	}

	ctx, span := tracer.Start(ctx, "UploadImage")
	defer span.End()

	url, err := c.uploader.Upload(ctx, file, imageFolder, fmt.Sprintf("avatar-%s", ownerID))
	if err != nil {
		span.RecordError(err)
		c.logger.Error("Failed to upload profile image", err, zap.String("owner_id", ownerID))
		return profile.UserProfile{}, apperror.NewRemoteWriteFailed("profile image", err)
	}
	return c.Save(ctx, profile.Patch{ProfileImageRef: &url})
}

// SignOut clears the local profile, then ends the session it was attached to.
func (c *ProfileController) SignOut(ctx context.Context) error {
	c.clear()
	c.mu.RLock()
	signer := c.signer
	c.mu.RUnlock()
	if signer == nil {
		return nil
	}
	return signer.SignOut(ctx)
}

// Attach follows the identity published by src. If src can end the session, SignOut uses it.
func (c *ProfileController) Attach(ctx context.Context, src user.IdentitySource) error {
	if s, ok := src.(SignOuter); ok {
		c.mu.Lock()
		c.signer = s
		c.mu.Unlock()
	}
	unsubscribe, err := src.Subscribe(ctx, c.onIdentity)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
	return err
}

func (c *ProfileController) Detach() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.signer = nil
	c.generation++
	c.ownerID, c.email = "", ""
	c.profile = profile.UserProfile{}
	c.missing = false
	c.state = collection.Uninitialized
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *ProfileController) onIdentity(ctx context.Context, id *user.Identity) error {
	if id == nil {
		c.clear()
		return nil
	}
	_, err := c.Load(ctx, id.UserID, id.Email)
	return err
}

func (c *ProfileController) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.ownerID, c.email = "", ""
	c.profile = profile.UserProfile{}
	c.missing = false
	c.state = collection.Empty
}
