package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/internal/application/service"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

const exportFolder = "profile-editor/backups"

type ExportOutput struct {
	URL      string    `json:"url"`
	PublicID string    `json:"publicId"`
	At       time.Time `json:"at"`
}

// ExportUseCase snapshots an owner's profile document and uploads it as JSON.
type ExportUseCase struct {
	store    profile.Store
	uploader service.Uploader
	logger   logger.Logger
	now      func() time.Time
}

func NewExportUseCase(store profile.Store, uploader service.Uploader, log logger.Logger) *ExportUseCase {
	return &ExportUseCase{
		store:    store,
		uploader: uploader,
		logger:   log,
		now:      time.Now,
	}
}

func (uc *ExportUseCase) Execute(ctx context.Context, ownerID string) (*ExportOutput, error) {
	if ownerID == "" {
		return nil, apperror.NewNotAuthenticated("export profile")
	}
	if uc.uploader == nil {
		return nil, apperror.NewInternal("no uploader configured for exports", nil)
	}
	uc.logger.Info("Starting profile export...", zap.String("owner_id", ownerID))

	doc, err := uc.store.Get(ctx, ownerID)
	if err != nil {
		return nil, apperror.NewLoadFailed("profile", err)
	}
	if doc == nil {
		return nil, apperror.NewNotFound("profile", ownerID)
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, apperror.NewInternal("failed to encode profile document", err)
	}

	at := uc.now().UTC()
	publicID := fmt.Sprintf("profile-%s-%s.json", ownerID, at.Format("2006-01-02_15-04-05"))

	url, err := uc.uploader.Upload(ctx, bytes.NewReader(raw), exportFolder, publicID)
	if err != nil {
		uc.logger.Error("Failed to upload profile export", err, zap.String("owner_id", ownerID))
		return nil, apperror.NewRemoteWriteFailed("profile export", err)
	}

	uc.logger.Info("Profile export completed and uploaded successfully",
		zap.String("url", url),
		zap.String("public_id", publicID),
	)
	return &ExportOutput{URL: url, PublicID: publicID, At: at}, nil
}
