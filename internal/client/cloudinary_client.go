package client

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"

	"user-service/internal/config"
	"user-service/internal/util"
)

// CloudinaryClient stores profile photos. Objects are keyed by content
// hash so identical uploads land on the same public ID.
type CloudinaryClient struct {
	cld    *cloudinary.Cloudinary
	config *config.CloudinaryConfig
}

func NewCloudinaryClient(cfg *config.Config, logger *zap.Logger) (*CloudinaryClient, error) {
	cloudinaryConfig := cfg.Cloudinary

	cld, err := cloudinary.NewFromParams(
		cloudinaryConfig.CloudName,
		cloudinaryConfig.APIKey,
		cloudinaryConfig.APISecret,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary client: %w", err)
	}

	util.Info("Cloudinary client initialized",
		zap.String("cloud_name", cloudinaryConfig.CloudName),
		zap.String("folder", cloudinaryConfig.Folder))

	return &CloudinaryClient{
		cld:    cld,
		config: &cloudinaryConfig,
	}, nil
}

// UploadImage uploads image bytes under the given public ID and returns
// the served HTTPS URL. Re-uploading the same public ID overwrites in
// place, which keeps content-hash keyed uploads idempotent.
func (c *CloudinaryClient) UploadImage(ctx context.Context, file io.Reader, publicID string) (string, error) {
	overwrite := true
	resp, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:  publicID,
		Folder:    c.config.Folder,
		Overwrite: &overwrite,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload rejected: %s", resp.Error.Message)
	}

	util.Debug("Image uploaded to Cloudinary",
		zap.String("public_id", publicID),
		zap.Int("bytes", resp.Bytes))

	return resp.SecureURL, nil
}
