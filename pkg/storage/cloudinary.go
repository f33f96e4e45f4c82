package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// CloudinaryConfig contains the credentials required to talk to Cloudinary.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Cloudinary implements FileStore on top of the Cloudinary API. The stored
// path is the asset's public ID, so Remove and Exists work without keeping
// any local state.
type Cloudinary struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// NewCloudinary constructs a Cloudinary-backed store.
func NewCloudinary(cfg CloudinaryConfig, logger zerolog.Logger) (*Cloudinary, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	client, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Cloudinary{
		client: client,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary_storage").Logger(),
	}, nil
}

// Save uploads the file and returns the resulting public ID.
func (c *Cloudinary) Save(ctx context.Context, name string, reader io.Reader) (string, error) {
	result, err := c.client.Upload.Upload(ctx, reader, uploader.UploadParams{
		Folder:       c.folder,
		PublicID:     buildPublicID(name),
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}

	c.logger.Info().Str("public_id", result.PublicID).Msg("file uploaded to cloudinary")
	return result.PublicID, nil
}

// Remove destroys the asset. An already-deleted asset is not an error.
func (c *Cloudinary) Remove(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	result, err := c.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: path})
	if err != nil {
		return fmt.Errorf("failed to destroy asset: %w", err)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("unexpected destroy result: %s", result.Result)
	}
	return nil
}

// Exists checks whether the asset is still present.
func (c *Cloudinary) Exists(ctx context.Context, path string) bool {
	if path == "" {
		return false
	}
	asset, err := c.client.Admin.Asset(ctx, admin.AssetParams{PublicID: path})
	return err == nil && asset != nil && asset.PublicID != ""
}

func buildPublicID(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = "upload"
	}

	return fmt.Sprintf("%s-%d", base, time.Now().UnixNano())
}
