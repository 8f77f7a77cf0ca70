package config

import "fmt"

// Archive backend selectors. Empty disables archiving.
const (
	ArchiveBackendFS  = "fs"
	ArchiveBackendGCS = "gcs"
)

// Archive configures optional archiving of monthly usage exports.
type Archive struct {
	Backend   string `env:"EXPORT_ARCHIVE_BACKEND"`
	Dir       string `env:"EXPORT_ARCHIVE_DIR"`
	GCSBucket string `env:"EXPORT_ARCHIVE_GCS_BUCKET"`
}

// Validate checks backend-specific requirements.
func (a *Archive) Validate() error {
	switch a.Backend {
	case "":
	case ArchiveBackendFS:
		if a.Dir == "" {
			return fmt.Errorf("EXPORT_ARCHIVE_DIR is required when EXPORT_ARCHIVE_BACKEND is 'fs'")
		}
	case ArchiveBackendGCS:
		if a.GCSBucket == "" {
			return fmt.Errorf("EXPORT_ARCHIVE_GCS_BUCKET is required when EXPORT_ARCHIVE_BACKEND is 'gcs'")
		}
	default:
		return fmt.Errorf("unknown EXPORT_ARCHIVE_BACKEND: %s", a.Backend)
	}
	return nil
}
