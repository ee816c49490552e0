package api

// API limits and constants.
const (
	// MaxUploadSize is the default upload limit (100 MB).
	MaxUploadSize = 100 << 20

	// MaxImportSize caps CSV and JSON import bodies.
	MaxImportSize = 32 << 20

	// DefaultUploadRatePerMinute is the per-client upload allowance.
	DefaultUploadRatePerMinute = 60
)

// Cache-Control header values.
const (
	CacheOneWeek = "public, max-age=604800"
	CacheNoStore = "no-cache"
)
