package domain

import "time"

// BackgroundType is the closed set of site background kinds.
type BackgroundType string

const (
	BackgroundImage BackgroundType = "image"
	BackgroundVideo BackgroundType = "video"
	BackgroundGIF   BackgroundType = "gif"
	BackgroundColor BackgroundType = "color"
)

// DefaultBackgroundValue is the light-blue color used before any settings are saved.
const DefaultBackgroundValue = "#E0F2FE"

// SiteSettings is the singleton site-wide configuration. UpdatedAt is kept
// in storage only; the wire shape is the background pair.
type SiteSettings struct {
	BackgroundType  BackgroundType `json:"backgroundType"`
	BackgroundValue string         `json:"backgroundValue"`
	UpdatedAt       time.Time      `json:"-"`
}

// SettingsInput is the admin form for SiteSettings.
type SettingsInput struct {
	BackgroundType  BackgroundType `json:"backgroundType" validate:"required,oneof=image video gif color"`
	BackgroundValue string         `json:"backgroundValue" validate:"min=1,background"`
}

// DefaultSiteSettings returns the settings served before the first update.
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		BackgroundType:  BackgroundColor,
		BackgroundValue: DefaultBackgroundValue,
	}
}
