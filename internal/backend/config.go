package backend

import (
	"fmt"

	"expensedash/internal/config"
)

// FromAppConfig converts the application config to a mirror config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	t := MirrorType(appConfig.MirrorBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid mirror backend in config: %s", appConfig.MirrorBackend)
	}

	return Config{
		Type:          t,
		SpreadsheetID: appConfig.GoogleSpreadsheetID,
		SheetName:     appConfig.GoogleSheetName,
	}, nil
}

// Validate validates the mirror configuration.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid mirror backend: %s", c.Type)
	}
	if c.Type == GoogleMirror && c.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet ID is required for the google mirror")
	}
	return nil
}

// MirrorTypes returns all valid mirror types.
func MirrorTypes() []MirrorType {
	return []MirrorType{GoogleMirror, MemoryMirror}
}
