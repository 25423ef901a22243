package reporting

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultCSS keeps inline screenshots readable in the report
const DefaultCSS = ".r-img {width: 50%;}"

// Settings controls the look of the HTML report
type Settings struct {
	Title         string `yaml:"title"`
	DocumentTitle string `yaml:"document_title"`
	CSS           string `yaml:"css"`
}

// DefaultSettings returns the settings used when no file is provided
func DefaultSettings() Settings {
	return Settings{
		Title:         "Test Report",
		DocumentTitle: "Test Report",
		CSS:           DefaultCSS,
	}
}

// LoadSettings reads YAML report settings, filling unset fields with defaults
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read report settings %s: %w", path, err)
	}

	var loaded Settings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return settings, fmt.Errorf("failed to parse report settings %s: %w", path, err)
	}
	return settings.Merge(loaded), nil
}

// Merge returns s with every non-empty field of other applied
func (s Settings) Merge(other Settings) Settings {
	if other.Title != "" {
		s.Title = other.Title
	}
	if other.DocumentTitle != "" {
		s.DocumentTitle = other.DocumentTitle
	}
	if other.CSS != "" {
		s.CSS = other.CSS
	}
	return s
}
