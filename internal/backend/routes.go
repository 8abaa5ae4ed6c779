package backend

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// LoadRoutes reads a kind → path mapping from a YAML file:
//
//	routes:
//	  alarm_create: /api/v1/alarms
//	  voice_setting: /api/v1/voice
//
// A missing file is not an error; every kind then uses the default path.
func LoadRoutes(path string) (Routes, error) {
	if path == "" {
		return Routes{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Routes{}, nil
		}
		return nil, fmt.Errorf("read routes file: %w", err)
	}

	var file struct {
		Routes map[string]string `yaml:"routes"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse routes file: %w", err)
	}

	routes := make(Routes, len(file.Routes))
	for kind, p := range file.Routes {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("route for kind %q must be an absolute path, got %q", kind, p)
		}
		routes[kind] = p
	}
	return routes, nil
}
