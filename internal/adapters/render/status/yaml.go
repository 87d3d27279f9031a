package status

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/bnema/chatctl/internal/application"
)

type yamlStatus struct {
	Current  string        `yaml:"current,omitempty"`
	Server   yamlServer    `yaml:"server"`
	Sessions []yamlSession `yaml:"sessions"`
}

type yamlServer struct {
	Status   string   `yaml:"status"`
	Version  string   `yaml:"version,omitempty"`
	Features []string `yaml:"features,omitempty"`
}

type yamlSession struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name,omitempty"`
	UserID string `yaml:"user_id,omitempty"`
	State  string `yaml:"state"`
	Ready  bool   `yaml:"ready"`
	Active bool   `yaml:"active"`
}

// RenderYAML renders the status for scripts.
func RenderYAML(status application.Status) (string, error) {
	doc := yamlStatus{
		Current:  string(status.Current),
		Server:   yamlServer{Status: string(status.ConfigStatus)},
		Sessions: make([]yamlSession, 0, len(status.Sessions)),
	}
	if status.Server != nil {
		doc.Server.Version = status.Server.Version
		doc.Server.Features = enabledFeatures(status.Server.Features)
	}

	for _, entry := range status.Sessions {
		doc.Sessions = append(doc.Sessions, yamlSession{
			ID:     string(entry.AccountID),
			Name:   entry.Name,
			UserID: entry.UserID,
			State:  entry.State.String(),
			Ready:  entry.Ready,
			Active: entry.Active,
		})
	}
	slices.SortFunc(doc.Sessions, func(a, b yamlSession) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal status yaml: %w", err)
	}

	return string(out), nil
}
