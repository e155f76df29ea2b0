package template

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// HeaderEntry is an ordered (key, value) header pair. A slice of these
// preserves both original ordering and duplicate keys, unlike a map.
type HeaderEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TemplateMetadata is one entry of a TemplatesIndex: enough to identify,
// describe, and locate a template's JSONC file without fetching it.
type TemplateMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Event       string `json:"event"`
	File        string `json:"file"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	DocsURL     string `json:"docsUrl,omitempty"`
}

// TemplatesIndex is the decoded form of `<base>/templates/templates.jsonc`.
type TemplatesIndex struct {
	Version   string             `json:"version"`
	Templates []TemplateMetadata `json:"templates"`
}

var indexEntryFilePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+(/[a-zA-Z0-9._-]+)*$`)

// Validate rejects an index with no entries or with entries missing the
// fields a capture's provider/event detection and file lookup depend on.
func (idx TemplatesIndex) Validate() error {
	if len(idx.Templates) == 0 {
		return errors.New("templates list cannot be empty")
	}
	for _, metadata := range idx.Templates {
		if err := metadata.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (m TemplateMetadata) validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("template metadata id cannot be empty")
	}
	if strings.TrimSpace(m.Provider) == "" {
		return errors.New("template metadata provider cannot be empty")
	}
	if strings.TrimSpace(m.Event) == "" {
		return errors.New("template metadata event cannot be empty")
	}
	file := strings.TrimSpace(m.File)
	if !strings.HasSuffix(strings.ToLower(file), ".jsonc") {
		return errors.New("template metadata file must use .jsonc extension")
	}
	if !indexEntryFilePattern.MatchString(file) || strings.Contains(file, "..") {
		return errors.New("template metadata file is invalid")
	}
	return nil
}

// WebhookTemplate is a single template's request shape: method, optional
// target URL, headers, and a JSON body that may still contain unresolved
// placeholders.
type WebhookTemplate struct {
	Method      string          `json:"method"`
	URL         string          `json:"url,omitempty"`
	Provider    string          `json:"provider,omitempty"`
	Event       string          `json:"event,omitempty"`
	Description string          `json:"description,omitempty"`
	Headers     []HeaderEntry   `json:"headers,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// LocalTemplate is a template persisted under the local templates
// directory, paired with the metadata it was downloaded with.
type LocalTemplate struct {
	ID           string
	Metadata     TemplateMetadata
	Template     WebhookTemplate
	DownloadedAt string
	FilePath     string
}

// RemoteTemplate annotates a TemplateMetadata entry from a remote index
// with whether it has already been downloaded locally.
type RemoteTemplate struct {
	Metadata     TemplateMetadata
	IsDownloaded bool
}
