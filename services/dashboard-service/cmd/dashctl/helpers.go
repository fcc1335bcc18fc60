package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/model"
)

// print writes v in the selected output format. YAML output goes through
// JSON first so both formats use the same field names.
func (a *app) print(w io.Writer, v any) error {
	switch a.format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", a.format)
	}
}

// saveArtifact stores a downloaded artifact under key. An empty key means
// dir joined with the file name the backend suggested.
func (a *app) saveArtifact(ctx context.Context, w io.Writer, artifact *model.Artifact, key, dir string) error {
	if key == "" {
		key = path.Join(dir, safeFilename(artifact.Filename))
	}
	location, err := a.store.Save(ctx, key, artifact)
	if err != nil {
		return err
	}
	return a.print(w, map[string]any{
		"location":     location,
		"bytes":        len(artifact.Data),
		"content_type": artifact.ContentType,
	})
}

// safeFilename reduces a server supplied file name to its last element so
// it cannot leave the target directory
func safeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	switch name {
	case "", ".", "..", "/":
		return "download"
	}
	return name
}

// parseSetFlags turns key=value pairs into run options. Values that parse
// as JSON keep their type, anything else is sent as a string.
func parseSetFlags(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	extra := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		extra[key] = value
	}
	return extra, nil
}
