package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// readSceneFile decodes a JSON or YAML file into a loosely typed tree. The
// extension picks the decoder; anything other than .yaml/.yml is read as JSON.
func readSceneFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return raw, nil
}

// writeOutput prints v as indented JSON or as YAML. YAML goes through the JSON
// form so keys match the wire names.
func writeOutput(cmd *cobra.Command, v any, format string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	switch format {
	case formatJSON:
		cmd.Println(string(data))
		return nil
	case formatYAML:
		var tree any
		if err := json.Unmarshal(data, &tree); err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
		out, err := yaml.Marshal(tree)
		if err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
		cmd.Print(string(out))
		return nil
	}
	return fmt.Errorf("unknown output format %q (want json or yaml)", format)
}
