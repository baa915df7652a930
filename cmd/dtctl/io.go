package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

const (
	outputYAML = "yaml"
	outputJSON = "json"
)

// readInput reads the named file. An empty name or "-" reads the standard
// input of cmd.
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("error reading standard input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("error reading %s: %w", path, err)
	}
	return string(data), nil
}

// printObject writes v to w in the given output format.
func printObject(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding output: %w", err)
	}
	switch format {
	case outputJSON:
		data = append(data, '\n')
	case outputYAML:
		if data, err = yaml.JSONToYAML(data); err != nil {
			return fmt.Errorf("error encoding output: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	_, err = w.Write(data)
	return err
}

func addOutputFlag(cmd *cobra.Command, output *string) {
	cmd.Flags().StringVarP(output, "output", "o", outputYAML, "Output format. One of yaml or json.")
}
