package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"cfityid/internal/version"
)

var versionFormat string

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show cfityid build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch strings.ToLower(versionFormat) {
		case "pretty":
			return renderVersionPretty(cmd.OutOrStdout())
		case "json":
			return renderVersionJSON(cmd.OutOrStdout(), version.Current())
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}
	},
}

func renderVersionPretty(out io.Writer) error {
	_, err := fmt.Fprintln(out, version.Banner())
	return err
}

func renderVersionJSON(out io.Writer, info version.Info) error {
	payload := struct {
		Tool string `json:"tool"`
		version.Info
	}{Tool: "cfityid", Info: info}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
