package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var nucleosCmd = &cobra.Command{
	Use:   "nucleos",
	Short: "List the selectable núcleos of the dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		output, _ := cmd.Flags().GetString("output")
		if err := checkOutput(output); err != nil {
			return err
		}

		sess, err := loadFromFlags(cmd)
		if err != nil {
			return err
		}

		names := sess.Clusters()
		if output == "table" && len(names) == 0 {
			fmt.Fprintln(os.Stderr, "No núcleos found.")
			return nil
		}
		return writeNucleos(os.Stdout, output, names)
	},
}

func init() {
	nucleosCmd.Flags().StringP("output", "o", "table", "output format: table, json, yaml")
	rootCmd.AddCommand(nucleosCmd)
}

// writeNucleos prints one name per line, or the list as a JSON or YAML array.
func writeNucleos(out io.Writer, format string, names []string) error {
	switch format {
	case "json":
		return json.NewEncoder(out).Encode(names)
	case "yaml":
		if err := yaml.NewEncoder(out).Encode(names); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return nil
	}
	for _, n := range names {
		if _, err := fmt.Fprintln(out, n); err != nil {
			return err
		}
	}
	return nil
}
