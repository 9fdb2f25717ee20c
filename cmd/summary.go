package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lotes-cli/internal/session"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize the selected parcels",
	Long:  "Loads the dataset, applies the núcleo and grade selection, and prints totals, costs, and per-grade and per-núcleo breakdowns.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		output, _ := cmd.Flags().GetString("output")
		if err := checkOutput(output); err != nil {
			return err
		}

		sess, err := loadFromFlags(cmd)
		if err != nil {
			return err
		}
		return writeView(os.Stdout, output, sess.Recompute())
	},
}

func init() {
	summaryCmd.Flags().StringP("output", "o", "table", "output format: table, json, yaml")
	rootCmd.AddCommand(summaryCmd)
}

func checkOutput(output string) error {
	switch output {
	case "table", "json", "yaml":
		return nil
	}
	return eris.Errorf("unknown output format %q (want table, json or yaml)", output)
}

// writeView renders v in the given format.
func writeView(out io.Writer, format string, v session.View) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	}
	formatView(out, v)
	return nil
}

// formatView writes a human-readable report of v to out.
func formatView(out io.Writer, v session.View) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	s := v.Summary

	enabled := make([]string, len(v.Enabled))
	for i, g := range v.Enabled {
		enabled[i] = string(g)
	}

	_, _ = fmt.Fprintf(w, "Núcleo:\t%s\n", v.Nucleo)
	_, _ = fmt.Fprintf(w, "Graus:\t%s\n", strings.Join(enabled, ", "))
	_, _ = fmt.Fprintf(w, "Total de lotes:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Não conformes:\t%d\n", s.NonConforming)
	_, _ = fmt.Fprintf(w, "Em APP:\t%d\n", s.InPreservationArea)
	if s.HasCostData() {
		_, _ = fmt.Fprintf(w, "Custo total:\t%s\n", formatBRL(s.TotalCost))
		_, _ = fmt.Fprintf(w, "Maior custo:\t%s (%s)\n", formatBRL(s.MaxCost.Cost), displayLabel(s.MaxCost.Label))
		_, _ = fmt.Fprintf(w, "Menor custo:\t%s (%s)\n", formatBRL(s.MinCost.Cost), displayLabel(s.MinCost.Label))
	} else {
		_, _ = fmt.Fprintln(w, "Custo:\tsem dados de custo")
	}
	if v.Extent != nil {
		_, _ = fmt.Fprintf(w, "Extensão:\t%.6f, %.6f, %.6f, %.6f\n",
			v.Extent.MinLng, v.Extent.MinLat, v.Extent.MaxLng, v.Extent.MaxLat)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "GRAU\tNOME\tLOTES")
	_, _ = fmt.Fprintln(w, "----\t----\t-----")
	for _, gc := range v.ByGrade {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", gc.Grade, gc.Name, gc.Count)
	}
	_ = w.Flush()

	if len(v.ByCluster) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NÚCLEO\tLOTES\tNÃO CONFORMES\tCUSTO")
	_, _ = fmt.Fprintln(w, "------\t-----\t-------------\t-----")
	for _, cs := range v.ByCluster {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", cs.Nucleo, cs.Count, cs.NonConforming, formatBRL(cs.TotalCost))
	}
	_ = w.Flush()
}

func displayLabel(label string) string {
	if label == "" {
		return "sem identificação"
	}
	return label
}

// formatBRL renders an amount as "R$ 1.234.567,89".
func formatBRL(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	sign := ""
	if rest, neg := strings.CutPrefix(s, "-"); neg {
		s = rest
		if s != "0.00" {
			sign = "-"
		}
	}
	intPart, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return "R$ " + sign + b.String() + "," + frac
}
