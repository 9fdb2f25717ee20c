package export

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lotes-cli/internal/aggregate"
	"github.com/sells-group/lotes-cli/internal/parcel"
)

// Sheet names.
const (
	SheetParcels = "Lotes"
	SheetSummary = "Resumo"
	SheetNucleos = "Nucleos"
)

var parcelHeader = []string{"ID_LOTE", "NUCLEO", "GRAU_RISCO", "GRAU", "CUSTO", "LOTE_APP", "NAO_CONFORME"}

// Workbook writes features and their summary to an xlsx file at path.
func Workbook(path string, features []parcel.Feature, summary aggregate.Summary) error {
	f, err := buildWorkbook(features, summary)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}

// WriteWorkbook streams the same workbook as Workbook to w.
func WriteWorkbook(w io.Writer, features []parcel.Feature, summary aggregate.Summary) error {
	f, err := buildWorkbook(features, summary)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

func buildWorkbook(features []parcel.Feature, summary aggregate.Summary) (*xlsx.File, error) {
	f := xlsx.NewFile()
	bold := xlsx.NewStyle()
	bold.Font.Bold = true
	bold.ApplyFont = true

	parcels, err := f.AddSheet(SheetParcels)
	if err != nil {
		return nil, eris.Wrap(err, "export: add parcels sheet")
	}
	headerRow(parcels, bold, parcelHeader...)
	for i := range features {
		addParcelRow(parcels, &features[i])
	}

	res, err := f.AddSheet(SheetSummary)
	if err != nil {
		return nil, eris.Wrap(err, "export: add summary sheet")
	}
	addSummaryRows(res, bold, summary, aggregate.ByGrade(features))

	nucleos, err := f.AddSheet(SheetNucleos)
	if err != nil {
		return nil, eris.Wrap(err, "export: add nucleos sheet")
	}
	headerRow(nucleos, bold, "NUCLEO", "LOTES", "NAO_CONFORMES", "CUSTO_TOTAL")
	for _, cs := range aggregate.ByCluster(features) {
		row := nucleos.AddRow()
		row.AddCell().SetString(cs.Nucleo)
		row.AddCell().SetInt(cs.Count)
		row.AddCell().SetInt(cs.NonConforming)
		row.AddCell().SetFloat(cs.TotalCost)
	}

	return f, nil
}

func headerRow(sheet *xlsx.Sheet, style *xlsx.Style, names ...string) {
	row := sheet.AddRow()
	for _, name := range names {
		cell := row.AddCell()
		cell.SetString(name)
		cell.SetStyle(style)
	}
}

func addParcelRow(sheet *xlsx.Sheet, f *parcel.Feature) {
	row := sheet.AddRow()
	row.AddCell().SetString(f.Label)
	row.AddCell().SetString(f.Nucleo)
	row.AddCell().SetString(string(f.Grade))
	row.AddCell().SetString(f.Grade.Info().Name)
	cost := row.AddCell()
	if f.HasCost {
		cost.SetFloat(f.Cost)
	}
	row.AddCell().SetString(yesNo(f.InPreservationArea))
	row.AddCell().SetString(yesNo(f.NonConforming()))
}

func addSummaryRows(sheet *xlsx.Sheet, bold *xlsx.Style, s aggregate.Summary, grades []aggregate.GradeCount) {
	kv := func(key string) *xlsx.Row {
		row := sheet.AddRow()
		cell := row.AddCell()
		cell.SetString(key)
		cell.SetStyle(bold)
		return row
	}

	kv("Total de lotes").AddCell().SetInt(s.Total)
	kv("Lotes não conformes").AddCell().SetInt(s.NonConforming)
	kv("Lotes em APP").AddCell().SetInt(s.InPreservationArea)
	kv("Lotes com custo").AddCell().SetInt(s.WithCost)
	kv("Custo total").AddCell().SetFloat(s.TotalCost)
	if s.MaxCost != nil {
		row := kv("Maior custo")
		row.AddCell().SetFloat(s.MaxCost.Cost)
		row.AddCell().SetString(s.MaxCost.Label)
	}
	if s.MinCost != nil {
		row := kv("Menor custo")
		row.AddCell().SetFloat(s.MinCost.Cost)
		row.AddCell().SetString(s.MinCost.Label)
	}

	sheet.AddRow()
	headerRow(sheet, bold, "GRAU_RISCO", "GRAU", "LOTES")
	for _, gc := range grades {
		row := sheet.AddRow()
		row.AddCell().SetString(string(gc.Grade))
		name := row.AddCell()
		name.SetString(gc.Name)
		name.SetStyle(fillStyle(gc.Color))
		row.AddCell().SetInt(gc.Count)
	}
}

// fillStyle returns a solid fill for a "#rrggbb" color.
func fillStyle(color string) *xlsx.Style {
	argb := "FF" + strings.ToUpper(strings.TrimPrefix(color, "#"))
	style := xlsx.NewStyle()
	style.Fill = *xlsx.NewFill("solid", argb, argb)
	style.ApplyFill = true
	return style
}

func yesNo(b bool) string {
	if b {
		return "SIM"
	}
	return "NAO"
}
