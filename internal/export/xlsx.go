package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kittfreight/deeppack/internal/freight"
)

const (
	placementsSheet = "Placements"
	containersSheet = "Containers"
)

// ExportXLSX writes the packing manifest as an Excel workbook: one
// sheet listing every placement, one sheet summarizing each container.
func ExportXLSX(path string, res *freight.Result) error {
	if len(res.Placements) == 0 {
		return fmt.Errorf("no placements to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), placementsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(containersSheet); err != nil {
		return err
	}

	header := []any{"Item", "Container", "X", "Y", "Z", "Width", "Height", "Depth", "Rotated", "Weight"}
	if err := f.SetSheetRow(placementsSheet, "A1", &header); err != nil {
		return err
	}
	for i, p := range res.Placements {
		rotated := "no"
		if p.Orientation > 0 {
			rotated = "yes"
		}
		row := []any{
			p.ItemID, p.Bin + 1,
			p.Position.X, p.Position.Y, p.Position.Z,
			p.Size.Width, p.Size.Height, p.Size.Depth,
			rotated, p.Weight,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(placementsSheet, cell, &row); err != nil {
			return err
		}
	}

	binHeader := []any{"Container", "Items", "Weight", "Overweight", "Utilization %"}
	if err := f.SetSheetRow(containersSheet, "A1", &binHeader); err != nil {
		return err
	}
	for i, load := range res.Bins {
		over := "no"
		if load.Overweight {
			over = "yes"
		}
		row := []any{load.Bin + 1, len(load.ItemIDs), load.Weight, over, load.Utilization * 100}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(containersSheet, cell, &row); err != nil {
			return err
		}
	}

	// Job metadata below the container table.
	metaStart := len(res.Bins) + 3
	meta := [][]any{
		{"Job", res.JobID},
		{"Algorithm", res.Algorithm},
		{"Container size", fmt.Sprintf("%.0f x %.0f x %.0f", res.Container.Width, res.Container.Height, res.Container.Depth)},
		{"Items packed", fmt.Sprintf("%d / %d", res.ItemsPacked, res.ItemsRequested)},
		{"Utilization", fmt.Sprintf("%.1f%%", res.UtilizationPct)},
	}
	for i, row := range meta {
		cell, err := excelize.CoordinatesToCellName(1, metaStart+i)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(containersSheet, cell, &r); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}
