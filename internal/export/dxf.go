package export

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
	"github.com/yofu/dxf/table"

	"github.com/kittfreight/deeppack/internal/freight"
)

// layerColors cycles per-container layer colors.
var layerColors = []color.ColorNumber{
	color.Red, color.Green, color.Blue, color.Cyan, color.Magenta, color.Yellow,
}

// ExportDXF writes a top-view CAD layout of the whole job: one layer
// per container holding its outline and the footprint of every placed
// item. Item footprints are drawn as closed polylines with a text label
// at the lower-left corner.
func ExportDXF(path string, res *freight.Result) error {
	if len(res.Placements) == 0 {
		return fmt.Errorf("no placements to export")
	}

	d := dxf.NewDrawing()

	bins, byBin := binPlacements(res)
	for i, bin := range bins {
		layer := fmt.Sprintf("CONTAINER_%d", bin+1)
		if _, err := d.AddLayer(layer, layerColors[i%len(layerColors)], table.LT_CONTINUOUS, true); err != nil {
			return fmt.Errorf("failed to add layer %s: %w", layer, err)
		}

		if err := rect(d, 0, 0, res.Container.Width, res.Container.Depth); err != nil {
			return err
		}

		for _, p := range byBin[bin] {
			if err := rect(d, p.Position.X, p.Position.Z, p.Size.Width, p.Size.Depth); err != nil {
				return err
			}
			textHeight := minf(p.Size.Width, p.Size.Depth) / 6
			if textHeight > 0 {
				if _, err := d.Text(p.ItemID, p.Position.X+textHeight/2, p.Position.Z+textHeight/2, 0, textHeight); err != nil {
					return fmt.Errorf("failed to label item %s: %w", p.ItemID, err)
				}
			}
		}
	}

	return d.SaveAs(path)
}

// rect draws an axis-aligned closed rectangle on the current layer.
func rect(d *drawing.Drawing, x, y, w, h float64) error {
	_, err := d.LwPolyline(true,
		[]float64{x, y},
		[]float64{x + w, y},
		[]float64{x + w, y + h},
		[]float64{x, y + h},
	)
	return err
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
