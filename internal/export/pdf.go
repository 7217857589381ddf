// Package export renders packing results to shareable file formats:
// PDF load plans, QR-coded item labels, Excel manifests and DXF
// top-view layouts.
package export

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-pdf/fpdf"

	"github.com/kittfreight/deeppack/internal/freight"
)

// itemColor represents an RGB fill for a placed item.
type itemColor struct {
	R, G, B int
}

var itemColors = []itemColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	legendHeight = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// binPlacements groups a result's placements per container, preserving
// placement order within each.
func binPlacements(res *freight.Result) ([]int, map[int][]freight.Placement) {
	byBin := map[int][]freight.Placement{}
	var order []int
	for _, p := range res.Placements {
		if _, ok := byBin[p.Bin]; !ok {
			order = append(order, p.Bin)
		}
		byBin[p.Bin] = append(byBin[p.Bin], p)
	}
	return order, byBin
}

func binLoad(res *freight.Result, bin int) (freight.BinLoad, bool) {
	for _, b := range res.Bins {
		if b.Bin == bin {
			return b, true
		}
	}
	return freight.BinLoad{}, false
}

// ExportPDF generates a PDF load plan: one page per container with a
// top-view diagram (width across, depth down, stacking order encoded by
// draw order and labels), followed by a job summary page.
func ExportPDF(path string, res *freight.Result) error {
	if len(res.Placements) == 0 {
		return fmt.Errorf("no placements to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	bins, byBin := binPlacements(res)
	for _, bin := range bins {
		pdf.AddPage()
		renderBinPage(pdf, res, bin, byBin[bin])
	}

	pdf.AddPage()
	renderSummaryPage(pdf, res)

	return pdf.OutputFileAndClose(path)
}

// renderBinPage draws one container's top view on the current page.
func renderBinPage(pdf *fpdf.Fpdf, res *freight.Result, bin int, placements []freight.Placement) {
	c := res.Container

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Container %d: %.0f x %.0f x %.0f", bin+1, c.Width, c.Height, c.Depth)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Items: %d", len(placements))
	if load, ok := binLoad(res, bin); ok {
		stats = fmt.Sprintf("Items: %d | Weight: %.1f | Utilization: %.1f%%",
			len(placements), load.Weight, load.Utilization*100)
		if load.Overweight {
			stats += " | OVERWEIGHT"
		}
	}
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - legendHeight

	scale := math.Min(drawWidth/c.Width, drawHeight/c.Depth)
	canvasW := c.Width * scale
	canvasH := c.Depth * scale
	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	// Container floor
	pdf.SetFillColor(225, 225, 225)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	// Draw items bottom layer first so stacked boxes overlay their
	// support in the top view.
	ordered := make([]freight.Placement, len(placements))
	copy(ordered, placements)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position.Y < ordered[j].Position.Y
	})

	for i, p := range ordered {
		col := itemColors[i%len(itemColors)]
		pw := p.Size.Width * scale
		ph := p.Size.Depth * scale
		px := offsetX + p.Position.X*scale
		py := offsetY + p.Position.Z*scale

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)
		pdf.Rect(px, py, pw, ph, "FD")

		if pw > 15 && ph > 8 {
			pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
			pdf.SetTextColor(0, 0, 0)

			label := p.ItemID
			level := fmt.Sprintf("base %.0f, top %.0f", p.Position.Y, p.Position.Y+p.Size.Height)

			labelW := pdf.GetStringWidth(label)
			if labelW < pw-2 {
				pdf.SetXY(px+(pw-labelW)/2, py+ph/2-4)
				pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
			}
			levelW := pdf.GetStringWidth(level)
			if ph > 14 && levelW < pw-2 {
				pdf.SetXY(px+(pw-levelW)/2, py+ph/2)
				pdf.CellFormat(levelW, 4, level, "", 0, "C", false, 0, "")
			}
		}
	}

	drawDimensionAnnotations(pdf, c, scale, offsetX, offsetY, canvasW, canvasH)
	drawItemLegend(pdf, ordered, offsetY+canvasH+5)
}

// drawDimensionAnnotations adds width and depth labels outside the
// container rectangle.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, c freight.Dimensions, scale, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%.0f", c.Width)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX+(canvasW-wLabelW)/2, offsetY+canvasH+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	depthLabel := fmt.Sprintf("%.0f", c.Depth)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	dLabelW := pdf.GetStringWidth(depthLabel)
	pdf.SetXY(offsetX-3-dLabelW/2, offsetY+canvasH/2-2)
	pdf.CellFormat(dLabelW, 4, depthLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawItemLegend renders a compact legend of placed items at the bottom
// of the container page, in loading order.
func drawItemLegend(pdf *fpdf.Fpdf, placements []freight.Placement, startY float64) {
	if len(placements) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Loading order:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for i, p := range placements {
		col := itemColors[i%len(itemColors)]
		label := fmt.Sprintf("%s (%.0fx%.0fx%.0f)", p.ItemID, p.Size.Width, p.Size.Height, p.Size.Depth)
		if p.Orientation > 0 {
			label += " R"
		}
		labelW := pdf.GetStringWidth(label) + 6

		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

// renderSummaryPage draws the final page with job-level statistics and a
// per-container breakdown.
func renderSummaryPage(pdf *fpdf.Fpdf, res *freight.Result) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Load Plan Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Job "+res.JobID, "", 0, "L", false, 0, "")
	y += 9

	summaryItems := []struct {
		label string
		value string
	}{
		{"Algorithm", res.Algorithm},
		{"Containers Used", fmt.Sprintf("%d", res.BinsUsed)},
		{"Items Packed", fmt.Sprintf("%d / %d", res.ItemsPacked, res.ItemsRequested)},
		{"Overall Utilization", fmt.Sprintf("%.1f%%", res.UtilizationPct)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(60, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Container Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{30, 30, 40, 40, 40}
	headers := []string{"Container", "Items", "Weight", "Utilization", "Overweight"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, load := range res.Bins {
		over := "no"
		if load.Overweight {
			over = "YES"
		}
		rowData := []string{
			fmt.Sprintf("%d", load.Bin+1),
			fmt.Sprintf("%d", len(load.ItemIDs)),
			fmt.Sprintf("%.1f", load.Weight),
			fmt.Sprintf("%.1f%%", load.Utilization*100),
			over,
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		xPos = marginLeft
		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if len(res.UnplacedIDs) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Unplaced Items", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, id := range res.UnplacedIDs {
			pdf.SetXY(marginLeft+5, y)
			pdf.CellFormat(200, 5, "- "+id, "", 0, "L", false, 0, "")
			y += 5
		}
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by DeepPack - Container Load Planner", "", 0, "C", false, 0, "")
}

// labelFontSize returns an appropriate font size for the rectangle.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
