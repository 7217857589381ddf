package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/kittfreight/deeppack/internal/freight"
)

// LabelInfo holds the data encoded into each item label's QR code.
type LabelInfo struct {
	ItemID      string  `json:"item_id"`
	JobID       string  `json:"job_id"`
	Bin         int     `json:"bin"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Depth       float64 `json:"depth"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	Orientation int     `json:"orientation"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns,
// 10 rows per page on US Letter).
const (
	labelMarginTop  = 12.7 // mm
	labelMarginLeft = 4.8  // mm
	labelWidth      = 66.7 // mm per label
	labelHeight     = 25.4 // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// ExportLabels generates a PDF of QR-coded labels, one per placed item.
// Each label carries the item ID, its dimensions, its container and
// position, and a QR code encoding the same data as JSON.
func ExportLabels(path string, res *freight.Result) error {
	labels := CollectLabelInfos(res)
	if len(labels) == 0 {
		return fmt.Errorf("no placed items to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, i, label); err != nil {
			return fmt.Errorf("failed to render label for %q: %w", label.ItemID, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, seq int, info LabelInfo) error {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%d_%s", seq, info.ItemID)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)

	itemID := info.ItemID
	if pdf.GetStringWidth(itemID) > textW {
		for len(itemID) > 0 && pdf.GetStringWidth(itemID+"...") > textW {
			itemID = itemID[:len(itemID)-1]
		}
		itemID += "..."
	}
	pdf.CellFormat(textW, 4.5, itemID, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	dims := fmt.Sprintf("%.0f x %.0f x %.0f", info.Width, info.Height, info.Depth)
	pdf.CellFormat(textW, 3.5, dims, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+9)
	binInfo := fmt.Sprintf("Container %d @ (%.0f, %.0f, %.0f)", info.Bin+1, info.X, info.Y, info.Z)
	pdf.CellFormat(textW, 3, binInfo, "", 1, "L", false, 0, "")

	if info.Orientation > 0 {
		pdf.SetXY(textX, y+labelPadding+12.5)
		pdf.SetFont("Helvetica", "I", 6)
		pdf.SetTextColor(150, 100, 0)
		pdf.CellFormat(textW, 3, "Rotated", "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)
	return nil
}

// CollectLabelInfos extracts label data from a packing result, in
// placement order.
func CollectLabelInfos(res *freight.Result) []LabelInfo {
	labels := make([]LabelInfo, 0, len(res.Placements))
	for _, p := range res.Placements {
		labels = append(labels, LabelInfo{
			ItemID:      p.ItemID,
			JobID:       res.JobID,
			Bin:         p.Bin,
			Width:       p.Size.Width,
			Height:      p.Size.Height,
			Depth:       p.Size.Depth,
			X:           p.Position.X,
			Y:           p.Position.Y,
			Z:           p.Position.Z,
			Orientation: p.Orientation,
		})
	}
	return labels
}
