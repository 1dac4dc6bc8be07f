package services

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/shopspring/decimal"
	"golang.org/x/image/font"

	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
)

const (
	chartWidth  = 900
	chartHeight = 420
)

// Scope colors, darkest for scope 1.
var (
	scope1Color = color.NRGBA{R: 0x1B, G: 0x5E, B: 0x20, A: 0xFF}
	scope2Color = color.NRGBA{R: 0x43, G: 0xA0, B: 0x47, A: 0xFF}
	scope3Color = color.NRGBA{R: 0xA5, G: 0xD6, B: 0xA7, A: 0xFF}
	axisColor   = color.NRGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xFF}
)

// ChartService renders the monthly emissions chart embedded in reports.
type ChartService interface {
	RenderMonthlyTrend(companyName string, reportingYear int, points []MonthlyTrendPoint) ([]byte, error)
}

type chartService struct {
	log       *logger.Logger
	labelFace font.Face
	titleFace font.Face
}

// NewChartService loads the label font from CHART_FONT. Without a font the
// chart still renders, just without text.
func NewChartService(log *logger.Logger) ChartService {
	serviceLog := log.With("service", "ChartService")

	var labelFace, titleFace font.Face
	fontPath := strings.TrimSpace(os.Getenv("CHART_FONT"))
	if fontPath == "" {
		serviceLog.Warn("CHART_FONT not set, charts render without labels")
	} else {
		var err error
		labelFace, err = loadChartFontFace(fontPath, 13)
		if err == nil {
			titleFace, err = loadChartFontFace(fontPath, 18)
		}
		if err != nil {
			serviceLog.Warn("Could not load chart font, charts render without labels", "font", fontPath, "error", err)
			labelFace, titleFace = nil, nil
		}
	}

	return &chartService{
		log:       serviceLog,
		labelFace: labelFace,
		titleFace: titleFace,
	}
}

// RenderMonthlyTrend draws one stacked bar per month, scope 1 at the bottom.
func (s *chartService) RenderMonthlyTrend(companyName string, reportingYear int, points []MonthlyTrendPoint) ([]byte, error) {
	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(color.White)
	dc.Clear()

	const (
		marginLeft   = 70.0
		marginRight  = 30.0
		marginTop    = 60.0
		marginBottom = 50.0
	)
	plotWidth := float64(chartWidth) - marginLeft - marginRight
	plotHeight := float64(chartHeight) - marginTop - marginBottom

	maxTotal := decimal.Zero
	for _, p := range points {
		if p.Total.GreaterThan(maxTotal) {
			maxTotal = p.Total
		}
	}
	scaleMax, _ := maxTotal.Float64()
	if scaleMax <= 0 {
		scaleMax = 1
	}
	scaleMax *= 1.1

	if s.titleFace != nil {
		dc.SetFontFace(s.titleFace)
		dc.SetColor(axisColor)
		title := fmt.Sprintf("%s monthly emissions, %d (kg CO2e)", companyName, reportingYear)
		dc.DrawString(title, marginLeft, marginTop-25)
	}

	// Axes and three horizontal gridlines.
	dc.SetColor(axisColor)
	dc.SetLineWidth(1)
	dc.DrawLine(marginLeft, marginTop, marginLeft, marginTop+plotHeight)
	dc.DrawLine(marginLeft, marginTop+plotHeight, marginLeft+plotWidth, marginTop+plotHeight)
	dc.Stroke()

	for i := 1; i <= 3; i++ {
		y := marginTop + plotHeight - plotHeight*float64(i)/4
		dc.SetRGBA(0.4, 0.4, 0.4, 0.25)
		dc.DrawLine(marginLeft, y, marginLeft+plotWidth, y)
		dc.Stroke()
		if s.labelFace != nil {
			dc.SetFontFace(s.labelFace)
			dc.SetColor(axisColor)
			label := fmt.Sprintf("%.0f", scaleMax*float64(i)/4)
			w, h := dc.MeasureString(label)
			dc.DrawString(label, marginLeft-w-8, y+h/2)
		}
	}

	if len(points) == 0 {
		if s.labelFace != nil {
			dc.SetFontFace(s.labelFace)
			dc.SetColor(axisColor)
			msg := "No emissions data for this year"
			w, _ := dc.MeasureString(msg)
			dc.DrawString(msg, marginLeft+(plotWidth-w)/2, marginTop+plotHeight/2)
		}
		return encodeChartPNG(dc)
	}

	slot := plotWidth / float64(len(points))
	barWidth := slot * 0.6

	for i, p := range points {
		x := marginLeft + slot*float64(i) + (slot-barWidth)/2
		baseY := marginTop + plotHeight

		baseY = drawChartSegment(dc, x, baseY, barWidth, plotHeight, scaleMax, p.Scope1, scope1Color)
		baseY = drawChartSegment(dc, x, baseY, barWidth, plotHeight, scaleMax, p.Scope2, scope2Color)
		drawChartSegment(dc, x, baseY, barWidth, plotHeight, scaleMax, p.Scope3, scope3Color)

		if s.labelFace != nil {
			dc.SetFontFace(s.labelFace)
			dc.SetColor(axisColor)
			label := monthLabel(p.Month)
			w, h := dc.MeasureString(label)
			dc.DrawString(label, x+(barWidth-w)/2, marginTop+plotHeight+h+8)
		}
	}

	return encodeChartPNG(dc)
}

// drawChartSegment draws one scope slice of a stacked bar and returns the
// new stack top.
func drawChartSegment(dc *gg.Context, x, baseY, barWidth, plotHeight, scaleMax float64, value decimal.Decimal, c color.NRGBA) float64 {
	v, _ := value.Float64()
	if v <= 0 {
		return baseY
	}
	h := plotHeight * v / scaleMax
	dc.SetColor(c)
	dc.DrawRectangle(x, baseY-h, barWidth, h)
	dc.Fill()
	return baseY - h
}

// monthLabel shortens "2025-03" to "03".
func monthLabel(periodValue string) string {
	if i := strings.LastIndex(periodValue, "-"); i >= 0 && i+1 < len(periodValue) {
		return periodValue[i+1:]
	}
	return periodValue
}

func encodeChartPNG(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func loadChartFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}
