// Package render рисует недельную сетку слотов интервьюера в PNG.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const (
	imageWidth       = 1400
	imageHeight      = 900
	headerHeight     = 100
	leftLabelsWidth  = 80
	legendWidth      = 120
	dayPaddingX      = 8
	minSlotHeight    = 8.0
	slotBorderRadius = 6.0
	shadowOffset     = 3.0
	daysInWeek       = 7
	hourPaddingTop   = 2
	hourPaddingBot   = 2
	defaultMinHour   = 8
	defaultMaxHour   = 20
)

const (
	titleFontSize      = 25.0
	dayFontSize        = 24.0
	hourLabelFontSize  = 18.0
	slotTimeFontSize   = 16.0
	legendItemFontSize = 12.0
)

var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 125}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	slotAvailableColor  = color.RGBA{133, 193, 85, 220}
	slotBookedColor     = color.RGBA{255, 182, 193, 255}
	slotPastColor       = color.RGBA{158, 158, 158, 200}
	slotTextColor       = color.RGBA{20, 24, 28, 230}
	slotBookedTextColor = color.RGBA{120, 40, 50, 255}
	slotShadowColor     = color.RGBA{0, 0, 0, 20}

	legendItemColor = color.RGBA{70, 74, 78, 220}
)

type fontStyle int

const (
	fontRegular fontStyle = iota
	fontBold
)

var (
	fontsOnce   sync.Once
	parsedFonts map[fontStyle]*opentype.Font
)

func loadFonts() {
	parsedFonts = make(map[fontStyle]*opentype.Font)
	for style, data := range map[fontStyle][]byte{fontRegular: goregular.TTF, fontBold: gobold.TTF} {
		if f, err := opentype.Parse(data); err == nil {
			parsedFonts[style] = f
		}
	}
}

// setFont выставляет шрифт нужного размера, при ошибке basicfont
func setFont(dc *gg.Context, size float64, style fontStyle) {
	fontsOnce.Do(loadFonts)

	if f, ok := parsedFonts[style]; ok {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

type weekBounds struct {
	start time.Time
	end   time.Time
}

type hourRange struct {
	start int
	end   int
	total int
}

// Week параметры отрисовки
type Week struct {
	Date     time.Time      // любой день недели
	Location *time.Location // в этой зоне рисуются часы
	Now      time.Time
	Slots    []*model.Slot
}

// RenderWeek рисует неделю (Пн-Вс), в которую попадает w.Date
func RenderWeek(w Week) ([]byte, error) {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}

	week := weekOf(w.Date.In(loc))
	now := w.Now.In(loc)
	today := startOfDay(now)
	highlightToday := !today.Before(week.start) && !today.After(week.end)

	slotsByDay := groupSlotsByDay(w.Slots, week, loc)
	hours := calculateHourRange(slotsByDay, loc)

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / daysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	drawHeader(dc, week)
	drawHourLabels(dc, hours, cellHeight)

	day := week.start
	for i := 0; i < daysInWeek; i++ {
		x := float64(leftLabelsWidth + i*dayWidth)
		y := float64(headerHeight)

		drawDayBackground(dc, x, y, dayWidth, dayHeight, i, highlightToday && day.Equal(today))
		drawDayHeader(dc, day, x, y, dayWidth)
		drawHourLines(dc, x, y, dayWidth, hours, cellHeight)
		for _, slot := range slotsByDay[day.Format(time.DateOnly)] {
			drawSlot(dc, slot, loc, now, x, y, dayWidth, hours, cellHeight)
		}

		day = day.AddDate(0, 0, 1)
	}

	if highlightToday {
		drawCurrentTimeLine(dc, now, hours, cellHeight, dayWidth)
	}
	drawLegend(dc, dayWidth)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode week png: %w", err)
	}
	return buf.Bytes(), nil
}

// WeekRange полуоткрытый интервал [Пн 00:00, след. Пн 00:00) в зоне date
func WeekRange(date time.Time) (time.Time, time.Time) {
	return weekOf(date).Range()
}

func weekOf(date time.Time) weekBounds {
	day := startOfDay(date)

	sinceMonday := int(day.Weekday()) - 1
	if day.Weekday() == time.Sunday {
		sinceMonday = 6
	}

	start := day.AddDate(0, 0, -sinceMonday)
	return weekBounds{start: start, end: start.AddDate(0, 0, 6)}
}

func (w weekBounds) Range() (time.Time, time.Time) {
	return w.start, w.start.AddDate(0, 0, daysInWeek)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func groupSlotsByDay(slots []*model.Slot, week weekBounds, loc *time.Location) map[string][]*model.Slot {
	from, to := week.Range()

	byDay := make(map[string][]*model.Slot)
	for _, slot := range slots {
		start := slot.StartAt.In(loc)
		if start.Before(from) || !start.Before(to) {
			continue
		}
		key := start.Format(time.DateOnly)
		byDay[key] = append(byDay[key], slot)
	}
	return byDay
}

func calculateHourRange(byDay map[string][]*model.Slot, loc *time.Location) hourRange {
	minHour, maxHour := 24, 0

	for _, slots := range byDay {
		for _, slot := range slots {
			start := slot.StartAt.In(loc)
			end := slot.EndAt.In(loc)
			endHour := end.Hour()
			if end.Minute() > 0 {
				endHour++
			}
			// слот через полночь дорисовываем до конца дня
			if end.Day() != start.Day() {
				endHour = 24
			}
			minHour = min(minHour, start.Hour())
			maxHour = max(maxHour, endHour)
		}
	}

	if minHour == 24 {
		minHour, maxHour = defaultMinHour, defaultMaxHour
	}

	start := max(minHour-hourPaddingTop, 0)
	end := min(maxHour+hourPaddingBot, 23)

	return hourRange{start: start, end: end, total: end - start + 1}
}

func drawHeader(dc *gg.Context, week weekBounds) {
	title := week.start.Format("January 2006")
	if week.start.Month() != week.end.Month() {
		title = week.start.Format("January") + " - " + week.end.Format("January 2006")
	}

	setFont(dc, titleFontSize, fontBold)
	dc.SetColor(textColor)
	w, h := dc.MeasureString(title)
	dc.DrawStringAnchored(title, w/2+10, float64(headerHeight)/8+h/2, 0, 0)
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	setFont(dc, hourLabelFontSize, fontRegular)
	dc.SetColor(hourLabelColor)

	for i := 0; i < hours.total; i++ {
		y := float64(headerHeight) + float64(i)*cellHeight
		dc.DrawStringAnchored(fmt.Sprintf("%02d:00", hours.start+i), float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDayBackground(dc *gg.Context, x, y float64, dayWidth, dayHeight, dayIndex int, isToday bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case dayIndex%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()
}

func drawDayHeader(dc *gg.Context, date time.Time, x, y float64, dayWidth int) {
	setFont(dc, dayFontSize, fontBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(date.Format("02 Jan"), x+float64(dayWidth)/2, y, 0.5, -1)
	dc.DrawStringAnchored(date.Format("Mon"), x+float64(dayWidth)/2, y, 0.5, -0.2)
}

func drawHourLines(dc *gg.Context, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)

	for i := 0; i <= hours.total; i++ {
		hy := y + float64(i)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

func drawSlot(dc *gg.Context, slot *model.Slot, loc *time.Location, now time.Time, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	start := slot.StartAt.In(loc)
	end := slot.EndAt.In(loc)

	startHour := float64(start.Hour()) + float64(start.Minute())/60
	endHour := startHour + end.Sub(start).Hours()

	slotY := y + (startHour-float64(hours.start))*cellHeight
	slotHeight := max((endHour-startHour)*cellHeight, minSlotHeight)

	fill := slotColor(slot, now)
	slotWidth := float64(dayWidth) - float64(dayPaddingX*2)

	dc.SetColor(slotShadowColor)
	dc.DrawRoundedRectangle(x+dayPaddingX+shadowOffset, slotY+2+shadowOffset, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+dayPaddingX, slotY+2, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Fill()

	dc.SetColor(darken(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+dayPaddingX, slotY+2, slotWidth, slotHeight-4, slotBorderRadius)
	dc.Stroke()

	txtColor := slotTextColor
	if slot.IsBooked {
		txtColor = slotBookedTextColor
	}

	setFont(dc, slotTimeFontSize, fontBold)
	dc.SetColor(txtColor)
	txtX := x + dayPaddingX + 8
	txtY := slotY + 18
	dc.DrawStringAnchored(start.Format("15:04")+"-"+end.Format("15:04"), txtX, txtY, 0, 0)

	if slotHeight > 25 {
		setFont(dc, slotTimeFontSize-2, fontRegular)
		dc.DrawStringAnchored(string(slot.InterviewType), txtX, txtY+16, 0, 0)
	}
}

func slotColor(slot *model.Slot, now time.Time) color.RGBA {
	switch {
	case slot.IsBooked:
		return slotBookedColor
	case !slot.StartAt.After(now):
		return slotPastColor
	default:
		return slotAvailableColor
	}
}

func darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func drawCurrentTimeLine(dc *gg.Context, now time.Time, hours hourRange, cellHeight float64, dayWidth int) {
	current := float64(now.Hour()) + float64(now.Minute())/60
	if current < float64(hours.start) || current > float64(hours.end) {
		return
	}

	lineY := float64(headerHeight) + (current-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2)
	dc.DrawLine(float64(leftLabelsWidth), lineY, float64(leftLabelsWidth+daysInWeek*dayWidth), lineY)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, dayWidth int) {
	x := float64(leftLabelsWidth + daysInWeek*dayWidth + 10)
	y := float64(imageHeight) - 78

	items := []struct {
		label string
		clr   color.Color
	}{
		{"Available", slotAvailableColor},
		{"Booked", slotBookedColor},
		{"Past", slotPastColor},
	}

	const boxW, boxH = 20.0, 14.0
	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(x, y, boxW, boxH, 3)
		dc.Fill()

		setFont(dc, legendItemFontSize, fontRegular)
		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(item.label, x+boxW+8, y+boxH/2+1, 0, 0.2)
		y += boxH + 14
	}
}
