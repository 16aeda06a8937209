package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/signalsfoundry/globeview/internal/navigation"
	"github.com/signalsfoundry/globeview/internal/viewer"
	"github.com/signalsfoundry/globeview/model"
)

// The widget is drawn as a grid of terminal cells, each standing for a
// cellWidth x cellHeight patch of the 200x200 widget box. The grid starts
// inside the panel border.
const (
	widgetCols = 40
	widgetRows = 20
	cellWidth  = navigation.WidgetSize / widgetCols
	cellHeight = navigation.WidgetSize / widgetRows
	originCol  = 1
	originRow  = 1
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	widgetStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))
	grabbedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	readoutStyle = lipgloss.NewStyle().PaddingLeft(2)
)

type frameMsg time.Time

// navigatorModel drives a viewer from the terminal: the mouse works the
// navigation widget and every tick advances the clock by one frame.
type navigatorModel struct {
	v        *viewer.Viewer
	widget   *navigation.Widget
	interval time.Duration
	frames   int
	err      error
}

func newNavigatorModel(v *viewer.Viewer, interval time.Duration) (*navigatorModel, error) {
	w, err := navigation.NewWidget(v.Navigation(), navigation.Rect{
		Left:   originCol * cellWidth,
		Top:    originRow * cellHeight,
		Width:  navigation.WidgetSize,
		Height: navigation.WidgetSize,
	})
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	return &navigatorModel{v: v, widget: w, interval: interval}, nil
}

func (m *navigatorModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *navigatorModel) Init() tea.Cmd {
	return m.tick()
}

func (m *navigatorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	case frameMsg:
		m.v.Clock().Advance(m.interval)
		m.frames++
		return m, m.tick()
	}
	return m, nil
}

func (m *navigatorModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	vm := m.v.Navigation()
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return tea.Quit
	case "+", "=":
		vm.ZoomInCommand()()
	case "-", "_":
		vm.ZoomOutCommand()()
	case "1":
		m.v.SetMode(model.Scene2D)
	case "2":
		m.v.SetMode(model.ColumbusView)
	case "3":
		m.v.SetMode(model.Scene3D)
	case "r":
		m.v.SetMode(m.v.Mode())
	}
	return nil
}

func (m *navigatorModel) handleMouse(msg tea.MouseMsg) {
	vm := m.v.Navigation()
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		vm.ZoomInCommand()()
		return
	case tea.MouseButtonWheelDown:
		vm.ZoomOutCommand()()
		return
	}

	var typ navigation.EventType
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		typ = navigation.PointerDown
	case tea.MouseActionMotion:
		typ = navigation.PointerMove
	case tea.MouseActionRelease:
		typ = navigation.PointerUp
	default:
		return
	}
	m.widget.HandleEvent(navigation.PointerEvent{
		Type:    typ,
		ClientX: (float64(msg.X) + 0.5) * cellWidth,
		ClientY: (float64(msg.Y) + 0.5) * cellHeight,
	})
}

func (m *navigatorModel) View() string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		widgetStyle.Render(m.renderWidget()),
		readoutStyle.Render(m.renderReadout()),
	)
}

func (m *navigatorModel) renderWidget() string {
	vm := m.v.Navigation()
	north := (vm.NorthRingAngle() + 90) * math.Pi / 180
	northX := navigation.WidgetSize/2 + 50*math.Cos(north)
	northY := navigation.WidgetSize/2 - 50*math.Sin(north)
	grabbed := m.widget.Grabbed()

	var b strings.Builder
	for row := 0; row < widgetRows; row++ {
		for col := 0; col < widgetCols; col++ {
			x := (float64(col) + 0.5) * cellWidth
			y := (float64(row) + 0.5) * cellHeight
			c := m.widget.ControlAt(x, y)
			var glyph string
			switch c {
			case navigation.ControlPanJoystick:
				glyph = "@"
			case navigation.ControlZoomRing:
				glyph = "Z"
			case navigation.ControlTiltRing:
				glyph = "T"
			case navigation.ControlNorthRing:
				glyph = "."
				if math.Hypot(x-northX, y-northY) < 8 {
					glyph = "N"
				}
			default:
				glyph = " "
				if navigation.OnRing(x, y) {
					glyph = "o"
				}
			}
			if c != navigation.ControlNone && c == grabbed {
				glyph = grabbedStyle.Render(glyph)
			}
			b.WriteString(glyph)
		}
		if row < widgetRows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m *navigatorModel) renderReadout() string {
	vm := m.v.Navigation()
	ctrl := m.v.Controller()
	pos := ctrl.Position()

	lines := []string{
		titleStyle.Render("globeview navigator"),
		"",
		field("mode", m.v.Mode().String()),
		field("time", model.FormatTime(m.v.Clock().Now())),
		field("camera", fmt.Sprintf("%.0f, %.0f, %.0f km", pos.X/1000, pos.Y/1000, pos.Z/1000)),
		field("magnitude", fmt.Sprintf("%.0f km", ctrl.Magnitude()/1000)),
		"",
		field("zoom ring", fmt.Sprintf("%+.1f°", vm.ZoomRingAngle())),
		field("tilt ring", fmt.Sprintf("%+.1f°", vm.TiltRingAngle())),
		field("north ring", fmt.Sprintf("%+.1f°", vm.NorthRingAngle())),
		field("joystick", fmt.Sprintf("%.1f @ %.0f°", vm.PointerDistance(), vm.PointerDirection())),
		field("grabbed", m.widget.Grabbed().String()),
		"",
		field("frames", fmt.Sprintf("%d", m.frames)),
		field("entities", fmt.Sprintf("%d", m.v.Collection().Len())),
		field("shown", fmt.Sprintf("%d", m.v.Primitives().Shown())),
	}
	if m.err != nil {
		lines = append(lines, "", errorStyle.Render(m.err.Error()))
	}
	lines = append(lines, "", helpStyle.Render("drag rings/joystick · wheel or +/- zoom · 1/2/3 mode · r reset · q quit"))
	return strings.Join(lines, "\n")
}

func field(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-11s", label)) + valueStyle.Render(value)
}
