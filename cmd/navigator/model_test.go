package main

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/globeview/internal/navigation"
	"github.com/signalsfoundry/globeview/internal/viewer"
	"github.com/signalsfoundry/globeview/model"
)

func newTestModel(t *testing.T) *navigatorModel {
	t.Helper()
	epoch := time.Date(2012, 3, 15, 10, 0, 0, 0, time.UTC)
	v, err := viewer.New(viewer.DefaultConfig(), viewer.WithNow(func() time.Time { return epoch }))
	require.NoError(t, err)
	t.Cleanup(v.Destroy)
	m, err := newNavigatorModel(v, 10*time.Millisecond)
	require.NoError(t, err)
	return m
}

// mouse addresses a widget cell; the panel border shifts it by one.
func mouse(action tea.MouseAction, col, row int) tea.MouseMsg {
	button := tea.MouseButtonNone
	if action == tea.MouseActionPress {
		button = tea.MouseButtonLeft
	}
	return tea.MouseMsg{X: originCol + col, Y: originRow + row, Action: action, Button: button}
}

func TestPressOnZoomPointerGrabsRing(t *testing.T) {
	m := newTestModel(t)

	m.Update(mouse(tea.MouseActionPress, 4, 9))
	require.Equal(t, navigation.ControlZoomRing, m.widget.Grabbed())
	require.True(t, m.v.Navigation().ZoomRingDragging)

	m.Update(mouse(tea.MouseActionRelease, 4, 9))
	require.Equal(t, navigation.ControlNone, m.widget.Grabbed())
	require.False(t, m.v.Navigation().ZoomRingDragging)
}

func TestJoystickDragPansOnFrame(t *testing.T) {
	m := newTestModel(t)
	before := m.v.Controller().Position()

	m.Update(mouse(tea.MouseActionPress, 19, 9))
	require.Equal(t, navigation.ControlPanJoystick, m.widget.Grabbed())
	m.Update(mouse(tea.MouseActionMotion, 27, 9))
	require.Greater(t, m.v.Navigation().PointerDistance(), 30.0)

	_, cmd := m.Update(frameMsg(time.Now()))
	require.NotNil(t, cmd)
	require.Equal(t, 1, m.frames)
	require.NotEqual(t, before, m.v.Controller().Position())
}

func TestKeysDriveCommandsAndMode(t *testing.T) {
	m := newTestModel(t)
	key := func(s string) tea.Cmd {
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
		return cmd
	}

	key("+")
	require.InDelta(t, navigation.ZoomStep, m.v.Navigation().ZoomRingAngle(), 1e-12)
	key("-")
	key("-")
	require.InDelta(t, -navigation.ZoomStep, m.v.Navigation().ZoomRingAngle(), 1e-12)

	key("1")
	require.Equal(t, model.Scene2D, m.v.Mode())
	key("2")
	require.Equal(t, model.ColumbusView, m.v.Mode())
	key("3")
	require.Equal(t, model.Scene3D, m.v.Mode())

	m.Update(tea.MouseMsg{Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	require.InDelta(t, 0, m.v.Navigation().ZoomRingAngle(), 1e-12)

	cmd := key("q")
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)
}

func TestViewShowsWidgetAndReadout(t *testing.T) {
	m := newTestModel(t)
	m.Update(mouse(tea.MouseActionPress, 19, 9))

	out := m.View()
	for _, want := range []string{"globeview navigator", "3D", "panJoystick", "@", "Z", "T", "N"} {
		require.True(t, strings.Contains(out, want), "view is missing %q", want)
	}
}
