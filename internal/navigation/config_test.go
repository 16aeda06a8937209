package navigation

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/globeview/core"
)

func TestLoadConfigurationKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfiguration(strings.NewReader(`
enableTilt: false
minimumZoomDistance: 100
maximumZoomDistance: 5e7
`))
	require.NoError(t, err)

	want := DefaultConfig()
	want.EnableTilt = false
	want.MinimumZoomDistance = 100
	want.MaximumZoomDistance = 5e7
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigurationRejectsInvalidSettings(t *testing.T) {
	cases := map[string]string{
		"bad yaml":          "enableZoom: [",
		"zero ratio":        "maximumMovementRatio: 0",
		"negative minimum":  "minimumZoomDistance: -1",
		"maximum below min": "minimumZoomDistance: 50\nmaximumZoomDistance: 10",
		"zero zoom factor":  "zoomFactor: 0",
		"unknown ellipsoid": "ellipsoid: mars",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfiguration(strings.NewReader(doc)); err == nil {
				t.Fatalf("expected an error for %q", doc)
			}
		})
	}
}

func TestWithConfigAppliesSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableTranslate = false
	cfg.ZoomFactor = 3
	cfg.Ellipsoid = "unitSphere"

	vm, err := New(canvas, &fakeController{}, WithConfig(cfg))
	require.NoError(t, err)
	require.False(t, vm.EnableTranslate)
	require.Equal(t, 3.0, vm.ZoomFactor)
	require.True(t, math.IsInf(vm.MaximumZoomDistance, 1), "zero maximum should mean unbounded")
	require.Same(t, core.UnitSphere, vm.Ellipsoid())
}

func TestWithConfigRejectsInvalidSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ZoomFactor = 0

	vm, err := New(canvas, &fakeController{}, WithConfig(cfg))
	require.Error(t, err)
	require.Contains(t, err.Error(), "zoomFactor")
	require.Nil(t, vm)
}
