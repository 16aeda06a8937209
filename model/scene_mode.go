package model

import (
	"fmt"
	"strings"
)

// SceneMode selects how the globe is projected.
type SceneMode int

const (
	Scene3D SceneMode = iota
	Scene2D
	ColumbusView
)

func (m SceneMode) String() string {
	switch m {
	case Scene3D:
		return "3D"
	case Scene2D:
		return "2D"
	case ColumbusView:
		return "COLUMBUS_VIEW"
	default:
		return fmt.Sprintf("SceneMode(%d)", int(m))
	}
}

// ParseSceneMode accepts "3D", "2D", "COLUMBUS_VIEW" (or "CV"), ignoring case.
func ParseSceneMode(s string) (SceneMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "3D", "SCENE3D":
		return Scene3D, nil
	case "2D", "SCENE2D":
		return Scene2D, nil
	case "COLUMBUS_VIEW", "CV", "COLUMBUSVIEW":
		return ColumbusView, nil
	}
	return 0, &ParseError{Input: s, Reason: "unknown scene mode"}
}

// UnmarshalYAML lets configuration files name the mode.
func (m *SceneMode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseSceneMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
