package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/signalsfoundry/globeview/internal/czml"
	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/internal/logging"
	"github.com/signalsfoundry/globeview/internal/orbit"
	"github.com/signalsfoundry/globeview/internal/viewer"
)

func main() {
	documentPath := flag.String("document", "", "Scene document to load (.czml, .msgpack, optionally .zst)")
	tlePath := flag.String("tle", "", "Two-line element file whose satellites are added")
	configPath := flag.String("config", "", "Path to a YAML viewer configuration")
	mode := flag.String("mode", "", "Scene mode override: 2D, CV or 3D")
	logFile := flag.String("log-file", "navigator.log", "File receiving logs while the UI owns the terminal")
	flag.Parse()

	log := logging.New(logging.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
		File:   *logFile,
	})
	ctx := context.Background()

	cfg := viewer.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = viewer.LoadConfigFile(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	v, err := viewer.New(cfg, viewer.WithLogger(log))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer v.Destroy()

	m, err := newNavigatorModel(v, cfg.FrameInterval)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	packets, err := scenePackets(*documentPath, *tlePath, time.Now().UTC())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(packets) > 0 {
		if _, err := v.LoadDocument(ctx, packets); err != nil {
			log.Warn(ctx, "scene loaded with errors", logging.Err(err))
			m.err = err
		}
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func scenePackets(documentPath, tlePath string, start time.Time) ([]dynamic.Packet, error) {
	var packets []dynamic.Packet
	if documentPath != "" {
		doc, err := czml.DecodeFile(documentPath)
		if err != nil {
			return nil, err
		}
		packets = append(packets, doc...)
	}
	if tlePath != "" {
		sats, err := orbit.ParseTLEFile(tlePath)
		if err != nil {
			return nil, err
		}
		tracks, err := orbit.Packets(sats, orbit.DefaultOptions(start))
		if err != nil {
			return nil, err
		}
		packets = append(packets, tracks...)
	}
	return packets, nil
}
