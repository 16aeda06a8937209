package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/signalsfoundry/globeview/internal/czml"
	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/internal/logging"
	"github.com/signalsfoundry/globeview/internal/orbit"
	"github.com/signalsfoundry/globeview/internal/sceneapi"
	"github.com/signalsfoundry/globeview/internal/viewer"
	"github.com/signalsfoundry/globeview/model"
)

// Config holds one batch run.
type Config struct {
	Documents  []string
	TLEPath    string
	Start      time.Time
	Duration   time.Duration
	Step       time.Duration
	Mode       string
	SensorDeg  float64
	PushURL    string
	PushFormat string

	Stations        []orbit.Station
	MinElevationDeg float64
}

// Summary describes a finished run.
type Summary struct {
	Frames       int
	Entities     int
	MaxShown     int
	MinShown     int
	FailedMerges int
	Start        time.Time
	Stop         time.Time
	Pushed       int
	// Contacts sums the station/satellite pairs in view over all frames.
	Contacts int
}

func main() {
	var cfg Config
	documents := flag.String("documents", "", "Comma-separated scene documents (.czml, .msgpack, optionally .zst)")
	start := flag.String("start", "", "RFC 3339 simulation start (default: scene availability, or now)")
	flag.StringVar(&cfg.TLEPath, "tle", "", "Two-line element file to sample into tracks")
	flag.DurationVar(&cfg.Duration, "duration", time.Hour, "Simulated time to step through")
	flag.DurationVar(&cfg.Step, "step", time.Minute, "Simulated time between frames")
	flag.StringVar(&cfg.Mode, "mode", "3D", "Scene mode: 2D, CV or 3D")
	flag.Float64Var(&cfg.SensorDeg, "sensor", 0, "Cone half-angle in degrees for TLE satellites (0 disables)")
	flag.StringVar(&cfg.PushURL, "push", "", "Base URL of a scene server to upload the scene to")
	flag.StringVar(&cfg.PushFormat, "push-format", "json", "Upload encoding: json, msgpack, json+zstd or msgpack+zstd")
	stations := flag.String("stations", "", "Ground stations as id,name,lon,lat[,height] separated by ';'")
	flag.Float64Var(&cfg.MinElevationDeg, "min-elevation", orbit.DefaultMinElevationDeg, "Elevation mask in degrees for station contacts")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	if *documents != "" {
		cfg.Documents = strings.Split(*documents, ",")
	}
	if *start != "" {
		t, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			log.Error(ctx, "invalid -start", logging.Err(err))
			os.Exit(2)
		}
		cfg.Start = t.UTC()
	}
	if *stations != "" {
		parsed, err := orbit.ParseStations(*stations)
		if err != nil {
			log.Error(ctx, "invalid -stations", logging.Err(err))
			os.Exit(2)
		}
		cfg.Stations = parsed
	}

	summary, err := run(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "simulation failed", logging.Err(err))
		os.Exit(1)
	}
	printSummary(os.Stdout, summary)
}

// run loads the scene and draws one frame per step.
func run(ctx context.Context, cfg Config, log logging.Logger) (Summary, error) {
	if cfg.Step <= 0 {
		return Summary{}, fmt.Errorf("step must be positive, got %v", cfg.Step)
	}
	vcfg := viewer.DefaultConfig()
	vcfg.Mode = cfg.Mode
	v, err := viewer.New(vcfg, viewer.WithLogger(log))
	if err != nil {
		return Summary{}, err
	}
	defer v.Destroy()

	packets, sats, err := loadPackets(cfg)
	if err != nil {
		return Summary{}, err
	}
	var visibility *orbit.Visibility
	if len(cfg.Stations) > 0 && len(sats) > 0 {
		visibility = orbit.NewVisibility(cfg.Stations, sats, cfg.MinElevationDeg)
	}
	if _, err := v.LoadDocument(ctx, packets); err != nil {
		log.Warn(ctx, "scene loaded with errors", logging.Err(err))
	}

	clock := v.Clock()
	begin := cfg.Start
	if begin.IsZero() {
		begin = clock.Now()
	}
	summary := Summary{Start: begin, Stop: begin.Add(cfg.Duration), MinShown: -1}

	for at := begin; !at.After(summary.Stop); at = at.Add(cfg.Step) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		clock.SetTime(at)
		stats, err := v.Frame(ctx)
		if err != nil {
			summary.FailedMerges++
			log.Warn(ctx, "frame failed", logging.String("time", model.FormatTime(at)), logging.Err(err))
		}
		summary.Frames++
		summary.Entities = stats.Entities
		if stats.Shown > summary.MaxShown {
			summary.MaxShown = stats.Shown
		}
		if summary.MinShown < 0 || stats.Shown < summary.MinShown {
			summary.MinShown = stats.Shown
		}
		if visibility != nil {
			summary.Contacts += len(visibility.At(at))
		}
	}
	if summary.MinShown < 0 {
		summary.MinShown = 0
	}
	log.Info(ctx, "simulation finished",
		logging.Int("frames", summary.Frames),
		logging.Duration("simulated", cfg.Duration),
		logging.Duration("step", cfg.Step),
	)

	if cfg.PushURL != "" {
		format, err := czml.ParseFormat(cfg.PushFormat)
		if err != nil {
			return summary, err
		}
		client := sceneapi.NewHTTPClient(cfg.PushURL, sceneapi.WithFormat(format))
		if _, err := client.PostDocument(ctx, packets); err != nil {
			return summary, fmt.Errorf("push: %w", err)
		}
		summary.Pushed = len(packets)
		log.Info(ctx, "scene pushed", logging.String("url", cfg.PushURL), logging.Int("packets", len(packets)))
	}
	return summary, nil
}

func loadPackets(cfg Config) ([]dynamic.Packet, []orbit.Satellite, error) {
	var (
		packets []dynamic.Packet
		sats    []orbit.Satellite
	)
	for _, path := range cfg.Documents {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		doc, err := czml.DecodeFile(path)
		if err != nil {
			return nil, nil, err
		}
		packets = append(packets, doc...)
	}
	if cfg.TLEPath != "" {
		var err error
		if sats, err = orbit.ParseTLEFile(cfg.TLEPath); err != nil {
			return nil, nil, err
		}
		start := cfg.Start
		if start.IsZero() {
			start = time.Now().UTC()
		}
		opts := orbit.DefaultOptions(start)
		opts.Duration = cfg.Duration
		opts.Step = cfg.Step
		if cfg.SensorDeg > 0 {
			opts.SensorHalfAngle = cfg.SensorDeg * math.Pi / 180
		}
		tracks, err := orbit.Packets(sats, opts)
		if err != nil {
			return nil, nil, err
		}
		packets = append(packets, tracks...)
	}
	for _, st := range cfg.Stations {
		packets = append(packets, orbit.GroundStationPacket(st))
	}
	return packets, sats, nil
}

func printSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "simulated %s .. %s\n", model.FormatTime(s.Start), model.FormatTime(s.Stop))
	fmt.Fprintf(w, "frames: %d\n", s.Frames)
	fmt.Fprintf(w, "entities: %d\n", s.Entities)
	fmt.Fprintf(w, "primitives shown: min %d, max %d\n", s.MinShown, s.MaxShown)
	if s.Contacts > 0 {
		fmt.Fprintf(w, "station contacts: %d\n", s.Contacts)
	}
	if s.FailedMerges > 0 {
		fmt.Fprintf(w, "failed merges: %d\n", s.FailedMerges)
	}
	if s.Pushed > 0 {
		fmt.Fprintf(w, "pushed packets: %d\n", s.Pushed)
	}
}
