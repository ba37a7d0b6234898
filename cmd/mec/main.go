// Command mec is the MEC roadside fusion engine process entry point: flag
// parsing, configuration/logging setup, sensor collaborator wiring,
// signal handling and the two ingestion/periodic cadences, modeled on the
// teacher repo's cmd/udp_server/main.go and on original_source/src/main.c.
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mec-fusion-go/internal/config"
	"mec-fusion-go/internal/fusion"
	"mec-fusion-go/internal/metrics"
	"mec-fusion-go/internal/obslog"
	"mec-fusion-go/internal/queue"
	"mec-fusion-go/internal/sensors/radar"
	"mec-fusion-go/internal/sensors/video"
	"mec-fusion-go/internal/trackbuf"
	"mec-fusion-go/internal/v2x"
	"mec-fusion-go/internal/web"
)

// sensorPollInterval is the original main.c's ~100ms sensor-poll cadence,
// distinct from the fusion engine's own 50ms periodic cycle.
const sensorPollInterval = 100 * time.Millisecond

func main() {
	configPath := flag.String("c", "/etc/mec/mec.conf.yaml", "configuration file path")
	simMode := flag.Bool("s", false, "simulation mode: synthetic detections, no serial/RTSP collaborators")
	flag.BoolVar(simMode, "sim", false, "alias for -s")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *simMode {
			obslog.Init(obslog.INFO, "")
			obslog.L().Warn("mec: config load failed (%v), using defaults in sim mode", err)
			cfg = config.Default()
		} else {
			obslog.Init(obslog.INFO, "")
			obslog.L().Fatal("mec: cannot load configuration from %s: %v", *configPath, err)
			return
		}
	} else {
		obslog.Init(parseLevel(cfg.LogLevel), cfg.LogFile)
	}

	runID := uuid.New()
	obslog.L().Info("mec: starting (run=%s, sim=%v)", runID, *simMode)

	running := &atomic.Bool{}
	running.Store(true)

	rec := metrics.New()
	reg := prometheus.NewRegistry()
	rec.MustRegister(reg)

	fcfg := fusion.Config{
		AssociationThreshold: cfg.Fusion.AssociationThreshold,
		PositionWeight:       cfg.Fusion.PositionWeight,
		VelocityWeight:       cfg.Fusion.VelocityWeight,
		ConfidenceThreshold:  cfg.Fusion.ConfidenceThreshold,
		MaxTrackAge:          cfg.Fusion.MaxTrackAge,
		TrackCapacity:        cfg.Fusion.TrackCapacity,
	}
	engine := fusion.New(fcfg, rec)
	q := queue.New(cfg.Queue.Capacity)
	loop := fusion.NewLoop(engine, q, running)

	var videoDet video.Detector
	var radarDet radar.Adapter
	if *simMode {
		videoDet = video.NewSimulator(40.0, 116.0, 10.0, 0)
		radarDet = radar.NewSimulator(40.0, 116.0, 10.0, 0)
	} else {
		videoDet = video.NopDetector{}
		if cfg.Radar.Port != "" {
			radarDet, err = radar.Open(cfg.Radar.Port, cfg.Radar.BaudRate)
			if err != nil {
				obslog.L().Error("mec: cannot open radar port %s: %v", cfg.Radar.Port, err)
			}
		}
	}

	broadcaster, err := v2x.NewBroadcaster()
	if err != nil {
		obslog.L().Fatal("mec: cannot open v2x broadcaster socket: %v", err)
		return
	}
	for _, t := range cfg.V2X.UDPTargets {
		if err := broadcaster.AddUDPTarget(t); err != nil {
			obslog.L().Warn("mec: bad v2x udp target %s: %v", t, err)
		}
	}
	for _, t := range cfg.V2X.TCPTargets {
		broadcaster.AddTCPTarget(t)
	}
	broadcaster.Start()
	defer broadcaster.Stop()

	webSrv := web.NewServer(engine, promHandler(reg))
	go func() {
		if err := webSrv.Start(cfg.Web.ListenAddr); err != nil {
			obslog.L().Error("mec: web server exited: %v", err)
		}
	}()
	stopPublish := make(chan struct{})
	go webSrv.PublishLoop(500*time.Millisecond, stopPublish)

	go loop.Run()
	go pollSensors(running, q, videoDet, radarDet, rec)
	go broadcastLoop(running, engine, broadcaster, cfg.V2X.DeviceID, cfg.V2X.BroadcastHz)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		switch sig {
		case syscall.SIGHUP:
			fc, err := config.ReloadFusion(*configPath)
			if err != nil {
				obslog.L().Warn("mec: config reload failed: %v", err)
				continue
			}
			engine.SetConfig(fusion.Config{
				AssociationThreshold: fc.AssociationThreshold,
				PositionWeight:       fc.PositionWeight,
				VelocityWeight:       fc.VelocityWeight,
				ConfidenceThreshold:  fc.ConfidenceThreshold,
				MaxTrackAge:          fc.MaxTrackAge,
				TrackCapacity:        fc.TrackCapacity,
			})
			obslog.L().Info("mec: fusion configuration reloaded")
		case syscall.SIGINT, syscall.SIGTERM:
			obslog.L().Info("mec: shutting down")
			running.Store(false)
			close(stopPublish)
			q.Destroy()
			if radarDet != nil {
				radarDet.Close()
			}
			return
		}
	}
}

func pollSensors(running *atomic.Bool, q *queue.Queue, vd video.Detector, rd radar.Adapter, rec *metrics.Recorder) {
	ticker := time.NewTicker(sensorPollInterval)
	defer ticker.Stop()
	for running.Load() {
		<-ticker.C
		pollOne(q, video.SensorID, vd.Detect)
		if rd != nil {
			pollOne(q, radar.SensorID, rd.Detect)
		}
		rec.SetQueueDepth(q.Size())
	}
}

func pollOne(q *queue.Queue, sensorID int, detect func() (*trackbuf.Buffer, error)) {
	buf, err := detect()
	if err != nil {
		obslog.L().Warn("mec: sensor %d detect error: %v", sensorID, err)
		return
	}
	if buf == nil || buf.Len() == 0 {
		return
	}
	msg := queue.Message{SensorID: sensorID, Tracks: buf, Timestamp: time.Now().UnixMicro()}
	if err := q.Push(msg); err != nil {
		obslog.L().Warn("mec: queue push from sensor %d: %v", sensorID, err)
	}
}

func broadcastLoop(running *atomic.Bool, engine *fusion.Engine, b *v2x.Broadcaster, deviceID uint32, hz float64) {
	if hz <= 0 {
		hz = 10.0
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / hz))
	defer ticker.Stop()
	buf := make([]byte, 65536)
	for running.Load() {
		<-ticker.C
		snap := engine.Snapshot()
		n, err := v2x.Encode(snap, deviceID, uint64(time.Now().UnixMilli()), buf)
		if err != nil {
			obslog.L().Warn("mec: v2x encode failed: %v", err)
			continue
		}
		b.Send(buf[:n])
	}
}

func parseLevel(s string) obslog.Level {
	switch s {
	case "debug":
		return obslog.DEBUG
	case "warn":
		return obslog.WARN
	case "error":
		return obslog.ERROR
	default:
		return obslog.INFO
	}
}

func promHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
