// Package config loads the fusion engine's YAML configuration, modeled on
// lkumar3-iitr-Sensor-Logger's nested-struct loader, with defaults matching
// the original flat key=value config's values exactly.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FusionConfig holds the live-reloadable association/lifecycle parameters.
// These correspond to the spec's fusion.* configuration keys.
type FusionConfig struct {
	AssociationThreshold float64 `yaml:"association_threshold"`
	PositionWeight       float64 `yaml:"position_weight"`
	VelocityWeight       float64 `yaml:"velocity_weight"`
	ConfidenceThreshold  float64 `yaml:"confidence_threshold"`
	MaxTrackAge          int     `yaml:"max_track_age"`
	TrackCapacity        int     `yaml:"track_capacity"`
}

// QueueConfig holds the message queue's construction-time parameters.
// Capacity is immutable once the queue is built; a reload must not change it.
type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

// RadarConfig configures the radar collaborator's serial port.
type RadarConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// VideoConfig configures the video/detector collaborator.
type VideoConfig struct {
	RTSPURL string `yaml:"rtsp_url"`
}

// WebConfig configures the dashboard/metrics HTTP server.
type WebConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// V2XConfig configures RSM output identity and delivery targets.
type V2XConfig struct {
	DeviceID    uint32   `yaml:"device_id"`
	UDPTargets  []string `yaml:"udp_targets"`
	TCPTargets  []string `yaml:"tcp_targets"`
	BroadcastHz float64  `yaml:"broadcast_hz"`
}

// Config is the top-level configuration document.
type Config struct {
	Fusion   FusionConfig `yaml:"fusion"`
	Queue    QueueConfig  `yaml:"queue"`
	Radar    RadarConfig  `yaml:"radar"`
	Video    VideoConfig  `yaml:"video"`
	Web      WebConfig    `yaml:"web"`
	V2X      V2XConfig    `yaml:"v2x"`
	LogFile  string       `yaml:"log_file"`
	LogLevel string       `yaml:"log_level"`
}

// Default returns the configuration defaults enumerated by the spec's
// configuration-keys section.
func Default() *Config {
	return &Config{
		Fusion: FusionConfig{
			AssociationThreshold: 5.0,
			PositionWeight:       1.0,
			VelocityWeight:       0.1,
			ConfidenceThreshold:  0.3,
			MaxTrackAge:          50,
			TrackCapacity:        100,
		},
		Queue: QueueConfig{
			Capacity: 50,
		},
		Web: WebConfig{
			ListenAddr: ":8089",
		},
		V2X: V2XConfig{
			DeviceID:    1,
			BroadcastHz: 10.0,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML configuration file, starting from Default()
// so any field absent from the file keeps its documented default.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReloadFusion re-reads only the fusion.* section of path and returns it,
// for use by a SIGHUP handler: queue capacity must never change at runtime.
func ReloadFusion(path string) (FusionConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return FusionConfig{}, err
	}
	return cfg.Fusion, nil
}
