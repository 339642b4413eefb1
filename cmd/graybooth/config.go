package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/sirupsen/logrus"

	"github.com/monolab/graybooth/booth"
	"github.com/monolab/graybooth/camera"
	"github.com/monolab/graybooth/photostore"
	"github.com/monolab/graybooth/transform"
	"github.com/monolab/graybooth/util"
)

// EnvPrefix starts every environment variable graybooth reads,
// e.g. GRAYBOOTH_COUNTDOWN_STEPS=5 sets countdown.steps
const EnvPrefix = "GRAYBOOTH_"

type cameraConfig struct {
	// Kind is the camera type, "dir" or "http"
	Kind string `yaml:"kind" koanf:"kind"`

	// Addr is the folder of frames for "dir", or the frame URL for "http"
	Addr string `yaml:"addr" koanf:"addr"`

	// Timeout is the capture timeout for "http", in seconds
	Timeout float64 `yaml:"timeout" koanf:"timeout"`

	// MaxBytes is the largest frame accepted from "http"
	MaxBytes int64 `yaml:"maxbytes" koanf:"maxbytes"`
}

type countdownConfig struct {
	// Steps is the value the countdown starts from, 0 captures immediately
	Steps int `yaml:"steps" koanf:"steps"`

	// Interval is the time between ticks, in seconds
	Interval float64 `yaml:"interval" koanf:"interval"`
}

type filterConfig struct {
	// Tint is the hex color of the monochrome tint, #000000 is neutral gray
	Tint string `yaml:"tint" koanf:"tint"`

	// Intensity blends the original (0) with the monochrome image (1)
	Intensity float64 `yaml:"intensity" koanf:"intensity"`

	// Policy is "passthrough" or "strict"
	Policy string `yaml:"policy" koanf:"policy"`

	// MaxPixels bounds the rotated canvas
	MaxPixels int `yaml:"maxpixels" koanf:"maxpixels"`
}

type libraryConfig struct {
	Root    string `yaml:"root" koanf:"root"`
	Prefix  string `yaml:"prefix" koanf:"prefix"`
	Format  string `yaml:"format" koanf:"format"`
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
}

type shutterConfig struct {
	// Interval is the minimum time between shutter requests over HTTP, in seconds.  0 disables the throttle
	Interval float64 `yaml:"interval" koanf:"interval"`

	// Burst is how many requests may arrive back to back
	Burst int `yaml:"burst" koanf:"burst"`
}

type logConfig struct {
	// Level is a logrus level name
	Level string `yaml:"level" koanf:"level"`

	// JSON switches the log output from text to JSON
	JSON bool `yaml:"json" koanf:"json"`
}

type config struct {
	Addr      string          `yaml:"addr" koanf:"addr"`
	Endpoint  string          `yaml:"endpoint" koanf:"endpoint"`
	Camera    cameraConfig    `yaml:"camera" koanf:"camera"`
	Countdown countdownConfig `yaml:"countdown" koanf:"countdown"`
	Filter    filterConfig    `yaml:"filter" koanf:"filter"`
	Library   libraryConfig   `yaml:"library" koanf:"library"`
	Shutter   shutterConfig   `yaml:"shutter" koanf:"shutter"`
	Log       logConfig       `yaml:"log" koanf:"log"`
}

func defaults() config {
	return config{
		Addr:     ":8000",
		Endpoint: "",
		Camera: cameraConfig{
			Kind:     "dir",
			Addr:     "frames",
			Timeout:  camera.DefaultTimeout.Seconds(),
			MaxBytes: camera.DefaultMaxFrameBytes},
		Countdown: countdownConfig{
			Steps:    booth.DefaultConfig.Steps,
			Interval: booth.DefaultConfig.Interval.Seconds()},
		Filter: filterConfig{
			Tint:      "#000000",
			Intensity: 1,
			Policy:    transform.Passthrough.String(),
			MaxPixels: transform.DefaultMaxPixels},
		Library: libraryConfig{
			Root:    "photos",
			Prefix:  "graybooth",
			Format:  "jpg",
			Enabled: true},
		Shutter: shutterConfig{
			Interval: 0.5,
			Burst:    1},
		Log: logConfig{Level: "info"},
	}
}

// envKey maps GRAYBOOTH_LIBRARY_ROOT to library.root
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}

// loadConfig layers the defaults, the file fn and the environment into k.
// A missing file is not an error.
func loadConfig(k *koanf.Koanf, fn string) error {
	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return err
	}
	if err := k.Load(file.Provider(fn), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			return fmt.Errorf("error loading config: %w", err)
		}
	}
	return k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
}

func unmarshal(k *koanf.Koanf) (config, error) {
	c := config{}
	err := k.Unmarshal("", &c)
	return c, err
}

func (c config) boothConfig() booth.Config {
	return booth.Config{Steps: c.Countdown.Steps, Interval: util.SecsToDuration(c.Countdown.Interval)}
}

func (c config) cameraTimeout() time.Duration {
	return util.SecsToDuration(c.Camera.Timeout)
}

// device returns the configured camera
func (c config) device() (camera.Device, error) {
	dev, err := camera.New(c.Camera.Kind, c.Camera.Addr, c.cameraTimeout())
	if err != nil {
		return nil, err
	}
	if hd, ok := dev.(*camera.HTTPDevice); ok {
		hd.MaxBytes = c.Camera.MaxBytes
	}
	return dev, nil
}

func (c config) pipeline() (transform.Pipeline, error) {
	tint, err := transform.ParseHexColor(c.Filter.Tint)
	if err != nil {
		return transform.Pipeline{}, err
	}
	policy, err := transform.ParsePolicy(c.Filter.Policy)
	if err != nil {
		return transform.Pipeline{}, err
	}
	return transform.Pipeline{
		Normalizer: transform.Normalizer{MaxPixels: c.Filter.MaxPixels},
		Monochrome: transform.Monochrome{Tint: tint, Intensity: c.Filter.Intensity},
		Policy:     policy,
	}, nil
}

func (c config) library() (*photostore.Library, error) {
	l, err := photostore.New(c.Library.Root, c.Library.Prefix, c.Library.Format)
	if err != nil {
		return nil, err
	}
	l.SetEnabled(c.Library.Enabled)
	return l, nil
}

func (c config) logger() (*logrus.Logger, error) {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(lvl)
	if c.Log.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
