package definitions

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spance/wearprobe/constants"
	"gopkg.in/yaml.v3"
)

// Timeouts holds every fixed wait the harness uses.
type Timeouts struct {
	Long          time.Duration `yaml:"long"`
	Medium        time.Duration `yaml:"medium"`
	Short         time.Duration `yaml:"short"`
	Hold          time.Duration `yaml:"hold"`
	SwipeDuration time.Duration `yaml:"swipe_duration"`
	SwipeSteps    int           `yaml:"swipe_steps"`

	InstallSettle  time.Duration `yaml:"install_settle"`
	ActivateSettle time.Duration `yaml:"activate_settle"`
	DeselectSettle time.Duration `yaml:"deselect_settle"`
	AmbientWait    time.Duration `yaml:"ambient_wait"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Long:           constants.LongTimeout,
		Medium:         constants.MediumTimeout,
		Short:          constants.ShortTimeout,
		Hold:           constants.HoldTimeout,
		SwipeDuration:  constants.SwipeDuration,
		SwipeSteps:     constants.SwipeSteps,
		InstallSettle:  5 * time.Second,
		ActivateSettle: 8 * time.Second,
		DeselectSettle: 8 * time.Second,
		AmbientWait:    26 * time.Second,
		ReconnectDelay: time.Second,
		PollInterval:   2 * time.Second,
	}
}

// HarnessConfig is built once at startup and handed to every component of a run.
type HarnessConfig struct {
	ADBPath        string `yaml:"adb_path"`
	WearSerial     string `yaml:"wear_serial"`
	HandheldSerial string `yaml:"handheld_serial"`
	MonkeyPort     int    `yaml:"monkey_port"`
	AppiumURL      string `yaml:"appium_url"`

	ApkDir         string `yaml:"apk_dir"`
	HandheldApkDir string `yaml:"handheld_apk_dir"`
	LabelsFile     string `yaml:"labels_file"`
	ApkListFile    string `yaml:"apk_list_file"`

	ScreenshotDir     string `yaml:"screenshot_dir"`
	ScreenshotPattern string `yaml:"screenshot_pattern"`
	CompletedSuffix   string `yaml:"completed_suffix"`

	DefaultWatchFace string         `yaml:"default_watch_face"`
	Script           []string       `yaml:"script"`
	Listeners        ListenerFilter `yaml:"ignored_listeners"`
	Timeouts         Timeouts       `yaml:"timeouts"`
}

func DefaultConfig() *HarnessConfig {
	ignored := constants.DefaultIgnoredListeners()
	return &HarnessConfig{
		ADBPath:           constants.ADB,
		WearSerial:        constants.DefaultWearSerial,
		MonkeyPort:        constants.DefaultMonkeyPort,
		AppiumURL:         "http://127.0.0.1:4723",
		ApkDir:            "../apks/wear",
		HandheldApkDir:    "../apks/handheld",
		LabelsFile:        "pkg_wfs_label.csv",
		ApkListFile:       "display.leak.txt",
		ScreenshotDir:     "screenshots",
		ScreenshotPattern: "{dir}/{pkg}.{phase}.png",
		CompletedSuffix:   ".ambient.png",
		DefaultWatchFace:  constants.DefaultWatchFace,
		Listeners: ListenerFilter{
			Prefixes: ignored.Prefixes,
			Exact:    ignored.Exact,
		},
		Timeouts: DefaultTimeouts(),
	}
}

// LoadConfig reads a YAML file over the defaults.
// ${VAR} references are expanded from the environment before parsing.
func LoadConfig(path string) (*HarnessConfig, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *HarnessConfig) Validate() error {
	if c.WearSerial == "" {
		return fmt.Errorf("config: wear_serial is required")
	}
	if c.HandheldSerial == "" {
		return fmt.Errorf("config: handheld_serial is required")
	}
	if c.WearSerial == c.HandheldSerial {
		return fmt.Errorf("config: wear_serial and handheld_serial must differ")
	}
	if c.MonkeyPort <= 0 || c.MonkeyPort > 65535 {
		return fmt.Errorf("config: invalid monkey_port %d", c.MonkeyPort)
	}
	if c.Timeouts.SwipeSteps < 1 {
		return fmt.Errorf("config: timeouts.swipe_steps must be >= 1, got %d", c.Timeouts.SwipeSteps)
	}
	if c.DefaultWatchFace == "" {
		return fmt.Errorf("config: default_watch_face is required")
	}
	return nil
}

// Clock parks the caller for a duration. Tests substitute a recording fake.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type SystemClock struct{}

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
