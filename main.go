package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spance/wearprobe/utils"
	"github.com/spance/wearprobe/wearagent"
	"github.com/spance/wearprobe/wearagent/android"
	"github.com/spance/wearprobe/wearagent/companion"
	"github.com/spance/wearprobe/wearagent/definitions"
	"github.com/spance/wearprobe/wearagent/gesture"
	"github.com/spance/wearprobe/wearagent/registry"
	"github.com/spance/wearprobe/wearagent/shell"
	"github.com/spf13/cobra"
)

const (
	testSensor  = "sensor"
	testDisplay = "display"
)

// Config holds all the configuration values from command line arguments
type Config struct {
	ConfigFile     string   `json:"config_file"`
	ADBPath        string   `json:"adb_path"`
	WearSerial     string   `json:"wear_serial"`
	HandheldSerial string   `json:"handheld_serial"`
	MonkeyPort     int      `json:"monkey_port"`
	AppiumURL      string   `json:"appium_url"`
	Test           string   `json:"test"`
	Script         []string `json:"script"`
	Connect        string   `json:"connect"`
	Disconnect     string   `json:"disconnect"`
	ListDevices    bool     `json:"list_devices"`
	ListEvents     bool     `json:"list_events"`
	Quiet          bool     `json:"quiet"`
	Debug          bool     `json:"debug"`
	Packages       []string `json:"packages"`
}

var rootCmd = &cobra.Command{
	Use:   "wearprobe [package...]",
	Short: "Wearprobe - watch face leak and display tester",
	Long: `Wearprobe installs third-party watch faces on a paired wearable and handheld,
drives the wearable through a gesture script and reports the sensor listeners the
watch face failed to release. The display test captures interactive and ambient
screenshots instead.`,
	Example: `  # Sensor leak test of one package
  go run main.go --handheld-serial 00944424b877b2ce wear.trombettonj.trombt1pearlfree

  # Play a gesture script while the face is active
  go run main.go -p 00944424b877b2ce --script swipe_left,tap_screen_center,standby wear.face

  # Display test of every pending package in display.leak.txt
  go run main.go -p 00944424b877b2ce --test display

  # Use a YAML config file
  go run main.go --config wearprobe.yaml wear.face

  # List supported gesture events
  go run main.go --list-events

  # Connect to the wearable over adb
  go run main.go --connect 127.0.0.1:4444

  # List connected devices
  go run main.go --list-devices`,
	Run: func(cmd *cobra.Command, args []string) {
		config.Packages = args
	},
}

var config = &Config{}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as int with default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func init() {
	if err := loadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("load .env failed")
	}
	defaults := definitions.DefaultConfig()

	rootCmd.PersistentFlags().StringVar(&config.ConfigFile, "config",
		getEnv("WEARPROBE_CONFIG", ""),
		"YAML harness config file")

	// Device options
	rootCmd.PersistentFlags().StringVar(&config.ADBPath, "adb",
		getEnv("WEARPROBE_ADB", defaults.ADBPath),
		"Path of the adb binary")

	rootCmd.PersistentFlags().StringVarP(&config.WearSerial, "wear-serial", "w",
		getEnv("WEARPROBE_WEAR_SERIAL", defaults.WearSerial),
		"Wearable device id (adb serial or host:port)")

	rootCmd.PersistentFlags().StringVarP(&config.HandheldSerial, "handheld-serial", "p",
		getEnv("WEARPROBE_HANDHELD_SERIAL", ""),
		"Handheld device id")

	rootCmd.PersistentFlags().IntVar(&config.MonkeyPort, "monkey-port",
		getEnvInt("WEARPROBE_MONKEY_PORT", defaults.MonkeyPort),
		"Port of the monkey input server on the wearable")

	rootCmd.PersistentFlags().StringVar(&config.AppiumURL, "appium-url",
		getEnv("WEARPROBE_APPIUM_URL", defaults.AppiumURL),
		"Appium server driving the handheld companion app")

	// Test options
	rootCmd.PersistentFlags().StringVarP(&config.Test, "test", "t",
		getEnv("WEARPROBE_TEST", testSensor),
		"Test to run: sensor or display")

	rootCmd.PersistentFlags().StringSliceVar(&config.Script, "script",
		getEnvList("WEARPROBE_SCRIPT"),
		"Gesture events played while the watch face is active (comma separated)")

	rootCmd.PersistentFlags().StringVarP(&config.Connect, "connect", "c", "",
		"Connect to remote device (e.g., 127.0.0.1:4444)")

	rootCmd.PersistentFlags().StringVar(&config.Disconnect, "disconnect", "",
		"Disconnect from remote device (or 'all' to disconnect all)")

	rootCmd.PersistentFlags().BoolVar(&config.ListDevices, "list-devices", false,
		"List connected devices and exit")

	rootCmd.PersistentFlags().BoolVar(&config.ListEvents, "list-events", false,
		"List supported gesture events and exit")

	// Other options
	rootCmd.PersistentFlags().BoolVarP(&config.Quiet, "quiet", "q", false,
		"Only log warnings and errors")

	rootCmd.PersistentFlags().BoolVar(&config.Debug, "debug", false,
		"Enable debug mode (default: false)")
}

func main() {
	parseArgs()

	// Configure zerolog
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if config.Quiet {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
	if config.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if config.ListEvents {
		registry := gesture.DefaultRegistry()
		log.Info().Msg("Supported events:")
		for _, name := range registry.Names() {
			log.Info().Str("event", name).Bool("supported", registry.Supported(name)).Msg("-")
		}
		return
	}

	harnessCfg, err := buildHarnessConfig()
	if err != nil {
		log.Error().Err(err).Msg("loading config failed")
		os.Exit(1)
	}

	device := android.NewADBDevice(shell.NewExecutor(harnessCfg.ADBPath, nil), harnessCfg.Listeners)

	// Handle device commands
	if hitCmd := handleDeviceCommands(ctx, device); hitCmd {
		return
	}

	if err := harnessCfg.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid config")
		os.Exit(1)
	}
	if passed := checkSystemRequirements(ctx, device, harnessCfg); !passed {
		log.Info().Msg(strings.Repeat("-", 50))
		log.Error().Msg("❌ System check failed. Please fix the issues above.")
		os.Exit(1)
	}

	if code := runTests(ctx, device, harnessCfg); code != 0 {
		cancel()
		os.Exit(code)
	}
}

func parseArgs() *Config {
	// Set pre-run validation
	rootCmd.PersistentPreRunE = validateArgs

	// Execute the command
	cobra.CheckErr(rootCmd.Execute())

	return config
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if config.Test != testSensor && config.Test != testDisplay {
		return fmt.Errorf("invalid test option: %s. Must be '%s' or '%s'", config.Test, testSensor, testDisplay)
	}
	return nil
}

// overridden reports whether a command line flag or its environment variable was set explicitly.
func overridden(flag, env string) bool {
	return rootCmd.PersistentFlags().Changed(flag) || os.Getenv(env) != ""
}

// buildHarnessConfig layers explicit flags and environment over the YAML file over the defaults.
func buildHarnessConfig() (*definitions.HarnessConfig, error) {
	cfg, err := definitions.LoadConfig(config.ConfigFile)
	if err != nil {
		return nil, err
	}
	if overridden("adb", "WEARPROBE_ADB") {
		cfg.ADBPath = config.ADBPath
	}
	if overridden("wear-serial", "WEARPROBE_WEAR_SERIAL") {
		cfg.WearSerial = config.WearSerial
	}
	if overridden("handheld-serial", "WEARPROBE_HANDHELD_SERIAL") {
		cfg.HandheldSerial = config.HandheldSerial
	}
	if overridden("monkey-port", "WEARPROBE_MONKEY_PORT") {
		cfg.MonkeyPort = config.MonkeyPort
	}
	if overridden("appium-url", "WEARPROBE_APPIUM_URL") {
		cfg.AppiumURL = config.AppiumURL
	}
	if overridden("script", "WEARPROBE_SCRIPT") {
		cfg.Script = config.Script
	}
	log.Debug().Str("config", utils.JsonString(cfg)).Msg("harness config")
	return cfg, nil
}

func handleDeviceCommands(ctx context.Context, device *android.ADBDevice) bool {
	// --list-devices
	if config.ListDevices {
		devices, _ := device.ListDevices(ctx)
		if len(devices) == 0 {
			log.Info().Msg("No devices connected.")
		} else {
			log.Info().Msg("Connected devices:")
			log.Info().Msg(strings.Repeat("-", 60))
			for _, d := range devices {
				statusIcon := "✅"
				if d.Status != "device" {
					statusIcon = "❌"
				}
				modelInfo := ""
				if d.Model != "" {
					modelInfo = fmt.Sprintf(" (%s)", d.Model)
				}
				log.Info().Str("device", fmt.Sprintf("  %s %-30s [%s]%s", statusIcon, d.DeviceID, d.ConnectionType, modelInfo)).Msg("")
			}
		}
		return true
	}

	// --connect
	if config.Connect != "" {
		log.Info().Msgf("Connecting to %s...", config.Connect)
		message, err := device.Connect(ctx, config.Connect)
		if err != nil {
			log.Error().Str("msg", message).Msg("❌")
		} else {
			log.Info().Str("msg", message).Msg("✅")
		}
		return true
	}

	// --disconnect
	if config.Disconnect != "" {
		var (
			message string
			err     error
		)
		if config.Disconnect == "all" {
			log.Info().Msg("Disconnecting all remote devices...")
			message, err = device.Disconnect(ctx, "")
		} else {
			log.Info().Msgf("Disconnecting from %s...", config.Disconnect)
			message, err = device.Disconnect(ctx, config.Disconnect)
		}
		statusSymbol := "✅"
		if err != nil {
			statusSymbol = "❌"
		}
		log.Info().Msgf("%s %s", statusSymbol, message)
		return true
	}

	return false
}

func checkSystemRequirements(ctx context.Context, device *android.ADBDevice, cfg *definitions.HarnessConfig) bool {
	log.Info().Msg("🔍 Checking system requirements...")
	log.Info().Msg(strings.Repeat("-", 50))

	log.Info().Msg("1. Checking ADB installation... ")
	if _, err := exec.LookPath(cfg.ADBPath); err != nil {
		log.Error().Msg("❌ FAILED")
		log.Info().Msgf("   Error: %s is not installed or not in PATH.", cfg.ADBPath)
		log.Info().Msg("     - macOS: brew install android-platform-tools")
		log.Info().Msg("     - Linux: sudo apt install android-tools-adb")
		return false
	}
	res, err := device.Executor().RunChecked(ctx, "", "version")
	if err != nil {
		log.Error().Msg("❌ FAILED")
		log.Info().Msgf("   Error: adb command failed to run: %v", err)
		return false
	}
	versionLine := strings.TrimSpace(strings.SplitN(res.Stdout, "\n", 2)[0])
	if versionLine == "" {
		versionLine = "installed"
	}
	log.Info().Msgf("✅ OK (%s)", versionLine)

	log.Info().Msg("2. Checking handheld... ")
	if !device.IsConnected(ctx, cfg.HandheldSerial) {
		log.Error().Msg("❌ FAILED")
		log.Info().Msgf("   Error: handheld %s is not connected.", cfg.HandheldSerial)
		log.Info().Msg("   Solution: enable USB debugging on the handheld and authorize this computer")
		return false
	}
	log.Info().Msgf("✅ OK (%s)", cfg.HandheldSerial)

	log.Info().Msg(strings.Repeat("-", 50))
	log.Info().Msg("✅ All system checks passed!")
	return true
}

// runTests connects the wearable, runs the selected test for every package and prints one JSON
// report per package. It returns the process exit code.
func runTests(ctx context.Context, device *android.ADBDevice, cfg *definitions.HarnessConfig) int {
	labels, err := registry.LoadLabels(cfg.LabelsFile)
	if err != nil {
		log.Error().Err(err).Msg("loading watch face labels failed")
		return 1
	}

	manager := android.NewConnectionManager(device, nil, nil, cfg.Timeouts, cfg.MonkeyPort)
	session, err := manager.Connect(ctx, cfg.WearSerial)
	if err != nil {
		log.Error().Err(err).Msg("connecting wearable failed")
		return 1
	}
	defer session.Close()

	engine := gesture.NewEngine(session, gesture.DefaultRegistry(), nil, cfg.Timeouts)
	selector := companion.NewWatchFaceSelector(device, companion.UiAutomatorFactory(cfg.AppiumURL), engine, nil, cfg.Timeouts)
	defer func() {
		if err := selector.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("close companion sessions")
		}
	}()
	agent := wearagent.NewWearAgent(cfg, device, session, engine, selector, labels, nil)

	pkgs := config.Packages
	if len(pkgs) == 0 && config.Test == testDisplay {
		if pkgs, err = agent.DisplayQueue(); err != nil {
			log.Error().Err(err).Msg("reading apk list failed")
			return 1
		}
	}
	if len(pkgs) == 0 {
		log.Error().Msg("no package to test")
		return 1
	}

	code := 0
	for i, pkg := range pkgs {
		if ctx.Err() != nil {
			log.Warn().Msg("interrupted")
			return 130
		}
		log.Info().Msgf("[%5d] %s", i+1, pkg)

		var report any
		switch config.Test {
		case testDisplay:
			report, err = agent.RunDisplayTest(ctx, pkg)
		default:
			var leak *definitions.LeakReport
			leak, err = agent.RunLeakTest(ctx, pkg)
			if leak.Verdict == definitions.VerdictLeak {
				code = 2
			}
			report = leak
		}
		if err != nil && code == 0 {
			code = 1
		}
		fmt.Println(utils.JsonIndent(report))
	}
	return code
}
