package wearagent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spance/wearprobe/utils"
	"github.com/spance/wearprobe/wearagent/definitions"
	"github.com/spance/wearprobe/wearagent/helper"
	"github.com/spance/wearprobe/wearagent/registry"
)

// WearAgent runs the leak and display protocols for one wearable/handheld pair.
type WearAgent struct {
	Config   *definitions.HarnessConfig
	Device   Device
	Wearable definitions.Capabilities
	Gestures GestureRunner
	Selector WatchFaceSelector
	Labels   LabelLookup
	Clock    definitions.Clock
}

func NewWearAgent(cfg *definitions.HarnessConfig, device Device, wearable definitions.Capabilities,
	gestures GestureRunner, selector WatchFaceSelector, labels LabelLookup, clock definitions.Clock) *WearAgent {
	if clock == nil {
		clock = definitions.SystemClock{}
	}
	return &WearAgent{
		Config:   cfg,
		Device:   device,
		Wearable: wearable,
		Gestures: gestures,
		Selector: selector,
		Labels:   labels,
		Clock:    clock,
	}
}

// stageTracker remembers the protocol stage a run is in.
type stageTracker struct {
	pkg   string
	stage definitions.Stage
}

func (s *stageTracker) enter(stage definitions.Stage) {
	s.stage = stage
	log.Debug().Str("pkg", s.pkg).Str("stage", string(stage)).Msg("[Run] stage")
}

// RunLeakTest installs pkg, activates it, plays the configured script, deactivates it and reports
// the sensor registrations that remain. The returned error is non-nil only with a setup-failed verdict.
func (a *WearAgent) RunLeakTest(ctx context.Context, pkg string) (*definitions.LeakReport, error) {
	report := &definitions.LeakReport{
		RunID:     uuid.NewString(),
		Package:   pkg,
		StartedAt: time.Now(),
	}
	tracker := &stageTracker{pkg: pkg, stage: definitions.StageIdle}
	log.Info().Str("run", report.RunID).Str("pkg", pkg).Msg("leak test started")

	err := a.leakStages(ctx, tracker, report)
	if err != nil {
		report.Verdict = definitions.VerdictSetupFailed
		report.FailedStage = tracker.stage
		report.Error = err.Error()
		log.Error().Err(err).Str("pkg", pkg).Str("stage", string(tracker.stage)).Msg("leak test aborted")
	}

	tracker.enter(definitions.StageCleanup)
	if cerr := a.cleanup(context.WithoutCancel(ctx), pkg); cerr != nil {
		report.CleanupError = cerr.Error()
	}
	tracker.enter(definitions.StageDone)

	report.Elapsed = time.Since(report.StartedAt)
	log.Info().Str("run", report.RunID).Str("pkg", pkg).Str("verdict", string(report.Verdict)).
		Dur("elapsed", report.Elapsed).Msg("leak test finished")
	return report, err
}

func (a *WearAgent) leakStages(ctx context.Context, tracker *stageTracker, report *definitions.LeakReport) error {
	cfg := a.Config
	pkg := report.Package

	for _, name := range cfg.Script {
		if !a.Gestures.Supports(name) {
			return definitions.UnsupportedEvent(name)
		}
	}
	if err := a.Device.ClearLogcat(ctx, cfg.WearSerial); err != nil {
		log.Warn().Err(err).Msg("clear logcat failed")
	}

	tracker.enter(definitions.StageSnapshotBefore)
	before, err := a.Device.ReadSensors(ctx, cfg.WearSerial)
	if err != nil {
		return err
	}
	report.BeforeCount = before.Len()

	tracker.enter(definitions.StageInstall)
	if err := a.install(ctx, pkg); err != nil {
		return definitions.SetupFailed("install "+pkg, err)
	}

	tracker.enter(definitions.StageSelect)
	label, err := a.activate(ctx, pkg)
	if err != nil {
		return definitions.SetupFailed("select "+pkg, err)
	}
	report.Label = label

	tracker.enter(definitions.StageAct)
	if err := a.Gestures.Run(ctx, cfg.Script); err != nil {
		return err
	}

	tracker.enter(definitions.StageDeselect)
	if err := a.Selector.Deselect(ctx, cfg.HandheldSerial, cfg.DefaultWatchFace); err != nil {
		return err
	}
	if err := a.Clock.Sleep(ctx, cfg.Timeouts.DeselectSettle); err != nil {
		return err
	}

	tracker.enter(definitions.StageSnapshotAfter)
	after, err := a.Device.ReadSensors(ctx, cfg.WearSerial)
	if err != nil {
		return err
	}
	report.AfterCount = after.Len()

	tracker.enter(definitions.StageReport)
	leaks := after.Difference(before)
	report.Leaks = leaks.Elements()
	if leaks.Len() > 0 {
		report.Verdict = definitions.VerdictLeak
		log.Warn().Str("pkg", pkg).Msg("Verified: leak following sensor resources:")
		for _, e := range report.Leaks {
			log.Warn().Str("pkg", pkg).Msg(e.String())
		}
	} else {
		report.Verdict = definitions.VerdictClean
		log.Info().Str("pkg", pkg).Msg("Verified: no leak of sensors.")
	}
	log.Debug().Str("pkg", pkg).Msgf("sensor diff:\n%s", helper.SnapshotDiff(before, after))
	return nil
}

// install puts pkg on the handheld first, then on the wearable.
func (a *WearAgent) install(ctx context.Context, pkg string) error {
	cfg := a.Config
	targets := []struct {
		serial string
		dir    string
	}{
		{cfg.HandheldSerial, cfg.HandheldApkDir},
		{cfg.WearSerial, cfg.ApkDir},
	}
	for _, t := range targets {
		if err := a.Device.Install(ctx, t.serial, pkg, registry.ApkPath(t.dir, pkg)); err != nil {
			return err
		}
		if err := a.Clock.Sleep(ctx, cfg.Timeouts.InstallSettle); err != nil {
			return err
		}
	}
	return nil
}

// activate selects pkg's watch face and wakes the wearable so it renders.
func (a *WearAgent) activate(ctx context.Context, pkg string) (string, error) {
	cfg := a.Config
	label, err := a.Labels.Lookup(pkg)
	if err != nil {
		return "", err
	}
	if err := a.Selector.Select(ctx, cfg.HandheldSerial, label); err != nil {
		return label, err
	}
	if err := a.Wearable.Wake(ctx); err != nil {
		return label, err
	}
	if err := a.Clock.Sleep(ctx, cfg.Timeouts.ActivateSettle); err != nil {
		return label, err
	}
	return label, a.Wearable.Wake(ctx)
}

// cleanup uninstalls pkg from the wearable, then the handheld. Both are attempted.
func (a *WearAgent) cleanup(ctx context.Context, pkg string) error {
	cfg := a.Config
	var errs []error
	for _, serial := range []string{cfg.WearSerial, cfg.HandheldSerial} {
		if err := a.Device.Uninstall(ctx, serial, pkg); err != nil {
			log.Warn().Err(err).Str("pkg", pkg).Str("device", serial).Msg("uninstall failed")
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("cleanup %s: %w", pkg, errors.Join(errs...))
}

// RunDisplayTest captures an interactive and an ambient screenshot of pkg's watch face.
func (a *WearAgent) RunDisplayTest(ctx context.Context, pkg string) (*definitions.DisplayReport, error) {
	report := &definitions.DisplayReport{
		RunID:     uuid.NewString(),
		Package:   pkg,
		StartedAt: time.Now(),
	}
	tracker := &stageTracker{pkg: pkg, stage: definitions.StageIdle}
	log.Info().Str("run", report.RunID).Str("pkg", pkg).Msg("display test started")

	err := a.displayStages(ctx, tracker, report)
	if err != nil {
		report.Verdict = definitions.VerdictSetupFailed
		report.FailedStage = tracker.stage
		report.Error = err.Error()
		log.Error().Err(err).Str("pkg", pkg).Str("stage", string(tracker.stage)).Msg("display test aborted")
	} else {
		report.Verdict = definitions.VerdictCaptured
	}

	tracker.enter(definitions.StageCleanup)
	if cerr := a.cleanup(context.WithoutCancel(ctx), pkg); cerr != nil {
		report.CleanupError = cerr.Error()
	}
	tracker.enter(definitions.StageDone)

	report.Elapsed = time.Since(report.StartedAt)
	return report, err
}

func (a *WearAgent) displayStages(ctx context.Context, tracker *stageTracker, report *definitions.DisplayReport) error {
	cfg := a.Config
	pkg := report.Package

	tracker.enter(definitions.StageInstall)
	if err := a.install(ctx, pkg); err != nil {
		return definitions.SetupFailed("install "+pkg, err)
	}

	tracker.enter(definitions.StageSelect)
	label, err := a.activate(ctx, pkg)
	if err != nil {
		return definitions.SetupFailed("select "+pkg, err)
	}
	report.Label = label

	tracker.enter(definitions.StageAct)
	if report.Interactive, err = a.capture(ctx, pkg, "interactive"); err != nil {
		return err
	}
	if err := a.Clock.Sleep(ctx, cfg.Timeouts.AmbientWait); err != nil {
		return err
	}
	if report.Ambient, err = a.capture(ctx, pkg, "ambient"); err != nil {
		return err
	}
	return nil
}

func (a *WearAgent) capture(ctx context.Context, pkg, phase string) (string, error) {
	cfg := a.Config
	shot, err := a.Device.GetScreenshot(ctx, cfg.WearSerial)
	if err != nil {
		return "", err
	}
	path := utils.RenderPath(cfg.ScreenshotPattern, map[string]string{
		"dir":   cfg.ScreenshotDir,
		"pkg":   pkg,
		"phase": phase,
	})
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	if err := os.WriteFile(path, shot.Data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	log.Info().Str("pkg", pkg).Str("path", path).Int("width", shot.Width).Int("height", shot.Height).Msg("Snapshot")
	return path, nil
}

// DisplayQueue returns the packages of the APK list that have no completed display test yet.
func (a *WearAgent) DisplayQueue() ([]string, error) {
	cfg := a.Config
	pkgs, err := registry.LoadApkList(cfg.ApkListFile)
	if err != nil {
		return nil, err
	}
	done, err := registry.Completed(cfg.ScreenshotDir, cfg.CompletedSuffix)
	if err != nil {
		return nil, err
	}
	return registry.Pending(pkgs, done), nil
}
