package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/slipstream-io/framecap/archive"
	"github.com/slipstream-io/framecap/cli/config"
	"github.com/slipstream-io/framecap/cli/tui"
	"github.com/slipstream-io/framecap/comm"
	"github.com/slipstream-io/framecap/engine"
	"github.com/slipstream-io/framecap/metrics"
	"github.com/slipstream-io/framecap/notify"
	notifyredis "github.com/slipstream-io/framecap/notify/redis"
	notifywebhook "github.com/slipstream-io/framecap/notify/webhook"
	"github.com/slipstream-io/framecap/report"
	"github.com/slipstream-io/framecap/runtime"
	"github.com/slipstream-io/framecap/stats"
	"github.com/slipstream-io/framecap/types"
)

// Exit codes for the record command.
const (
	exitSuccess     = 0
	exitIncomplete  = 1
	exitMalformed   = 2
	exitEngineCrash = 3
)

// notifyPublishTimeout bounds the completion notification so a dead
// downstream cannot hang a finished recording.
const notifyPublishTimeout = 30 * time.Second

// RecordCommand returns the record command, the only command that
// spawns the engine.
func RecordCommand() *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Record a replay to video",
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.StringFlag{
				Name:     "replay",
				Aliases:  []string{"r"},
				Usage:    "Path to the replay file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "engine",
				Usage: "Path to the playback engine binary",
			},
			&cli.StringFlag{
				Name:  "image",
				Usage: "Path to the emulation image",
			},
			&cli.StringFlag{
				Name:  "settings",
				Usage: "Engine settings profile (default: bundled profile)",
			},
			&cli.IntFlag{
				Name:  "start-frame",
				Usage: "Start playback at this frame instead of the beginning",
			},
			&cli.IntFlag{
				Name:  "total-frames",
				Usage: "Record this many frames instead of the full replay",
			},
			&cli.StringFlag{
				Name:  "stats-binary",
				Usage: "External statistics command reporting the replay's last frame",
			},
			&cli.StringFlag{
				Name:  "scratch-base",
				Usage: "Directory scratch sessions are created under (default: system temp)",
			},
			&cli.DurationFlag{
				Name:  "engine-timeout",
				Usage: "Failsafe bound on the whole recording (0 disables)",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a msgpack recording report to this path",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show a live progress display",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress result output",
			},
		},
		Action: recordAction,
	}
}

func recordAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitEngineCrash)
	}
	applyFlagOverrides(c, cfg)

	if cfg.Engine.Path == "" {
		return cli.Exit("an engine binary is required (--engine or FRAMECAP_ENGINE_PATH)", exitEngineCrash)
	}
	if cfg.Engine.Image == "" {
		return cli.Exit("an emulation image is required (--image or FRAMECAP_ENGINE_IMAGE)", exitEngineCrash)
	}

	settingsPath := cfg.Engine.Settings
	if settingsPath == "" {
		settingsPath, err = engine.SettingsPath()
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot extract bundled settings: %v", err), exitEngineCrash)
		}
	}

	window, provider, err := buildWindow(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitEngineCrash)
	}

	store, err := buildArchiveStore(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot configure archive: %v", err), exitEngineCrash)
	}

	recordConfig := &runtime.RecordConfig{
		ReplayPath:    c.String("replay"),
		ScratchBase:   cfg.Scratch.Base,
		Window:        window,
		EnginePath:    cfg.Engine.Path,
		ImagePath:     cfg.Engine.Image,
		SettingsPath:  settingsPath,
		Stats:         provider,
		Archive:       store,
		EngineTimeout: cfg.Engine.Timeout.Duration,
	}

	var display *tui.Display
	if c.Bool("tui") {
		display = tui.RunProgress(recordConfig.ReplayPath)
		recordConfig.OnFrame = display.SendFrame
	}

	orchestrator, err := runtime.NewRecordOrchestrator(recordConfig)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	recordConfig.Collector = metrics.NewCollector(orchestrator.SessionID(), cfg.Engine.Path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	result, err := orchestrator.Execute(ctx)
	if display != nil {
		if err != nil {
			display.Finish("error", err.Error())
		} else {
			display.Finish(string(result.Outcome.Status), result.Outcome.Message)
		}
	}
	if err != nil {
		return fmt.Errorf("recording failed: %w", err)
	}

	if reportPath := c.String("report"); reportPath != "" {
		if err := report.WriteFile(reportPath, report.FromResult(result)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	publishCompletion(cfg, result)

	if !c.Bool("quiet") {
		printRecordResult(result)
	}

	return cli.Exit("", outcomeToExitCode(result.Outcome.Status))
}

// applyFlagOverrides lets CLI flags win over config file and env.
func applyFlagOverrides(c *cli.Context, cfg *config.Config) {
	if v := c.String("engine"); v != "" {
		cfg.Engine.Path = v
	}
	if v := c.String("image"); v != "" {
		cfg.Engine.Image = v
	}
	if v := c.String("settings"); v != "" {
		cfg.Engine.Settings = v
	}
	if v := c.String("stats-binary"); v != "" {
		cfg.Stats.Binary = v
	}
	if v := c.String("scratch-base"); v != "" {
		cfg.Scratch.Base = v
	}
	if c.IsSet("engine-timeout") {
		cfg.Engine.Timeout.Duration = c.Duration("engine-timeout")
	}
}

// buildWindow derives the frame window and the target-frame provider.
// An explicit --total-frames fixes the target; otherwise the external
// statistics command reports the replay's last frame.
func buildWindow(c *cli.Context, cfg *config.Config) (comm.FrameWindow, stats.Provider, error) {
	var window comm.FrameWindow
	if c.IsSet("start-frame") {
		start := int32(c.Int("start-frame"))
		window.StartFrame = &start
	}
	if c.IsSet("total-frames") {
		total := int32(c.Int("total-frames"))
		if total <= 0 {
			return window, nil, fmt.Errorf("total-frames must be > 0, got %d", total)
		}
		window.TotalFrames = &total
		return window, &stats.FixedProvider{Frame: *window.EndFrame()}, nil
	}

	if cfg.Stats.Binary == "" {
		return window, nil, fmt.Errorf("a statistics command is required without --total-frames (--stats-binary or FRAMECAP_STATS_BINARY)")
	}
	return window, stats.NewCommandProvider(cfg.Stats.Binary), nil
}

// buildArchiveStore creates the configured artifact store, nil when
// archiving is disabled.
func buildArchiveStore(cfg *config.Config) (archive.Store, error) {
	switch cfg.Archive.Backend {
	case "":
		return nil, nil
	case "fs":
		return archive.NewFSStore(cfg.Archive.Path)
	case "s3":
		bucket, prefix := archive.ParseS3Path(cfg.Archive.Path)
		return archive.NewS3Store(context.Background(), archive.S3Config{
			Bucket: bucket,
			Prefix: prefix,
			Region: cfg.Archive.Region,
		})
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", cfg.Archive.Backend)
	}
}

// buildNotifier creates the configured notifier, nil when
// notification is disabled.
func buildNotifier(cfg *config.Config) (notify.Notifier, error) {
	retries := -1
	if cfg.Notify.Retries != nil {
		retries = *cfg.Notify.Retries
	}

	switch cfg.Notify.Type {
	case "":
		return nil, nil
	case "webhook":
		wcfg := notifywebhook.Config{
			URL:     cfg.Notify.URL,
			Headers: cfg.Notify.Headers,
			Timeout: cfg.Notify.Timeout.Duration,
		}
		if retries >= 0 {
			wcfg.Retries = retries
		} else {
			wcfg.Retries = notifywebhook.DefaultRetries
		}
		return notifywebhook.New(wcfg)
	case "redis":
		rcfg := notifyredis.Config{
			URL:     cfg.Notify.URL,
			Channel: cfg.Notify.Channel,
			Timeout: cfg.Notify.Timeout.Duration,
		}
		if retries >= 0 {
			rcfg.Retries = retries
		} else {
			rcfg.Retries = notifyredis.DefaultRetries
		}
		return notifyredis.New(rcfg)
	default:
		return nil, fmt.Errorf("unknown notifier type: %s", cfg.Notify.Type)
	}
}

// publishCompletion sends the completion event when a notifier is
// configured. Notification failures never change the recording's
// exit code.
func publishCompletion(cfg *config.Config, result *runtime.RecordResult) {
	notifier, err := buildNotifier(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return
	}
	if notifier == nil {
		return
	}
	defer func() { _ = notifier.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), notifyPublishTimeout)
	defer cancel()

	if err := notifier.Publish(ctx, notify.EventFromResult(result)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: completion notification failed: %v\n", err)
	}
}

func outcomeToExitCode(status types.OutcomeStatus) int {
	switch status {
	case types.OutcomeSuccess:
		return exitSuccess
	case types.OutcomeIncomplete:
		return exitIncomplete
	case types.OutcomeMalformedReplay:
		return exitMalformed
	case types.OutcomeEngineCrash:
		return exitEngineCrash
	default:
		return exitEngineCrash
	}
}

func printRecordResult(result *runtime.RecordResult) {
	fmt.Printf("\nsession_id=%s, outcome=%s, duration=%s\n",
		result.Meta.SessionID,
		result.Outcome.Status,
		result.Duration.Round(time.Millisecond),
	)

	fmt.Printf("\n=== Recording Result ===\n")
	fmt.Printf("Session ID:   %s\n", result.Meta.SessionID)
	fmt.Printf("Replay:       %s\n", result.Meta.ReplayPath)
	fmt.Printf("Outcome:      %s\n", result.Outcome.Status)
	if result.Outcome.Message != "" {
		fmt.Printf("Message:      %s\n", result.Outcome.Message)
	}
	if result.Outcome.LatestFrame != nil {
		fmt.Printf("Last Frame:   %d / %d\n", *result.Outcome.LatestFrame, result.Outcome.TargetFrame)
	}
	fmt.Printf("Duration:     %s\n", result.Duration)

	if result.Summary != nil {
		fmt.Printf("\n=== Replay ===\n")
		fmt.Printf("Layout:       %s\n", result.Summary.Layout)
		fmt.Printf("Events:       %d\n", result.Summary.EventCount)
	}

	fmt.Printf("\n=== Stream Stats ===\n")
	fmt.Printf("Frames Observed:  %d\n", result.Metrics.FramesObserved)
	fmt.Printf("Lines Parsed:     %d\n", result.Metrics.ProgressLinesParsed)
	fmt.Printf("Lines Ignored:    %d\n", result.Metrics.ProgressLinesIgnored)

	if result.ArchiveLocation != "" {
		fmt.Printf("\nArtifact:     %s\n", result.ArchiveLocation)
	}

	if result.StderrOutput != "" {
		fmt.Printf("\n=== Engine Stderr ===\n")
		fmt.Printf("%s", result.StderrOutput)
	}
}
