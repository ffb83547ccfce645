package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jdhalbert/requant/internal/config"
	"github.com/jdhalbert/requant/internal/discovery"
	"github.com/jdhalbert/requant/internal/logging"
	"github.com/jdhalbert/requant/internal/processing"
	"github.com/jdhalbert/requant/internal/reporter"
	"github.com/jdhalbert/requant/internal/util"
)

// encodeFlags holds the parsed flags for the encode command.
type encodeFlags struct {
	inputPath  string
	outputPath string
	logDir     string
	verbose    bool
	noLog      bool
	jsonOutput bool
	eventsFile string

	mode    string
	profile string

	manualCrop      string
	disableAutocrop bool
	denoiseFilter   string
	scaleFilter     string

	disableComplexity bool
	forceOracle       bool

	responsive bool
	tempDir    string
	cooldown   uint64
}

func newEncodeCommand() *cobra.Command {
	var ef encodeFlags

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode video files to HEVC",
		Long: `Encode a video file, or every video file in a directory, to HEVC
with libx265. Rate-control parameters are adapted per file from the
measured complexity and the resolved content type.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ef.inputPath == "" {
				return fmt.Errorf("input path is required (-i/--input)")
			}
			if ef.outputPath == "" {
				return fmt.Errorf("output path is required (-o/--output)")
			}
			return runEncode(ef)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&ef.inputPath, "input", "i", "", "Input video file or directory")
	fs.StringVarP(&ef.outputPath, "output", "o", "", "Output directory (or filename for a single input file)")
	fs.StringVarP(&ef.logDir, "log-dir", "l", "", "Log directory (defaults to OUTPUT/logs)")
	fs.BoolVarP(&ef.verbose, "verbose", "v", false, "Enable verbose output")
	fs.BoolVar(&ef.noLog, "no-log", false, "Disable log file creation")
	fs.BoolVar(&ef.jsonOutput, "json", false, "Emit NDJSON events instead of terminal output")
	fs.StringVar(&ef.eventsFile, "events-file", "", "Also write NDJSON events to this file")

	fs.StringVarP(&ef.mode, "mode", "m", string(config.DefaultMode), `Rate-control mode ("crf", "abr", or "cbr")`)
	fs.StringVarP(&ef.profile, "profile", "p", config.ProfileAuto,
		fmt.Sprintf("Encoding profile (%s)", strings.Join(append([]string{config.ProfileAuto}, config.ProfileNames()...), ", ")))

	fs.StringVar(&ef.manualCrop, "crop", "", `Manual crop override ("w:h:x:y")`)
	fs.BoolVar(&ef.disableAutocrop, "disable-autocrop", false, "Disable automatic black bar crop detection")
	fs.StringVar(&ef.denoiseFilter, "denoise", "", `Denoise filter inserted ahead of crop (e.g. "hqdn3d=1.5:1.5:3:3")`)
	fs.StringVar(&ef.scaleFilter, "scale", "", `Scale filter appended after crop (e.g. "scale=1920:-2")`)

	fs.BoolVar(&ef.disableComplexity, "disable-complexity", false, "Skip complexity sampling and encode at the neutral score")
	fs.BoolVar(&ef.forceOracle, "force-oracle", false, "Consult the content oracle even when classification is confident")

	fs.BoolVar(&ef.responsive, "responsive", false, "Lower encoder priority for system responsiveness")
	fs.StringVar(&ef.tempDir, "temp-dir", "", "Directory for pass statistics files (defaults to the output directory)")
	fs.Uint64Var(&ef.cooldown, "cooldown", config.DefaultEncodeCooldownSecs, "Cooldown seconds between batch encodes")

	return cmd
}

func runEncode(ef encodeFlags) error {
	inputPath, err := filepath.Abs(ef.inputPath)
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("input path does not exist: %s", inputPath)
	}

	outputDir, targetFilename, err := resolveOutputPath(ef.outputPath, inputInfo.IsDir())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logDir := ef.logDir
	if logDir == "" {
		logDir = filepath.Join(outputDir, "logs")
	}
	logger, err := logging.Setup(logDir, ef.verbose, ef.noLog)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() { _ = logger.Close() }()

	sys := util.GetSystemInfo()
	logger.Info("host %s, %d CPUs, %s/%s", sys.Hostname, sys.NumCPU, sys.OS, sys.Arch)

	var filesToProcess []string
	if inputInfo.IsDir() {
		found, err := discovery.FindVideoFilesWithLogging(inputPath, logger)
		if err != nil {
			return err
		}
		filesToProcess = found.Files
	} else {
		filesToProcess = []string{inputPath}
		logger.Info("processing single file: %s", inputPath)
	}

	cfg, err := buildConfig(ef, outputDir, logDir)
	if err != nil {
		return err
	}

	logger.Info("mode %s, profile %s", cfg.Mode, cfg.ProfileName)
	logger.Info("responsive encoding: %v", cfg.ResponsiveEncoding)

	var rep reporter.Reporter = reporter.NewTerminalReporter()
	if ef.jsonOutput {
		rep = reporter.NewJSONReporter()
	}
	if ef.eventsFile != "" {
		f, err := os.OpenFile(ef.eventsFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open events file: %w", err)
		}
		defer func() { _ = f.Close() }()
		rep = reporter.NewCompositeReporter(rep, reporter.NewJSONReporterWithWriter(f))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	orch := &processing.Orchestrator{
		Config:   cfg,
		Logger:   logger,
		Reporter: rep,
	}
	_, err = orch.ProcessVideos(ctx, filesToProcess, targetFilename)
	return err
}

func buildConfig(ef encodeFlags, outputDir, logDir string) (*config.Config, error) {
	cfg := config.NewConfig(outputDir, logDir)

	mode, err := config.ParseMode(ef.mode)
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	cfg.ProfileName = ef.profile
	cfg.ManualCrop = ef.manualCrop
	cfg.DisableCrop = ef.disableAutocrop
	cfg.DenoiseFilter = ef.denoiseFilter
	cfg.ScaleFilter = ef.scaleFilter
	cfg.DisableComplexity = ef.disableComplexity
	cfg.ForceOracle = ef.forceOracle
	cfg.ResponsiveEncoding = ef.responsive
	if ef.tempDir != "" && !util.DirectoryExists(ef.tempDir) {
		return nil, fmt.Errorf("temp directory does not exist: %s", ef.tempDir)
	}
	cfg.TempDir = ef.tempDir
	cfg.EncodeCooldownSecs = ef.cooldown

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// resolveOutputPath determines the output directory and optional target
// filename. If input is a single file and output has a video extension,
// the output path is treated as the target filename.
func resolveOutputPath(outputPath string, isInputDir bool) (outputDir, targetFilename string, err error) {
	outputPath, err = filepath.Abs(outputPath)
	if err != nil {
		return "", "", fmt.Errorf("invalid output path: %w", err)
	}

	if isInputDir {
		return outputPath, "", nil
	}

	ext := filepath.Ext(outputPath)
	videoExtensions := map[string]bool{
		".mkv": true, ".mp4": true, ".webm": true,
		".avi": true, ".mov": true, ".m4v": true,
	}
	if videoExtensions[ext] {
		return filepath.Dir(outputPath), filepath.Base(outputPath), nil
	}
	return outputPath, "", nil
}
