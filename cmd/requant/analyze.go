package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jdhalbert/requant/internal/adapt"
	"github.com/jdhalbert/requant/internal/analysis"
	"github.com/jdhalbert/requant/internal/config"
	"github.com/jdhalbert/requant/internal/ffprobe"
	"github.com/jdhalbert/requant/internal/util"
)

func newAnalyzeCommand() *cobra.Command {
	var mode string
	var contentOverride string

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a video file without encoding",
		Long: `Analyze a video file and print the complexity score, the resolved
content type, and the rate-control parameters an encode would use.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(args[0], mode, contentOverride)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(config.DefaultMode), `Rate-control mode ("crf", "abr", or "cbr")`)
	cmd.Flags().StringVar(&contentOverride, "content", "", `Skip classification and adapt for this content type (e.g. "anime")`)

	return cmd
}

func runAnalyze(inputPath, modeStr, contentOverride string) error {
	mode, err := config.ParseMode(modeStr)
	if err != nil {
		return err
	}

	inputPath, err = filepath.Abs(inputPath)
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}

	ctx := context.Background()
	probe, err := ffprobe.Probe(ctx, inputPath)
	if err != nil {
		return err
	}

	heading := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgWhite, color.Bold)

	heading.Printf("\n%s\n", filepath.Base(inputPath))
	fmt.Printf("  %s %dx%d, %s, %s, %d audio track(s)\n",
		label.Sprint("Source:"), probe.Width, probe.Height,
		util.FormatDuration(probe.DurationSecs), dynamicRangeLabel(probe.IsHDR),
		probe.AudioStreams)

	engine := analysis.NewEngine(nil, nil)
	signals := engine.Analyze(ctx, inputPath, probe)
	score := analysis.Score(signals)

	heading.Println("\nComplexity")
	fmt.Printf("  %s %.1f / 100\n", label.Sprint("Score:"), score)
	fmt.Printf("  %s SI %.1f, TI %.1f, scene rate %.2f/min, grain %.2f, texture %.1f\n",
		label.Sprint("Signals:"), signals.SpatialInfo, signals.TemporalInfo,
		signals.SceneChangeRate, signals.GrainLevel, signals.TextureScore)

	classification := analysis.ClassifyTechnical(signals, probe)
	if contentOverride != "" {
		ct, err := config.ParseContentType(contentOverride)
		if err != nil {
			return err
		}
		classification = analysis.Classification{Type: ct, Confidence: 100}
	}
	profile := config.ProfileForContentType(classification.Type)

	heading.Println("\nClassification")
	fmt.Printf("  %s %s (%.0f%% confidence)\n",
		label.Sprint("Content type:"), classification.Type, classification.Confidence)
	fmt.Printf("  %s %s\n", label.Sprint("Profile:"), profile.Name)

	params := adapt.Adapt(profile, score, classification.Type, probe.IsHDR)

	heading.Println("\nEncoding plan")
	fmt.Printf("  %s %s\n", label.Sprint("Mode:"), mode)
	if mode == config.ModeCRF {
		fmt.Printf("  %s %.1f\n", label.Sprint("CRF:"), params.CRF)
	} else {
		fmt.Printf("  %s %s\n", label.Sprint("Bitrate:"), util.FormatBitrate(params.BitrateKbps))
	}
	fmt.Printf("  %s %s\n\n", label.Sprint("Preset:"), params.Preset)

	return nil
}

func dynamicRangeLabel(isHDR bool) string {
	if isHDR {
		return "HDR"
	}
	return "SDR"
}
