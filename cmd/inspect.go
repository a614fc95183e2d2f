// File: cmd/inspect.go
package cmd

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/farbler/internal/browser"
	"github.com/xkilldash9x/farbler/internal/browser/canvas"
	"github.com/xkilldash9x/farbler/internal/browser/navigator"
	"github.com/xkilldash9x/farbler/internal/browser/plugins"
	"github.com/xkilldash9x/farbler/internal/browser/webaudio"
	"github.com/xkilldash9x/farbler/internal/config"
	"github.com/xkilldash9x/farbler/internal/contentsettings"
	"github.com/xkilldash9x/farbler/internal/farbling"
	"github.com/xkilldash9x/farbler/internal/observability"
)

// InspectReport is what a page loaded from URL would observe.
type InspectReport struct {
	URL                 string         `json:"url"`
	Site                string         `json:"site"`
	SessionID           string         `json:"session_id"`
	Level               farbling.Level `json:"level"`
	Plugins             []plugins.Info `json:"plugins"`
	HardwareConcurrency int            `json:"hardware_concurrency"`
	AudioTimeDomain     []float64      `json:"audio_time_domain"`
	AudioFrequencyBytes []int          `json:"audio_frequency_bytes"`
	CanvasPixel         []int          `json:"canvas_pixel"`
}

type inspectOptions struct {
	url         string
	level       string
	realPlugins []string
	cores       int
	samples     int
}

func newInspectCmd() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the farbled values a page on the given URL would see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			report, err := runInspect(cfg, opts, observability.GetLogger())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to serialize report to JSON: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.url, "url", "u", "", "page URL (required)")
	cmd.Flags().StringVarP(&opts.level, "level", "l", "", "farbling level for every host, overriding configured rules")
	cmd.Flags().StringSliceVar(&opts.realPlugins, "real-plugins", []string{"PDF Viewer", "Chrome PDF Viewer"}, "names of the plugins the embedder reports")
	cmd.Flags().IntVar(&opts.cores, "cores", 0, "real logical core count (default: this machine)")
	cmd.Flags().IntVar(&opts.samples, "samples", 8, "number of audio values to print")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func runInspect(cfg config.Interface, opts *inspectOptions, logger *zap.Logger) (*InspectReport, error) {
	if opts.samples <= 0 {
		return nil, fmt.Errorf("--samples must be a positive integer")
	}
	provider, err := newProvider(cfg.Farbling(), opts.level, logger)
	if err != nil {
		return nil, err
	}
	sessionKey, err := cfg.Farbling().DecodedSessionKey()
	if err != nil {
		return nil, err
	}

	manager, err := browser.NewManager(provider, sessionKey, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start browsing session: %w", err)
	}
	defer manager.Close()

	frame, err := manager.NewFrame(opts.url)
	if err != nil {
		return nil, err
	}

	report := &InspectReport{
		URL:       opts.url,
		Site:      frame.Document().Key().Site(),
		SessionID: manager.ID(),
		Level:     farbling.ResolveLevel(frame, logger),
	}

	reported := make([]plugins.Info, 0, len(opts.realPlugins))
	for _, name := range opts.realPlugins {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		reported = append(reported, plugins.Info{
			Name:        name,
			Filename:    strings.ToLower(strings.ReplaceAll(name, " ", "_")) + ".so",
			Description: name,
		})
	}
	pluginArray := plugins.New(frame, reported,
		plugins.WithSyntheticSpecs(cfg.Farbling().Plugins.Synthetic),
		plugins.WithLogger(logger),
	)
	report.Plugins = pluginArray.Infos()

	report.HardwareConcurrency = navigator.New(frame, opts.cores, logger).HardwareConcurrency()

	analyser := webaudio.NewRealtimeAnalyser(frame, logger)
	analyser.Write(testTone(analyser.FFTSize()))
	report.AudioTimeDomain = make([]float64, min(opts.samples, analyser.FFTSize()))
	analyser.GetFloatTimeDomainData(report.AudioTimeDomain)
	freq := make([]uint8, min(opts.samples, analyser.FrequencyBinCount()))
	analyser.GetByteFrequencyData(freq)
	report.AudioFrequencyBytes = widen(freq)

	surface, err := canvas.New(frame, 4, 4, logger)
	if err != nil {
		return nil, err
	}
	surface.FillRect(0, 0, 4, 4, color.RGBA{R: 0x66, G: 0x99, B: 0xcc, A: 0xff})
	report.CanvasPixel = widen(surface.GetImageData(0, 0, 1, 1).Data)
	return report, nil
}

// widen keeps byte buffers readable as JSON number arrays.
func widen(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

// newProvider builds the content settings provider, or a rule-free one at
// levelOverride when given.
func newProvider(cfg config.FarblingConfig, levelOverride string, logger *zap.Logger) (*contentsettings.Provider, error) {
	if levelOverride == "" {
		return contentsettings.FromConfig(cfg, logger)
	}
	level, err := farbling.ParseLevel(levelOverride)
	if err != nil {
		return nil, fmt.Errorf("--level: %w", err)
	}
	return contentsettings.NewProvider(level, nil, logger)
}

// testTone is a 440 Hz sine at 48 kHz.
func testTone(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/48000)
	}
	return out
}
