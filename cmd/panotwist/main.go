package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	panotwist "github.com/menta2k/pano-twist"
	"github.com/menta2k/pano-twist/internal/config"
	"github.com/menta2k/pano-twist/internal/logger"
	"github.com/menta2k/pano-twist/pkg/equirect"
	"github.com/menta2k/pano-twist/pkg/imageio"
	"github.com/menta2k/pano-twist/pkg/metadata"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errCancelled) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// patchFlags are the command-line overrides for one pole.
type patchFlags struct {
	enabled bool
	angle   int
	fill    string
	color   string
	source  string
}

type app struct {
	configPath string
	verbose    bool
	quiet      bool

	nadir     patchFlags
	zenith    patchFlags
	maxHeight int
	quality   int
	lossless  bool
	noSidecar bool

	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "panotwist",
		Short:         "Rotate equirectangular panoramas and patch their nadir and zenith",
		Version:       panotwist.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (default "+config.GetConfigPath()+")")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log every file")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "only log warnings and errors")

	root.AddCommand(
		newScanCmd(a),
		newApplyCmd(a),
		newBatchCmd(a),
		newInfoCmd(),
		newConfigCmd(a),
	)
	return root
}

// addEditFlags registers the patch and output flags shared by apply and batch.
func (a *app) addEditFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	for _, p := range []struct {
		name  string
		flags *patchFlags
	}{{"nadir", &a.nadir}, {"zenith", &a.zenith}} {
		f.BoolVar(&p.flags.enabled, p.name, false, "patch the "+p.name)
		f.IntVar(&p.flags.angle, p.name+"-angle", 30, p.name+" patch extent in degrees (0-90)")
		f.StringVar(&p.flags.fill, p.name+"-fill", "average", p.name+" fill: average|color|image")
		f.StringVar(&p.flags.color, p.name+"-color", "", p.name+" fill colour as #RRGGBB")
		f.StringVar(&p.flags.source, p.name+"-source", "", "photo used by the image fill for the "+p.name)
	}
	f.IntVar(&a.maxHeight, "max-height", 0, "limit output height; width becomes twice the height")
	f.IntVar(&a.quality, "quality", 95, "JPEG/WebP quality (1-100)")
	f.BoolVar(&a.lossless, "lossless", false, "write lossless WebP")
	f.BoolVar(&a.noSidecar, "no-sidecar", false, "do not write .xmp panorama metadata")
}

// setup loads the configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = config.GetConfigPath()
	}

	// A missing file means defaults; "config init" creates it.
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if cfg, err = config.LoadFromFile(path); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	a.overridePatch(flags.Changed, "nadir", &a.nadir, &cfg.Nadir)
	a.overridePatch(flags.Changed, "zenith", &a.zenith, &cfg.Zenith)
	if flags.Changed("max-height") {
		cfg.Resize.Enabled = a.maxHeight > 0
		cfg.Resize.MaxWidth = 0
		cfg.Resize.MaxHeight = a.maxHeight
		cfg.Resize.Normalize()
	}
	if flags.Changed("quality") {
		cfg.Output.Quality = a.quality
	}
	if flags.Changed("lossless") {
		cfg.Output.Lossless = a.lossless
	}
	if flags.Changed("no-sidecar") {
		cfg.Output.Sidecar = !a.noSidecar
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	} else if a.quiet {
		cfg.Log.Level = "warn"
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.cfg = cfg
	a.log = logger.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Pretty)
	return nil
}

func (a *app) overridePatch(changed func(string) bool, name string, f *patchFlags, p *config.PatchConfig) {
	if changed(name) {
		p.Enabled = f.enabled
	}
	if changed(name + "-angle") {
		p.AngleDeg = f.angle
	}
	if changed(name + "-fill") {
		p.Fill = f.fill
	}
	if changed(name + "-color") {
		p.Color = f.color
	}
	if changed(name + "-source") {
		p.SourceImage = f.source
	}
}

// newEditor builds an editor from the loaded configuration.
func (a *app) newEditor() (*panotwist.Editor, error) {
	var tagger metadata.Tagger = metadata.Sidecar{}
	if !a.cfg.Output.Sidecar {
		tagger = metadata.Nop
	}
	editor := panotwist.New(panotwist.Options{
		OutputSubfolder: a.cfg.Output.Subfolder,
		Codec:           &imageio.Codec{Quality: a.cfg.Output.Quality, Lossless: a.cfg.Output.Lossless},
		Tagger:          tagger,
		Logger:          &a.log,
	})

	for _, p := range []struct {
		side equirect.Side
		cfg  config.PatchConfig
	}{{equirect.Nadir, a.cfg.Nadir}, {equirect.Zenith, a.cfg.Zenith}} {
		spec, err := p.cfg.Spec(p.side)
		if err != nil {
			return nil, err
		}
		editor.SetPatch(spec)
		if p.cfg.SourceImage != "" {
			if err := editor.LoadPatchSource(p.side, p.cfg.SourceImage); err != nil {
				return nil, err
			}
		} else if spec.Enabled && spec.Fill == equirect.FillImage {
			a.log.Warn().Stringer("side", p.side).Msg("image fill without a source photo, patch skipped")
		}
	}
	editor.SetMaxHeight(a.cfg.Resize.Limit())
	return editor, nil
}

var errCancelled = errors.New("cancelled")

func printLines(w io.Writer, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
