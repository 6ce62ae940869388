package main

import (
	"fmt"
	"io"
	"os"

	"spider-pca/internal/analysis"
	"spider-pca/internal/config"
	"spider-pca/internal/loader"
	"spider-pca/internal/logging"
	"spider-pca/internal/pca"
	"spider-pca/internal/scores"
	"spider-pca/internal/version"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	dev        bool
	pooling    string
	species    string
	reference  string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "spider-pca",
		Short: "Principal component analysis of spider leg motion capture",
		Long: `spider-pca fits principal component bases to marker trajectories,
pooling whole bodies, single legs, or body sides, and rebuilds poses from
chosen components.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath(), "configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&opts.dev, "dev", false, "human-readable development logging")
	flags.StringVar(&opts.pooling, "pooling", "", "override pooling: body, legs or bilateral")
	flags.StringVar(&opts.species, "species", "", "keep only rows of this species")
	flags.StringVar(&opts.reference, "reference", "", "score against a saved model instead of fitting")

	root.AddCommand(
		newFitCmd(opts),
		newReconstructCmd(opts),
		newAnimateCmd(opts),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration, builds the logger, and fits or projects
// the marker table at path.
func setup(opts *globalOptions, path string) (*analysis.Session, *zap.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.pooling != "" {
		cfg.Analysis.Pooling = analysis.Pooling(opts.pooling)
	}
	if opts.species != "" {
		cfg.Loader.Species = opts.species
	}

	log, err := logging.New(opts.logLevel, opts.dev)
	if err != nil {
		return nil, nil, err
	}

	session, err := analysis.NewSession(cfg.Anatomy, cfg.Analysis, log)
	if err != nil {
		return nil, nil, err
	}
	if err := session.Load(path, cfg.Loader); err != nil {
		return nil, nil, err
	}

	var ref *pca.Model
	if opts.reference != "" {
		if ref, err = session.LoadModel(opts.reference); err != nil {
			return nil, nil, err
		}
	}
	if _, err := session.Fit(ref); err != nil {
		return nil, nil, err
	}
	return session, log, nil
}

// output opens path for writing, or stdout for "" and "-".
func output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func newFitCmd(opts *globalOptions) *cobra.Command {
	var scoresPath, modelPath, name string
	cmd := &cobra.Command{
		Use:   "fit <markers.csv>",
		Short: "Fit a model and write the scores table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, log, err := setup(opts, args[0])
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			table, err := session.ScoresTable()
			if err != nil {
				return err
			}
			w, err := output(scoresPath)
			if err != nil {
				return err
			}
			if err := table.WriteCSV(w, scores.DefaultColumnNames()); err != nil {
				w.Close()
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}

			fit := session.Current()
			ratio := fit.Model.CumulativeVarianceRatio()
			n := len(ratio)
			if n > 5 {
				n = 5
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Cumulative explained variance (first %d): %.4f\n", n, ratio[:n])
			fmt.Fprintf(cmd.ErrOrStderr(), "Components for 95%%: %d of %d\n",
				fit.Model.ComponentsFor(0.95), fit.Model.Components())

			if modelPath != "" {
				if fit.Projected {
					return fmt.Errorf("--model needs a fresh fit, not --reference")
				}
				if name == "" {
					name = args[0]
				}
				return session.SaveModel(modelPath, name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&scoresPath, "out", "o", "-", "scores table output (- for stdout)")
	cmd.Flags().StringVar(&modelPath, "model", "", "save the fitted model to this file")
	cmd.Flags().StringVar(&name, "name", "", "model name stored in the model file")
	return cmd
}

func newReconstructCmd(opts *globalOptions) *cobra.Command {
	var outPath string
	var components []int
	cmd := &cobra.Command{
		Use:   "reconstruct <markers.csv>",
		Short: "Rebuild the markers from a subset of components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, log, err := setup(opts, args[0])
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			if !cmd.Flags().Changed("components") {
				components = nil
			}
			rec, err := session.Reconstruct(components)
			if err != nil {
				return err
			}
			w, err := output(outPath)
			if err != nil {
				return err
			}
			if err := loader.WriteMarkers(w, session.Data().Names, rec); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "marker table output (- for stdout)")
	cmd.Flags().IntSliceVarP(&components, "components", "c", nil, "zero-based components to keep (default: configured, else all)")
	return cmd
}

func newAnimateCmd(opts *globalOptions) *cobra.Command {
	var outPath string
	var component, frames int
	cmd := &cobra.Command{
		Use:   "animate <markers.csv>",
		Short: "Sweep one component around its mean and write the resulting poses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, log, err := setup(opts, args[0])
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			anim, err := session.Animate(component, frames)
			if err != nil {
				return err
			}
			w, err := output(outPath)
			if err != nil {
				return err
			}
			if err := loader.WriteMarkers(w, anim.Names, anim.Markers); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "marker table output (- for stdout)")
	cmd.Flags().IntVar(&component, "component", 0, "zero-based component to sweep")
	cmd.Flags().IntVar(&frames, "frames", 0, "animation frames (default: configured)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
