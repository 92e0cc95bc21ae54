// Package pipeline wires the dataset accessor, parcellation, signal
// cleaning, and connectivity computation into the per-subject
// operations exposed by the CLI.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/victoris93/neuroconn/internal/atlas"
	"github.com/victoris93/neuroconn/internal/bids"
	"github.com/victoris93/neuroconn/internal/config"
	"github.com/victoris93/neuroconn/internal/confounds"
	"github.com/victoris93/neuroconn/internal/connectivity"
	"github.com/victoris93/neuroconn/internal/ctxlog"
	"github.com/victoris93/neuroconn/internal/npyio"
	"github.com/victoris93/neuroconn/internal/parcellation"
	"github.com/victoris93/neuroconn/internal/signalproc"
)

// schaeferNetworks is the Yeo network count of the bundled atlas family.
const schaeferNetworks = 7

// Pipeline derives cleaned time series and connectivity matrices for
// subjects of one preprocessed dataset.
type Pipeline struct {
	Data   *bids.Derived
	Config *config.Config

	// LoadImage reads a voxel volume from disk. Overridable for tests.
	LoadImage func(path string) (parcellation.Image, error)

	// Fetcher acquires atlas volumes when no local path is configured.
	Fetcher *atlas.Fetcher

	// ConfoundList optionally points at a text file naming the confound
	// columns to regress. Empty uses the bundled default list.
	ConfoundList string

	masker *parcellation.Masker
}

// New returns a Pipeline over a preprocessed dataset.
func New(data *bids.Derived, cfg *config.Config) *Pipeline {
	return &Pipeline{
		Data:      data,
		Config:    cfg,
		LoadImage: parcellation.LoadNifti,
		Fetcher:   atlas.NewFetcher(cfg.Atlas.CacheDir),
		masker:    parcellation.NewMasker(),
	}
}

func (p *Pipeline) atlasPath(ctx context.Context) (string, error) {
	if p.Config.Atlas.LocalPath != "" {
		return p.Config.Atlas.LocalPath, nil
	}
	if p.Config.Parcellation != "schaefer" {
		return "", fmt.Errorf("unknown parcellation %q and no atlas.local_path configured", p.Config.Parcellation)
	}
	return p.Fetcher.Schaefer(ctx, p.Config.Parcels, schaeferNetworks)
}

func (p *Pipeline) confoundNames() ([]string, error) {
	if p.ConfoundList != "" {
		return confounds.LoadList(p.ConfoundList)
	}
	return confounds.DefaultList(), nil
}

// Parcellate extracts one region-averaged, confound-regressed time
// series per discovered run of the configured task, in session order.
func (p *Pipeline) Parcellate(ctx context.Context, subject string) ([]*mat.Dense, error) {
	logger := ctxlog.FromContext(ctx)

	labelsPath, err := p.atlasPath(ctx)
	if err != nil {
		return nil, err
	}
	labels, err := p.LoadImage(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("loading atlas: %w", err)
	}

	boldPaths, err := p.Data.BoldPaths(subject, p.Config.Task)
	if err != nil {
		return nil, err
	}
	confoundPaths, err := p.Data.ConfoundPaths(subject, p.Config.Task)
	if err != nil {
		return nil, err
	}
	if len(boldPaths) == 0 {
		return nil, fmt.Errorf("no preprocessed %s runs found for sub-%s", p.Config.Task, subject)
	}
	if len(boldPaths) != len(confoundPaths) {
		return nil, fmt.Errorf("sub-%s: %d bold runs but %d confound tables", subject, len(boldPaths), len(confoundPaths))
	}

	names, err := p.confoundNames()
	if err != nil {
		return nil, err
	}

	series := make([]*mat.Dense, len(boldPaths))
	for i, boldPath := range boldPaths {
		logger.Debug("parcellating", "subject", subject, "run", boldPath)

		table, err := confounds.ReadTSV(confoundPaths[i])
		if err != nil {
			return nil, err
		}
		table.ImputeMean()
		picked, err := table.Pick(names)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", confoundPaths[i], err)
		}
		if !p.Config.GSR {
			picked = picked.Drop(confounds.GlobalSignal)
		}

		bold, err := p.LoadImage(boldPath)
		if err != nil {
			return nil, fmt.Errorf("loading bold run: %w", err)
		}
		ts, err := p.masker.Transform(bold, labels, picked)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", boldPath, err)
		}
		series[i] = ts
	}
	return series, nil
}

// CleanSignal parcellates a subject and applies temporal cleaning to
// every session's series. With save, the stack lands at the
// conventional clean-ts artifact path, or under saveTo when given.
func (p *Pipeline) CleanSignal(ctx context.Context, subject string, save bool, saveTo string) ([]*mat.Dense, error) {
	series, err := p.Parcellate(ctx, subject)
	if err != nil {
		return nil, err
	}

	params := signalproc.Params{
		TRSeconds:   p.Config.Signal.TRSeconds,
		HighPassHz:  p.Config.Signal.HighPassHz,
		LowPassHz:   p.Config.Signal.LowPassHz,
		Detrend:     true,
		Standardize: true,
		DropVolumes: p.Config.Signal.DropVolumes,
	}
	cleaned := make([]*mat.Dense, len(series))
	for i, ts := range series {
		cleaned[i], err = signalproc.Clean(ts, params)
		if err != nil {
			return nil, fmt.Errorf("cleaning sub-%s session %d: %w", subject, i, err)
		}
	}

	if save {
		path, err := p.artifactPath(subject, saveTo, p.Data.CleanTSPath)
		if err != nil {
			return nil, err
		}
		if err := npyio.WriteStack(path, cleaned); err != nil {
			return nil, err
		}
		ctxlog.FromContext(ctx).Info("saved cleaned time series", "path", path)
	}
	return cleaned, nil
}

// ConnOptions parameterize a connectivity computation.
type ConnOptions struct {
	// TimeSeriesPath loads a previously saved clean-ts artifact instead
	// of recomputing the cleaned series.
	TimeSeriesPath string

	// Concat row-stacks all sessions before correlating, yielding one
	// matrix instead of one per session.
	Concat bool

	// ZTransform applies the Fisher z-transform sanitizer.
	ZTransform bool

	// Save writes the result to the conventional conn-matrix artifact
	// path, or under SaveTo when given.
	Save   bool
	SaveTo string
}

// ConnMatrix computes a subject's connectivity matrices, one per
// session or a single concatenated one.
func (p *Pipeline) ConnMatrix(ctx context.Context, subject string, opts ConnOptions) ([]*mat.Dense, error) {
	var series []*mat.Dense
	var err error
	if opts.TimeSeriesPath != "" {
		series, err = npyio.ReadStack(opts.TimeSeriesPath)
	} else {
		series, err = p.CleanSignal(ctx, subject, false, "")
	}
	if err != nil {
		return nil, err
	}

	var matrices []*mat.Dense
	if opts.Concat {
		conn, err := connectivity.Concat(series)
		if err != nil {
			return nil, fmt.Errorf("sub-%s: %w", subject, err)
		}
		matrices = []*mat.Dense{conn}
	} else {
		matrices = connectivity.Matrices(series)
	}
	if opts.ZTransform {
		for i, conn := range matrices {
			matrices[i] = connectivity.FisherZ(conn)
		}
	}

	if opts.Save {
		path, err := p.artifactPath(subject, opts.SaveTo, p.Data.ConnMatrixPath)
		if err != nil {
			return nil, err
		}
		if err := npyio.WriteStack(path, matrices); err != nil {
			return nil, err
		}
		p.Data.ConnMatrixPaths[subject] = path
		ctxlog.FromContext(ctx).Info("saved connectivity matrix", "path", path)
	}
	return matrices, nil
}

// artifactPath resolves where an artifact lands: the conventional
// clean_data path when saveTo is empty, otherwise the conventional file
// name inside saveTo. The directory is created either way.
func (p *Pipeline) artifactPath(subject, saveTo string, conventional func(string, string, string, int) string) (string, error) {
	path := conventional(subject, p.Config.Task, p.Config.Parcellation, p.Config.Parcels)
	if saveTo != "" {
		path = filepath.Join(saveTo, filepath.Base(path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	return path, nil
}
