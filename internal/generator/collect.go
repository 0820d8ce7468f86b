package generator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/hdlgen/internal/config"
	"github.com/robert-at-pretension-io/hdlgen/internal/facts"
	"github.com/robert-at-pretension-io/hdlgen/internal/synth"
	"github.com/robert-at-pretension-io/hdlgen/internal/validator"
)

// Collect synthesizes the design documents under rootPath, or files when
// given, and returns their fact tables without writing any output. The
// first design that fails to load aborts the collection.
func (g *Generator) Collect(ctx context.Context, rootPath string, files ...string) (facts.Tables, error) {
	if g.Config == nil {
		cfg, err := config.Load(rootPath)
		if err != nil {
			return facts.Tables{}, fmt.Errorf("load config: %w", err)
		}
		g.Config = cfg
	}
	if len(files) == 0 {
		found, err := g.Config.ResolveSources(rootPath)
		if err != nil {
			return facts.Tables{}, fmt.Errorf("scanning designs: %w", err)
		}
		files = found
	}

	v, err := validator.New()
	if err != nil {
		return facts.Tables{}, fmt.Errorf("CRITICAL: failed to initialize design validator: %w", err)
	}

	parts := make([]facts.Tables, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.maxParallel())
	for i, file := range files {
		if g.Config.ShouldIgnoreFile(file) {
			continue
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			d, err := g.load(file, v)
			if err != nil {
				return err
			}
			parts[i] = facts.BuildTables(synth.Synthesize(d))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return facts.Tables{}, err
	}
	return facts.Merge(parts...), nil
}
