// Package exporter turns a scene snapshot into mesh, skeleton and
// material documents.
package exporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/ogrexport/internal/config"
	"github.com/Faultbox/ogrexport/internal/converter"
	"github.com/Faultbox/ogrexport/internal/report"
	"github.com/Faultbox/ogrexport/internal/scene"
	"github.com/Faultbox/ogrexport/pkg/axis"
)

// Exporter errors.
var (
	ErrNoGeometry  = errors.New("mesh object has no geometry")
	ErrInvalidFace = errors.New("face references a missing vertex")
)

// Exporter runs exports with one configuration.
type Exporter struct {
	cfg  *config.Config
	mode axis.Mode
	log  *zap.Logger
	conv *converter.Converter
}

// New creates an exporter. An unknown axis mode is a configuration error.
func New(cfg *config.Config, log *zap.Logger) (*Exporter, error) {
	mode, err := axis.Parse(cfg.Export.SwapAxis)
	if err != nil {
		return nil, err
	}
	if cfg.Skeleton.FrameStep < 1 {
		return nil, fmt.Errorf("frame step must be at least 1, got %d", cfg.Skeleton.FrameStep)
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("exporter")
	return &Exporter{
		cfg:  cfg,
		mode: mode,
		log:  log,
		conv: converter.New(cfg.Converter, log),
	}, nil
}

// run is the state of one Export call.
type run struct {
	*Exporter
	ctx  context.Context
	snap *scene.Snapshot
	pose *scene.PoseContext
	rep  *report.Report
	// pending holds written files waiting for the converter.
	pending []string
}

// Export writes every selected mesh, its armature and its materials into
// the output directory. A failure on one item is recorded in the report
// and the batch moves on.
func (e *Exporter) Export(ctx context.Context, snap *scene.Snapshot) *report.Report {
	r := &run{
		Exporter: e,
		ctx:      ctx,
		snap:     snap,
		pose:     scene.NewPoseContext(snap),
		rep:      report.New(e.log),
	}

	if err := os.MkdirAll(e.cfg.Export.OutputDir, 0o755); err != nil {
		r.rep.Fail(e.cfg.Export.OutputDir, fmt.Errorf("creating output directory: %w", err))
		return r.rep
	}

	meshes := r.selectMeshes()
	e.log.Info("exporting scene",
		zap.String("scene", snap.Name),
		zap.Int("meshes", len(meshes)),
		zap.String("swap_axis", e.mode.String()))

	if e.cfg.Export.Meshes {
		for _, obj := range meshes {
			if ctx.Err() != nil {
				r.rep.Fail(obj.Name, ctx.Err())
				return r.rep
			}
			if err := r.exportMesh(obj); err != nil {
				r.rep.Fail(obj.Name, err)
			}
		}
	}

	if e.cfg.Export.Skeletons {
		for _, arm := range r.selectArmatures(meshes) {
			if ctx.Err() != nil {
				r.rep.Fail(arm.Name, ctx.Err())
				return r.rep
			}
			if err := r.exportSkeleton(arm); err != nil {
				r.rep.Fail(arm.Name, err)
			}
		}
	}

	if e.cfg.Export.Materials {
		r.exportMaterials(meshes)
	}
	r.convertPending()
	return r.rep
}

// selectMeshes applies the Only filter, keeping scene order.
func (r *run) selectMeshes() []*scene.MeshObject {
	only := r.cfg.Export.Only
	if len(only) == 0 {
		return r.snap.Meshes
	}
	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[name] = true
	}
	var out []*scene.MeshObject
	for _, m := range r.snap.Meshes {
		if wanted[m.Name] {
			out = append(out, m)
			delete(wanted, m.Name)
		}
	}
	for _, name := range only {
		if wanted[name] {
			r.rep.Warn(name, "no mesh object with this name")
		}
	}
	return out
}

// selectArmatures returns the armatures deforming the selected meshes, or
// every armature when no filter is set.
func (r *run) selectArmatures(meshes []*scene.MeshObject) []*scene.Armature {
	if len(r.cfg.Export.Only) == 0 {
		return r.snap.Armatures
	}
	seen := make(map[string]bool)
	var out []*scene.Armature
	for _, m := range meshes {
		if m.Armature == "" || seen[m.Armature] {
			continue
		}
		seen[m.Armature] = true
		if a := r.snap.Armature(m.Armature); a != nil {
			out = append(out, a)
		}
	}
	return out
}

// writeFile writes a finished document and hands it to the converter when
// one is configured. Documents are built in memory first so a failed
// export never leaves a partial file behind.
func (r *run) writeFile(name string, data *bytes.Buffer, convert bool) error {
	path := filepath.Join(r.cfg.Export.OutputDir, name)
	if err := os.WriteFile(path, data.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	r.rep.AddFile(path)

	if convert && r.conv.Enabled() {
		r.pending = append(r.pending, path)
	}
	return nil
}

// convertPending runs the converter over every pending file, at most
// Converter.Jobs at a time. Results are recorded in write order.
func (r *run) convertPending() {
	if len(r.pending) == 0 {
		return
	}
	outs := make([]string, len(r.pending))
	errs := make([]error, len(r.pending))

	var g errgroup.Group
	g.SetLimit(max(r.cfg.Converter.Jobs, 1))
	for i, path := range r.pending {
		g.Go(func() error {
			outs[i], errs[i] = r.conv.Convert(r.ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	for i, path := range r.pending {
		if errs[i] != nil {
			r.rep.Fail(path, errs[i])
			continue
		}
		r.rep.Converted = append(r.rep.Converted, outs[i])
	}
	r.pending = nil
}

var unsafeChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
)

// fileName turns a scene item name into a safe file name stem.
func fileName(name string) string {
	if name == "" {
		return "unnamed"
	}
	return unsafeChars.Replace(name)
}
