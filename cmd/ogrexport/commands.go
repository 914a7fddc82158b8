package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/Faultbox/ogrexport/internal/config"
	"github.com/Faultbox/ogrexport/internal/exporter"
	"github.com/Faultbox/ogrexport/internal/gltfscene"
	"github.com/Faultbox/ogrexport/internal/logger"
	"github.com/Faultbox/ogrexport/internal/scene"
	"github.com/Faultbox/ogrexport/internal/watch"
)

var errExportFailed = errors.New("export finished with errors")

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a scene",
		ArgsUsage: "<scene.gltf|scene.glb>",
		Flags: append(append(commonFlags(), exportFlags()...), &cli.BoolFlag{
			Name:  "watch",
			Usage: "Export again whenever the scene file changes",
		}),
		Action: runExport,
	}
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("usage: ogrexport export %s", cmd.ArgsUsage)
	}
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	e, err := exporter.New(cfg, logger.Log)
	if err != nil {
		return err
	}

	path := cmd.Args().First()
	if !cmd.Bool("watch") {
		return exportOnce(ctx, e, path, cfg)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := exportOnce(ctx, e, path, cfg); err != nil {
		logger.Log.Warn("export failed", zap.Error(err))
	}
	return watch.Scene(ctx, path, watch.DefaultDelay, logger.Named("watch"), func() {
		if err := exportOnce(ctx, e, path, cfg); err != nil {
			logger.Log.Warn("export failed", zap.Error(err))
		}
	})
}

// exportOnce loads the scene at path, exports it and prints the summary.
func exportOnce(ctx context.Context, e *exporter.Exporter, path string, cfg *config.Config) error {
	snap, err := loadScene(path, cfg)
	if err != nil {
		return err
	}
	rep := e.Export(ctx, snap)

	fmt.Printf("Scene:  %s\n", path)
	fmt.Printf("Output: %s\n\n", cfg.Export.OutputDir)
	rep.WriteSummary(os.Stdout)
	if !rep.OK() {
		return errExportFailed
	}
	return nil
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "List the meshes, armatures, materials and clips of a scene",
		ArgsUsage: "<scene.gltf|scene.glb>",
		Flags: append(commonFlags(), &cli.FloatFlag{
			Name:  "fps",
			Usage: "Frame rate animation times are converted at",
		}),
		Action: runInfo,
	}
}

func runInfo(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("usage: ogrexport info %s", cmd.ArgsUsage)
	}
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	path := cmd.Args().First()
	snap, err := loadScene(path, cfg)
	if err != nil {
		return err
	}
	printInfo(path, snap)
	return nil
}

func loadScene(path string, cfg *config.Config) (*scene.Snapshot, error) {
	logger.Log.Info("loading scene", zap.String("path", path), zap.Float32("fps", cfg.Scene.FPS))
	snap, err := gltfscene.Load(path, gltfscene.Options{
		FPS: cfg.Scene.FPS,
		Log: logger.Named("gltf"),
	})
	if err != nil {
		return nil, fmt.Errorf("loading scene: %w", err)
	}
	return snap, nil
}

func printInfo(path string, snap *scene.Snapshot) {
	fmt.Printf("Scene: %s\n", path)
	if snap.Name != "" {
		fmt.Printf("Name:  %s\n", snap.Name)
	}
	fmt.Printf("FPS:   %g\n", snap.FPS)

	fmt.Printf("\nMeshes (%d):\n", len(snap.Meshes))
	for _, m := range snap.Meshes {
		d := m.Data
		fmt.Printf("  %-24s %6d verts %6d faces", m.Name, len(d.Positions), len(d.Faces))
		if m.Armature != "" {
			fmt.Printf("  armature=%s", m.Armature)
		}
		if len(d.ShapeKeys) > 0 {
			fmt.Printf("  shape keys=%d", len(d.ShapeKeys))
		}
		fmt.Println()
	}

	fmt.Printf("\nArmatures (%d):\n", len(snap.Armatures))
	for _, a := range snap.Armatures {
		fmt.Printf("  %-24s %d bones\n", a.Name, len(a.Bones))
	}

	fmt.Printf("\nMaterials (%d):\n", len(snap.Materials))
	for _, m := range snap.Materials {
		textures := 0
		for _, p := range m.Passes {
			textures += len(p.Textures)
		}
		fmt.Printf("  %-24s %d textures\n", m.Name, textures)
	}

	fmt.Printf("\nClips (%d):\n", len(snap.Clips))
	for _, c := range snap.Clips {
		shapes := make([]string, 0, len(c.Shapes))
		for name := range c.Shapes {
			shapes = append(shapes, name)
		}
		sort.Strings(shapes)
		fmt.Printf("  %-24s frames %d..%d  bones=%d", c.Name, c.Start, c.End, len(c.Bones))
		if len(shapes) > 0 {
			fmt.Printf("  shapes=%v", shapes)
		}
		fmt.Println()
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or save the effective configuration",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration as YAML",
				Flags:  append(commonFlags(), exportFlags()...),
				Action: runConfigShow,
			},
			{
				Name:      "save",
				Usage:     "Write the effective configuration to a file",
				ArgsUsage: "[path]",
				Flags:     append(commonFlags(), exportFlags()...),
				Action:    runConfigSave,
			},
		},
	}
}

func runConfigShow(_ context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"), overrides(cmd))
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runConfigSave(_ context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"), overrides(cmd))
	if err != nil {
		return err
	}
	path := cmd.Args().First()
	if path == "" {
		path, err = cfg.Save()
	} else {
		err = cfg.SaveTo(path)
	}
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Saved config to %s\n", path)
	return nil
}
