// ogrexport converts glTF scenes into OGRE mesh, skeleton and material
// documents.
package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/Faultbox/ogrexport/internal/config"
	"github.com/Faultbox/ogrexport/internal/logger"
	"github.com/Faultbox/ogrexport/pkg/axis"
)

func main() {
	cmd := &cli.Command{
		Name:  "ogrexport",
		Usage: "Export glTF scenes as OGRE mesh, skeleton and material documents",
		Commands: []*cli.Command{
			exportCommand(),
			infoCommand(),
			configCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags are accepted by every command.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config file (default: ./ogrexport.yaml or the user config dir)",
			Sources: cli.EnvVars("OGREXPORT_CONFIG"),
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "Enable debug logging",
			Sources: cli.EnvVars("OGREXPORT_DEBUG"),
		},
		&cli.StringFlag{
			Name:    "log-file",
			Usage:   "Also write logs to this rotating file",
			Sources: cli.EnvVars("OGREXPORT_LOG_FILE"),
		},
	}
}

// exportFlags override configuration values for a run.
func exportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory",
			Sources: cli.EnvVars("OGREXPORT_OUTPUT_DIR"),
		},
		&cli.StringFlag{
			Name:    "swap-axis",
			Usage:   fmt.Sprintf("Axis swap mode, one of %v", axis.Modes()),
			Sources: cli.EnvVars("OGREXPORT_SWAP_AXIS"),
		},
		&cli.IntFlag{
			Name:  "frame-step",
			Usage: "Sample every Nth frame",
		},
		&cli.FloatFlag{
			Name:  "fps",
			Usage: "Frame rate animation times are converted at",
		},
		&cli.StringFlag{
			Name:    "converter",
			Usage:   "Binary converter run on every written mesh and skeleton",
			Sources: cli.EnvVars("OGREXPORT_CONVERTER"),
		},
		&cli.IntFlag{
			Name:  "jobs",
			Usage: "Converter processes run at once",
		},
		&cli.StringSliceFlag{
			Name:  "only",
			Usage: "Export only the named mesh objects",
		},
		&cli.BoolFlag{Name: "no-materials", Usage: "Skip material scripts"},
		&cli.BoolFlag{Name: "no-skeletons", Usage: "Skip skeletons and bone assignments"},
		&cli.BoolFlag{Name: "no-animations", Usage: "Skip skeletal and shape animations"},
		&cli.BoolFlag{Name: "tangents", Usage: "Write vertex tangents"},
	}
}

// overrides collects the flag values of cmd.
func overrides(cmd *cli.Command) config.Overrides {
	return config.Overrides{
		OutputDir:     cmd.String("output"),
		SwapAxis:      cmd.String("swap-axis"),
		FrameStep:     int(cmd.Int("frame-step")),
		FPS:           float32(cmd.Float("fps")),
		ConverterPath: cmd.String("converter"),
		ConverterJobs: int(cmd.Int("jobs")),
		Debug:         cmd.Bool("debug"),
		LogFile:       cmd.String("log-file"),
		Only:          cmd.StringSlice("only"),
		NoMaterials:   cmd.Bool("no-materials"),
		NoSkeletons:   cmd.Bool("no-skeletons"),
		NoAnimations:  cmd.Bool("no-animations"),
		Tangents:      cmd.Bool("tangents"),
	}
}

// setup loads configuration and initializes logging.
func setup(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"), overrides(cmd))
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, nil
}
