package config

// Overrides carries command-line values that take precedence over the
// config file. Zero values leave the loaded setting alone.
type Overrides struct {
	OutputDir     string
	SwapAxis      string
	FrameStep     int
	FPS           float32
	ConverterPath string
	ConverterJobs int
	Debug         bool
	LogFile       string
	Only          []string
	NoMaterials   bool
	NoSkeletons   bool
	NoAnimations  bool
	Tangents      bool
}

// Apply writes the non-zero overrides into cfg.
func (o Overrides) Apply(cfg *Config) {
	if o.OutputDir != "" {
		cfg.Export.OutputDir = o.OutputDir
	}
	if o.SwapAxis != "" {
		cfg.Export.SwapAxis = o.SwapAxis
	}
	if o.FrameStep > 0 {
		cfg.Skeleton.FrameStep = o.FrameStep
	}
	if o.FPS > 0 {
		cfg.Scene.FPS = o.FPS
	}
	if o.ConverterPath != "" {
		cfg.Converter.Path = o.ConverterPath
	}
	if o.ConverterJobs > 0 {
		cfg.Converter.Jobs = o.ConverterJobs
	}
	if o.Debug {
		cfg.Logging.Level = "debug"
	}
	if o.LogFile != "" {
		cfg.Logging.LogFile = o.LogFile
	}
	if len(o.Only) > 0 {
		cfg.Export.Only = o.Only
	}
	if o.NoMaterials {
		cfg.Export.Materials = false
	}
	if o.NoSkeletons {
		cfg.Export.Skeletons = false
	}
	if o.NoAnimations {
		cfg.Skeleton.Animations = false
		cfg.Mesh.ShapeAnimations = false
	}
	if o.Tangents {
		cfg.Mesh.Tangents = true
	}
}
