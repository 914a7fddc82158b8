// Package config handles exporter configuration loading and validation.
package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/Faultbox/ogrexport/pkg/axis"
)

// Config holds all exporter settings.
type Config struct {
	Export    ExportConfig    `yaml:"export"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Skeleton  SkeletonConfig  `yaml:"skeleton"`
	Material  MaterialConfig  `yaml:"material"`
	Scene     SceneConfig     `yaml:"scene"`
	Converter ConverterConfig `yaml:"converter"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ExportConfig selects what gets written and where.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir"`
	SwapAxis  string `yaml:"swap_axis"`
	Meshes    bool   `yaml:"meshes"`
	Skeletons bool   `yaml:"skeletons"`
	Materials bool   `yaml:"materials"`
	// Only restricts the export to the named mesh objects.
	Only []string `yaml:"only"`
}

// MeshConfig holds mesh document settings.
type MeshConfig struct {
	Tangents        bool    `yaml:"tangents"`
	SubmeshNames    bool    `yaml:"submesh_names"`
	ShapeKeys       bool    `yaml:"shape_keys"`
	ShapeNormals    bool    `yaml:"shape_normals"`
	ShapeAnimations bool    `yaml:"shape_animations"`
	TrimBoneWeights float32 `yaml:"trim_bone_weights"`
	MaxInfluences   int     `yaml:"max_influences"`
	// GroupSubmeshes names vertex groups exported as extra submeshes.
	GroupSubmeshes []string `yaml:"group_submeshes"`
}

// SkeletonConfig holds skeleton and animation settings.
type SkeletonConfig struct {
	Animations         bool `yaml:"animations"`
	InheritScale       bool `yaml:"inherit_scale"`
	OnlyDeformBones    bool `yaml:"only_deform_bones"`
	OnlyKeyframedBones bool `yaml:"only_keyframed_bones"`
	FrameStep          int  `yaml:"frame_step"`
}

// MaterialConfig holds material script settings.
type MaterialConfig struct {
	// SeparateFiles writes one script per material instead of one per mesh.
	SeparateFiles bool `yaml:"separate_files"`
	// TextureExtension replaces image extensions in texture references,
	// e.g. ".dds" when textures are converted alongside.
	TextureExtension string `yaml:"texture_extension"`
}

// SceneConfig holds scene source settings.
type SceneConfig struct {
	FPS float32 `yaml:"fps"`
}

// ConverterConfig holds the external binary converter invocation.
type ConverterConfig struct {
	Path    string        `yaml:"path"`
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout"`
	// Jobs is the number of converter processes run at once.
	Jobs int `yaml:"jobs"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			OutputDir: ".",
			SwapAxis:  axis.Default,
			Meshes:    true,
			Skeletons: true,
			Materials: true,
		},
		Mesh: MeshConfig{
			Tangents:        false,
			SubmeshNames:    true,
			ShapeKeys:       true,
			ShapeNormals:    true,
			ShapeAnimations: true,
			TrimBoneWeights: 0.01,
			MaxInfluences:   4,
		},
		Skeleton: SkeletonConfig{
			Animations:   true,
			InheritScale: true,
			FrameStep:    1,
		},
		Scene: SceneConfig{
			FPS: 24,
		},
		Converter: ConverterConfig{
			Timeout: 2 * time.Minute,
			Jobs:    2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Export),
		validation.Field(&c.Mesh),
		validation.Field(&c.Skeleton),
		validation.Field(&c.Scene),
		validation.Field(&c.Converter),
		validation.Field(&c.Logging),
	)
}

// Validate validates the export section.
func (c ExportConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.SwapAxis, validation.Required, validation.In(modeNames()...)),
	)
}

// Validate validates the mesh section.
func (c MeshConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TrimBoneWeights, validation.Min(float32(0)), validation.Max(float32(1))),
		validation.Field(&c.MaxInfluences, validation.Required, validation.Min(1)),
	)
}

// Validate validates the skeleton section.
func (c SkeletonConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.FrameStep, validation.Required, validation.Min(1)),
	)
}

// Validate validates the scene section.
func (c SceneConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.FPS, validation.Required, validation.Min(float32(0)).Exclusive()),
	)
}

// Validate validates the converter section.
func (c ConverterConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Jobs, validation.Required, validation.Min(1)),
	)
}

// Validate validates the logging section.
func (c LoggingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
	)
}

func modeNames() []any {
	names := axis.Modes()
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}
