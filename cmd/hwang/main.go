// Package main provides the CLI entry point for hwang.
package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/user/hwang/pkg/adapters/logger"
	"github.com/user/hwang/pkg/adapters/mp4index"
	"github.com/user/hwang/pkg/adapters/osfilesystem"
	"github.com/user/hwang/pkg/config"
	"github.com/user/hwang/pkg/indexstore"
	"github.com/user/hwang/pkg/ports"
	"github.com/user/hwang/pkg/videoindex"
)

// Globals are the flags shared by every subcommand.
type Globals struct {
	Config   string `short:"c" type:"existingfile" help:"YAML configuration file."`
	LogLevel string `short:"l" help:"Log level (debug, info, warn, error, quiet); overrides the config file."`
	Quiet    bool   `short:"Q" help:"Suppress all log output."`
}

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Globals

	Index    IndexCmd    `cmd:"" help:"Build the sidecar index of a video."`
	Inspect  InspectCmd  `cmd:"" help:"Show the index of a video."`
	Slice    SliceCmd    `cmd:"" help:"Print the decode plan for a set of frames."`
	Extract  ExtractCmd  `cmd:"" help:"Decode frames and write them as images."`
	Decoders DecodersCmd `cmd:"" help:"List the decoder backends of this build."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("hwang"),
		kong.Description("Random-access frame extraction for MP4 video."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// env is the wiring shared by commands.
type env struct {
	cfg   config.Config
	log   ports.Logger
	fs    ports.FileSystem
	store *indexstore.Store
}

// setup loads configuration and builds the adapters.
func (g *Globals) setup() (*env, error) {
	cfg := config.Defaults()
	if g.Config != "" {
		var err error
		if cfg, err = config.LoadFromFile(g.Config); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if g.Quiet {
		cfg.LogLevel = ports.LevelQuiet.String()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := cfg.Level()
	log := logger.New(level)
	fs := osfilesystem.New()

	return &env{
		cfg: cfg,
		log: log,
		fs:  fs,
		store: indexstore.New(fs,
			indexstore.WithExtension(cfg.IndexExtension),
			indexstore.WithLogger(log),
		),
	}, nil
}

// loadIndex returns the index of video, from its sidecar when one is
// usable, and the track description. rebuild forces a fresh index.
func (e *env) loadIndex(video string, rebuild bool) (*videoindex.Index, mp4index.Info, error) {
	var info mp4index.Info
	var probed bool
	build := func(path string) (*videoindex.Index, error) {
		f, err := e.fs.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		idx, i, err := mp4index.Build(f, e.log.WithComponent("mp4index"))
		if err != nil {
			return nil, err
		}
		info, probed = i, true
		return idx, nil
	}

	var idx *videoindex.Index
	var err error
	if rebuild {
		if idx, err = build(video); err == nil {
			err = e.store.Save(video, idx)
		}
	} else {
		idx, _, err = e.store.LoadOrBuild(video, build)
	}
	if err != nil {
		return nil, info, err
	}

	if !probed {
		f, err := e.fs.Open(video)
		if err != nil {
			return nil, info, err
		}
		defer f.Close()
		if info, err = mp4index.Probe(f); err != nil {
			return nil, info, err
		}
	}
	return idx, info, nil
}
