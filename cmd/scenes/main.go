// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Command scenes mounts one of the scenes into an offscreen canvas, runs it
// and writes the frames it renders as PNG files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"honnef.co/go/gpuscenes/gpu"
	"honnef.co/go/gpuscenes/internal/config"
	"honnef.co/go/gpuscenes/scene"
	"honnef.co/go/gpuscenes/scenes"
	"honnef.co/go/gpuscenes/scenes/codelab"
)

// errUsage marks errors in the command line.
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("scenes", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f flags
	f.register(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: scenes [flags]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %s", errUsage, err)
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return fmt.Errorf("%w: unexpected arguments %q", errUsage, fs.Args())
	}

	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Default()
	if f.config != "" {
		var err error
		cfg, err = config.Load(f.config)
		if err != nil {
			return err
		}
	}
	if err := f.apply(fs, cfg); err != nil {
		return fmt.Errorf("%w: %s", errUsage, err)
	}

	r := &runner{
		log:    log,
		flags:  &f,
		cfg:    cfg,
		ticked: make(chan struct{}, 1),
	}
	sceneOpts, err := r.sceneOptions()
	if err != nil {
		return err
	}
	router := scenes.Default(sceneOpts)

	if f.list {
		for _, route := range router.Routes() {
			fmt.Fprintln(stdout, route.Path)
		}
		return nil
	}

	name := f.scene
	if name == "" {
		name = router.Routes()[0].Path
	}
	route, ok := router.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: no scene named %q, see -list", errUsage, name)
	}
	return r.run(ctx, router, route)
}

type runner struct {
	log   *slog.Logger
	flags *flags
	cfg   *config.Config

	host   *scene.Host
	route  scene.Route
	frames int
	// receives a value when the tick limit has been reached
	ticked chan struct{}
}

func (r *runner) sceneOptions() (*scenes.Options, error) {
	opts, err := codelabOptions(r.cfg)
	if err != nil {
		return nil, err
	}
	opts.Profile = r.flags.profile
	opts.OnTick = r.onTick
	return &scenes.Options{
		Codelab: opts,
		Outline: outlineOptions(r.cfg),
	}, nil
}

func (r *runner) run(ctx context.Context, router *scene.Router, route scene.Route) error {
	format, err := canvasFormat(r.cfg.Canvas.Format)
	if err != nil {
		return err
	}
	r.route = route
	r.host = scene.NewHost(&scene.HostOptions{
		Logger:    r.log,
		Container: gpu.Size(float64(r.cfg.Canvas.Width), float64(r.cfg.Canvas.Height)),
		Format:    format,
		Profile:   r.flags.profile,
	})
	defer r.host.Close()
	picker := scene.NewPicker(router, r.host)
	defer picker.Close()

	if err := picker.Select(ctx, route.Path); err != nil {
		if errors.Is(err, gpu.ErrUnavailable) {
			return fmt.Errorf("%s: %w", route.Path, err)
		}
		return err
	}

	animated := route.Path == codelab.Path
	var deadline <-chan time.Time
	if d := r.flags.duration; d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		deadline = t.C
	}
	switch {
	case !animated && deadline == nil:
		// Static scenes are done once mounted.
	case animated && deadline == nil && r.flags.ticks == 0:
		r.log.Info("running until interrupted")
		<-ctx.Done()
	default:
		select {
		case <-r.ticked:
		case <-deadline:
		case <-ctx.Done():
		}
	}

	if r.flags.out == "" {
		return nil
	}
	var serr error
	if err := r.host.Do(func() { serr = r.snapshot(context.WithoutCancel(ctx), "") }); err != nil {
		return err
	}
	return serr
}

// onTick runs on the host's loop.
func (r *runner) onTick(st codelab.Stats) {
	for _, res := range st.Profile {
		r.log.Info("gpu timings", "frame", res.String())
	}
	if r.flags.every && r.flags.out != "" {
		if err := r.snapshot(context.Background(), fmt.Sprintf("-%06d", st.Ticks)); err != nil {
			r.log.Warn("writing frame failed", "err", err)
		}
	}
	if n := r.flags.ticks; n > 0 && st.Ticks == uint64(n) {
		select {
		case r.ticked <- struct{}{}:
		default:
		}
	}
}

// snapshot writes the canvas to the output directory. It must run on the
// host's loop.
func (r *runner) snapshot(ctx context.Context, suffix string) error {
	canvas := r.host.Canvas()
	if canvas == nil {
		r.log.Info("scene has no canvas, not writing a frame", "scene", r.route.Path)
		return nil
	}
	img, err := canvas.Snapshot(ctx)
	if err != nil {
		return err
	}
	path, err := writePNG(r.flags.out, r.route.Path+suffix, scaleImage(img, r.flags.scale))
	if err != nil {
		return err
	}
	r.frames++
	r.log.Debug("wrote frame", "path", path)
	return nil
}
