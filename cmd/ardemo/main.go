package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iTrooz/ardemo/internal/cache"
	"github.com/iTrooz/ardemo/internal/config"
	"github.com/iTrooz/ardemo/internal/content"
	"github.com/iTrooz/ardemo/internal/deeplink"
	"github.com/iTrooz/ardemo/internal/demo"
	"github.com/iTrooz/ardemo/internal/logging"
	"github.com/iTrooz/ardemo/internal/rules"
	"github.com/iTrooz/ardemo/internal/server"
	"github.com/iTrooz/ardemo/internal/urlcache"
)

const defaultConfigPath = "configs/config.yaml"

const usage = `usage: ardemo [-config path] <command> [arguments]

commands:
  serve                         run the launcher HTTP service
  open [-location id] [-scene n] <deep link>
                                open a deep link and print the prepared demo
  recent [mug|panorama]         list recently opened deep links
  clear [cache|recent|all]      clear the asset cache and/or recent links
  config init [path]            write a starter configuration file
`

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

// cliOptions holds the parsed global flags and the command line that follows
type cliOptions struct {
	configPath string
	command    string
	args       []string
}

// app is the composition root shared by every command
type app struct {
	config *config.Config
	logger *logrus.Logger
	cache  *cache.FileCache
	recent *urlcache.Lists
	router *demo.Router
}

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("ardemo", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", defaultConfigPath, "configuration file")
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("%v\n%s", err, usage)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return cliOptions{}, errors.New(usage)
	}
	return cliOptions{
		configPath: *configPath,
		command:    rest[0],
		args:       rest[1:],
	}, nil
}

// run executes a command and returns the process exit code
func run(opts cliOptions) int {
	switch opts.command {
	case "config":
		return runConfig(opts)
	case "serve", "open", "recent", "clear":
	default:
		fmt.Fprintf(stdErr, "unknown command %q\n%s", opts.command, usage)
		return 2
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "Failed to load config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stdErr, "Invalid configuration: %v\n", err)
		return 1
	}

	logs, err := logging.New(cfg.Log, stdErr)
	if err != nil {
		fmt.Fprintf(stdErr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = logs.Close() }()
	logger := logs.Logger

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	switch opts.command {
	case "serve":
		return a.serve()
	case "open":
		return a.open(opts.args)
	case "recent":
		return a.listRecent(opts.args)
	default:
		return a.clear(opts.args)
	}
}

// newApp wires cache, content client, recent lists and router. Only the
// asset cache can fail here.
func newApp(cfg *config.Config, logger *logrus.Logger) (*app, error) {
	fc, err := cache.NewFile(cfg.Cache.Folder)
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.GetContentTimeout()
	if err != nil {
		return nil, err
	}
	client, err := content.New(fc, content.Options{
		Timeout:     timeout,
		ProxyURL:    cfg.Content.ProxyURL,
		DownloadDir: filepath.Join(cfg.Cache.Folder, "downloads"),
	})
	if err != nil {
		return nil, err
	}

	demos := make([]string, 0, len(deeplink.Demos))
	for _, d := range deeplink.Demos {
		demos = append(demos, string(d))
	}
	recent := urlcache.OpenLists(cfg.Cache.Folder, demos...)

	return &app{
		config: cfg,
		logger: logger,
		cache:  fc,
		recent: recent,
		router: demo.NewRouter(client, recent, rules.NewPolicy(cfg.Rules)),
	}, nil
}

func (a *app) serve() int {
	srv := server.New(a.config, a.router, a.cache, a.logger)
	if err := srv.Start(); err != nil {
		a.logger.Errorf("Server failed: %v", err)
		return 1
	}
	return 0
}

func (a *app) open(args []string) int {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(stdErr)
	scene := fs.Int("scene", -1, "panorama scene to show")
	location := fs.String("location", "", "panorama location asset to switch to")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprint(stdErr, usage)
		return 2
	}

	ctx := context.Background()
	result, err := a.router.Open(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stdErr, "Failed to open deep link: %v\n", err)
		return 1
	}

	if (*scene >= 0 || *location != "") && result.Panorama == nil {
		fmt.Fprintln(stdErr, "-scene and -location only apply to panorama links")
		return 2
	}

	if *location != "" {
		if result, err = a.router.SwitchLocation(ctx, *location); err != nil {
			fmt.Fprintf(stdErr, "Failed to switch to location %s: %v\n", *location, err)
			return 1
		}
	}

	if *scene >= 0 {
		if _, err := result.Panorama.Select(ctx, *scene); err != nil {
			fmt.Fprintf(stdErr, "Failed to show scene %d: %v\n", *scene, err)
			return 1
		}
	}

	return printJSON(result)
}

func (a *app) listRecent(args []string) int {
	demos := a.recent.Demos()
	if len(args) > 0 {
		d := deeplink.ParseDemo(args[0])
		if d == deeplink.DemoUnknown {
			fmt.Fprintf(stdErr, "unknown demo %q\n", args[0])
			return 2
		}
		demos = []string{string(d)}
	}

	links := make(map[string][]string, len(demos))
	for _, d := range demos {
		list, _ := a.recent.Get(d)
		items := list.Items()
		links[d] = make([]string, 0, len(items))
		for _, u := range items {
			links[d] = append(links[d], u.String())
		}
	}
	return printJSON(links)
}

func (a *app) clear(args []string) int {
	target := "all"
	if len(args) > 0 {
		target = strings.ToLower(args[0])
	}
	if target != "cache" && target != "recent" && target != "all" {
		fmt.Fprintf(stdErr, "unknown clear target %q\n", target)
		return 2
	}

	if target == "cache" || target == "all" {
		if err := a.cache.Clear(); err != nil {
			fmt.Fprintf(stdErr, "Failed to clear asset cache: %v\n", err)
			return 1
		}
		a.logger.WithFields(logging.Fields("clear_cache")).Info("Cleared asset cache")
	}
	if target == "recent" || target == "all" {
		for _, d := range a.recent.Demos() {
			list, _ := a.recent.Get(d)
			if err := list.Clear(); err != nil {
				fmt.Fprintf(stdErr, "Failed to clear recent %s links: %v\n", d, err)
				return 1
			}
		}
		a.logger.WithFields(logging.Fields("clear_recent")).Info("Cleared recent links")
	}
	return 0
}

func runConfig(opts cliOptions) int {
	if len(opts.args) == 0 || opts.args[0] != "init" {
		fmt.Fprint(stdErr, usage)
		return 2
	}

	path := opts.configPath
	if len(opts.args) > 1 {
		path = opts.args[1]
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(stdErr, "%s already exists\n", path)
		return 1
	}
	if err := config.WriteDefault(path); err != nil {
		fmt.Fprintf(stdErr, "Failed to write config: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdOut, "Wrote %s\n", path)
	return 0
}

func printJSON(v any) int {
	enc := json.NewEncoder(stdOut)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stdErr, "Failed to write output: %v\n", err)
		return 1
	}
	return 0
}
