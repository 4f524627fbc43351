// main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usageText = `Usage: welsh-csc [-config FILE] [-debug] COMMAND [options]

Utility for working with the Welsh Controlled Speech Corpus.

Commands:
  get-data     Retrieve the corpus audio data from the remote host
  get-meta     Retrieve corpus metadata (stimuli list, labels)
  chop-data    Chop raw session recordings into per-stimulus files
  make-mono    Extract mono voice tracks from 2-channel recordings
  make-labels  Generate .lab files and attach them to chopped recordings

Run 'welsh-csc COMMAND -h' for command options.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := flag.NewFlagSet("welsh-csc", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	configPath := global.String("config", "welsh-csc.yaml", "path to YAML config file")
	debug := global.Bool("debug", false, "enable debug logging")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() < 1 {
		global.Usage()
		return 2
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	if *debug {
		cfg.Debug = true
	}
	initLogging(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, cmdArgs := global.Arg(0), global.Args()[1:]
	var failed int
	switch cmd {
	case "get-data":
		failed, err = cmdGetData(ctx, cfg, cmdArgs)
	case "get-meta":
		failed, err = cmdGetMeta(ctx, cfg, cmdArgs)
	case "chop-data":
		failed, err = cmdChopData(ctx, cfg, cmdArgs)
	case "make-mono":
		failed, err = cmdMakeMono(ctx, cfg, cmdArgs)
	case "make-labels":
		failed, err = cmdMakeLabels(ctx, cfg, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "ERROR: unknown command %q\n", cmd)
		global.Usage()
		return 2
	}

	switch {
	case errors.Is(err, errInterrupted):
		fmt.Fprintln(os.Stderr, "Interrupt caught! Terminated after all active items finished.")
		return 130
	case err != nil:
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	case failed > 0:
		return 1
	}
	return 0
}

func initLogging(debug bool) {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// expandTargets maps the component and channel selections onto the
// {component}-{channel}ch subdirectory names.
func expandTargets(component, channel string, components ...string) ([]string, error) {
	var comps []string
	switch strings.ToLower(component) {
	case "all":
		comps = components
	default:
		for _, c := range components {
			if strings.EqualFold(component, c) {
				comps = []string{c}
			}
		}
		if comps == nil {
			return nil, fmt.Errorf("invalid component %q (expected all, %s)", component, strings.Join(components, ", "))
		}
	}
	var channels []string
	switch channel {
	case "1", "2":
		channels = []string{channel}
	case "1+2":
		channels = []string{"1", "2"}
	default:
		return nil, fmt.Errorf("invalid channel %q (expected 1, 2 or 1+2)", channel)
	}
	var targets []string
	for _, ch := range channels {
		for _, c := range comps {
			targets = append(targets, fmt.Sprintf("%s-%sch", c, ch))
		}
	}
	return targets, nil
}

func cmdGetData(ctx context.Context, cfg Config, args []string) (int, error) {
	fs := flag.NewFlagSet("get-data", flag.ContinueOnError)
	dest := fs.String("d", cfg.DataDir, "directory where the data files should be stored")
	channel := fs.String("c", "1+2", "audio-only (1), audio and lx (2), or both (1+2)")
	remote := fs.String("r", cfg.Remote, "URL of the remote server to fetch data from")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if fs.NArg() != 1 {
		return 0, errors.New("get-data requires exactly one component argument (all, raw or chopped)")
	}
	targets, err := expandTargets(fs.Arg(0), *channel, "raw", "chopped")
	if err != nil {
		return 0, err
	}
	return fetchTargets(ctx, cfg, *remote, *dest, targets)
}

func cmdGetMeta(ctx context.Context, cfg Config, args []string) (int, error) {
	fs := flag.NewFlagSet("get-meta", flag.ContinueOnError)
	path := fs.String("p", cfg.DataDir, "directory where the data files should be stored")
	remote := fs.String("r", cfg.Remote, "URL of the remote server to fetch data from")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	return fetchTargets(ctx, cfg, *remote, *path, []string{"meta"})
}

// fetchTargets crawls each remote target directory and downloads every
// discovered file into the mirrored local tree. Index and item failures are
// reported per entry; only interruption or configuration errors abort.
func fetchTargets(ctx context.Context, cfg Config, remote, dest string, targets []string) (int, error) {
	remoteRoot, err := validateRemote(remote)
	if err != nil {
		return 0, err
	}
	if info, err := os.Stat(dest); err != nil || !info.IsDir() {
		return 0, fmt.Errorf("%w: destination %s is not a directory", errBadPath, dest)
	}
	fmt.Printf("Assets to be downloaded: %s\n", strings.Join(targets, ", "))
	fmt.Printf("Destination directory: %s\n", dest)

	f := newFetcher(cfg.BandwidthLimit)
	crawler := NewCrawler(f.client, nil)
	totalFailed := 0
	for _, target := range targets {
		targetRoot := remoteRoot + target + "/"
		fmt.Printf("Fetching files from remote: %s\n", targetRoot)

		result, err := crawler.Crawl(ctx, targetRoot)
		if err != nil {
			reportFailedDirs(result.FailedDirs)
			return totalFailed, errInterrupted
		}
		fmt.Printf("%d files to fetch\n", len(result.Files))
		reportFailedDirs(result.FailedDirs)
		totalFailed += len(result.FailedDirs)

		items := make([]WorkItem, 0, len(result.Files))
		for _, fileURL := range result.Files {
			items = append(items, WorkItem{
				Key:    fileURL,
				Source: fileURL,
				Dest:   remoteDest(targetRoot, fileURL, filepath.Join(dest, target)),
			})
		}
		bar := newProgressBar(len(items), "Downloading files")
		outcome, err := runBatch(ctx, items, f.download, cfg.DownloadConcurrency,
			func(done, total int) { _ = bar.Set(done) })
		_ = bar.Finish()
		reportFailures(outcome.Failed)
		totalFailed += len(outcome.Failed)
		if err != nil {
			return totalFailed, err
		}
	}
	return totalFailed, nil
}

func cmdChopData(ctx context.Context, cfg Config, args []string) (int, error) {
	fs := flag.NewFlagSet("chop-data", flag.ContinueOnError)
	path := fs.String("p", cfg.DataDir, "directory where the data files are stored")
	channel := fs.String("c", "1+2", "audio-only (1), audio and lx (2), or both (1+2)")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	targets, err := expandTargets("raw", *channel, "raw")
	if err != nil {
		return 0, err
	}
	fmt.Printf("Chopping raw audio for: %s\n", strings.Join(targets, ", "))
	fmt.Printf("Data directory: %s\n", *path)

	chopper := newChopper()
	totalFailed := 0
	for _, target := range targets {
		sourceDir := filepath.Join(*path, target)
		destDir := filepath.Join(*path, strings.Replace(target, "raw", "chopped", 1))
		pairs, err := enumerateByDir(sourceDir, destDir, *path, []string{".wav"})
		if err != nil {
			if errors.Is(err, errBadPath) {
				fmt.Fprintf(os.Stderr, "ERROR: the directory %s doesn't exist\n", sourceDir)
				continue
			}
			return totalFailed, err
		}
		items := pairsToItems(pairs)
		bar := newProgressBar(len(items), "Chopping files")
		outcome, err := runBatch(ctx, items, func(ctx context.Context, item WorkItem) error {
			annotation := strings.TrimSuffix(item.Source, ".wav") + ".txt"
			return chopper.Chop(ctx, item.Source, annotation, filepath.Dir(item.Dest))
		}, cfg.ChopWorkers, func(done, total int) { _ = bar.Set(done) })
		_ = bar.Finish()
		reportFailures(outcome.Failed)
		totalFailed += len(outcome.Failed)
		if err != nil {
			return totalFailed, err
		}
	}
	return totalFailed, nil
}

func cmdMakeMono(ctx context.Context, cfg Config, args []string) (int, error) {
	fs := flag.NewFlagSet("make-mono", flag.ContinueOnError)
	path := fs.String("p", cfg.DataDir, "directory where the data files are stored")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if fs.NArg() != 1 {
		return 0, errors.New("make-mono requires exactly one component argument (all, raw or chopped)")
	}
	targets, err := expandTargets(fs.Arg(0), "2", "raw", "chopped")
	if err != nil {
		return 0, err
	}
	fmt.Printf("Assets to be monoised: %s\n", strings.Join(targets, ", "))
	fmt.Printf("Data directory: %s\n", *path)

	totalFailed := 0
	for _, target := range targets {
		sourceDir := filepath.Join(*path, target)
		destDir := filepath.Join(*path, strings.Replace(target, "-2ch", "-1ch", 1))

		audio, err := enumerateByDir(sourceDir, destDir, "", []string{".wav"})
		if err != nil {
			if errors.Is(err, errBadPath) {
				fmt.Fprintf(os.Stderr, "ERROR: the directory %s doesn't exist\n", sourceDir)
				continue
			}
			return totalFailed, err
		}
		items := pairsToItems(audio)
		bar := newProgressBar(len(items), "Monoising files")
		outcome, err := runBatch(ctx, items, func(ctx context.Context, item WorkItem) error {
			return extractFirstChannel(item)
		}, cfg.MonoWorkers, func(done, total int) { _ = bar.Set(done) })
		_ = bar.Finish()
		reportFailures(outcome.Failed)
		totalFailed += len(outcome.Failed)
		if err != nil {
			return totalFailed, err
		}

		// Mirror annotation files alongside the extracted audio.
		n, err := copyAnnotations(ctx, cfg, sourceDir, destDir)
		totalFailed += n
		if err != nil {
			return totalFailed, err
		}
	}
	return totalFailed, nil
}

// copyAnnotations mirrors .txt, .TextGrid and .lab files from a 2ch tree
// into the matching 1ch tree.
func copyAnnotations(ctx context.Context, cfg Config, sourceDir, destDir string) (int, error) {
	pairs, err := enumerateByDir(sourceDir, destDir, "", []string{".txt", ".TextGrid", ".lab"})
	if err != nil {
		return 0, err
	}
	items := pairsToItems(pairs)
	if len(items) == 0 {
		return 0, nil
	}
	bar := newProgressBar(len(items), "Copying annotations")
	outcome, err := runBatch(ctx, items, func(ctx context.Context, item WorkItem) error {
		return copyFile(item.Source, item.Dest)
	}, cfg.MonoWorkers, func(done, total int) { _ = bar.Set(done) })
	_ = bar.Finish()
	reportFailures(outcome.Failed)
	return len(outcome.Failed), err
}

func cmdMakeLabels(ctx context.Context, cfg Config, args []string) (int, error) {
	fs := flag.NewFlagSet("make-labels", flag.ContinueOnError)
	path := fs.String("p", cfg.DataDir, "directory where the data files are stored")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	stimuli, err := readStimuli(*path)
	if err != nil {
		return 0, err
	}
	fmt.Printf("Making labels for %d stimuli\n", len(stimuli))
	fmt.Printf("Data directory: %s\n", *path)
	if _, err := makeLabelFiles(*path, stimuli); err != nil {
		return 0, err
	}

	labelDir := filepath.Join(*path, "meta", "labels")
	totalFailed := 0
	for _, component := range []string{"chopped-1ch", "chopped-2ch"} {
		searchPath := filepath.Join(*path, component)
		if info, err := os.Stat(searchPath); err != nil || !info.IsDir() {
			continue
		}
		items, err := findLabelledRecordings(searchPath, labelDir)
		if err != nil {
			return totalFailed, err
		}
		fmt.Printf("%d files to be labelled in %s\n", len(items), component)
		bar := newProgressBar(len(items), "Adding labels for "+component)
		outcome, err := runBatch(ctx, items, func(ctx context.Context, item WorkItem) error {
			return copyLabel(item)
		}, cfg.MonoWorkers, func(done, total int) { _ = bar.Set(done) })
		_ = bar.Finish()
		reportFailures(outcome.Failed)
		totalFailed += len(outcome.Failed)
		if err != nil {
			return totalFailed, err
		}
	}
	return totalFailed, nil
}
