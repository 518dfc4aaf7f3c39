// eqfields reports Java class fields that equals() or hashCode() ignore.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/phobologic/eqfields/internal/config"
	"github.com/phobologic/eqfields/internal/discover"
	"github.com/phobologic/eqfields/internal/engine"
	"github.com/phobologic/eqfields/internal/eqhash"
	"github.com/phobologic/eqfields/internal/model"
	"github.com/phobologic/eqfields/internal/parse"
)

var version = "dev"

// findingsExitCode is returned with --exit-code when anything was reported.
const findingsExitCode = 3

type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

type scanOptions struct {
	format      string
	configPath  string
	cachePath   string
	workers     int
	maxFileSize int64
	exitCode    bool
	verbosity   int
	showVersion bool
}

func bindScanFlags(fs *pflag.FlagSet, o *scanOptions) {
	fs.StringVarP(&o.format, "format", "f", "text", "output format: text, json or toon")
	fs.StringVarP(&o.configPath, "config", "c", "", "config file (default <path>/"+config.DefaultFile+")")
	fs.StringVar(&o.cachePath, "cache", "", "cache file path")
	fs.IntVarP(&o.workers, "workers", "j", 0, "concurrent workers (0 means GOMAXPROCS)")
	fs.Int64Var(&o.maxFileSize, "max-file-size", config.DefaultMaxFileSize, "skip files larger than this many bytes")
	fs.BoolVar(&o.exitCode, "exit-code", false, fmt.Sprintf("exit with status %d when findings are reported", findingsExitCode))
	fs.BoolVarP(&o.showVersion, "version", "V", false, "show version and exit")
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	o := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "eqfields [flags] [path]",
		Short: "Report fields not used in equals() and hashCode()",
		Long: `eqfields scans the Java sources under path (default ".") and reports every
instance field that a class's equals() or hashCode() method never reads,
either directly or through a simple getter.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), cmd.Flags(), o, args, stdout, stderr)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	bindScanFlags(cmd.Flags(), o)
	cmd.PersistentFlags().CountVarP(&o.verbosity, "verbose", "v", "increase log verbosity")

	cmd.AddCommand(newInitCommand(stdout, stderr))
	cmd.AddCommand(newDumpCommand(stdout))
	return cmd
}

func runScan(ctx context.Context, flags *pflag.FlagSet, o *scanOptions, args []string, stdout, stderr io.Writer) error {
	if o.showVersion {
		_, _ = fmt.Fprintf(stdout, "eqfields %s\n", version)
		return nil
	}

	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", root)
	}

	cfgPath, cfg, err := loadConfig(flags, o, root)
	if err != nil {
		return err
	}

	log := newLogger(stderr, o.verbosity)

	files, err := discover.Files(root, discover.Options{Exclude: cfg.Excluded})
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no Java files found")
	}

	paths := discover.Paths(files)
	key := newCacheKey(cfg, paths)

	var findings []model.Finding
	if o.cachePath != "" && cacheIsFresh(o.cachePath, cfgPath, root, files) {
		findings, err = readCache(o.cachePath, key)
		if err != nil {
			log.V(1).Info("ignoring cache", "path", o.cachePath, "reason", err.Error())
		}
	}

	if findings == nil {
		findings, err = scan(ctx, root, paths, cfg, log)
		if err != nil {
			return err
		}
		if o.cachePath != "" {
			if err := writeCache(o.cachePath, key, findings); err != nil {
				log.Info("could not write cache", "path", o.cachePath, "reason", err.Error())
			}
		}
	}

	if err := render(stdout, cfg.Format, filepath.Base(root), findings); err != nil {
		return err
	}

	if o.exitCode && len(findings) > 0 {
		return exitError{code: findingsExitCode}
	}
	return nil
}

// loadConfig reads the config file and applies explicitly set flags on top.
func loadConfig(flags *pflag.FlagSet, o *scanOptions, root string) (string, *config.Config, error) {
	path := o.configPath
	if path == "" {
		path = filepath.Join(root, config.DefaultFile)
	} else if _, err := os.Stat(path); err != nil {
		return "", nil, fmt.Errorf("config: %w", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return "", nil, err
	}

	if flags.Changed("format") {
		cfg.Format = o.format
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("max-file-size") {
		cfg.MaxFileSize = o.maxFileSize
	}
	if err := cfg.Validate(); err != nil {
		return "", nil, err
	}
	return path, cfg, nil
}

func scan(ctx context.Context, root string, paths []string, cfg *config.Config, log logr.Logger) ([]model.Finding, error) {
	prog, err := parse.LoadFiles(ctx, root, paths, parse.LoadOptions{
		Workers:     cfg.Workers,
		MaxFileSize: cfg.MaxFileSize,
		Log:         log.WithName("parse"),
	})
	if err != nil {
		return nil, fmt.Errorf("parsing files: %w", err)
	}
	if len(prog.Files()) == 0 {
		return nil, fmt.Errorf("no files could be parsed")
	}

	analyzer := eqhash.New(prog,
		eqhash.WithLogger(log.WithName("eqhash")),
		eqhash.WithRuleID(cfg.RuleID),
	)
	e := engine.New(prog, analyzer,
		engine.WithWorkers(cfg.Workers),
		engine.WithLogger(log.WithName("engine")),
	)
	return e.Run(ctx)
}

func newLogger(w io.Writer, verbosity int) logr.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.Lock(zapcore.AddSync(w)),
		zap.NewAtomicLevelAt(zapcore.Level(-verbosity)),
	)
	return zapr.NewLogger(zap.New(core))
}

// cacheIsFresh reports whether the cache file is newer than every source
// file and the config file. The cached file list is checked by readCache.
func cacheIsFresh(cachePath, cfgPath, root string, files []discover.FileEntry) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	if fi, err := os.Stat(cfgPath); err == nil && !fi.ModTime().Before(cacheMtime) {
		return false
	}

	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(cacheMtime) {
			return false
		}
	}
	return true
}

// cacheKey holds the scan inputs that are not covered by file mtimes.
type cacheKey struct {
	MaxFileSize int64    `json:"maxFileSize"`
	RuleID      string   `json:"ruleID"`
	Files       []string `json:"files"`
}

func newCacheKey(cfg *config.Config, paths []string) cacheKey {
	return cacheKey{MaxFileSize: cfg.MaxFileSize, RuleID: cfg.RuleID, Files: paths}
}

func (k cacheKey) equal(o cacheKey) bool {
	return k.MaxFileSize == o.MaxFileSize && k.RuleID == o.RuleID && slices.Equal(k.Files, o.Files)
}

type cacheFile struct {
	cacheKey
	Findings []model.Finding `json:"findings"`
}

var errStaleCache = errors.New("cache was written for different inputs")

// readCache returns the cached findings if the cache was written for key.
func readCache(path string, key cacheKey) ([]model.Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c cacheFile
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding cache: %w", err)
	}
	if !c.equal(key) {
		return nil, errStaleCache
	}
	if c.Findings == nil {
		c.Findings = []model.Finding{}
	}
	return c.Findings, nil
}

func writeCache(path string, key cacheKey, findings []model.Finding) error {
	if findings == nil {
		findings = []model.Finding{}
	}
	data, err := json.Marshal(cacheFile{cacheKey: key, Findings: findings})
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
