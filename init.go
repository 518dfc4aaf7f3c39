package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/eqfields/internal/config"
)

type initOptions struct {
	dryRun bool
	force  bool
}

// newInitCommand implements `eqfields init`, which writes a default config
// file.
func newInitCommand(stdout, stderr io.Writer) *cobra.Command {
	o := &initOptions{}
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default " + config.DefaultFile,
		Long: `Write a commented default configuration file. path defaults to
./` + config.DefaultFile + `, or to ` + config.DefaultFile + ` inside path when path is a directory.
An existing file is left alone unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(o, args, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "print what would be written without modifying the file")
	cmd.Flags().BoolVar(&o.force, "force", false, "overwrite an existing file")
	return cmd
}

func runInit(o *initOptions, args []string, stdout, stderr io.Writer) error {
	content, err := generateConfig()
	if err != nil {
		return err
	}

	if o.dryRun {
		_, _ = fmt.Fprint(stdout, content)
		return nil
	}

	path := config.DefaultFile
	if len(args) > 0 {
		path = args[0]
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			path = filepath.Join(path, config.DefaultFile)
		}
	}

	if _, err := os.Stat(path); err == nil && !o.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote default config to %s\n", path)
	return nil
}

const configHeader = `# eqfields configuration.
#
# format:      output format, one of text, json or toon
# workers:     concurrent workers, 0 means one per CPU
# maxFileSize: skip source files larger than this many bytes
# exclude:     gitignore-style patterns of paths to skip
# ruleID:      name accepted by @SuppressWarnings to silence findings
#
# Command-line flags override these values.
`

// generateConfig returns the default configuration with a comment header.
func generateConfig() (string, error) {
	data, err := config.Default().Marshal()
	if err != nil {
		return "", fmt.Errorf("rendering config: %w", err)
	}
	return configHeader + string(data), nil
}
