package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/Akuli/import-that/cache"
	"github.com/Akuli/import-that/codec"
	"github.com/Akuli/import-that/host"
)

// Execute runs the importthat CLI with the given version string.
// Import rewriters via blank imports before calling this function
// so their codecs register via init().
func Execute(version string) {
	if err := New(version).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorLabel(os.Stderr), err)
		os.Exit(1)
	}
}

// New returns the command tree.
func New(version string) *cli.Command {
	return &cli.Command{
		Name:    "importthat",
		Usage:   "Run source files through registered source-transform codecs",
		Version: version,
		// Allow `importthat file.py` as shorthand for `importthat run file.py`
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 0 && isFile(cmd.Args().First()) {
				return runFile(cmd, cmd.Args().First())
			}
			return cli.DefaultShowRootCommandHelp(cmd)
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Decode and execute a file",
				ArgsUsage: "<file>",
				Flags:     decodeFlags(),
				Action:    runAction,
			},
			{
				Name:      "emit",
				Usage:     "Print the decoded source of a file",
				ArgsUsage: "<file>",
				Flags: append(decodeFlags(), &cli.StringFlag{
					Name:    "codec",
					Aliases: []string{"c"},
					Usage:   "Decode with this codec instead of the coding declaration",
				}),
				Action: emitAction,
			},
			{
				Name:      "encode",
				Usage:     "Run the encode direction of a codec over a file",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "codec",
						Aliases:  []string{"c"},
						Usage:    "Codec to encode with",
						Required: true,
					},
					errorsFlag(),
				},
				Action: encodeAction,
			},
			{
				Name:   "codecs",
				Usage:  "List registered codecs",
				Action: codecsAction,
			},
			{
				Name:  "cache",
				Usage: "Manage the decoded source cache",
				Commands: []*cli.Command{
					{
						Name:   "clean",
						Usage:  "Remove every cached entry",
						Action: cleanAction,
					},
				},
			},
		},
	}
}

func errorsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "errors",
		Aliases: []string{"e"},
		Usage:   "Decode error policy: strict, replace or ignore",
		Value:   string(codec.Strict),
	}
}

func decodeFlags() []cli.Flag {
	return []cli.Flag{
		errorsFlag(),
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Do not read or write the decoded source cache",
		},
	}
}

// newRuntime builds a host runtime from the decode flags of cmd.
func newRuntime(cmd *cli.Command) (*host.Runtime, error) {
	policy, err := codec.ParsePolicy(cmd.String("errors"))
	if err != nil {
		return nil, err
	}
	opts := []host.Option{host.WithPolicy(policy), host.WithOutput(cmd.Root().Writer)}
	if !cmd.Bool("no-cache") {
		store, err := cache.Open()
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		opts = append(opts, host.WithCache(store))
	}
	return host.New(opts...), nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: importthat run <file>")
	}
	return runFile(cmd, cmd.Args().First())
}

func runFile(cmd *cli.Command, path string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	_, err = rt.Run(path)
	return err
}

func emitAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: importthat emit [--codec name] <file>")
	}
	path := cmd.Args().First()
	var text string
	if name := cmd.String("codec"); name != "" {
		policy, err := codec.ParsePolicy(cmd.String("errors"))
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		text, _, err = codec.Default.DecodeWith(name, raw, policy)
		if err != nil {
			return &host.LoadError{File: path, Err: err}
		}
	} else {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		src, err := rt.Load(path)
		if err != nil {
			return err
		}
		text = src.Text
	}
	fmt.Fprint(cmd.Root().Writer, text)
	return nil
}

func encodeAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: importthat encode --codec name <file>")
	}
	policy, err := codec.ParsePolicy(cmd.String("errors"))
	if err != nil {
		return err
	}
	path := cmd.Args().First()
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := codec.Default.Encode(cmd.String("codec"), string(raw), policy)
	if err != nil {
		return err
	}
	_, err = cmd.Root().Writer.Write(out)
	return err
}

func codecsAction(ctx context.Context, cmd *cli.Command) error {
	w := cmd.Root().Writer
	for _, name := range codec.Default.Names() {
		c, _ := codec.Default.Lookup(name)
		fmt.Fprintf(w, "%-16s %s\n", name, c.Description)
	}
	return nil
}

func cleanAction(ctx context.Context, cmd *cli.Command) error {
	store, err := cache.Open()
	if err != nil {
		return err
	}
	n, err := store.Clean()
	if err != nil {
		return fmt.Errorf("cleaning %s: %w", store.Dir, err)
	}
	fmt.Fprintf(cmd.Root().Writer, "removed %d cached entries from %s\n", n, store.Dir)
	return nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// errorLabel is "error:", in red when w is a terminal and NO_COLOR is unset.
func errorLabel(w io.Writer) string {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(f.Fd())) {
		return "error:"
	}
	return "\033[31merror:\033[0m"
}
