package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"

	restapi "github.com/hedisam/brunosync/client/api/rest"
	"github.com/hedisam/brunosync/lib/ipc"
	"github.com/hedisam/brunosync/lib/wal"
)

type Options struct {
	DataDir string
	Socket  string
	Verbose bool
}

type app struct {
	opts   Options
	logger *logrus.Logger
	out    io.Writer
	in     io.Reader
}

func main() {
	a := &app{
		logger: logrus.New(),
		out:    os.Stdout,
		in:     os.Stdin,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "brunosync",
		Short:         "Talk to the brunosync daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if a.opts.Verbose {
				a.logger.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&a.opts.DataDir, "data-dir", ipc.DefaultDataDir(), "Daemon data directory")
	root.PersistentFlags().StringVar(&a.opts.Socket, "socket", "", "Daemon socket (default <data-dir>/brunosync.sock)")
	root.PersistentFlags().BoolVarP(&a.opts.Verbose, "verbose", "v", false, "Verbose output")

	root.AddCommand(
		a.workspaceCmd(),
		a.browseCmd(),
		a.convertCmd(),
		a.collectionsCmd(),
		a.diagnosticsCmd(),
	)
	return root
}

func (a *app) client() (*restapi.Client, error) {
	key, err := ipc.ReadKey(ipc.KeyPath(a.opts.DataDir))
	if err != nil {
		return nil, fmt.Errorf("is the daemon running? %w", err)
	}
	socket := a.opts.Socket
	if socket == "" {
		socket = ipc.SocketPath(a.opts.DataDir)
	}
	return restapi.NewClient(a.logger, socket, key), nil
}

// run builds a client and hands it to f. Whatever f returns is printed as indented JSON.
func (a *app) run(f func(ctx context.Context, c *restapi.Client, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := a.client()
		if err != nil {
			return err
		}
		result, err := f(cmd.Context(), c, args)
		if err != nil {
			return err
		}
		if result == nil {
			return nil
		}
		return a.print(result)
	}
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) workspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Create, open and edit workspaces",
	}

	var folderName, location string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a workspace in a new or empty folder",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *restapi.Client, args []string) (any, error) {
			return c.CreateWorkspace(ctx, args[0], folderName, location)
		}),
	}
	create.Flags().StringVar(&folderName, "folder", "", "Folder name (default: the sanitized workspace name)")
	create.Flags().StringVar(&location, "location", ".", "Directory to create the workspace folder in")

	open := &cobra.Command{
		Use:   "open <path>",
		Short: "Open a workspace and watch its collections",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *restapi.Client, args []string) (any, error) {
			return c.OpenWorkspace(ctx, args[0])
		}),
	}

	collections := &cobra.Command{
		Use:   "collections <path>",
		Short: "List the collection refs of a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *restapi.Client, args []string) (any, error) {
			return c.WorkspaceCollections(ctx, args[0])
		}),
	}

	var ref restapi.CollectionRef
	add := &cobra.Command{
		Use:   "add <path>",
		Short: "Add a collection ref to a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *restapi.Client, args []string) (any, error) {
			return c.AddCollection(ctx, args[0], ref)
		}),
	}
	add.Flags().StringVar(&ref.Name, "name", "", "Collection name")
	add.Flags().StringVar(&ref.Type, "type", "local", "Ref type: local, workspace or remote")
	add.Flags().StringVar(&ref.Location, "location", "", "Collection location")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("location")

	recent := &cobra.Command{
		Use:   "recent",
		Short: "List recently opened workspaces",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, c *restapi.Client, _ []string) (any, error) {
			return c.LastOpened(ctx)
		}),
	}

	var docsFile string
	docs := &cobra.Command{
		Use:   "docs <path>",
		Short: "Replace the docs of a workspace with the content of a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *restapi.Client, args []string) (any, error) {
			data, err := a.readInput(docsFile)
			if err != nil {
				return nil, err
			}
			saved, err := c.SaveDocs(ctx, args[0], string(data))
			if err != nil {
				return nil, err
			}
			return map[string]string{"docs": saved}, nil
		}),
	}
	docs.Flags().StringVarP(&docsFile, "file", "f", "-", "File to read docs from, - for stdin")

	cmd.AddCommand(create, open, collections, add, recent, docs)
	return cmd
}

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Pick a directory",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, c *restapi.Client, _ []string) (any, error) {
			fmt.Fprint(a.out, "Directory: ")
			hint, err := bufio.NewReader(a.in).ReadString('\n')
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("read directory: %w", err)
			}
			path, ok, err := c.Browse(ctx, strings.TrimSpace(hint))
			if err != nil {
				return nil, err
			}
			if !ok {
				fmt.Fprintln(a.out, "No directory selected")
				return nil, nil
			}
			return map[string]string{"path": path}, nil
		}),
	}
}

func (a *app) convertCmd() *cobra.Command {
	var filename string
	cmd := &cobra.Command{
		Use:   "convert <request|collection|environment> <decode|encode> <file>",
		Short: "Convert a file between its text format and its JSON model",
		Long: "decode reads the text format and prints the model. encode reads a JSON model, comments allowed, " +
			"and prints the text.",
		Args: cobra.ExactArgs(3),
		RunE: a.run(func(ctx context.Context, c *restapi.Client, args []string) (any, error) {
			kind, op := args[0], args[1]
			raw, err := a.readInput(args[2])
			if err != nil {
				return nil, err
			}

			var data json.RawMessage
			switch op {
			case "encode":
				data = jsonc.ToJSON(raw)
			default:
				data, err = json.Marshal(string(raw))
				if err != nil {
					return nil, fmt.Errorf("json encode text: %w", err)
				}
			}

			name := filename
			if name == "" && args[2] != "-" {
				name = args[2]
			}
			reply, err := c.Convert(ctx, kind, op, data, name)
			if err != nil {
				return nil, err
			}
			if reply.Failed() {
				return nil, fmt.Errorf("%s error: %s", reply.ErrorType, reply.Error)
			}

			var text string
			if op == "encode" && json.Unmarshal(reply.Value, &text) == nil {
				fmt.Fprint(a.out, text)
				return nil, nil
			}
			return reply.Value, nil
		}),
	}
	cmd.Flags().StringVar(&filename, "filename", "", "File name used for naming requests without a meta name")
	return cmd
}

func (a *app) collectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Inspect watched collections",
		RunE: a.run(func(ctx context.Context, c *restapi.Client, _ []string) (any, error) {
			return c.Collections(ctx)
		}),
	}

	entries := &cobra.Command{
		Use:   "entries <uid>",
		Short: "List the entries the watcher has loaded for a collection",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *restapi.Client, args []string) (any, error) {
			return c.Entries(ctx, args[0])
		}),
	}

	save := &cobra.Command{
		Use:   "save <uid> <path> <model-file>",
		Short: "Write a request model to a file of the collection",
		Args:  cobra.ExactArgs(3),
		RunE: a.run(func(ctx context.Context, c *restapi.Client, args []string) (any, error) {
			raw, err := a.readInput(args[2])
			if err != nil {
				return nil, err
			}
			return c.SaveItem(ctx, args[0], args[1], jsonc.ToJSON(raw))
		}),
	}

	cmd.AddCommand(entries, save)
	return cmd
}

func (a *app) diagnosticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Inspect the daemon's diagnostics",
	}

	for section, short := range map[string]string{
		"watchers":  "List active watchers",
		"resources": "Show the latest resource sample",
		"stats":     "Show diagnostic counters",
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   section,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: a.run(func(ctx context.Context, c *restapi.Client, _ []string) (any, error) {
				return c.Diagnostics(ctx, section)
			}),
		})
	}

	var unfiltered bool
	records := &cobra.Command{
		Use:   "records <operations|events|errors>",
		Short: "List recorded diagnostics, newest last",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *restapi.Client, args []string) (any, error) {
			return c.Records(ctx, args[0], unfiltered)
		}),
	}
	records.Flags().BoolVar(&unfiltered, "unfiltered", false, "Ignore the category filters")

	clearCmd := &cobra.Command{
		Use:   "clear <operations|events|errors>",
		Short: "Drop recorded diagnostics of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *restapi.Client, args []string) (any, error) {
			return nil, c.ClearRecords(ctx, args[0])
		}),
	}

	var toggle string
	var all, none bool
	filters := &cobra.Command{
		Use:   "filters <operations|events|errors>",
		Short: "Show or change the filters of a category",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, c *restapi.Client, args []string) (any, error) {
			switch {
			case all || none:
				return c.SetFilter(ctx, args[0], "", &all)
			case toggle != "":
				return c.SetFilter(ctx, args[0], toggle, nil)
			}
			return c.Filters(ctx, args[0])
		}),
	}
	filters.Flags().StringVar(&toggle, "toggle", "", "Filter key to toggle")
	filters.Flags().BoolVar(&all, "all", false, "Enable every filter of the category")
	filters.Flags().BoolVar(&none, "none", false, "Disable every filter of the category")
	filters.MarkFlagsMutuallyExclusive("toggle", "all", "none")

	var kinds []string
	var follow bool
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print the daemon's diagnostics journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.tail(cmd.Context(), kinds, follow)
		},
	}
	tail.Flags().StringSliceVar(&kinds, "kind", nil, "Only print entries of these kinds")
	tail.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries")

	cmd.AddCommand(records, clearCmd, filters, tail)
	return cmd
}

// tail reads the journal file directly, so it works while the daemon is down.
func (a *app) tail(ctx context.Context, kinds []string, follow bool) error {
	journal, err := wal.New(a.logger, ipc.JournalPath(a.opts.DataDir))
	if err != nil {
		return err
	}
	defer journal.Close()

	var opts []wal.Option
	if follow {
		opts = append(opts, wal.WithFollow())
	}
	if len(kinds) > 0 {
		opts = append(opts, wal.WithKinds(kinds...))
	}

	for entry := range journal.Consume(ctx, opts...) {
		if entry.Error != "" {
			a.logger.WithField("line", string(entry.ErroredBytes)).Warn("Skipping unreadable journal entry")
			continue
		}
		fmt.Fprintf(a.out, "%s %-16s %s\n", entry.Timestamp.Local().Format("15:04:05.000"), entry.Kind, entry.Record)
	}
	return nil
}

func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(a.in)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
