// Package memoryctl implements the memoryctl command: a thin shell over a
// memory.Manager built from the environment configuration.
package memoryctl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/jnorthrup/redline/internal/config"
	"github.com/jnorthrup/redline/internal/stores"
	"github.com/jnorthrup/redline/internal/utils"
	"github.com/jnorthrup/redline/providers/memory"
	"github.com/jnorthrup/redline/providers/observability/slogobs"
	"github.com/jnorthrup/redline/providers/storage"
)

// Usage is printed for -h and unknown commands.
const Usage = `usage: memoryctl [flags] <command> [args]

commands:
  add <message>...   append messages to the stored conversation history
  history            print the stored conversation history
  clear              clear the conversation history
  set <key> <json>   save a JSON value under key in persistent storage
  get <key>          print the persistent value stored under key
  transcript         append stdin lines to the stored history and print the result
`

// ErrUsage wraps every command-line mistake.
var ErrUsage = errors.New("memoryctl: usage")

// Options are the parsed command line.
type Options struct {
	Backend  string
	BasePath string
	Mirror   string
	DotEnv   string
	Verbose  bool

	Command string
	Args    []string
}

// ParseArgs parses flags and the command. Flags override the environment.
func ParseArgs(fs *flag.FlagSet, args []string) (Options, error) {
	var opts Options
	fs.StringVar(&opts.Backend, "backend", "", "storage backend: file, memory, postgres, redis, s3, sqlite (env REDLINE_BACKEND)")
	fs.StringVar(&opts.BasePath, "base", "", "base path for the file and sqlite backends (env REDLINE_BASE_PATH)")
	fs.StringVar(&opts.Mirror, "mirror", "", "history mirror policy: async or sync (env REDLINE_MIRROR_MODE)")
	fs.StringVar(&opts.DotEnv, "env", ".env", "dotenv file to load before reading the environment")
	fs.BoolVar(&opts.Verbose, "v", false, "log every storage and mirror operation to stderr")
	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return Options{}, fmt.Errorf("%w: missing command", ErrUsage)
	}
	opts.Command, opts.Args = rest[0], rest[1:]
	return opts, nil
}

// LoadConfig reads the environment and applies the flag overrides.
func LoadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.DotEnv)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Backend != "" {
		cfg.Backend = config.Backend(opts.Backend)
	}
	if opts.BasePath != "" {
		cfg.BasePath = opts.BasePath
	}
	if opts.Mirror != "" {
		cfg.MirrorMode = opts.Mirror
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// Run executes one command against the configured backend.
func Run(ctx context.Context, opts Options, in io.Reader, out, errOut io.Writer) (err error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	obsOpts := []slogobs.Option{slogobs.WithOutput(errOut)}
	if opts.Verbose {
		obsOpts = append(obsOpts, slogobs.WithLevel(slogobs.LevelTrace))
	}
	observer := slogobs.New(obsOpts...)

	mgr, st, err := stores.NewManager(ctx, cfg, observer)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, mgr.Close(ctx), st.Close())
	}()

	return dispatch(ctx, mgr, opts, in, out)
}

func dispatch(ctx context.Context, mgr *memory.Manager, opts Options, in io.Reader, out io.Writer) error {
	switch opts.Command {
	case "add":
		if len(opts.Args) == 0 {
			return fmt.Errorf("%w: add needs at least one message", ErrUsage)
		}
		if _, err := mgr.ResumeHistory(ctx); err != nil {
			return err
		}
		for _, message := range opts.Args {
			if err := mgr.AddToHistory(ctx, message); err != nil {
				return err
			}
		}
		return nil

	case "history":
		history, err := mgr.GetConversationHistory(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, utils.JSONToString(history, true))
		return err

	case "clear":
		return mgr.ClearHistory(ctx)

	case "set":
		if len(opts.Args) != 2 {
			return fmt.Errorf("%w: set needs <key> <json>", ErrUsage)
		}
		raw := json.RawMessage(opts.Args[1])
		if !json.Valid(raw) {
			return fmt.Errorf("%w: value for %q is not valid JSON", ErrUsage, opts.Args[0])
		}
		return mgr.SavePersistentData(ctx, opts.Args[0], raw)

	case "get":
		if len(opts.Args) != 1 {
			return fmt.Errorf("%w: get needs <key>", ErrUsage)
		}
		result, err := mgr.LoadPersistentData(ctx, opts.Args[0])
		if err != nil {
			return err
		}
		return printResult(out, result)

	case "transcript":
		if _, err := mgr.ResumeHistory(ctx); err != nil {
			return err
		}
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r")
			if line == "" {
				continue
			}
			if err := mgr.AddToHistory(ctx, line); err != nil {
				return err
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("memoryctl: read stdin: %w", err)
		}
		_, err := fmt.Fprintln(out, utils.JSONToString(mgr.Transcript(), true))
		return err

	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, opts.Command)
	}
}

func printResult(out io.Writer, result storage.Result) error {
	var err error
	switch result.Status {
	case storage.StatusFound:
		_, err = fmt.Fprintln(out, utils.JSONToString(result.Data, true))
	case storage.StatusCorrupt:
		_, err = fmt.Fprintf(out, "%s: corrupt (%v)\n", result.Key, result.Cause)
	default:
		_, err = fmt.Fprintf(out, "%s: absent\n", result.Key)
	}
	return err
}
