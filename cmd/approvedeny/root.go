package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ownage/approvedeny-go"
)

const envPrefix = "APPROVEDENY"

// cli carries state shared by every subcommand.
type cli struct {
	v         *viper.Viper
	logger    *slog.Logger
	verbosity int
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:          "approvedeny",
		Short:        "Work with approvedeny check requests",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			c.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: slog.LevelWarn - slog.Level(c.verbosity*4),
			}))
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("api-key", "", "approvedeny API key ($APPROVEDENY_API_KEY)")
	flags.String("base-url", approvedeny.DefaultBaseURL, "approvedeny API base URL ($APPROVEDENY_BASE_URL)")
	flags.Duration("timeout", approvedeny.DefaultTimeout, "HTTP timeout per request ($APPROVEDENY_TIMEOUT)")
	flags.CountVarP(&c.verbosity, "verbose", "v", "Increase logger verbosity (default WarnLevel)")
	for _, name := range []string{"api-key", "base-url", "timeout"} {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}

	cmd.AddCommand(
		c.cmdGetRequest(),
		c.cmdGetResponse(),
		c.cmdCreateRequest(),
		c.cmdSign(),
		c.cmdVerify(),
	)
	return cmd
}

func (c *cli) client() (*approvedeny.Client, error) {
	client, err := approvedeny.New(c.v.GetString("api-key"),
		approvedeny.WithBaseURL(c.v.GetString("base-url")),
		approvedeny.WithHTTPTimeout(c.v.GetDuration("timeout")),
		approvedeny.WithDebugLogging(c.verbosity > 1),
	)
	return client, errors.Wrap(err, "create approvedeny client")
}

// bindLocal binds a command's own flags to the environment. It runs from
// PreRunE so that commands sharing a flag name do not overwrite each other.
func (c *cli) bindLocal(names ...string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		for _, name := range names {
			if err := c.v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
				return errors.Wrapf(err, "bind flag %s", name)
			}
		}
		return nil
	}
}

// payloadSource reads a JSON payload from a flag, a file or stdin.
type payloadSource struct {
	inline string
	file   string
}

func (p *payloadSource) register(fs *pflag.FlagSet) {
	fs.StringVar(&p.inline, "payload", "", "JSON payload")
	fs.StringVar(&p.file, "payload-file", "", "read the JSON payload from a file, - for stdin")
}

// read returns nil when no payload was given.
func (p *payloadSource) read(stdin io.Reader) ([]byte, error) {
	switch {
	case p.inline != "" && p.file != "":
		return nil, errors.New("--payload and --payload-file are mutually exclusive")
	case p.inline != "":
		return []byte(p.inline), nil
	case p.file == "-":
		data, err := io.ReadAll(stdin)
		return data, errors.Wrap(err, "read payload from stdin")
	case p.file != "":
		data, err := os.ReadFile(p.file)
		return data, errors.Wrap(err, "read payload file")
	default:
		return nil, nil
	}
}

func printDocument(w io.Writer, doc approvedeny.Document) error {
	if doc == nil {
		return errors.New("approvedeny returned a response that is not a JSON object")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
