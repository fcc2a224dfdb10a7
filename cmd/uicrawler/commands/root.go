package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"uicrawler/internal/crawler"
	"uicrawler/lib/telemetry"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "uicrawler",
	Short: "uicrawler mirrors the components of an authenticated component library to disk.",
	Long: `uicrawler logs into the component library, walks its catalog and writes every
component snippet to <output>/<language>/<category path>/<component>.<ext>.
Runs are incremental, existing files and unchanged assets are left alone.

Every flag can also be set through the environment (--base-url is BASE_URL),
a .env file or uicrawler.json5 in the working directory.`,
	Args: cobra.NoArgs,
	Run:  runCrawl,
}

func init() {
	flags := rootCmd.PersistentFlags()
	registerFlags(flags)
	err := settings.BindPFlags(flags)
	if err != nil {
		panic(err)
	}
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
}

// registerFlags declares every setting, a flag named "base-url" is read from
// BASE_URL in the environment.
func registerFlags(flags *pflag.FlagSet) {
	flags.String("email", "", "Account email.")
	flags.String("password", "", "Account password.")
	flags.String("base-url", crawler.DefaultBaseURL, "Site to crawl.")
	flags.String("output", "./output", "Directory to write components to.")
	flags.String("languages", "html", "Comma separated languages to save: html, react, vue, alpine.")
	flags.String("components", "all", "Comma separated categories to crawl, all for everything.")
	flags.Int("count", 0, "Only crawl the first n catalog pages, 0 for all.")
	flags.Bool("forceupdate", false, "Overwrite components that already exist.")
	flags.Bool("buildindex", false, "Mirror catalog pages and their assets for offline browsing.")
	flags.Bool("templates", false, "Download the template archives.")
	flags.Bool("language-switch", true, "Switch component languages server-side when a page lacks one.")
	flags.String("transformers", "", "Comma separated transformers to run on each preview.")
	flags.String("changecolor-to", "", "Color replacing indigo for changeColor.")
	flags.String("changelogo-url", "", "Logo url for changeLogo.")
	flags.String("addtailwindcss-url", "", "Stylesheet url or <link> markup for addTailwindCss.")
	flags.String("prefixclasses-prefix", "", "Class prefix for prefixClasses.")
	flags.String("stripalpine-output", "", "Directory stripAlpine writes to.")
	flags.String("convertreact-output", "", "Directory convertReact writes to.")
	flags.String("vue-output", "", "Directory convertVue writes to.")
	flags.String("alternate-hosts", "", "Comma separated hosts serving the same catalog.")
	flags.String("alternate-prefixes", "", "Comma separated path prefixes to strip from catalog links.")
	flags.Bool("cloudflare-bypass", false, "Use a browser-like TLS transport.")
	flags.Bool("debug", false, "Enable debug logging and http dumps.")
	flags.String("log-file", "", "Also write logs to this file.")
	flags.String("dump-dir", ".dev/resty", "Directory receiving http dumps in debug mode.")
}

func fatal(message string, err error) {
	slog.Error(message, "err", err)
	os.Exit(1)
}

func runCrawl(cmd *cobra.Command, args []string) {
	err := loadSettings()
	if err != nil {
		fatal("failed to load configuration", err)
	}

	closer, err := telemetry.InitSlog(telemetry.LogOptions{
		Debug: settings.GetBool("debug"),
		File:  settings.GetString("log-file"),
	})
	if err != nil {
		fatal("failed to initialize logging", err)
	}
	defer closer.Close()

	ctx := cmd.Context()
	tel, err := telemetry.SetupFromEnv(ctx, "uicrawler")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("telemetry disabled", "err", err)
	}
	if tel.Enabled() {
		defer shutdownTelemetry(tel)
		if tel.PerfStats {
			telemetry.InstrumentPerfStats(ctx, time.Second)
		}
	}

	err = crawl(ctx, cmd.OutOrStdout(), crawlerConfig())
	if err != nil {
		// deferred flushes are skipped by os.Exit
		shutdownTelemetry(tel)
		closer.Close()
		fatal("crawl failed", err)
	}
}

// crawl runs one crawl and renders its summary, also when the crawl could
// not start.
func crawl(ctx context.Context, out io.Writer, cfg crawler.Config) error {
	c, err := crawler.New(ctx, cfg, nil)
	if err != nil {
		crawler.Summary{}.Render(out)
		return err
	}
	summary, err := c.Run(ctx)
	summary.Render(out)
	return err
}

func shutdownTelemetry(tel telemetry.Telemetry) {
	if !tel.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := tel.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
