package commands

import (
	"errors"
	"os"
	"strings"
	"uicrawler/internal/crawler"
	"uicrawler/lib/configutil"
	"uicrawler/lib/transform"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const ConfigFile = "uicrawler.json5"

var settings = viper.New()

// loadSettings layers the sources below the command line flags: the
// environment, then .env, then the json5 config file.
func loadSettings() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	file, err := configutil.ReadConfig[map[string]any](ConfigFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	normalized := make(map[string]any, len(file))
	for key, value := range file {
		normalized[strings.ReplaceAll(strings.ToLower(key), "_", "-")] = value
	}
	return settings.MergeConfigMap(normalized)
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func crawlerConfig() crawler.Config {
	cfg := crawler.Config{
		Email:      settings.GetString("email"),
		Password:   settings.GetString("password"),
		BaseURL:    settings.GetString("base-url"),
		Output:     settings.GetString("output"),
		Languages:  crawler.ParseLanguages(settings.GetString("languages")),
		Components: settings.GetString("components"),
		Count:      settings.GetInt("count"),

		ForceUpdate:    settings.GetBool("forceupdate"),
		BuildIndex:     settings.GetBool("buildindex"),
		Templates:      settings.GetBool("templates"),
		LanguageSwitch: settings.GetBool("language-switch"),

		Transformers: transform.ParseNames(settings.GetString("transformers")),
		Transform: transform.Options{
			ChangeColorTo:     settings.GetString("changecolor-to"),
			ChangeLogoURL:     settings.GetString("changelogo-url"),
			TailwindCSS:       settings.GetString("addtailwindcss-url"),
			ClassPrefix:       settings.GetString("prefixclasses-prefix"),
			StripAlpineOutput: settings.GetString("stripalpine-output"),
			ReactOutput:       settings.GetString("convertreact-output"),
			VueOutput:         settings.GetString("vue-output"),
		},

		AlternateHosts:    splitList(settings.GetString("alternate-hosts")),
		AlternatePrefixes: splitList(settings.GetString("alternate-prefixes")),
		CloudflareBypass:  settings.GetBool("cloudflare-bypass"),
	}
	if settings.GetBool("debug") {
		cfg.DumpDir = settings.GetString("dump-dir")
	}
	return cfg
}
