package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vkdumper/pkg/auth"
	"vkdumper/pkg/collect"
	"vkdumper/pkg/config"
	"vkdumper/pkg/dump"
	"vkdumper/pkg/logger"
	"vkdumper/pkg/vkapi"
)

var (
	// Dump command flags
	outputDir   string
	concurrent  int
	rateLimit   int
	accountName string
	tokenFlag   string
	statBeg     string
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <owner>",
	Short: "Archive one community's content and files",
	Long: `Archive the content of one community. The owner is either the numeric
community id or a screen name that will be resolved through the API.

An access token is required and is looked up in this order: the --token flag,
the configuration, the stored account (see 'vkdumper auth login') and the
VKDUMP_ACCESS_TOKEN environment variable.`,
	Example: `  # Archive a community by numeric id
  vkdumper dump 123456

  # Archive by screen name into a specific directory
  vkdumper dump mycommunity --output /srv/archive

  # Include visitor statistics starting from a date
  vkdumper dump 123456 --stat-beg 01/01/2020`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base directory for the archive (default: current directory)")
	dumpCmd.Flags().IntVar(&concurrent, "concurrent", 8, "number of concurrent file downloads")
	dumpCmd.Flags().IntVar(&rateLimit, "rate-limit", 3, "API requests per second")
	dumpCmd.Flags().StringVarP(&accountName, "account", "a", auth.DefaultAccount, "use specific stored account")
	dumpCmd.Flags().StringVar(&tokenFlag, "token", "", "VK API access token")
	dumpCmd.Flags().StringVar(&statBeg, "stat-beg", "", "date (DD/MM/YYYY) the statistics dump starts at; statistics are skipped without it")
}

func runDump(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if concurrent != 8 {
		flags["concurrent"] = concurrent
	}
	if rateLimit != 3 {
		flags["rate-limit"] = rateLimit
	}
	if tokenFlag != "" {
		flags["token"] = tokenFlag
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.GetLogger()
	if verbose {
		log.Info("verbose mode is enabled")
	}

	if cfg.VK.AccessToken == "" {
		token, err := resolveToken(accountName)
		if err != nil {
			return err
		}
		cfg.VK.AccessToken = token
	}

	var statFrom int64
	if statBeg != "" {
		t, err := time.Parse("02/01/2006", statBeg)
		if err != nil {
			return fmt.Errorf("failed to read the statistics start date, use --stat-beg DD/MM/YYYY: %w", err)
		}
		statFrom = t.Unix()
	}

	// An interrupt is a clean, user requested stop; everything already on
	// disk stays there.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		log.Info("stopped by interrupt")
		os.Exit(0)
	}()

	start := time.Now()
	defer func() {
		log.WithField("elapsed", time.Since(start).String()).Info("done")
	}()

	client := vkapi.NewClient(cfg, log)

	ownerID, err := resolveOwnerID(client, strings.TrimSpace(args[0]))
	if err != nil {
		if vkapi.IsAuthError(err) {
			return fmt.Errorf("authorization failed: %w", err)
		}
		return fmt.Errorf("failed to resolve owner: %w", err)
	}
	log.WithField("owner_id", ownerID).Info("starting archive run")

	dumper := dump.New(ownerID, cfg.Output.BaseDirectory, client, statFrom, log)
	if err := dumper.Run(); err != nil {
		return err
	}

	collector := collect.New(ownerID, cfg.Output.BaseDirectory, client,
		cfg.Download.ConcurrentDownloads, log)
	sweeps := []struct {
		name string
		run  func() error
	}{
		{"banner", collector.DownloadBanner},
		{"attachments", collector.DownloadAttachments},
		{"photos", collector.DownloadPhotos},
		{"docs", collector.DownloadDocs},
	}
	for _, sweep := range sweeps {
		if err := sweep.run(); err != nil {
			log.WarnWithFields("collection sweep failed", map[string]interface{}{
				"sweep": sweep.name,
				"error": err.Error(),
			})
		}
	}
	return nil
}

// resolveToken finds an access token in the stored accounts or the
// environment
func resolveToken(account string) (string, error) {
	manager, err := auth.NewManager()
	if err != nil {
		return "", fmt.Errorf("failed to open token store: %w", err)
	}
	stored, err := manager.Retrieve(account)
	if err != nil {
		return "", fmt.Errorf("no access token: use --token, 'vkdumper auth login' or VKDUMP_ACCESS_TOKEN")
	}
	return stored.AccessToken, nil
}

// resolveOwnerID turns the owner argument into the negative numeric id the
// group methods expect. Screen names go through utils.resolveScreenName.
func resolveOwnerID(client *vkapi.Client, owner string) (int, error) {
	if id, err := strconv.Atoi(owner); err == nil {
		return -int(math.Abs(float64(id))), nil
	}

	payload, err := client.Call("utils.resolveScreenName", vkapi.Params{"screen_name": owner})
	if err != nil {
		return 0, err
	}
	object, ok := payload.(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("screen name %q did not resolve", owner)
	}
	id, ok := object["object_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("screen name %q did not resolve", owner)
	}
	return -int(math.Abs(id)), nil
}
