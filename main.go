package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mmsplayer/mmsplayer/clients"
	cfg "github.com/mmsplayer/mmsplayer/config"
	"github.com/mmsplayer/mmsplayer/host"
	"github.com/mmsplayer/mmsplayer/host/memhost"
	"github.com/mmsplayer/mmsplayer/orchestrator"
)

var (
	configPath string
	verbose    bool

	mmsPath             string
	corpus              string
	outputs             string
	hostURL             string
	useRelativeTime     bool
	ignoreGlossDuration bool
	withoutInflection   bool

	extractData    bool
	withoutFingers bool
	extractPath    string
	reference      string
	trimStart      int
)

var rootCmd = &cobra.Command{
	Use:           "mmsplayer",
	Short:         "Realize MMS timing tables as inflected sign language animation",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var realizeCmd = &cobra.Command{
	Use:   "realize",
	Short: "Inflect and merge the glosses of an MMS table into one timeline",
	Args:  cobra.NoArgs,
	RunE:  runRealize,
}

var renderCmd = &cobra.Command{
	Use:   "render-reference <asset>",
	Short: "Play a recorded sentence on the canonical skeleton without inflection",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "pipeline config YAML (default: config/<CONFIG_ENV>/config.yaml, then config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&hostURL, "host-url", "", "animation host bridge URL (default: in-memory host)")

	realizeCmd.Flags().StringVarP(&mmsPath, "mms", "m", "", "MMS timing table (CSV)")
	realizeCmd.Flags().StringVar(&corpus, "corpus", "", "gloss database root")
	realizeCmd.Flags().StringVarP(&outputs, "outputs", "o", "", "directory for session reports")
	realizeCmd.Flags().BoolVar(&useRelativeTime, "use-relative-time", false, "chain glosses using the duration and transition columns")
	realizeCmd.Flags().BoolVar(&ignoreGlossDuration, "ignore-gloss-duration", false, "keep the original length of every gloss")
	realizeCmd.Flags().BoolVar(&withoutInflection, "without-inflection", false, "merge the glosses without inflecting them")
	realizeCmd.Flags().BoolVar(&extractData, "extract", false, "write evaluation data for the inflected glosses instead of merging")
	realizeCmd.Flags().BoolVar(&withoutFingers, "without-fingers", false, "leave finger joints out of the evaluation data")
	realizeCmd.Flags().StringVar(&extractPath, "extract-path", "", "evaluation data file (default: <outputs>/session_<ts>/evaluation_data.json)")
	realizeCmd.Flags().StringVar(&reference, "reference", "", "recorded sentence asset the evaluation data is compared with")
	realizeCmd.Flags().IntVar(&trimStart, "trim-start", 0, "frames trimmed from the head of the reference recording")
	_ = realizeCmd.MarkFlagRequired("mms")

	rootCmd.AddCommand(realizeCmd, renderCmd)
}

func loadConfig() (*cfg.Root, error) {
	if configPath != "" {
		return cfg.LoadFile(configPath)
	}
	return cfg.Load()
}

// setup loads the config, applies logging and picks the host.
func setup(cmd *cobra.Command) (*cfg.Root, host.Host, error) {
	conf, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("host-url") {
		conf.Host.URL = hostURL
	}
	lvl, err := logrus.ParseLevel(conf.Pipeline.LogLvl)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	if verbose {
		lvl = logrus.DebugLevel
	}
	logrus.SetLevel(lvl)

	if conf.Host.URL != "" {
		return conf, clients.NewHTTP(conf.Host.URL, cfg.DurSeconds(conf.Host.TimeoutSec)), nil
	}
	return conf, memhost.New(), nil
}

func runRealize(cmd *cobra.Command, _ []string) error {
	conf, h, err := setup(cmd)
	if err != nil {
		return err
	}
	// flags override the file only when set
	flags := cmd.Flags()
	if flags.Changed("corpus") {
		conf.Paths.Corpus = corpus
	}
	if flags.Changed("outputs") {
		conf.Paths.Outputs = outputs
	}
	if flags.Changed("use-relative-time") {
		conf.Timing.UseRelativeTime = useRelativeTime
	}
	if flags.Changed("ignore-gloss-duration") {
		conf.Timing.IgnoreGlossDuration = ignoreGlossDuration
	}
	if flags.Changed("without-inflection") {
		conf.Timing.WithoutInflection = withoutInflection
	}
	if flags.Changed("extract") {
		conf.Extract.Enabled = extractData
	}
	if flags.Changed("without-fingers") {
		conf.Extract.WithoutFingers = withoutFingers
	}
	if flags.Changed("extract-path") {
		conf.Extract.Path = extractPath
	}
	if flags.Changed("reference") {
		conf.Extract.Reference = reference
	}
	if flags.Changed("trim-start") {
		conf.Extract.TrimStart = trimStart
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := orchestrator.NewPipeline(conf, h, nil).Run(ctx, mmsPath)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"action":  res.Action,
		"glosses": len(res.Glosses),
		"report":  res.ReportPath,
		"eval":    res.EvaluationPath,
	}).Info("done")
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	conf, h, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := orchestrator.NewPipeline(conf, h, nil).RenderReference(ctx, args[0])
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"action": res.Action, "end": res.Placements[0].Written}).Info("done")
	return nil
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
