// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Hearth-bridge is the home-network end of the Hearth command channel.
// It subscribes a local webhook to the household's SNS topic, exposes
// the webhook through the router with a port mapping, and dispatches
// the commands that arrive to the configured skills.
//
// On startup:
//  1. Loads configuration (flags over environment over config file).
//  2. Checks for a restart marker from a previous incarnation that
//     self-healed, then logs and clears it.
//  3. Binds the webhook listener and acquires a router port mapping.
//  4. Subscribes the public endpoint to the topic and serves until
//     SIGINT or SIGTERM.
//
// While running, a heartbeat supervisor publishes pings through the
// topic and re-execs the process if they stop coming back. The
// control socket answers hearth-ctl status queries.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/hearth-home/hearth/bridge"
	"github.com/hearth-home/hearth/control"
	"github.com/hearth-home/hearth/lib/config"
	"github.com/hearth-home/hearth/lib/process"
	"github.com/hearth-home/hearth/lib/version"
	"github.com/hearth-home/hearth/lib/watchdog"
	"github.com/hearth-home/hearth/portmap"
	"github.com/hearth-home/hearth/publicip"
	"github.com/hearth-home/hearth/skill"
	"github.com/hearth-home/hearth/sns"
)

// markerFile is the restart marker's name inside the state directory.
const markerFile = "restart.json"

// markerMaxAge bounds how old a restart marker may be and still count
// as "the previous incarnation just self-healed". Older markers are
// stale leftovers from crashes that never came back up.
const markerMaxAge = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath    string
		topicARN      string
		region        string
		snsEndpoint   string
		listen        string
		publicIPFlag  string
		portMapper    string
		externalPort  int
		pingInterval  int
		skillsPath    string
		controlSocket string
		stateDir      string
		logLevel      string
		showVersion   bool
	)

	flagSet := pflag.NewFlagSet("hearth-bridge", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML config file (default: $HEARTH_CONFIG)")
	flagSet.StringVar(&topicARN, "topic", "", "SNS topic ARN to subscribe to (or HEARTH_TOPIC_ARN)")
	flagSet.StringVar(&region, "region", "", "AWS region of the topic (or AWS_REGION)")
	flagSet.StringVar(&snsEndpoint, "sns-endpoint", "", "SNS API base URL override, for local emulators (or HEARTH_SNS_ENDPOINT)")
	flagSet.StringVar(&listen, "listen", "", "webhook listen address, \":0\" binds an ephemeral port (or HEARTH_LISTEN)")
	flagSet.StringVar(&publicIPFlag, "public-ip", "", "public address of this network, skipping discovery (or HEARTH_PUBLIC_IP)")
	flagSet.StringVar(&portMapper, "portmap", "", "port exposure provider: upnp or static")
	flagSet.IntVar(&externalPort, "external-port", 0, "router-side port (0 follows the internal port)")
	flagSet.IntVar(&pingInterval, "ping-interval", 0, "heartbeat publish interval in seconds")
	flagSet.StringVar(&skillsPath, "skills", "", "path to the skills.jsonc manifest (or HEARTH_SKILLS)")
	flagSet.StringVar(&controlSocket, "control-socket", "", "Unix socket path for hearth-ctl (or HEARTH_CONTROL_SOCKET)")
	flagSet.StringVar(&stateDir, "state-dir", "", "directory for runtime state (or HEARTH_STATE_DIR)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, or error")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.Usage = func() { printUsage(flagSet) }

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("hearth-bridge %s\n", version.Info())
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	// Flags win over environment, environment over file, file over
	// defaults.
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	applyEnv := func(name string, target *string) {
		if v := os.Getenv(name); v != "" {
			*target = v
		}
	}
	applyEnv("HEARTH_TOPIC_ARN", &cfg.TopicARN)
	applyEnv("AWS_REGION", &cfg.Region)
	applyEnv("HEARTH_SNS_ENDPOINT", &cfg.SNSEndpoint)
	applyEnv("HEARTH_LISTEN", &cfg.Listen)
	applyEnv("HEARTH_PUBLIC_IP", &cfg.PublicIP)
	applyEnv("HEARTH_SKILLS", &cfg.SkillsManifest)
	applyEnv("HEARTH_CONTROL_SOCKET", &cfg.ControlSocket)
	applyEnv("HEARTH_STATE_DIR", &cfg.StateDir)
	applyFlag := func(name string, target *string, value string) {
		if flagSet.Changed(name) {
			*target = value
		}
	}
	applyFlag("topic", &cfg.TopicARN, topicARN)
	applyFlag("region", &cfg.Region, region)
	applyFlag("sns-endpoint", &cfg.SNSEndpoint, snsEndpoint)
	applyFlag("listen", &cfg.Listen, listen)
	applyFlag("public-ip", &cfg.PublicIP, publicIPFlag)
	applyFlag("portmap", &cfg.PortMapper, portMapper)
	applyFlag("skills", &cfg.SkillsManifest, skillsPath)
	applyFlag("control-socket", &cfg.ControlSocket, controlSocket)
	applyFlag("state-dir", &cfg.StateDir, stateDir)
	applyFlag("log-level", &cfg.LogLevel, logLevel)
	if flagSet.Changed("external-port") {
		cfg.ExternalPort = externalPort
	}
	if flagSet.Changed("ping-interval") {
		cfg.PingIntervalSeconds = pingInterval
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.TopicARN == "" {
		return fmt.Errorf("topic ARN is required (--topic, HEARTH_TOPIC_ARN, or topic_arn in the config file)")
	}
	if cfg.Region == "" {
		return fmt.Errorf("region is required (--region, AWS_REGION, or region in the config file)")
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// Once the first signal starts the shutdown, restore the default
	// disposition so a second signal kills a stuck teardown.
	context.AfterFunc(ctx, stop)

	// Surface a self-heal from the previous incarnation before doing
	// anything else, then clear the marker so it is reported once.
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	markerPath := filepath.Join(cfg.StateDir, markerFile)
	if state, fresh, err := watchdog.Check(markerPath, markerMaxAge); err != nil {
		logger.Warn("unreadable restart marker ignored", "path", markerPath, "error", err)
	} else if fresh {
		logger.Info("previous incarnation self-healed",
			"reason", state.Reason,
			"pid", state.PID,
			"last_ping_sent", state.LastPingSent,
			"last_ping_received", state.LastPingReceived,
			"restarted_at", state.Timestamp)
		if err := watchdog.Clear(markerPath); err != nil {
			logger.Warn("clearing restart marker failed", "path", markerPath, "error", err)
		}
	}

	client, err := sns.NewClient(sns.Config{
		Region:      cfg.Region,
		Credentials: sns.CredentialsFromEnv(),
		BaseURL:     cfg.SNSEndpoint,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	var mapper portmap.Mapper
	switch cfg.PortMapper {
	case "upnp":
		mapper = &portmap.UPnP{Logger: logger}
	case "static":
		mapper = &portmap.Static{
			ExternalIP:   cfg.PublicIP,
			ExternalPort: uint16(cfg.ExternalPort),
		}
	}

	var source publicip.Source
	if cfg.PublicIP != "" {
		addr, err := netip.ParseAddr(cfg.PublicIP)
		if err != nil {
			return fmt.Errorf("invalid public IP %q: %w", cfg.PublicIP, err)
		}
		source = publicip.Fixed{Addr: addr}
	} else {
		source = &publicip.Chain{
			Sources: []publicip.Source{
				&publicip.HTTP{URL: cfg.IPEchoURL},
				&publicip.STUN{Server: cfg.STUNServer},
			},
			Logger: logger,
		}
	}

	skills := skill.NewRegistry()
	if cfg.SkillsManifest != "" {
		skills, err = skill.LoadManifest(cfg.SkillsManifest, logger)
		if err != nil {
			return fmt.Errorf("loading skills manifest: %w", err)
		}
	}

	b, err := bridge.New(bridge.Config{
		TopicARN:     cfg.TopicARN,
		SNS:          client,
		Mapper:       mapper,
		PublicIP:     source,
		Listen:       cfg.Listen,
		ExternalPort: uint16(cfg.ExternalPort),
		PingInterval: time.Duration(cfg.PingIntervalSeconds) * time.Second,
		Skills:       skills,
		Logger:       logger,
		WatchdogPath: markerPath,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.ControlSocket), 0o755); err != nil {
		return fmt.Errorf("creating control socket directory: %w", err)
	}
	controlServer := control.NewServer(cfg.ControlSocket, logger)
	b.RegisterControl(controlServer)
	go func() {
		if err := controlServer.Serve(ctx); err != nil && ctx.Err() == nil {
			logger.Error("control socket failed", "path", cfg.ControlSocket, "error", err)
		}
	}()

	logger.Info("hearth-bridge starting",
		"version", version.Short(),
		"topic", cfg.TopicARN,
		"listen", cfg.Listen,
		"port_mapper", cfg.PortMapper,
		"skills", skills.Names())

	return b.Run(ctx)
}

func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", level)
}

func printUsage(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `hearth-bridge - subscribe a home network to its Hearth command topic

USAGE
    hearth-bridge [flags]

Settings resolve in order: flags, environment (the variables named in
the flag help below, plus HEARTH_CONFIG for the file path), the YAML
config file, built-in defaults. AWS credentials come only from the
environment: AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, and optionally
AWS_SESSION_TOKEN.

FLAGS
%s
EXAMPLES
    # UPnP-exposed webhook, config from file
    HEARTH_CONFIG=/etc/hearth/config.yaml hearth-bridge

    # Pre-forwarded router port, no discovery
    hearth-bridge --topic arn:aws:sns:eu-west-1:123456789012:hearth \
        --region eu-west-1 --portmap static --public-ip 203.0.113.10 \
        --listen :8080
`, flagSet.FlagUsages())
}
