package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gtpv2c-generator/internal/builder"
	"gtpv2c-generator/internal/config"
	"gtpv2c-generator/internal/gtpv2c"
	"gtpv2c-generator/internal/network"
	"gtpv2c-generator/internal/pcap"
	"gtpv2c-generator/internal/session"
	"gtpv2c-generator/internal/stats"
)

var (
	version = "1.0.0"
	cfgFile string
	dryRun  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gtpv2c-generator",
		Short: "GTPv2-C Message Generator - Build and send S11 control messages",
		Long: `A Go-based tool that acts as an SGW control-plane node, building GTPv2-C
messages (Create Session Response, Create Bearer Request, Echo) for a set of
simulated sessions and sending them to a target peer or writing them to pcap.`,
		Version: version,
		RunE:    run,
	}

	// Configuration file
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "Configuration file path (default: config.yaml)")

	// CLI overrides
	rootCmd.Flags().String("local-ip", "", "Local GTP-C IP address")
	rootCmd.Flags().String("peer-ip", "", "Target peer IP address")
	rootCmd.Flags().Int("peer-port", 0, "Target peer port")
	rootCmd.Flags().Int("sessions", 0, "Number of sessions to generate")
	rootCmd.Flags().String("ue-pool", "", "UE IPv4 address pool (CIDR)")
	rootCmd.Flags().Uint32("teid-start", 0, "Starting TEID value")
	rootCmd.Flags().String("teid-strategy", "", "TEID allocation strategy (sequential|random)")
	rootCmd.Flags().Int("message-interval", -1, "Delay between messages in ms")
	rootCmd.Flags().Int("timeout", 0, "Response timeout in ms")
	rootCmd.Flags().Int("max-retries", -1, "Max retransmission attempts")
	rootCmd.Flags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.Flags().String("pcap-out", "", "Write generated traffic to a pcap file")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build messages only, do not send to peer")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	v := viper.New()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		log.Debug("No config file found, using defaults and CLI flags")
	}

	bindViperFlags(v, cmd)

	cfg, err := config.LoadWithViper(v)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	setupLogging(cfg)

	fmt.Printf("GTPv2-C Message Generator v%s\n", version)
	fmt.Println("==============================")
	fmt.Print(cfg.Summary())
	fmt.Println()

	if dryRun {
		// The peer is never contacted, so only the message-building
		// half of the config has to hold up.
		if cfg.Local.Address == "" {
			return fmt.Errorf("local.address must be specified")
		}
		if cfg.Session.UEIPPool == "" {
			return fmt.Errorf("session.ue_ip_pool must be specified")
		}
	} else {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	mgr, err := session.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	bld, err := builder.NewBuilder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create message builder: %w", err)
	}

	statsCollector := stats.NewCollector()
	reporter := stats.NewReporter(statsCollector, cfg.Stats.ReportIntervalSec, cfg.Stats.ExportFile)

	var capture *pcap.Writer
	if cfg.Output.PcapFile != "" {
		capture, err = pcap.NewWriter(cfg.Output.PcapFile)
		if err != nil {
			return fmt.Errorf("failed to open pcap output: %w", err)
		}
		defer capture.Close()
	}

	if dryRun {
		err = runDry(cfg, mgr, bld, statsCollector, capture)
	} else {
		err = runLive(cfg, mgr, bld, statsCollector, reporter, capture)
	}
	if err != nil {
		return err
	}

	if cfg.Stats.Enabled {
		reporter.PrintFinalReport()
		if exportErr := reporter.ExportJSON(); exportErr != nil {
			log.WithError(exportErr).Warn("Failed to export statistics")
		}
	}
	return nil
}

// runDry builds every message a live run would send and, when a pcap
// output is configured, records them as if they had gone on the wire.
func runDry(cfg *config.Config, mgr *session.Manager, bld *builder.Builder, collector *stats.Collector, capture *pcap.Writer) error {
	sessions, err := mgr.CreateSessions(cfg.Session.Count)
	if err != nil {
		return fmt.Errorf("failed to create sessions: %w", err)
	}

	localIP := net.ParseIP(cfg.Local.Address).To4()
	peerIP := net.ParseIP(cfg.Peer.Address).To4()
	if peerIP == nil {
		peerIP = net.IPv4(192, 0, 2, 1).To4()
	}

	record := func(name string, m *gtpv2c.Message) error {
		collector.RecordSent(name, m.Len())
		if capture == nil {
			return nil
		}
		return capture.WriteOutbound(localIP, peerIP, cfg.Local.Port, cfg.Peer.Port, m.Bytes())
	}

	echo, err := bld.EchoRequest(mgr.NextSequence())
	if err != nil {
		return err
	}
	if err := record("echo_request", echo); err != nil {
		return err
	}

	for _, sess := range sessions {
		csResp, err := bld.CreateSessionResponse(mgr.NextSequence(), sess)
		if err != nil {
			return fmt.Errorf("failed to build Create Session Response: %w", err)
		}
		if err := record("create_session_response", csResp); err != nil {
			return err
		}
		collector.RecordSessionEstablished()

		cbReq, err := bld.CreateBearerRequest(mgr.NextSequence(), sess, mgr.Store(), 1)
		if err != nil {
			return fmt.Errorf("failed to build Create Bearer Request: %w", err)
		}
		if err := record("create_bearer_request", cbReq); err != nil {
			return err
		}
	}

	fmt.Printf("Dry-run: built messages for %d sessions\n", len(sessions))
	return nil
}

func runLive(cfg *config.Config, mgr *session.Manager, bld *builder.Builder, collector *stats.Collector, reporter *stats.Reporter, capture *pcap.Writer) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	client, err := network.NewUDPClient(cfg.Local.Address, cfg.Local.Port, cfg.Peer.Address, cfg.Peer.Port)
	if err != nil {
		return fmt.Errorf("failed to create UDP client: %w", err)
	}
	defer client.Close()

	log.WithField("local_addr", client.LocalAddr()).Info("UDP client started")

	receiver := network.NewReceiver(client.Conn())
	receiver.Start(ctx)

	tracker := network.NewTransactionTracker(client, cfg.Timing.ResponseTimeoutMs, cfg.Timing.MaxRetries)
	tracker.StartTimeoutMonitor(ctx)
	defer tracker.CancelAll()

	if cfg.Stats.Enabled {
		reporter.StartPeriodicReport(ctx)
	}

	localIP := net.ParseIP(cfg.Local.Address).To4()
	peerIP := net.ParseIP(cfg.Peer.Address).To4()

	send := func(name string, m *gtpv2c.Message) error {
		if err := client.Send(m.Bytes()); err != nil {
			return err
		}
		collector.RecordSent(name, m.Len())
		if capture != nil {
			if err := capture.WriteOutbound(localIP, peerIP, cfg.Local.Port, cfg.Peer.Port, m.Bytes()); err != nil {
				log.WithError(err).Warn("Failed to record outbound packet")
			}
		}
		return nil
	}

	// Route inbound messages: answer peer echo probes, resolve
	// everything else against the transaction tracker.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case rm, ok := <-receiver.Messages():
				if !ok {
					return
				}
				collector.RecordReceived(msgName(rm.Header.MsgType))
				if capture != nil {
					if err := capture.WriteInbound(peerIP, localIP, cfg.Peer.Port, cfg.Local.Port, rm.Data); err != nil {
						log.WithError(err).Warn("Failed to record inbound packet")
					}
				}
				if rm.Header.MsgType == gtpv2c.MsgTypeEchoRequest {
					resp, err := bld.EchoResponse(rm.Header.Sequence)
					if err != nil {
						log.WithError(err).Error("Failed to build Echo Response")
						continue
					}
					if err := send("echo_response", resp); err != nil {
						log.WithError(err).Error("Failed to send Echo Response")
					}
					continue
				}
				tracker.Resolve(rm.Header.Sequence, rm.Data)
			}
		}
	}()

	// Probe the peer before generating session traffic.
	echo, err := bld.EchoRequest(mgr.NextSequence())
	if err != nil {
		return err
	}
	echoResult := tracker.Track(echo.Sequence(), echo.Bytes())
	if err := send("echo_request", echo); err != nil {
		return fmt.Errorf("failed to send Echo Request: %w", err)
	}
	select {
	case res := <-echoResult:
		if res.Error != nil {
			collector.RecordTimeout("echo_request")
			return fmt.Errorf("peer did not answer echo: %w", res.Error)
		}
		collector.RecordSuccess("echo_request", res.ResponseTime)
		log.WithField("rtt", res.ResponseTime).Info("Peer answered echo")
	case <-ctx.Done():
		return ctx.Err()
	}

	sessions, err := mgr.CreateSessions(cfg.Session.Count)
	if err != nil {
		return fmt.Errorf("failed to create sessions: %w", err)
	}

	interval := time.Duration(cfg.Timing.MessageIntervalMs) * time.Millisecond
	for _, sess := range sessions {
		if ctx.Err() != nil {
			break
		}

		csResp, err := bld.CreateSessionResponse(mgr.NextSequence(), sess)
		if err != nil {
			return fmt.Errorf("failed to build Create Session Response: %w", err)
		}
		if err := send("create_session_response", csResp); err != nil {
			log.WithError(err).Error("Failed to send Create Session Response")
			collector.RecordSessionFailed()
			continue
		}
		collector.RecordSessionEstablished()

		cbReq, err := bld.CreateBearerRequest(mgr.NextSequence(), sess, mgr.Store(), 1)
		if err != nil {
			return fmt.Errorf("failed to build Create Bearer Request: %w", err)
		}
		result := tracker.Track(cbReq.Sequence(), cbReq.Bytes())
		if err := send("create_bearer_request", cbReq); err != nil {
			log.WithError(err).Error("Failed to send Create Bearer Request")
			continue
		}

		select {
		case res := <-result:
			if res.Error != nil {
				collector.RecordTimeout("create_bearer_request")
				log.WithError(res.Error).WithField("teid", sess.LocalTEID).Warn("Create Bearer Request unanswered")
			} else {
				collector.RecordSuccess("create_bearer_request", res.ResponseTime)
			}
		case <-ctx.Done():
			return nil
		}

		if interval > 0 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return nil
			}
		}
	}

	return nil
}

func msgName(msgType uint8) string {
	switch msgType {
	case gtpv2c.MsgTypeEchoRequest:
		return "echo_request"
	case gtpv2c.MsgTypeEchoResponse:
		return "echo_response"
	case gtpv2c.MsgTypeCreateSessionRequest:
		return "create_session_request"
	case gtpv2c.MsgTypeCreateSessionResponse:
		return "create_session_response"
	case gtpv2c.MsgTypeModifyBearerRequest:
		return "modify_bearer_request"
	case gtpv2c.MsgTypeModifyBearerResponse:
		return "modify_bearer_response"
	case gtpv2c.MsgTypeDeleteSessionRequest:
		return "delete_session_request"
	case gtpv2c.MsgTypeDeleteSessionResponse:
		return "delete_session_response"
	case gtpv2c.MsgTypeCreateBearerRequest:
		return "create_bearer_request"
	case gtpv2c.MsgTypeCreateBearerResponse:
		return "create_bearer_response"
	default:
		return fmt.Sprintf("type_%d", msgType)
	}
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.WithError(err).Warn("Failed to open log file, using console only")
		} else {
			log.SetOutput(f)
		}
	}
}

func bindViperFlags(v *viper.Viper, cmd *cobra.Command) {
	if cmd.Flags().Changed("local-ip") {
		val, _ := cmd.Flags().GetString("local-ip")
		v.Set("local.address", val)
	}
	if cmd.Flags().Changed("peer-ip") {
		val, _ := cmd.Flags().GetString("peer-ip")
		v.Set("peer.address", val)
	}
	if cmd.Flags().Changed("peer-port") {
		val, _ := cmd.Flags().GetInt("peer-port")
		v.Set("peer.port", val)
	}
	if cmd.Flags().Changed("sessions") {
		val, _ := cmd.Flags().GetInt("sessions")
		v.Set("session.count", val)
	}
	if cmd.Flags().Changed("ue-pool") {
		val, _ := cmd.Flags().GetString("ue-pool")
		v.Set("session.ue_ip_pool", val)
	}
	if cmd.Flags().Changed("teid-start") {
		val, _ := cmd.Flags().GetUint32("teid-start")
		v.Set("session.teid_start", val)
	}
	if cmd.Flags().Changed("teid-strategy") {
		val, _ := cmd.Flags().GetString("teid-strategy")
		v.Set("session.teid_strategy", val)
	}
	if cmd.Flags().Changed("message-interval") {
		val, _ := cmd.Flags().GetInt("message-interval")
		v.Set("timing.message_interval_ms", val)
	}
	if cmd.Flags().Changed("timeout") {
		val, _ := cmd.Flags().GetInt("timeout")
		v.Set("timing.response_timeout_ms", val)
	}
	if cmd.Flags().Changed("max-retries") {
		val, _ := cmd.Flags().GetInt("max-retries")
		v.Set("timing.max_retries", val)
	}
	if cmd.Flags().Changed("log-level") {
		val, _ := cmd.Flags().GetString("log-level")
		v.Set("logging.level", val)
	}
	if cmd.Flags().Changed("pcap-out") {
		val, _ := cmd.Flags().GetString("pcap-out")
		v.Set("output.pcap_file", val)
	}
}
