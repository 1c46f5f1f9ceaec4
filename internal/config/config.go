package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/viper"

	"gtpv2c-generator/pkg/types"
)

// Config holds all configuration for the GTPv2-C generator.
type Config struct {
	Local   LocalConfig    `yaml:"local"   mapstructure:"local"`
	Peer    PeerConfig     `yaml:"peer"    mapstructure:"peer"`
	Session SessionConfig  `yaml:"session" mapstructure:"session"`
	Bearer  BearerConfig   `yaml:"bearer"  mapstructure:"bearer"`
	Filters []FilterConfig `yaml:"filters" mapstructure:"filters"`
	Timing  TimingConfig   `yaml:"timing"  mapstructure:"timing"`
	Output  OutputConfig   `yaml:"output"  mapstructure:"output"`
	Logging LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Stats   StatsConfig    `yaml:"stats"   mapstructure:"stats"`
}

// LocalConfig describes the local control-plane endpoint.
type LocalConfig struct {
	Address        string `yaml:"address"         mapstructure:"address"`
	Port           int    `yaml:"port"            mapstructure:"port"`
	DataAddress    string `yaml:"data_address"    mapstructure:"data_address"`
	RestartCounter uint8  `yaml:"restart_counter" mapstructure:"restart_counter"`
}

// PeerConfig describes the remote GTP-C peer.
type PeerConfig struct {
	Address string `yaml:"address" mapstructure:"address"`
	Port    int    `yaml:"port"    mapstructure:"port"`
}

type SessionConfig struct {
	Count          int    `yaml:"count"           mapstructure:"count"`
	UEIPPool       string `yaml:"ue_ip_pool"      mapstructure:"ue_ip_pool"`
	TEIDStart      uint32 `yaml:"teid_start"      mapstructure:"teid_start"`
	TEIDStrategy   string `yaml:"teid_strategy"   mapstructure:"teid_strategy"`
	APNRestriction uint8  `yaml:"apn_restriction" mapstructure:"apn_restriction"`
}

// BearerConfig supplies the default bearer's identity and QoS profile.
type BearerConfig struct {
	EBI                     uint8  `yaml:"ebi"                       mapstructure:"ebi"`
	QCI                     uint8  `yaml:"qci"                       mapstructure:"qci"`
	ARPPriority             uint8  `yaml:"arp_priority"              mapstructure:"arp_priority"`
	PreemptionCapability    bool   `yaml:"preemption_capability"     mapstructure:"preemption_capability"`
	PreemptionVulnerability bool   `yaml:"preemption_vulnerability"  mapstructure:"preemption_vulnerability"`
	ULMBR                   uint64 `yaml:"ul_mbr_kbps"               mapstructure:"ul_mbr_kbps"`
	DLMBR                   uint64 `yaml:"dl_mbr_kbps"               mapstructure:"dl_mbr_kbps"`
	ULGBR                   uint64 `yaml:"ul_gbr_kbps"               mapstructure:"ul_gbr_kbps"`
	DLGBR                   uint64 `yaml:"dl_gbr_kbps"               mapstructure:"dl_gbr_kbps"`
}

// FilterConfig is one packet filter definition. Addresses are CIDRs;
// an empty CIDR leaves the attribute unset. Protocol 0 means any. Port
// bounds both zero mean any port (encoded as the full 0-65535 span,
// which the TFT encoder omits).
type FilterConfig struct {
	Direction      string `yaml:"direction"        mapstructure:"direction"`
	Precedence     uint8  `yaml:"precedence"       mapstructure:"precedence"`
	RemoteCIDR     string `yaml:"remote_cidr"      mapstructure:"remote_cidr"`
	LocalCIDR      string `yaml:"local_cidr"       mapstructure:"local_cidr"`
	Protocol       uint8  `yaml:"protocol"         mapstructure:"protocol"`
	RemotePortLow  uint16 `yaml:"remote_port_low"  mapstructure:"remote_port_low"`
	RemotePortHigh uint16 `yaml:"remote_port_high" mapstructure:"remote_port_high"`
	LocalPortLow   uint16 `yaml:"local_port_low"   mapstructure:"local_port_low"`
	LocalPortHigh  uint16 `yaml:"local_port_high"  mapstructure:"local_port_high"`
}

type TimingConfig struct {
	MessageIntervalMs int `yaml:"message_interval_ms" mapstructure:"message_interval_ms"`
	ResponseTimeoutMs int `yaml:"response_timeout_ms" mapstructure:"response_timeout_ms"`
	MaxRetries        int `yaml:"max_retries"         mapstructure:"max_retries"`
}

type OutputConfig struct {
	PcapFile string `yaml:"pcap_file" mapstructure:"pcap_file"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"   mapstructure:"level"`
	File    string `yaml:"file"    mapstructure:"file"`
	Console bool   `yaml:"console" mapstructure:"console"`
}

type StatsConfig struct {
	Enabled           bool   `yaml:"enabled"             mapstructure:"enabled"`
	ReportIntervalSec int    `yaml:"report_interval_sec" mapstructure:"report_interval_sec"`
	ExportFile        string `yaml:"export_file"         mapstructure:"export_file"`
}

// SetDefaults configures default values for the configuration.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("local.port", 2123)
	v.SetDefault("local.restart_counter", 0)
	v.SetDefault("peer.port", 2123)
	v.SetDefault("session.count", 1)
	v.SetDefault("session.teid_start", 1)
	v.SetDefault("session.teid_strategy", "sequential")
	v.SetDefault("session.apn_restriction", 0)
	v.SetDefault("bearer.ebi", 5)
	v.SetDefault("bearer.qci", 9)
	v.SetDefault("bearer.arp_priority", 1)
	v.SetDefault("timing.message_interval_ms", 100)
	v.SetDefault("timing.response_timeout_ms", 5000)
	v.SetDefault("timing.max_retries", 3)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("stats.enabled", true)
	v.SetDefault("stats.report_interval_sec", 10)
}

// Load reads configuration from a YAML file and returns a Config.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWithViper reads configuration using an existing viper instance
// (for CLI flag binding).
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// BearerQoS maps the bearer block to the encoder's QoS type.
func (c *Config) BearerQoS() types.BearerQoS {
	return types.BearerQoS{
		ARP: types.ARP{
			PriorityLevel:           c.Bearer.ARPPriority,
			PreemptionCapability:    c.Bearer.PreemptionCapability,
			PreemptionVulnerability: c.Bearer.PreemptionVulnerability,
		},
		QCI:   c.Bearer.QCI,
		ULMBR: c.Bearer.ULMBR,
		DLMBR: c.Bearer.DLMBR,
		ULGBR: c.Bearer.ULGBR,
		DLGBR: c.Bearer.DLGBR,
	}
}

// ToPacketFilter converts a filter definition to the wire-facing filter
// record.
func (f *FilterConfig) ToPacketFilter() (*types.PacketFilter, error) {
	pf := &types.PacketFilter{
		Precedence:     f.Precedence,
		Proto:          f.Protocol,
		RemotePortLow:  f.RemotePortLow,
		RemotePortHigh: f.RemotePortHigh,
		LocalPortLow:   f.LocalPortLow,
		LocalPortHigh:  f.LocalPortHigh,
	}

	switch strings.ToLower(f.Direction) {
	case "uplink":
		pf.Direction = types.DirectionUplink
	case "downlink":
		pf.Direction = types.DirectionDownlink
	case "bidirectional", "":
		pf.Direction = types.DirectionBidirectional
	default:
		return nil, fmt.Errorf("unknown filter direction %q", f.Direction)
	}

	if f.Protocol != 0 {
		pf.ProtoMask = 0xff
	}

	if f.RemoteCIDR != "" {
		ip, prefix, err := parseV4CIDR(f.RemoteCIDR)
		if err != nil {
			return nil, fmt.Errorf("invalid remote_cidr: %w", err)
		}
		pf.RemoteIPAddr = ip
		pf.RemoteIPMask = prefix
	}
	if f.LocalCIDR != "" {
		ip, prefix, err := parseV4CIDR(f.LocalCIDR)
		if err != nil {
			return nil, fmt.Errorf("invalid local_cidr: %w", err)
		}
		pf.LocalIPAddr = ip
		pf.LocalIPMask = prefix
	}

	// Both bounds zero means any port: widen to the full span so the
	// encoder omits the component instead of matching port 0 only.
	if pf.RemotePortLow == 0 && pf.RemotePortHigh == 0 {
		pf.RemotePortHigh = 0xffff
	}
	if pf.LocalPortLow == 0 && pf.LocalPortHigh == 0 {
		pf.LocalPortHigh = 0xffff
	}

	return pf, nil
}

func parseV4CIDR(cidr string) (net.IP, uint8, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, 0, fmt.Errorf("%q: %w", cidr, err)
	}
	if ip.To4() == nil {
		return nil, 0, fmt.Errorf("%q: packet filters support IPv4 only", cidr)
	}
	ones, _ := ipnet.Mask.Size()
	return ip.To4(), uint8(ones), nil
}

// Summary returns a human-readable summary of the configuration.
func (c *Config) Summary() string {
	var sb strings.Builder
	sb.WriteString("Configuration:\n")
	sb.WriteString(fmt.Sprintf("  Local:         %s:%d (restart counter %d)\n", c.Local.Address, c.Local.Port, c.Local.RestartCounter))
	sb.WriteString(fmt.Sprintf("  Peer:          %s:%d\n", c.Peer.Address, c.Peer.Port))
	sb.WriteString(fmt.Sprintf("  Sessions:      %d\n", c.Session.Count))
	sb.WriteString(fmt.Sprintf("  UE Pool:       %s\n", c.Session.UEIPPool))
	sb.WriteString(fmt.Sprintf("  TEID Start:    %d (%s)\n", c.Session.TEIDStart, c.Session.TEIDStrategy))
	sb.WriteString(fmt.Sprintf("  Bearer:        EBI %d, QCI %d, ARP %d\n", c.Bearer.EBI, c.Bearer.QCI, c.Bearer.ARPPriority))
	sb.WriteString(fmt.Sprintf("  Filters:       %d\n", len(c.Filters)))
	sb.WriteString(fmt.Sprintf("  Msg Interval:  %dms\n", c.Timing.MessageIntervalMs))
	sb.WriteString(fmt.Sprintf("  Timeout:       %dms (retries: %d)\n", c.Timing.ResponseTimeoutMs, c.Timing.MaxRetries))
	sb.WriteString(fmt.Sprintf("  PCAP Out:      %s\n", c.Output.PcapFile))
	return sb.String()
}
