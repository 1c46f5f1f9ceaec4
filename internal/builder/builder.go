// Package builder assembles complete GTPv2-C messages from session
// state, one IE at a time over the flat encoder in internal/gtpv2c.
package builder

import (
	"fmt"
	"net"

	"gtpv2c-generator/internal/config"
	"gtpv2c-generator/internal/gtpv2c"
	"gtpv2c-generator/internal/session"
)

// Builder holds the node-level values that go into every message it
// assembles: the control and user plane addresses advertised in
// F-TEIDs, the restart counter for Recovery IEs, and the APN
// restriction policy.
type Builder struct {
	controlAddr    net.IP
	dataAddr       net.IP
	restartCounter uint8
	apnRestriction uint8
}

// NewBuilder creates a Builder from the local node configuration.
func NewBuilder(cfg *config.Config) (*Builder, error) {
	control := net.ParseIP(cfg.Local.Address)
	if control == nil || control.To4() == nil {
		return nil, fmt.Errorf("invalid local address %q: IPv4 required", cfg.Local.Address)
	}
	data := control
	if cfg.Local.DataAddress != "" {
		data = net.ParseIP(cfg.Local.DataAddress)
		if data == nil || data.To4() == nil {
			return nil, fmt.Errorf("invalid local data address %q: IPv4 required", cfg.Local.DataAddress)
		}
	}
	return &Builder{
		controlAddr:    control,
		dataAddr:       data,
		restartCounter: cfg.Local.RestartCounter,
		apnRestriction: cfg.Session.APNRestriction,
	}, nil
}

// EchoRequest builds an Echo Request carrying the local restart
// counter. Echo messages have no TEID field.
func (b *Builder) EchoRequest(seq uint32) (*gtpv2c.Message, error) {
	m := gtpv2c.New(gtpv2c.MsgTypeEchoRequest, seq)
	if _, err := m.AppendRecovery(gtpv2c.InstanceZero, b.restartCounter); err != nil {
		return nil, fmt.Errorf("failed to build Echo Request: %w", err)
	}
	return m, nil
}

// EchoResponse builds the Echo Response for a received request,
// echoing its sequence number.
func (b *Builder) EchoResponse(seq uint32) (*gtpv2c.Message, error) {
	m := gtpv2c.New(gtpv2c.MsgTypeEchoResponse, seq)
	if _, err := m.AppendRecovery(gtpv2c.InstanceZero, b.restartCounter); err != nil {
		return nil, fmt.Errorf("failed to build Echo Response: %w", err)
	}
	return m, nil
}

// CreateSessionResponse builds the accept response for a Create
// Session Request: Cause, the sender S11/S4 control F-TEID, the
// allocated PDN address, the APN restriction, and the created bearer
// context with its EBI, S1-U user plane F-TEID, and QoS profile.
func (b *Builder) CreateSessionResponse(seq uint32, sess *session.Session) (*gtpv2c.Message, error) {
	m := gtpv2c.NewWithTEID(gtpv2c.MsgTypeCreateSessionResponse, sess.RemoteTEID, seq)

	if _, err := m.AppendCauseAccepted(gtpv2c.InstanceZero); err != nil {
		return nil, fmt.Errorf("failed to build Create Session Response: %w", err)
	}
	if _, err := m.AppendFTEID(gtpv2c.InstanceZero, gtpv2c.IFTypeS11S4SGWGTPC, b.controlAddr, sess.LocalTEID); err != nil {
		return nil, fmt.Errorf("failed to build Create Session Response: %w", err)
	}
	if _, err := m.AppendPAA(gtpv2c.InstanceZero, sess.UEIP); err != nil {
		return nil, fmt.Errorf("failed to build Create Session Response: %w", err)
	}
	if _, err := m.AppendAPNRestriction(gtpv2c.InstanceZero, b.apnRestriction); err != nil {
		return nil, fmt.Errorf("failed to build Create Session Response: %w", err)
	}

	bc, _, err := m.AppendBearerContext(gtpv2c.InstanceZero)
	if err != nil {
		return nil, fmt.Errorf("failed to build Create Session Response: %w", err)
	}
	n, err := m.AppendEBI(gtpv2c.InstanceZero, sess.Bearer.EBI)
	if err != nil {
		return nil, fmt.Errorf("failed to build Create Session Response: %w", err)
	}
	bc.AddGroupedLength(n)
	n, err = m.AppendFTEID(gtpv2c.InstanceZero, gtpv2c.IFTypeS1USGWGTPU, b.dataAddr, sess.DataTEID)
	if err != nil {
		return nil, fmt.Errorf("failed to build Create Session Response: %w", err)
	}
	bc.AddGroupedLength(n)
	n, err = m.AppendBearerQoS(gtpv2c.InstanceZero, sess.Bearer.QoS)
	if err != nil {
		return nil, fmt.Errorf("failed to build Create Session Response: %w", err)
	}
	bc.AddGroupedLength(n)

	return m, nil
}

// CreateBearerRequest builds a Create Bearer Request for a dedicated
// bearer on an existing session: the linked EBI and PTI at message
// level, then a bearer context carrying the EBI, the traffic flow
// template built from the session's packet filters, the QoS profile,
// and the S1-U user plane F-TEID.
func (b *Builder) CreateBearerRequest(seq uint32, sess *session.Session, store gtpv2c.FilterLookup, pti uint8) (*gtpv2c.Message, error) {
	m := gtpv2c.NewWithTEID(gtpv2c.MsgTypeCreateBearerRequest, sess.RemoteTEID, seq)

	if _, err := m.AppendEBI(gtpv2c.InstanceZero, sess.Bearer.EBI); err != nil {
		return nil, fmt.Errorf("failed to build Create Bearer Request: %w", err)
	}
	if _, err := m.AppendPTI(gtpv2c.InstanceZero, pti); err != nil {
		return nil, fmt.Errorf("failed to build Create Bearer Request: %w", err)
	}

	bc, _, err := m.AppendBearerContext(gtpv2c.InstanceZero)
	if err != nil {
		return nil, fmt.Errorf("failed to build Create Bearer Request: %w", err)
	}
	// EBI 0 here: the peer assigns the dedicated bearer's identity.
	n, err := m.AppendEBI(gtpv2c.InstanceZero, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to build Create Bearer Request: %w", err)
	}
	bc.AddGroupedLength(n)
	n, err = m.AppendBearerTFT(gtpv2c.InstanceZero, sess.Bearer, store)
	if err != nil {
		return nil, fmt.Errorf("failed to build Create Bearer Request: %w", err)
	}
	bc.AddGroupedLength(n)
	n, err = m.AppendBearerQoS(gtpv2c.InstanceZero, sess.Bearer.QoS)
	if err != nil {
		return nil, fmt.Errorf("failed to build Create Bearer Request: %w", err)
	}
	bc.AddGroupedLength(n)
	n, err = m.AppendFTEID(gtpv2c.InstanceZero, gtpv2c.IFTypeS1USGWGTPU, b.dataAddr, sess.DataTEID)
	if err != nil {
		return nil, fmt.Errorf("failed to build Create Bearer Request: %w", err)
	}
	bc.AddGroupedLength(n)

	return m, nil
}
