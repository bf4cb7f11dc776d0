package wire

// CBOR map keys shared by every signed request. Payload fields of signed
// requests use keys below KeyTimestamp.
const (
	KeyTimestamp = 30
	KeySignature = 31
)

// Signed carries the freshness timestamp and detached signature of a request.
// It is embedded in every signed request; its fields are flattened into the
// request's CBOR map.
type Signed struct {
	// Timestamp is milliseconds since the Unix epoch at signing time.
	Timestamp uint64 `cbor:"30,keyasint,omitempty"`

	// Signature is computed over the request encoded with an empty Signature.
	Signature []byte `cbor:"31,keyasint,omitempty"`
}

// GetSignature returns the attached signature.
func (s *Signed) GetSignature() []byte {
	return s.Signature
}

// SetSignature replaces the attached signature.
func (s *Signed) SetSignature(sig []byte) {
	s.Signature = sig
}

// GetTimestamp returns the signing timestamp.
func (s *Signed) GetTimestamp() uint64 {
	return s.Timestamp
}

// Org is an organization record.
//
// CBOR encoding:
//
//	{
//	  1: oui,            // uint64
//	  2: owner,          // bytes: public key
//	  3: payer,          // bytes: public key
//	  4: delegateKeys,   // [bytes]
//	  5: locked          // bool
//	}
type Org struct {
	Oui          uint64   `cbor:"1,keyasint,omitempty"`
	Owner        []byte   `cbor:"2,keyasint,omitempty"`
	Payer        []byte   `cbor:"3,keyasint,omitempty"`
	DelegateKeys [][]byte `cbor:"4,keyasint,omitempty"`
	Locked       bool     `cbor:"5,keyasint,omitempty"`
}

// DevaddrConstraint is an unowned inclusive DevAddr range.
type DevaddrConstraint struct {
	StartAddr uint32 `cbor:"1,keyasint,omitempty"`
	EndAddr   uint32 `cbor:"2,keyasint,omitempty"`
}

// DevaddrRange is an inclusive DevAddr range owned by a route.
type DevaddrRange struct {
	RouteID   string `cbor:"1,keyasint,omitempty"`
	StartAddr uint32 `cbor:"2,keyasint,omitempty"`
	EndAddr   uint32 `cbor:"3,keyasint,omitempty"`
}

// EuiPair is an AppEUI/DevEUI pair owned by a route.
type EuiPair struct {
	RouteID string `cbor:"1,keyasint,omitempty"`
	AppEui  uint64 `cbor:"2,keyasint,omitempty"`
	DevEui  uint64 `cbor:"3,keyasint,omitempty"`
}

// SessionKeyFilter restricts session keys accepted for a DevAddr.
type SessionKeyFilter struct {
	Oui        uint64 `cbor:"1,keyasint,omitempty"`
	Devaddr    uint32 `cbor:"2,keyasint,omitempty"`
	SessionKey []byte `cbor:"3,keyasint,omitempty"`
}

// GwmpMapping maps a region to a UDP port for the GWMP protocol.
type GwmpMapping struct {
	Region Region `cbor:"1,keyasint,omitempty"`
	Port   uint32 `cbor:"2,keyasint,omitempty"`
}

// ProtocolGwmp forwards packets using the Semtech UDP protocol.
type ProtocolGwmp struct {
	Mapping []GwmpMapping `cbor:"1,keyasint,omitempty"`
}

// ProtocolHTTPRoaming forwards packets using LoRaWAN backend interfaces over HTTP.
type ProtocolHTTPRoaming struct {
	FlowType      FlowType `cbor:"1,keyasint,omitempty"`
	DedupeTimeout uint32   `cbor:"2,keyasint,omitempty"`
	Path          string   `cbor:"3,keyasint,omitempty"`
	AuthHeader    string   `cbor:"4,keyasint,omitempty"`
}

// ProtocolPacketRouter forwards packets over the packet router gRPC API.
type ProtocolPacketRouter struct{}

// Protocol holds exactly one of the protocol variants.
type Protocol struct {
	PacketRouter *ProtocolPacketRouter `cbor:"1,keyasint,omitempty"`
	Gwmp         *ProtocolGwmp         `cbor:"2,keyasint,omitempty"`
	HTTPRoaming  *ProtocolHTTPRoaming  `cbor:"3,keyasint,omitempty"`
}

// Server is the destination a route forwards packets to.
type Server struct {
	Host     string    `cbor:"1,keyasint,omitempty"`
	Port     uint32    `cbor:"2,keyasint,omitempty"`
	Protocol *Protocol `cbor:"3,keyasint,omitempty"`
}

// Route describes how packets for an organization are forwarded.
type Route struct {
	ID             string  `cbor:"1,keyasint,omitempty"`
	NetID          uint32  `cbor:"2,keyasint,omitempty"`
	Oui            uint64  `cbor:"3,keyasint,omitempty"`
	Server         *Server `cbor:"4,keyasint,omitempty"`
	MaxCopies      uint32  `cbor:"5,keyasint,omitempty"`
	Active         bool    `cbor:"6,keyasint,omitempty"`
	Locked         bool    `cbor:"7,keyasint,omitempty"`
	IgnoreEmptySkf bool    `cbor:"8,keyasint,omitempty"`
}

// TaggedSpreading pairs a spreading factor with the maximum packet size it allows.
type TaggedSpreading struct {
	RegionSpreading string `cbor:"1,keyasint,omitempty"`
	MaxPacketSize   uint32 `cbor:"2,keyasint,omitempty"`
}

// RegionParam describes one channel of a regional plan.
type RegionParam struct {
	ChannelFrequency uint64            `cbor:"1,keyasint,omitempty"`
	ChannelBandwidth uint32            `cbor:"2,keyasint,omitempty"`
	MaxEirp          uint32            `cbor:"3,keyasint,omitempty"`
	Spreading        []TaggedSpreading `cbor:"4,keyasint,omitempty"`
}

// RegionParams is the channel plan loaded for a region.
type RegionParams struct {
	RegionParams []RegionParam `cbor:"1,keyasint,omitempty"`
}
