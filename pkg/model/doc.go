// Package model defines the domain objects an operator works with and
// their mapping to and from the wire messages of package wire.
//
// # Objects
//
//	Org            organization, identified by its OUI
//	Route          forwarding destination of an organization
//	  Server       host, port and Protocol
//	  Protocol     PacketRouter | Gwmp{region→port} | HTTP roaming
//	EuiPair        AppEUI/DevEUI pair owned by a route
//	SessionKeyFilter
//	RegionParams   channel plan pushed for a Region
//
// DevAddr ranges are devaddr.Range and devaddr.Constraint.
//
// # Conversions
//
// Every object has a ToWire method and a <Object>FromWire function. The
// FromWire direction validates what the server sent (known regions, net
// ids within 24 bits, ordered ranges, well-formed public keys) and fails
// instead of producing an invalid domain value.
//
// All objects marshal to JSON with snake_case keys; hex fields use their
// fixed-width uppercase text form and public keys their base58 form.
package model
