package wire

// Fully qualified gRPC method names.
const (
	MethodOrgList         = "/helium.iot_config.org/list"
	MethodOrgGet          = "/helium.iot_config.org/get"
	MethodOrgCreateHelium = "/helium.iot_config.org/create_helium"
	MethodOrgCreateRoamer = "/helium.iot_config.org/create_roamer"

	MethodRouteList                = "/helium.iot_config.route/list"
	MethodRouteGet                 = "/helium.iot_config.route/get"
	MethodRouteCreate              = "/helium.iot_config.route/create"
	MethodRouteUpdate              = "/helium.iot_config.route/update"
	MethodRouteDelete              = "/helium.iot_config.route/delete"
	MethodRouteGetEuis             = "/helium.iot_config.route/get_euis"
	MethodRouteUpdateEuis          = "/helium.iot_config.route/update_euis"
	MethodRouteDeleteEuis          = "/helium.iot_config.route/delete_euis"
	MethodRouteGetDevaddrRanges    = "/helium.iot_config.route/get_devaddr_ranges"
	MethodRouteUpdateDevaddrRanges = "/helium.iot_config.route/update_devaddr_ranges"
	MethodRouteDeleteDevaddrRanges = "/helium.iot_config.route/delete_devaddr_ranges"

	MethodSkfList   = "/helium.iot_config.session_key_filter/list"
	MethodSkfGet    = "/helium.iot_config.session_key_filter/get"
	MethodSkfUpdate = "/helium.iot_config.session_key_filter/update"

	MethodGatewayLoadRegion = "/helium.iot_config.gateway/load_region"
)

// Org service.

type OrgListReq struct{}

type OrgListRes struct {
	Orgs []Org `cbor:"1,keyasint,omitempty"`
}

type OrgGetReq struct {
	Oui uint64 `cbor:"1,keyasint,omitempty"`
}

// OrgRes is returned by org get and create.
type OrgRes struct {
	Org                *Org                `cbor:"1,keyasint,omitempty"`
	NetID              uint32              `cbor:"2,keyasint,omitempty"`
	DevaddrConstraints []DevaddrConstraint `cbor:"3,keyasint,omitempty"`
}

// OrgCreateHeliumReq allocates a new organization with devaddrs addresses
// inside the Helium NetID.
type OrgCreateHeliumReq struct {
	Owner        []byte   `cbor:"1,keyasint,omitempty"`
	Payer        []byte   `cbor:"2,keyasint,omitempty"`
	Devaddrs     uint64   `cbor:"3,keyasint,omitempty"`
	DelegateKeys [][]byte `cbor:"4,keyasint,omitempty"`
	Signed
}

// OrgCreateRoamerReq registers an organization for a roaming partner NetID.
type OrgCreateRoamerReq struct {
	Owner        []byte   `cbor:"1,keyasint,omitempty"`
	Payer        []byte   `cbor:"2,keyasint,omitempty"`
	NetID        uint32   `cbor:"3,keyasint,omitempty"`
	DelegateKeys [][]byte `cbor:"4,keyasint,omitempty"`
	Signed
}

// Route service.

type RouteListReq struct {
	Oui uint64 `cbor:"1,keyasint,omitempty"`
	Signed
}

type RouteListRes struct {
	Routes []Route `cbor:"1,keyasint,omitempty"`
}

type RouteGetReq struct {
	ID string `cbor:"1,keyasint,omitempty"`
	Signed
}

type RouteCreateReq struct {
	Oui   uint64 `cbor:"1,keyasint,omitempty"`
	Route *Route `cbor:"2,keyasint,omitempty"`
	Signed
}

type RouteUpdateReq struct {
	Route *Route `cbor:"1,keyasint,omitempty"`
	Signed
}

type RouteDeleteReq struct {
	ID string `cbor:"1,keyasint,omitempty"`
	Signed
}

type RouteGetEuisReq struct {
	RouteID string `cbor:"1,keyasint,omitempty"`
	Signed
}

// RouteUpdateEuisReq is one element of the update_euis client stream.
type RouteUpdateEuisReq struct {
	Action  Action   `cbor:"1,keyasint,omitempty"`
	EuiPair *EuiPair `cbor:"2,keyasint,omitempty"`
	Signed
}

type RouteEuisRes struct{}

type RouteDeleteEuisReq struct {
	RouteID string `cbor:"1,keyasint,omitempty"`
	Signed
}

type RouteGetDevaddrRangesReq struct {
	RouteID string `cbor:"1,keyasint,omitempty"`
	Signed
}

// RouteUpdateDevaddrRangesReq is one element of the update_devaddr_ranges
// client stream.
type RouteUpdateDevaddrRangesReq struct {
	Action       Action        `cbor:"1,keyasint,omitempty"`
	DevaddrRange *DevaddrRange `cbor:"2,keyasint,omitempty"`
	Signed
}

type RouteDevaddrRangesRes struct{}

type RouteDeleteDevaddrRangesReq struct {
	RouteID string `cbor:"1,keyasint,omitempty"`
	Signed
}

// Session key filter service.

type SessionKeyFilterListReq struct {
	Oui uint64 `cbor:"1,keyasint,omitempty"`
	Signed
}

type SessionKeyFilterGetReq struct {
	Oui     uint64 `cbor:"1,keyasint,omitempty"`
	Devaddr uint32 `cbor:"2,keyasint,omitempty"`
	Signed
}

// SessionKeyFilterUpdateReq is one element of the session key filter update
// client stream.
type SessionKeyFilterUpdateReq struct {
	Action Action            `cbor:"1,keyasint,omitempty"`
	Filter *SessionKeyFilter `cbor:"2,keyasint,omitempty"`
	Signed
}

type SessionKeyFilterUpdateRes struct{}

// Gateway service.

// GatewayLoadRegionReq pushes a region's channel plan and its H3 index set.
type GatewayLoadRegionReq struct {
	Region     Region        `cbor:"1,keyasint,omitempty"`
	Params     *RegionParams `cbor:"2,keyasint,omitempty"`
	HexIndexes []byte        `cbor:"3,keyasint,omitempty"`
	Signed
}

type GatewayLoadRegionRes struct{}
