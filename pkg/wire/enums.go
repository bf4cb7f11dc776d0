package wire

// Action selects whether a streamed update adds or removes an element.
type Action int32

const (
	// ActionAdd adds the element carried by the update.
	ActionAdd Action = 0

	// ActionRemove removes the element carried by the update.
	ActionRemove Action = 1
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "ADD"
	case ActionRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if the action is known.
func (a Action) IsValid() bool {
	return a == ActionAdd || a == ActionRemove
}

// Region is the wire representation of a LoRaWAN regional plan.
type Region int32

const (
	RegionUS915    Region = 0
	RegionEU868    Region = 1
	RegionEU433    Region = 2
	RegionCN470    Region = 3
	RegionCN779    Region = 4
	RegionAU915    Region = 5
	RegionAS923_1  Region = 6
	RegionKR920    Region = 7
	RegionIN865    Region = 8
	RegionAS923_2  Region = 9
	RegionAS923_3  Region = 10
	RegionAS923_4  Region = 11
	RegionAS923_1B Region = 12
	RegionCD900_1A Region = 13
)

var regionNames = map[Region]string{
	RegionUS915:    "US915",
	RegionEU868:    "EU868",
	RegionEU433:    "EU433",
	RegionCN470:    "CN470",
	RegionCN779:    "CN779",
	RegionAU915:    "AU915",
	RegionAS923_1:  "AS923_1",
	RegionKR920:    "KR920",
	RegionIN865:    "IN865",
	RegionAS923_2:  "AS923_2",
	RegionAS923_3:  "AS923_3",
	RegionAS923_4:  "AS923_4",
	RegionAS923_1B: "AS923_1B",
	RegionCD900_1A: "CD900_1A",
}

// String returns the wire region name, e.g. "AS923_1B".
func (r Region) String() string {
	if name, ok := regionNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsValid returns true if the region is known.
func (r Region) IsValid() bool {
	_, ok := regionNames[r]
	return ok
}

// FlowType selects the HTTP roaming flow.
type FlowType int32

const (
	// FlowTypeSync answers roaming requests in the same HTTP exchange.
	FlowTypeSync FlowType = 0

	// FlowTypeAsync answers roaming requests with a separate callback.
	FlowTypeAsync FlowType = 1
)

// String returns the flow type name.
func (f FlowType) String() string {
	switch f {
	case FlowTypeSync:
		return "SYNC"
	case FlowTypeAsync:
		return "ASYNC"
	default:
		return "UNKNOWN"
	}
}
