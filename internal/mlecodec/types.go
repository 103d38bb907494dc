package mlecodec

// TLV type codes carried in MLE commands.  All multi-byte
// payloads are big-endian.
const (
	TypeSourceAddress      uint8 = 1
	TypeMode               uint8 = 2
	TypeTimeout            uint8 = 3
	TypeChallenge          uint8 = 4
	TypeResponse           uint8 = 5
	TypeLinkFrameCounter   uint8 = 6
	TypeLinkQuality        uint8 = 7
	TypeNetworkParameter   uint8 = 8
	TypeMleFrameCounter    uint8 = 9
	TypeRoute              uint8 = 10
	TypeAddress16          uint8 = 11
	TypeLeaderData         uint8 = 12
	TypeNetworkData        uint8 = 13
	TypeTlvRequest         uint8 = 14
	TypeScanMask           uint8 = 15
	TypeConnectivity       uint8 = 16
	TypeLinkMargin         uint8 = 17
	TypeStatus             uint8 = 18
	TypeVersion            uint8 = 19
	TypeAddressRegistration uint8 = 20
	TypeRssi               uint8 = 21
)

// CurrentVersion is the only Version TLV value this implementation emits or
// accepts.
const CurrentVersion uint16 = 1

// Command bytes identify the MLE command following the security header.
type Command uint8

const (
	CommandLinkRequest        Command = 0
	CommandLinkAccept         Command = 1
	CommandLinkAcceptAndRequest Command = 2
	CommandLinkReject         Command = 3
	CommandAdvertisement      Command = 8
	CommandParentRequest      Command = 9
	CommandParentResponse     Command = 10
	CommandChildIDRequest     Command = 11
	CommandChildIDResponse    Command = 12
	CommandChildUpdateRequest Command = 13
	CommandChildUpdateResponse Command = 14
	CommandDataRequest        Command = 15
	CommandDataResponse       Command = 16
)

// ScanMask bits on a Parent Request TLV select which device classes may
// respond.
const (
	ScanMaskRouter uint8 = 0x80
	ScanMaskChild  uint8 = 0x40
)
