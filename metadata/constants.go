package metadata

// Type is a metadata type tag sent as the Type parameter of a GetMetadata
// transaction and used as the element name of each metadata block in a reply.
type Type string

const (
	TypeSystem     Type = "METADATA-SYSTEM"
	TypeResource   Type = "METADATA-RESOURCE"
	TypeClass      Type = "METADATA-CLASS"
	TypeTable      Type = "METADATA-TABLE"
	TypeLookup     Type = "METADATA-LOOKUP"
	TypeLookupType Type = "METADATA-LOOKUP_TYPE"
	TypeObject     Type = "METADATA-OBJECT"
)

// Kinds lists every metadata type this package can project.
var Kinds = []Type{
	TypeSystem,
	TypeResource,
	TypeClass,
	TypeTable,
	TypeLookup,
	TypeLookupType,
	TypeObject,
}

// Valid reports whether t is one of the known metadata types.
func (t Type) Valid() bool {
	for _, k := range Kinds {
		if t == k {
			return true
		}
	}
	return false
}

// Format is the Format parameter of a GetMetadata transaction.
type Format string

const (
	// FormatCompact is the only format decoded by this package.
	FormatCompact        Format = "COMPACT"
	FormatCompactDecoded Format = "COMPACT-DECODED"
	FormatStandardXML    Format = "STANDARD-XML"
)

// Metadata identifiers.
const (
	// IDRoot selects the root of a metadata type (the system, or all resources).
	IDRoot = "0"
	// IDAll asks the server for every element of a type in one reply.
	IDAll = "*"
)

// ID builds a GetMetadata ID from its parts: ID("Property") is "Property",
// ID("Property", "RES") is "Property:RES".
func ID(parts ...string) string {
	switch len(parts) {
	case 0:
		return IDRoot
	case 1:
		return parts[0]
	}
	id := parts[0]
	for _, p := range parts[1:] {
		id += ":" + p
	}
	return id
}

// Element and attribute names of the reply envelope.
const (
	ElementRETS         = "RETS"
	ElementRETSResponse = "RETS-RESPONSE"
	ElementDelimiter    = "DELIMITER"
	ElementColumns      = "COLUMNS"
	ElementData         = "DATA"
	ElementSystem       = "SYSTEM"
	ElementComments     = "COMMENTS"

	AttrReplyCode = "ReplyCode"
	AttrReplyText = "ReplyText"
	AttrValue     = "value"

	AttrResource = "Resource"
	AttrClass    = "Class"
	AttrLookup   = "Lookup"
	AttrVersion  = "Version"
	AttrDate     = "Date"
)

// DefaultDelimiter is used when a reply carries no DELIMITER element.
const DefaultDelimiter = '\t'

// Reply codes. Any non-zero code is a failure; the named codes only improve
// diagnostics.
const (
	ReplySuccess                   = 0
	ReplyZeroBalance               = 20003
	ReplyInvalidResourceSearch     = 20013
	ReplyMiscLoginError            = 20036
	ReplyClientAuthFailed          = 20037
	ReplyUserAgentAuthRequired     = 20041
	ReplyInvalidResource           = 20500
	ReplyInvalidType               = 20501
	ReplyInvalidIdentifier         = 20502
	ReplyNoMetadataFound           = 20503
	ReplyUnsupportedMetadataFormat = 20506
	ReplyMiscMetadataError         = 20513
	ReplyNotLoggedIn               = 20701
)

var replyDescriptions = map[int]string{
	ReplySuccess:                   "success",
	ReplyZeroBalance:               "zero balance",
	ReplyInvalidResourceSearch:     "invalid resource",
	ReplyMiscLoginError:            "miscellaneous server login error",
	ReplyClientAuthFailed:          "client authentication failed",
	ReplyUserAgentAuthRequired:     "user agent authentication required",
	ReplyInvalidResource:           "invalid resource",
	ReplyInvalidType:               "invalid type",
	ReplyInvalidIdentifier:         "invalid identifier",
	ReplyNoMetadataFound:           "no metadata found",
	ReplyUnsupportedMetadataFormat: "unsupported metadata format",
	ReplyMiscMetadataError:         "miscellaneous error",
	ReplyNotLoggedIn:               "not logged in",
}

// Capability names advertised in a login reply.
const (
	CapabilityLogin             = "Login"
	CapabilityLogout            = "Logout"
	CapabilitySearch            = "Search"
	CapabilityGetMetadata       = "GetMetadata"
	CapabilityGetObject         = "GetObject"
	CapabilityChangePassword    = "ChangePassword"
	CapabilityUpdate            = "Update"
	CapabilityPostObject        = "PostObject"
	CapabilityAction            = "Action"
	CapabilityServerInformation = "ServerInformation"
)

var capabilityNames = map[string]bool{
	CapabilityLogin:             true,
	CapabilityLogout:            true,
	CapabilitySearch:            true,
	CapabilityGetMetadata:       true,
	CapabilityGetObject:         true,
	CapabilityChangePassword:    true,
	CapabilityUpdate:            true,
	CapabilityPostObject:        true,
	CapabilityAction:            true,
	CapabilityServerInformation: true,
}

// IsCapability reports whether name is a known capability URL key.
func IsCapability(name string) bool {
	return capabilityNames[name]
}
