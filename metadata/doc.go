// Package metadata decodes RETS GetMetadata replies.
//
// This package is the wire layer of the client: it knows the reply envelope,
// the COMPACT table format and the shape of every metadata record, but it
// performs no I/O and holds no session state.
//
// # Pipeline
//
// A reply body goes through three steps:
//
//   - ParseReply reads the RETS envelope and checks ReplyCode
//   - Reply.Tables splits each METADATA-* block into a RawTable
//   - Project* turns a RawTable into typed records
//
// Example:
//
//	reply, err := metadata.ParseReply(body)
//	if err != nil {
//	    return err // *ReplyCodeError or *ProtocolError
//	}
//	raw, err := reply.Table(metadata.TypeClass)
//	if err != nil {
//	    return err
//	}
//	classes, err := metadata.ProjectClasses(raw)
//
// # Compact format
//
// A compact table is a COLUMNS line followed by DATA lines. Values are
// separated by the delimiter declared in the reply's DELIMITER element
// (a tab unless stated otherwise), and each line is framed by a leading and
// trailing delimiter:
//
//	<DELIMITER value="09"/>
//	<METADATA-CLASS Resource="Property" Version="1.00.000" Date="2024-01-01T00:00:00">
//	<COLUMNS>	ClassName	StandardName	VisibleName	TableVersion	</COLUMNS>
//	<DATA>	RES	ResidentialProperty	Residential	1.00.000	</DATA>
//	</METADATA-CLASS>
//
// Decode and SplitLine implement the format on their own, without XML.
//
// # Error Handling
//
//   - ReplyCodeError: the server refused the request; the body was not read
//   - ProtocolError: the reply is not a usable RETS envelope
//   - MalformedRowError: a DATA line has the wrong number of values
//   - MissingRequiredFieldError: a required column or attribute is absent, or an identifier is empty
//
// # Records
//
// Record structs name the columns the protocol defines. Columns a server adds
// beyond those end up in each record's Extra map, so nothing is dropped.
// Version and date values are kept as strings.
//
// # Thread Safety
//
// All functions are safe for concurrent use. Reply and RawTable values are
// not modified after parsing and may be shared for reading.
package metadata
