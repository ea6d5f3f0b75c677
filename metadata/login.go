package metadata

import (
	"strings"

	"github.com/beevik/etree"
)

// LoginReply is a parsed login (or logout) transaction reply.
type LoginReply struct {
	Code int
	Text string

	// Capabilities maps capability names (GetMetadata, Logout, ...) to the
	// URLs exactly as the server sent them; they may be relative.
	Capabilities map[string]string

	// Info holds every other key=value pair of the response body:
	// MemberName, User, Broker, MetadataVersion, TimeoutSeconds, and for a
	// logout reply ConnectTime, Billing, SignOffMessage.
	Info map[string]string
}

// ParseLogin parses a login reply and requires a capability list that
// includes GetMetadata.
func ParseLogin(body []byte) (*LoginReply, error) {
	reply, err := parseKeyValueReply(body)
	if err != nil {
		return reply, err
	}
	if len(reply.Capabilities) == 0 {
		return nil, &ProtocolError{Message: "login reply has no capability list"}
	}
	if reply.Capabilities[CapabilityGetMetadata] == "" {
		return nil, &ProtocolError{Message: "login reply has no GetMetadata capability"}
	}
	return reply, nil
}

// ParseLogout parses a logout reply. The body is optional.
func ParseLogout(body []byte) (*LoginReply, error) {
	return parseKeyValueReply(body)
}

func parseKeyValueReply(body []byte) (*LoginReply, error) {
	root, err := readEnvelope(body)
	if err != nil {
		return nil, err
	}

	reply := &LoginReply{
		Capabilities: make(map[string]string),
		Info:         make(map[string]string),
	}
	reply.Code, reply.Text, err = replyStatus(root)
	if err != nil {
		return nil, err
	}
	if reply.Code != ReplySuccess {
		return reply, &ReplyCodeError{Code: reply.Code, Text: reply.Text}
	}

	for key, value := range keyValues(responseText(root)) {
		if IsCapability(key) {
			reply.Capabilities[key] = value
		} else {
			reply.Info[key] = value
		}
	}
	return reply, nil
}

// responseText returns the RETS-RESPONSE body, or the RETS element text for
// servers that put the key=value list directly in the envelope.
func responseText(root *etree.Element) string {
	if resp := root.SelectElement(ElementRETSResponse); resp != nil {
		return resp.Text()
	}
	return root.Text()
}

// keyValues parses "Key=Value" lines. Keys are trimmed; a value may itself
// contain '='. Lines without '=' are ignored.
func keyValues(text string) map[string]string {
	kv := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		kv[key] = strings.TrimSpace(value)
	}
	return kv
}
