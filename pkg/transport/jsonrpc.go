package transport

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/exp/jsonrpc2"

	"github.com/stacklok/vibetool/pkg/logger"
)

// DecodeLine parses a single newline-delimited line from the container's
// stdout into a JSON-RPC message. Lines polluted with binary garbage are
// sanitized first; a line with no JSON object at all returns an empty
// message and no error so the caller can skip it.
func DecodeLine(line string) (jsonrpc2.Message, error) {
	jsonData := sanitizeJSONString(line)
	if jsonData == "" {
		return nil, nil
	}

	msg, err := jsonrpc2.DecodeMessage([]byte(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	return msg, nil
}

// EncodeLine serializes a JSON-RPC message followed by exactly one newline,
// ready to be written to the container's stdin.
func EncodeLine(msg jsonrpc2.Message) ([]byte, error) {
	data, err := jsonrpc2.EncodeMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON-RPC message: %w", err)
	}
	return append(data, '\n'), nil
}

// IsRequest checks whether the message is a request (a call carrying an id).
func IsRequest(msg jsonrpc2.Message) bool {
	req, ok := msg.(*jsonrpc2.Request)
	return ok && req.IsCall()
}

// IsNotification checks whether the message is a notification (a method
// invocation without an id).
func IsNotification(msg jsonrpc2.Message) bool {
	req, ok := msg.(*jsonrpc2.Request)
	return ok && !req.IsCall()
}

// IsResponse checks whether the message is a response to an earlier request.
func IsResponse(msg jsonrpc2.Message) bool {
	_, ok := msg.(*jsonrpc2.Response)
	return ok
}

// LogMessage logs a JSON-RPC message at debug level.
func LogMessage(msg jsonrpc2.Message) {
	switch m := msg.(type) {
	case *jsonrpc2.Request:
		if m.IsCall() {
			logger.Debugf("JSON-RPC request: method=%s id=%v", m.Method, m.ID)
		} else {
			logger.Debugf("JSON-RPC notification: method=%s", m.Method)
		}
	case *jsonrpc2.Response:
		logger.Debugf("JSON-RPC response: id=%v", m.ID)
	}
}

// sanitizeJSONString extracts the first JSON object from a string,
// dropping any binary garbage around or inside it.
func sanitizeJSONString(input string) string {
	startIdx := strings.Index(input, "{")
	if startIdx == -1 {
		return "" // No JSON object found
	}

	endIdx := strings.LastIndex(input, "}")
	if endIdx == -1 || endIdx < startIdx {
		return ""
	}

	jsonObj := input[startIdx : endIdx+1]

	// Remove replacement characters and non-printable bytes that sneak in
	// when a container writes binary data to its stdout.
	var sb strings.Builder
	for _, r := range jsonObj {
		if r != '\uFFFD' && (unicode.IsPrint(r) || isSpace(r)) {
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// isSpace reports whether r is a space character as defined by JSON.
func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
