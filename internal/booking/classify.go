package booking

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"unicode/utf8"

	"flashtix/internal/core"
	"flashtix/internal/template"
)

// maxPlainMessage bounds a non-JSON error body used verbatim as a detail.
const maxPlainMessage = 120

// Classifier maps a booking response to an outcome kind and detail.
type Classifier struct {
	// ConflictStatuses mean the target is held or sold. Usually just 409.
	ConflictStatuses []int
	// OwnerPath locates the owning user id in a 2xx body. Empty trusts
	// the status code alone.
	OwnerPath string
	// MessagePath locates a human-readable message in an error body.
	MessagePath string
}

// Classify decides the outcome of a response received for actor.
//
//	conflict status        -> Conflict, server message as detail
//	2xx, owner == actor    -> Acquired
//	2xx, owner unreadable  -> OtherFailure "malformed success body: ..."
//	2xx, owner != actor    -> OtherFailure "owner mismatch: ..."
//	anything else          -> OtherFailure "<status>: <message>"
func (c Classifier) Classify(status int, body []byte, actor core.ActorID) (core.OutcomeKind, string) {
	if slices.Contains(c.ConflictStatuses, status) {
		return core.Conflict, c.message(status, body)
	}

	if status >= 200 && status < 300 {
		if c.OwnerPath == "" {
			return core.Acquired, ""
		}
		owner, err := template.ExtractInt(body, c.OwnerPath)
		if err != nil {
			return core.OtherFailure, "malformed success body: " + err.Error()
		}
		if core.ActorID(owner) != actor {
			return core.OtherFailure, fmt.Sprintf("owner mismatch: ticket owned by %d", owner)
		}
		return core.Acquired, ""
	}

	return core.OtherFailure, fmt.Sprintf("%d: %s", status, c.message(status, body))
}

// message prefers the JSON message field, then a short plain-text body,
// then the standard status text.
func (c Classifier) message(status int, body []byte) string {
	if msg := template.ExtractString(body, c.MessagePath); msg != "" {
		return msg
	}
	text := strings.TrimSpace(string(body))
	if text != "" && len(text) <= maxPlainMessage && utf8.ValidString(text) &&
		!strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") {
		return text
	}
	if st := http.StatusText(status); st != "" {
		return st
	}
	return "unexpected status"
}
