package nats

import (
	"fmt"
	"strings"
)

// SubjectPrefix is the prefix for all per-user interaction subjects.
const SubjectPrefix = "interact.user"

// UserSubject returns the subject carrying event for userID.
func UserSubject(userID, event string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, userID, event)
}

// UserFilter returns the wildcard subject matching every event for userID.
func UserFilter(userID string) string {
	return fmt.Sprintf("%s.%s.*", SubjectPrefix, userID)
}

// EventFromSubject extracts the event name from a per-user subject.
func EventFromSubject(subject string) string {
	if i := strings.LastIndexByte(subject, '.'); i >= 0 {
		return subject[i+1:]
	}
	return subject
}

// ValidUserID reports whether userID can be embedded in a subject as a single token.
func ValidUserID(userID string) bool {
	return userID != "" && !strings.ContainsAny(userID, ".*> \t\r\n")
}
