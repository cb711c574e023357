package identity

import (
	"crypto/sha1"
	"encoding/hex"
)

const usernamePrefix = "enrol_lti"

// Username derives the local username for a platform user. It is the only
// key linking a local account to its (issuer, client, deployment, subject)
// tuple, so it must never change for the same inputs.
func Username(issuer, clientID, deploymentID, subject string) string {
	consumerKey := issuer + clientID + deploymentID
	userKey := consumerKey + ":" + subject
	sum := sha1.Sum([]byte(consumerKey + "::" + userKey))
	return usernamePrefix + hex.EncodeToString(sum[:])
}
