package tokens

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionDecline Action = "decline"
)

func (a Action) Valid() bool {
	return a == ActionApprove || a == ActionDecline
}

// ActionClaims is what a verified email action token binds to.
type ActionClaims struct {
	SubjectID string
	Action    Action
}

// SignAction builds base64url("subject:action:hex(hmac(subject:action))").
// These tokens carry no expiry; replays are absorbed by idempotent transitions.
func SignAction(subjectID string, action Action, secret []byte) string {
	payload := subjectID + ":" + string(action)
	sig := actionMAC(payload, secret)
	return base64.RawURLEncoding.EncodeToString([]byte(payload + ":" + sig))
}

// VerifyAction returns false for anything malformed or forged.
func VerifyAction(token string, secret []byte) (ActionClaims, bool) {
	if len(secret) == 0 {
		return ActionClaims{}, false
	}
	raw, ok := decodeToken(token)
	if !ok {
		return ActionClaims{}, false
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return ActionClaims{}, false
	}
	subjectID, action, sig := parts[0], Action(parts[1]), parts[2]
	if subjectID == "" || !action.Valid() {
		return ActionClaims{}, false
	}
	if !equalSig(sig, actionMAC(subjectID+":"+string(action), secret)) {
		return ActionClaims{}, false
	}
	return ActionClaims{SubjectID: subjectID, Action: action}, true
}

func actionMAC(payload string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func decodeToken(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	decoded, err := base64.RawURLEncoding.Strict().DecodeString(token)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

// equalSig compares the lowercase hex text itself; decoding first would let a
// case change in the signature through.
func equalSig(got, want string) bool {
	return hmac.Equal([]byte(got), []byte(want))
}
