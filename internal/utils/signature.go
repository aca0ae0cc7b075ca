package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries "t=<unix seconds>,v1=<hex hmac>" on outgoing webhooks.
const SignatureHeader = "X-Webhook-Signature"

// ErrInvalidSignature is returned when a webhook signature does not verify.
var ErrInvalidSignature = errors.New("INVALID_SIGNATURE")

func webhookMAC(payload []byte, secret string, unix int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(unix, 10)))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignWebhook signs "<unix>.<payload>" with the business secret and returns
// the SignatureHeader value.
func SignWebhook(payload []byte, secret string, at time.Time) string {
	unix := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", unix, webhookMAC(payload, secret, unix))
}

// VerifyWebhook checks a SignatureHeader value. Signatures older than
// tolerance are rejected; a zero tolerance skips the age check.
func VerifyWebhook(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	var unix int64
	var sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("bad timestamp: %w", ErrInvalidSignature)
			}
			unix = n
		case "v1":
			sig = v
		}
	}
	if unix == 0 || sig == "" {
		return fmt.Errorf("malformed header: %w", ErrInvalidSignature)
	}
	if tolerance > 0 && now.Sub(time.Unix(unix, 0)) > tolerance {
		return fmt.Errorf("signature expired: %w", ErrInvalidSignature)
	}
	if !hmac.Equal([]byte(sig), []byte(webhookMAC(payload, secret, unix))) {
		return ErrInvalidSignature
	}
	return nil
}
