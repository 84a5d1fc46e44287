package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

const (
	SignatureHeader = "Stripe-Signature"

	defaultSignatureTolerance = 5 * time.Minute
	signatureSchemeV1         = "v1"
)

type Verifier interface {
	Verify(payload []byte, header string) error
}

// SignatureVerifier checks the processor's timestamped HMAC-SHA256 signature
// header ("t=<unix>,v1=<hex>[,v1=<hex>...]") against every configured secret
// so secrets can be rotated without downtime.
type SignatureVerifier struct {
	Secrets   []string
	Tolerance time.Duration
	Now       func() time.Time
}

func NewSignatureVerifier(secrets []string, tolerance time.Duration) *SignatureVerifier {
	cleaned := make([]string, 0, len(secrets))
	for _, secret := range secrets {
		if secret = strings.TrimSpace(secret); secret != "" {
			cleaned = append(cleaned, secret)
		}
	}
	if tolerance <= 0 {
		tolerance = defaultSignatureTolerance
	}
	return &SignatureVerifier{
		Secrets:   cleaned,
		Tolerance: tolerance,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (v *SignatureVerifier) Verify(payload []byte, header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return core.AuthenticationError("webhooks: signature header is required", nil)
	}
	if v == nil || len(v.Secrets) == 0 {
		return core.AuthenticationError("webhooks: no signing secret configured", nil)
	}

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	signedAt := time.Unix(timestamp, 0).UTC()
	if age := v.now().Sub(signedAt); age > v.tolerance() || age < -v.tolerance() {
		return core.AuthenticationError("webhooks: signature timestamp outside tolerance", map[string]any{
			"signed_at": signedAt.Format(time.RFC3339),
		})
	}

	for _, secret := range v.Secrets {
		expected := computeSignature(payload, secret, timestamp)
		for _, candidate := range signatures {
			if subtle.ConstantTimeCompare(candidate, expected) == 1 {
				return nil
			}
		}
	}
	return core.AuthenticationError("webhooks: signature verification failed", nil)
}

func (v *SignatureVerifier) now() time.Time {
	if v != nil && v.Now != nil {
		return v.Now().UTC()
	}
	return time.Now().UTC()
}

func (v *SignatureVerifier) tolerance() time.Duration {
	if v != nil && v.Tolerance > 0 {
		return v.Tolerance
	}
	return defaultSignatureTolerance
}

func parseSignatureHeader(header string) (int64, [][]byte, error) {
	var (
		timestamp  int64
		haveTime   bool
		signatures [][]byte
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "t":
			parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return 0, nil, core.AuthenticationError("webhooks: signature timestamp is invalid", nil)
			}
			timestamp = parsed
			haveTime = true
		case signatureSchemeV1:
			decoded, err := hex.DecodeString(strings.TrimSpace(value))
			if err != nil {
				continue
			}
			signatures = append(signatures, decoded)
		}
	}
	if !haveTime {
		return 0, nil, core.AuthenticationError("webhooks: signature timestamp is required", nil)
	}
	if len(signatures) == 0 {
		return 0, nil, core.AuthenticationError("webhooks: no v1 signature present", nil)
	}
	return timestamp, signatures, nil
}

func computeSignature(payload []byte, secret string, timestamp int64) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(payload)
	return mac.Sum(nil)
}

// SignPayload builds a signature header for payload, as the processor would.
// Used by the replay command and tests.
func SignPayload(payload []byte, secret string, at time.Time) string {
	timestamp := at.UTC().Unix()
	return fmt.Sprintf("t=%d,%s=%s", timestamp, signatureSchemeV1, hex.EncodeToString(computeSignature(payload, secret, timestamp)))
}
