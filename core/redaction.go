package core

import "strings"

const RedactedValue = "[REDACTED]"

// RedactSensitiveMap returns a copy of metadata that is safe to log: credential
// keys are replaced and donor addresses are masked. Identifier keys used to
// trace a delivery stay visible.
func RedactSensitiveMap(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return redactSensitiveMap(metadata)
}

func redactSensitiveMap(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		switch {
		case shouldRedactKey(key):
			target[key] = RedactedValue
		case isAddressKey(key):
			target[key] = maskAddress(value)
		default:
			target[key] = redactSensitiveValue(value)
		}
	}
	return target
}

func redactSensitiveValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return redactSensitiveMap(typed)
	case map[string]string:
		nested := make(map[string]any, len(typed))
		for key, value := range typed {
			nested[key] = value
		}
		return redactSensitiveMap(nested)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = redactSensitiveValue(typed[i])
		}
		return out
	default:
		return value
	}
}

var sensitiveTokens = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"api_key",
	"apikey",
	"signature",
	"client_secret",
	"routing_number",
	"account_number",
}

func shouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || isTraceabilityKey(key) {
		return false
	}
	for _, token := range sensitiveTokens {
		if strings.Contains(key, token) {
			return true
		}
	}
	return false
}

func isTraceabilityKey(key string) bool {
	switch key {
	case "event_id",
		"payment_id",
		"donation_id",
		"invoice_id",
		"subscription_id",
		"account_id",
		"transfer_group",
		"idempotency_key",
		"dispatch_key",
		"request_id":
		return true
	default:
		return false
	}
}

func isAddressKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	return key == "recipient" || strings.HasSuffix(key, "email")
}

// maskAddress keeps the first character of the local part and the domain.
func maskAddress(value any) any {
	address, ok := value.(string)
	if !ok {
		return value
	}
	address = strings.TrimSpace(address)
	at := strings.LastIndex(address, "@")
	if at <= 0 {
		if address == "" {
			return address
		}
		return RedactedValue
	}
	return address[:1] + "***" + address[at:]
}
