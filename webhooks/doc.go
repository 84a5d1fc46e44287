// Package webhooks authenticates and parses inbound payment processor
// deliveries and hands verified events to the router.
package webhooks
