// Package core contains the reconciliation domain: entities, processor event
// shapes, store and processor contracts, configuration, and the error
// taxonomy. Adapters depend on core; core depends on no adapter.
package core
