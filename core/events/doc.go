// Package events defines the estimation events emitted on the event bus.
//
// Available event types:
//   - EstimateEvent: one range computation, successful or rejected
package events
