// Package events publishes transform results and broken references to NATS JetStream
// so downstream consumers (dashboards, issue bots) can react to them.
package events
