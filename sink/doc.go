// Package sink provides bridge.Publisher implementations: an MQTT client, a
// Redis PUBLISH sink, a logging sink for dry runs and a bounded queue that
// decouples the receive loop from a slow broker.
package sink
