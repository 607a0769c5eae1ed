// Package health collects and publishes per-path sync state.
//
// The sync engine reports every attribute operation outcome through the Sink
// interface: "working" after a successful device write or store merge,
// "error" when something fails. Two implementations exist:
//
//   - StoreSink persists one record per path under an errors prefix in the
//     store, the durable source of truth for external tooling.
//   - Reporter mirrors reports to retained MQTT state topics and publishes a
//     periodic daemon health message.
//
// Combine them with MultiSink when both outputs are wanted.
package health
