package types

// Version is the canonical client version.
// The CLI, the adapter event payloads and the transcript archive records
// all report this value.
const Version = "0.3.0"

// EventContractVersion is the version of the notification event shape
// published by adapters.
const EventContractVersion = "0.1.0"
