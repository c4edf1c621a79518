package parse

// ServerInfo is what the handshake learns about the server from its Hello
// packet: name, version, protocol revision, and (revision-gated) timezone,
// display name, and version patch.
type ServerInfo struct {
	Name          string
	VersionMajor  uint64
	VersionMinor  uint64
	Revision      uint64
	Timezone      string
	DisplayName   string
	VersionPatch  uint64
}
