package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = LVSemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// LVSemVer is the current version of the light verifier.
	// It's the Semantic Version of the software.
	LVSemVer = "0.1.0"
)

// Protocol is used for implementation agnostic versioning.
type Protocol uint64

// Uint64 returns the Protocol version as a uint64.
func (p Protocol) Uint64() uint64 {
	return uint64(p)
}

var (
	// BlockProtocol versions all block data structures and processing.
	// This includes validity of blocks and state updates.
	BlockProtocol Protocol = 11

	// supportedBlockProtocols lists the block protocols whose header and
	// vote encodings this module reproduces.
	supportedBlockProtocols = map[Protocol]struct{}{
		11: {},
	}
)

// IsSupportedBlockProtocol reports whether headers of block protocol p can
// be hashed and verified.
func IsSupportedBlockProtocol(p Protocol) bool {
	_, ok := supportedBlockProtocols[p]
	return ok
}

//------------------------------------------------------------------------
// Version types

// Consensus captures the consensus rules for processing a block in the blockchain,
// including all blockchain data structures and the rules of the application's
// state transition machine.
type Consensus struct {
	Block Protocol `json:"block,string"`
	App   Protocol `json:"app,string"`
}
