package types

import (
	"fmt"
	"time"

	gogotypes "github.com/gogo/protobuf/types"

	tmbytes "github.com/tendermint/light-verifier/libs/bytes"
	"github.com/tendermint/light-verifier/libs/protoio"
)

// Canonical* wraps the structs in types for protobuf encoding them for use in
// SignBytes.

// SignedMsgType is a type of signed message in the consensus.
type SignedMsgType int32

const (
	UnknownType SignedMsgType = 0
	// Votes
	PrevoteType   SignedMsgType = 1
	PrecommitType SignedMsgType = 2
)

type CanonicalPartSetHeader struct {
	Total uint32
	Hash  tmbytes.HexBytes
}

type CanonicalBlockID struct {
	Hash          tmbytes.HexBytes
	PartSetHeader CanonicalPartSetHeader
}

// CanonicalVote is the message a validator signs when voting.
type CanonicalVote struct {
	Type      SignedMsgType
	Height    int64
	Round     int64
	BlockID   *CanonicalBlockID
	Timestamp time.Time
	ChainID   string
}

//-----------------------------------
// Canonicalize the structs

func CanonicalizeBlockID(bid BlockID) *CanonicalBlockID {
	if bid.IsNil() {
		return nil
	}
	return &CanonicalBlockID{
		Hash:          bid.Hash,
		PartSetHeader: CanonicalizePartSetHeader(bid.PartSetHeader),
	}
}

func CanonicalizePartSetHeader(psh PartSetHeader) CanonicalPartSetHeader {
	return CanonicalPartSetHeader{
		Total: psh.Total,
		Hash:  psh.Hash,
	}
}

// Marshal returns the wire form of tendermint.types.CanonicalBlockID.
func (cbid *CanonicalBlockID) Marshal() []byte {
	psh := protoio.NewWriter().
		Uvarint(1, uint64(cbid.PartSetHeader.Total)).
		RawBytes(2, cbid.PartSetHeader.Hash).
		Marshal()
	return protoio.NewWriter().
		RawBytes(1, cbid.Hash).
		Message(2, psh).
		Marshal()
}

// Marshal returns the wire form of tendermint.types.CanonicalVote.
func (cv CanonicalVote) Marshal() ([]byte, error) {
	ts, err := gogotypes.StdTimeMarshal(cv.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("vote timestamp: %w", err)
	}

	w := protoio.NewWriter().
		Varint(1, int64(cv.Type)).
		SFixed64(2, cv.Height).
		SFixed64(3, cv.Round)
	if cv.BlockID != nil {
		w.Message(4, cv.BlockID.Marshal())
	}
	return w.Message(5, ts).
		String(6, cv.ChainID).
		Marshal(), nil
}

// VoteSignBytes returns the proto-encoding of the canonicalized vote, for
// signing. The result is length-prefixed and the signature covers the prefix.
func VoteSignBytes(
	chainID string,
	msgType SignedMsgType,
	height int64,
	round int32,
	blockID BlockID,
	timestamp time.Time,
) ([]byte, error) {
	cv := CanonicalVote{
		Type:      msgType,
		Height:    height,
		Round:     int64(round), // encoded as sfixed64
		BlockID:   CanonicalizeBlockID(blockID),
		Timestamp: timestamp,
		ChainID:   chainID,
	}
	bz, err := cv.Marshal()
	if err != nil {
		return nil, err
	}
	return protoio.MarshalDelimited(bz), nil
}
