package types

import (
	"fmt"

	gogotypes "github.com/gogo/protobuf/types"

	tmbytes "github.com/tendermint/light-verifier/libs/bytes"
	"github.com/tendermint/light-verifier/libs/protoio"
	"github.com/tendermint/light-verifier/version"
)

// cdcEncode returns the protobuf encoding of item wrapped in the matching
// well-known wrapper message. Empty values encode to nil.
func cdcEncode(item interface{}) []byte {
	if item == nil {
		return nil
	}

	var (
		bz  []byte
		err error
	)
	switch item := item.(type) {
	case string:
		bz, err = (&gogotypes.StringValue{Value: item}).Marshal()
	case int64:
		bz, err = (&gogotypes.Int64Value{Value: item}).Marshal()
	case tmbytes.HexBytes:
		bz, err = (&gogotypes.BytesValue{Value: item}).Marshal()
	case []byte:
		bz, err = (&gogotypes.BytesValue{Value: item}).Marshal()
	default:
		panic(fmt.Sprintf("cdcEncode: unsupported type %T", item))
	}
	if err != nil {
		return nil
	}
	return bz
}

// encodeConsensus is the wire form of tendermint.version.Consensus.
func encodeConsensus(c version.Consensus) []byte {
	return protoio.NewWriter().
		Uvarint(1, c.Block.Uint64()).
		Uvarint(2, c.App.Uint64()).
		Marshal()
}

// encodePartSetHeader is the wire form of tendermint.types.PartSetHeader.
func encodePartSetHeader(psh PartSetHeader) []byte {
	return protoio.NewWriter().
		Uvarint(1, uint64(psh.Total)).
		RawBytes(2, psh.Hash).
		Marshal()
}

// encodeBlockID is the wire form of tendermint.types.BlockID. The part set
// header is non-nullable and therefore always present.
func encodeBlockID(blockID BlockID) []byte {
	return protoio.NewWriter().
		RawBytes(1, blockID.Hash).
		Message(2, encodePartSetHeader(blockID.PartSetHeader)).
		Marshal()
}
