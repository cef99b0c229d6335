package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/defich/ocean/internal/indexer"
	"github.com/defich/ocean/internal/ocerr"
	"github.com/defich/ocean/internal/rpc"
)

// upstreamSource adapts rpc.Client into an indexer.BlockSource. Per spec.md
// §1, wire-level transaction decoding is an external collaborator's
// responsibility ("consensus transaction parsing is assumed to yield typed
// transaction records") — this adapter resolves a block's header fields and
// stores its raw encoding verbatim (BlockInput.Raw), but leaves Txs for a
// real deployment's consensus-parsing layer to populate ahead of IndexBlock.
type upstreamSource struct {
	client *rpc.Client
}

func newUpstreamSource(client *rpc.Client) *upstreamSource {
	return &upstreamSource{client: client}
}

func (s *upstreamSource) TipHeight(ctx context.Context) (uint32, error) {
	return s.client.GetBlockCount(ctx)
}

func (s *upstreamSource) BlockAtHeight(ctx context.Context, height uint32) (*indexer.BlockInput, error) {
	hashHex, err := s.client.GetBlockHashByHeight(ctx, height)
	if err != nil {
		return nil, err
	}
	block, err := s.client.GetBlockByHash(ctx, hashHex)
	if err != nil {
		return nil, err
	}

	hash, err := parseHash(block.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: block hash: %v", ocerr.ErrUpstreamTransport, err)
	}
	parentHash, err := parseHash(block.PreviousBlockHash)
	if err != nil && block.PreviousBlockHash != "" {
		return nil, fmt.Errorf("%w: parent hash: %v", ocerr.ErrUpstreamTransport, err)
	}

	raw, err := json.Marshal(block)
	if err != nil {
		return nil, fmt.Errorf("%w: re-encode block: %v", ocerr.ErrUpstreamTransport, err)
	}

	return &indexer.BlockInput{
		Hash:       hash,
		ParentHash: parentHash,
		Height:     block.Height,
		MedianTime: block.MedianTime,
		Time:       block.Time,
		Difficulty: uint32(block.Difficulty),
		Version:    block.Version,
		Raw:        raw,
		// Txs is intentionally empty here; a production deployment wires a
		// consensus-level decoder ahead of this adapter to populate it.
	}, nil
}

func parseHash(hexStr string) ([32]byte, error) {
	var h [32]byte
	if hexStr == "" {
		return h, nil
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return h, err
	}
	if len(b) != 32 {
		return h, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}
