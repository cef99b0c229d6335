/*
Package evmrpc is the internal block-trace/state-query interface the
embedded EVM execution engine calls into (spec.md §1: "an internal block-
trace/state-query interface used by the embedded EVM"). The EVM engine
itself — precompiles, gasometer, tracer — is explicitly out of scope
(spec.md §1); this package only exposes the three state reads the engine
needs from Ocean's trie: an account's native balance, one storage slot, and
the current state root.

Grounded on cuemby-warren/pkg/api/server.go's gRPC server setup shape
(grpc.NewServer, a registered service, Start/Stop lifecycle), with the
generated-stub layer it uses (api/proto, built from a .proto file not
present in the retrieved pack) replaced by a hand-written grpc.ServiceDesc
over google.golang.org/protobuf's structpb.Struct — the same wire-framing
machinery without a code-generation step, since no .proto toolchain is
available here.
*/
package evmrpc

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/defich/ocean/internal/log"
	"github.com/defich/ocean/internal/ocerr"
	"github.com/defich/ocean/internal/schema"
	"github.com/defich/ocean/internal/trie"
)

// nativeBalanceKey and rawSlotKey mirror internal/indexer/evm.go's
// addressing scheme exactly (package-private there, so duplicated here
// rather than exported across a domain boundary that otherwise has no
// reason to depend on the indexer package).
func nativeBalanceKey(address [20]byte) []byte {
	return append([]byte("native-balance:"), address[:]...)
}

func rawSlotKey(contract [20]byte, slot uint64) []byte {
	var slotBytes [32]byte
	big.NewInt(0).SetUint64(slot).FillBytes(slotBytes[:])
	return append(append([]byte{}, contract[:]...), slotBytes[:]...)
}

func decodeBigHex(raw []byte) string {
	return big.NewInt(0).SetBytes(raw).String()
}

// Server implements the EVM-facing state-query surface against a bound
// trie root resolved per call from the requested block hash.
type Server struct {
	columns *schema.Columns
	trieKV  trie.KV
	grpc    *grpc.Server
}

// NewServer constructs a Server bound to the shared storage substrate.
func NewServer(columns *schema.Columns, trieKV trie.KV) *Server {
	s := &Server{columns: columns, trieKV: trieKV}
	s.grpc = grpc.NewServer()
	s.grpc.RegisterService(&serviceDesc, s)
	return s
}

// Start listens on addr and serves until Stop is called.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("evmrpc listen: %w", err)
	}
	log.WithComponent("evmrpc").Info().Str("addr", addr).Msg("evmrpc listening")
	return s.grpc.Serve(lis)
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}

func (s *Server) viewAt(blockHash [32]byte) (*trie.Immutable, error) {
	root, found, err := s.columns.BlockStateRoot.Get(blockHash)
	if err != nil {
		return nil, err
	}
	if !found {
		root = trie.GenesisStateRoot
	}
	return trie.NewImmutable(s.trieKV, root), nil
}

func fieldString(req *structpb.Struct, name string) (string, error) {
	v, ok := req.Fields[name]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ocerr.ErrBadRequest, name)
	}
	return v.GetStringValue(), nil
}

func decodeHash(hexStr string) ([32]byte, error) {
	var h [32]byte
	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != 32 {
		return h, fmt.Errorf("%w: expected 32-byte hex", ocerr.ErrBadRequest)
	}
	copy(h[:], b)
	return h, nil
}

func decodeAddress(hexStr string) ([20]byte, error) {
	var a [20]byte
	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != 20 {
		return a, fmt.Errorf("%w: expected 20-byte hex", ocerr.ErrBadRequest)
	}
	copy(a[:], b)
	return a, nil
}

// GetAccount returns the value stored at the native-balance key for address
// (spec.md §3's account-keyed native balance, also used by EVM system
// transactions in internal/indexer/evm.go), within the state as of
// blockHash, decoded as a decimal "balance" string ("0" when absent)
// alongside a "found" flag.
func (s *Server) GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	blockHashHex, err := fieldString(req, "block_hash")
	if err != nil {
		return nil, err
	}
	addressHex, err := fieldString(req, "address")
	if err != nil {
		return nil, err
	}
	blockHash, err := decodeHash(blockHashHex)
	if err != nil {
		return nil, err
	}
	address, err := decodeAddress(addressHex)
	if err != nil {
		return nil, err
	}

	view, err := s.viewAt(blockHash)
	if err != nil {
		return nil, err
	}
	raw, found, err := view.Get(nativeBalanceKey(address))
	if err != nil {
		return nil, err
	}
	balance := "0"
	if found {
		balance = decodeBigHex(raw)
	}

	return structpb.NewStruct(map[string]any{
		"balance": balance,
		"found":   found,
	})
}

// GetStorageAt returns the raw 32-byte word at a DST20 contract's storage
// slot (spec.md §3's EVM storage, GLOSSARY "DST20"), within the state as of
// blockHash.
func (s *Server) GetStorageAt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	blockHashHex, err := fieldString(req, "block_hash")
	if err != nil {
		return nil, err
	}
	contractHex, err := fieldString(req, "contract")
	if err != nil {
		return nil, err
	}
	slotField, ok := req.Fields["slot"]
	if !ok {
		return nil, fmt.Errorf("%w: missing field %q", ocerr.ErrBadRequest, "slot")
	}

	blockHash, err := decodeHash(blockHashHex)
	if err != nil {
		return nil, err
	}
	contract, err := decodeAddress(contractHex)
	if err != nil {
		return nil, err
	}
	slot := uint64(slotField.GetNumberValue())

	view, err := s.viewAt(blockHash)
	if err != nil {
		return nil, err
	}
	raw, found, err := view.Get(rawSlotKey(contract, slot))
	if err != nil {
		return nil, err
	}

	return structpb.NewStruct(map[string]any{
		"value": hex.EncodeToString(raw),
		"found": found,
	})
}

// GetStateRoot returns the recorded trie root for blockHash, or the genesis
// root if the block predates any recorded root (spec.md §3 "State Trie").
func (s *Server) GetStateRoot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	blockHashHex, err := fieldString(req, "block_hash")
	if err != nil {
		return nil, err
	}
	blockHash, err := decodeHash(blockHashHex)
	if err != nil {
		return nil, err
	}
	view, err := s.viewAt(blockHash)
	if err != nil {
		return nil, err
	}
	root := view.Root()
	return structpb.NewStruct(map[string]any{
		"root": hex.EncodeToString(root[:]),
	})
}

// serviceDesc hand-registers the three RPCs above against grpc.Server,
// standing in for a .proto-generated _grpc.pb.go file.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "ocean.evmrpc.EVMRPC",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAccount", Handler: unaryHandler((*Server).GetAccount)},
		{MethodName: "GetStorageAt", Handler: unaryHandler((*Server).GetStorageAt)},
		{MethodName: "GetStateRoot", Handler: unaryHandler((*Server).GetStateRoot)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/evmrpc/evmrpc.go",
}

type serverMethod func(*Server, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a typed (*Server) method into the untyped
// grpc.methodHandler shape grpc.ServiceDesc requires, decoding the request
// as a structpb.Struct (protobuf's generic JSON-like value message) rather
// than a message generated from a .proto file.
func unaryHandler(fn serverMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(structpb.Struct)
		if err := dec(req); err != nil {
			return nil, err
		}
		s := srv.(*Server)
		if interceptor == nil {
			return fn(s, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: s, FullMethod: serviceDesc.ServiceName}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(s, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, req, info, handler)
	}
}
