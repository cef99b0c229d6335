/*
EVM system transaction handling, per spec.md §4.7 "EVM system transactions"
and GLOSSARY "DST20": deploy-DST20, DFI-in/out, and transfer-domain
operations become state-trie mutations at fixed storage slots addressed by
keccak(address, slot), mirroring original_source/ain-evm's
contract/dst20.rs and contract/mod.rs::get_address_storage_index (balances
at slot 0, allowances at slot 1, total supply at slot 2 — the standard
OpenZeppelin ERC20 layout the original contract bytecode itself implements).
*/
package indexer

import (
	"fmt"
	"math/big"

	"github.com/defich/ocean/internal/ocerr"
	"github.com/defich/ocean/internal/trie"
)

const (
	dst20SlotBalances    = 0
	dst20SlotAllowances  = 1
	dst20SlotTotalSupply = 2
	dst20SlotName        = 3
	dst20SlotSymbol      = 4
)

// dst20ContractAddress derives a DST20 token's deterministic EVM address:
// 0xff followed by the token id as a 19-byte big-endian value, per
// original_source/ain-contracts's dst20_address_from_token_id.
func dst20ContractAddress(tokenID uint64) [20]byte {
	var addr [20]byte
	addr[0] = 0xff
	big.NewInt(0).SetUint64(tokenID).FillBytes(addr[1:])
	return addr
}

// storageIndex computes keccak256(address_padded32 ++ slot_padded32),
// matching get_address_storage_index: the EVM's storage index for a
// mapping(address => T) declared at the given slot.
func storageIndex(address [20]byte, slot uint64) [32]byte {
	var padded [32]byte
	copy(padded[12:], address[:])
	var slotBytes [32]byte
	big.NewInt(0).SetUint64(slot).FillBytes(slotBytes[:])
	return trie.HashNode(append(padded[:], slotBytes[:]...))
}

// rawSlotKey addresses a non-mapping storage slot directly (total supply,
// name, symbol), which the EVM stores at the raw slot index with no
// address component.
func rawSlotKey(contract [20]byte, slot uint64) []byte {
	var slotBytes [32]byte
	big.NewInt(0).SetUint64(slot).FillBytes(slotBytes[:])
	return append(append([]byte{}, contract[:]...), slotBytes[:]...)
}

func getBig(view *trie.Mutable, key []byte) (*big.Int, error) {
	raw, ok, err := view.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return big.NewInt(0).SetBytes(raw), nil
}

func putBig(view *trie.Mutable, key []byte, v *big.Int) error {
	var buf [32]byte
	v.FillBytes(buf[:])
	return view.Insert(key, buf[:])
}

// adjustBalance adds delta (possibly negative) to the balance stored at
// key, mirroring bridge_dst20_in/out's checked_add/checked_sub over
// contract storage: a result below zero is an ErrUnderflow and nothing is
// written.
func adjustBalance(view *trie.Mutable, key []byte, delta int64) error {
	cur, err := getBig(view, key)
	if err != nil {
		return err
	}
	cur.Add(cur, big.NewInt(delta))
	if cur.Sign() < 0 {
		return fmt.Errorf("%w: balance would go below zero", ocerr.ErrUnderflow)
	}
	return putBig(view, key, cur)
}

// nativeBalanceKey addresses a plain EVM account's native DFI balance,
// outside any DST20 contract's storage (TokenID==0 in EVMSystemPayload).
func nativeBalanceKey(address [20]byte) []byte {
	return append([]byte("native-balance:"), address[:]...)
}

// applyEVMSystem mutates the state trie for one EVM system transaction, per
// spec.md §4.7. Invalidation never replays this: the trie is
// content-addressed, so dropping a block's BlockStateRoot pointer (Step-1
// undo in invalidate.go) already makes every node it alone reached
// unreachable, with nothing left to unwind here.
func applyEVMSystem(view *trie.Mutable, p *EVMSystemPayload) error {
	switch p.Kind {
	case EVMSystemDeployDST20:
		contract := dst20ContractAddress(p.TokenID)
		if err := putBig(view, rawSlotKey(contract, dst20SlotTotalSupply), big.NewInt(0)); err != nil {
			return err
		}
		if err := view.Insert(rawSlotKey(contract, dst20SlotName), []byte(p.Name)); err != nil {
			return err
		}
		return view.Insert(rawSlotKey(contract, dst20SlotSymbol), []byte(p.Symbol))

	case EVMSystemTransferDomainIn, EVMSystemDFIIn:
		return bridgeIn(view, p, 1)

	case EVMSystemTransferDomainOut, EVMSystemDFIOut:
		return bridgeIn(view, p, -1)
	}
	return nil
}

// bridgeIn moves amount*sign into address's balance (and, for a DST20
// token, its total supply), per contract/dst20.rs's bridge_dst20_in: a
// negative sign reverses the same arithmetic for bridge-out.
func bridgeIn(view *trie.Mutable, p *EVMSystemPayload, sign int64) error {
	delta := p.Amount * sign
	if p.TokenID == 0 {
		return adjustBalance(view, nativeBalanceKey(p.Address), delta)
	}
	contract := dst20ContractAddress(p.TokenID)
	balanceKey := storageIndex(p.Address, dst20SlotBalances)
	if err := adjustBalance(view, balanceKey[:], delta); err != nil {
		return err
	}
	return adjustBalance(view, rawSlotKey(contract, dst20SlotTotalSupply), delta)
}
