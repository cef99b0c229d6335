package indexer

import (
	"encoding/hex"
	"fmt"

	"github.com/defich/ocean/internal/model"
	"github.com/defich/ocean/internal/ocerr"
	"github.com/defich/ocean/internal/schema"
)

// deriveOperatorScript builds the operator's locking script from its type
// and pubkey hash, per spec.md §4.7 "CreateMasternode": P2PKH for type 1
// (OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY OP_CHECKSIG), P2WPKH for type 4
// (witness version 0 push of the hash), matching
// original_source/ain-ocean's get_operator_script.
func deriveOperatorScript(opType uint8, hash [20]byte) (string, error) {
	switch opType {
	case 1:
		script := append([]byte{0x76, 0xa9, 0x14}, hash[:]...)
		script = append(script, 0x88, 0xac)
		return hex.EncodeToString(script), nil
	case 4:
		script := append([]byte{0x00, 0x14}, hash[:]...)
		return hex.EncodeToString(script), nil
	default:
		return "", fmt.Errorf("%w: unsupported masternode operator type %d", ocerr.ErrValidation, opType)
	}
}

// applyCreateMasternode writes the masternode row and its (height,index)
// secondary, per spec.md §4.7 "CreateMasternode". Collateral and owner
// address come from vout[1]; neither this function nor its call site checks
// that the transaction has at least two vouts.
func applyCreateMasternode(columns *schema.Columns, height, txIdx uint32, txid [32]byte, vouts []VoutInput, p *CreateMasternodePayload) error {
	operatorAddress, err := deriveOperatorScript(p.OperatorType, p.OperatorHash)
	if err != nil {
		return err
	}

	mn := model.Masternode{
		ID:              txid,
		OwnerAddress:    vouts[1].Address,
		OperatorAddress: operatorAddress,
		TimeLock:        p.TimeLock,
		Collateral:      vouts[1].Value,
		CreationHeight:  height,
	}
	if err := columns.Masternode.Put(txid, mn); err != nil {
		return err
	}
	return columns.MasternodeByHeight.Put(schema.HeightIndexKey{Height: height, Index: txIdx}, txid)
}

// unapplyCreateMasternode reverses applyCreateMasternode, per spec.md §4.8.
func unapplyCreateMasternode(columns *schema.Columns, height, txIdx uint32, txid [32]byte) error {
	if err := columns.Masternode.Delete(txid); err != nil {
		return err
	}
	return columns.MasternodeByHeight.Delete(schema.HeightIndexKey{Height: height, Index: txIdx})
}

// applyUpdateMasternode pushes the masternode's prior owner/operator onto
// its history then applies the rewrite, per spec.md §4.7 "UpdateMasternode".
// A reference to an unknown masternode id is silently ignored, matching
// original_source/ain-ocean's `if let Some(mn) = ...`.
func applyUpdateMasternode(columns *schema.Columns, vouts []VoutInput, p *UpdateMasternodePayload) error {
	mn, ok, err := columns.Masternode.Get(p.MasternodeID)
	if err != nil || !ok {
		return err
	}

	mn.History = append(mn.History, model.OwnerOperatorChange{
		OwnerAddress:    mn.OwnerAddress,
		OperatorAddress: mn.OperatorAddress,
	})

	switch p.UpdateType {
	case 0x1:
		if len(vouts) > 1 {
			mn.OwnerAddress = vouts[1].Address
		}
	case 0x2:
		operatorAddress, err := deriveOperatorScript(p.OperatorType, p.OperatorHash)
		if err != nil {
			return err
		}
		mn.OperatorAddress = operatorAddress
	}

	return columns.Masternode.Put(p.MasternodeID, mn)
}

// unapplyUpdateMasternode pops the masternode's most recent history entry
// back into its live owner/operator fields, per spec.md §4.8.
func unapplyUpdateMasternode(columns *schema.Columns, p *UpdateMasternodePayload) error {
	mn, ok, err := columns.Masternode.Get(p.MasternodeID)
	if err != nil || !ok {
		return err
	}
	if len(mn.History) == 0 {
		return fmt.Errorf("%w: masternode(%x) history empty during invalidation", ocerr.ErrNotFoundDuringInvalidation, p.MasternodeID)
	}
	last := mn.History[len(mn.History)-1]
	mn.History = mn.History[:len(mn.History)-1]
	mn.OwnerAddress = last.OwnerAddress
	mn.OperatorAddress = last.OperatorAddress
	return columns.Masternode.Put(p.MasternodeID, mn)
}

// applyResignMasternode sets resign height/txid, per spec.md §4.7
// "ResignMasternode".
func applyResignMasternode(columns *schema.Columns, height uint32, txid [32]byte, p *ResignMasternodePayload) error {
	mn, ok, err := columns.Masternode.Get(p.MasternodeID)
	if err != nil || !ok {
		return err
	}
	mn.HasResigned = true
	mn.ResignHeight = height
	mn.ResignTxid = txid
	return columns.Masternode.Put(p.MasternodeID, mn)
}

// unapplyResignMasternode clears the resign fields, per spec.md §4.8.
func unapplyResignMasternode(columns *schema.Columns, p *ResignMasternodePayload) error {
	mn, ok, err := columns.Masternode.Get(p.MasternodeID)
	if err != nil || !ok {
		return err
	}
	mn.HasResigned = false
	mn.ResignHeight = 0
	mn.ResignTxid = [32]byte{}
	return columns.Masternode.Put(p.MasternodeID, mn)
}
