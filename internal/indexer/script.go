package indexer

import (
	"fmt"

	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/model"
	"github.com/defich/ocean/internal/ocerr"
	"github.com/defich/ocean/internal/schema"
)

// isTrackedScript reports whether a vout's script participates in
// script-activity/unspent/aggregation bookkeeping, per spec.md §4.6 step 2:
// "script is known and not EVM-specific".
func isTrackedScript(scriptType string) bool {
	return scriptType != "" && scriptType != model.ScriptTypeEVM
}

// applyVoutActivity records one vout's arrival at its script, per spec.md
// §4.6 step 2: script-activity(direction=out), script-unspent(insert),
// script-aggregation running totals.
func applyVoutActivity(columns *schema.Columns, height uint32, txid [32]byte, vout VoutInput, index uint32) error {
	hid := model.ComputeHID(vout.ScriptHex)

	if err := columns.ScriptActivity.Put(schema.ScriptActivityKey{
		HID: hid, Height: height, Txid: txid, Index: index, Direction: uint8(model.DirectionOut),
	}, model.ScriptActivity{
		HID: model.HID(hid), Height: height, Txid: txid, Index: index,
		Direction: model.DirectionOut, Value: vout.Value,
	}); err != nil {
		return err
	}

	if err := columns.ScriptUnspent.Put(schema.ScriptHeightTxVoutKey{
		HID: hid, Height: height, Txid: txid, VoutIndex: index,
	}, model.ScriptUnspent{
		HID: model.HID(hid), Height: height, Txid: txid, VoutIndex: index,
		Value: vout.Value, TokenID: vout.TokenID, HasToken: vout.HasToken, ScriptHex: vout.ScriptHex,
	}); err != nil {
		return err
	}

	return scriptAggApply(columns, model.HID(hid), height, model.DirectionOut, vout.Value)
}

// unapplyVoutActivity reverses applyVoutActivity during invalidation: delete
// the activity row and the still-unspent UTXO row (tip-only invalidation
// guarantees it has not since been spent), and subtract the aggregation
// delta, per spec.md §4.8.
func unapplyVoutActivity(columns *schema.Columns, height uint32, txid [32]byte, vout VoutInput, index uint32) error {
	hid := model.ComputeHID(vout.ScriptHex)

	if err := columns.ScriptActivity.Delete(schema.ScriptActivityKey{
		HID: hid, Height: height, Txid: txid, Index: index, Direction: uint8(model.DirectionOut),
	}); err != nil {
		return err
	}
	if err := columns.ScriptUnspent.Delete(schema.ScriptHeightTxVoutKey{
		HID: hid, Height: height, Txid: txid, VoutIndex: index,
	}); err != nil {
		return err
	}
	return scriptAggUnapply(columns, model.HID(hid), height, model.DirectionOut, vout.Value)
}

// spentVout resolves the vout a vin consumes, plus the height it was
// created at, by looking up the still-present transaction/vout rows of the
// prior (non-invalidated) transaction.
func spentVout(columns *schema.Columns, vin VinInput) (model.Vout, uint32, bool, error) {
	vout, ok, err := columns.TransactionVout.Get(schema.TxVoutKey{Txid: vin.PrevTxid, Index: vin.PrevVout})
	if err != nil || !ok {
		return model.Vout{}, 0, ok, err
	}
	prevTx, ok, err := columns.Transaction.Get(vin.PrevTxid)
	if err != nil || !ok {
		return model.Vout{}, 0, ok, err
	}
	return vout, prevTx.Height, true, nil
}

// applyVinActivity records one vin spending a previously-indexed vout, per
// spec.md §4.6 step 2: script-activity(direction=in), script-aggregation,
// and deletion of the matching script-unspent row. A vin whose spent vout is
// absent or untracked (unknown/EVM script) is skipped, matching "script is
// known" from the vout side of the same rule.
func applyVinActivity(columns *schema.Columns, height uint32, txid [32]byte, vin VinInput, index uint32) error {
	if vin.Coinbase {
		return nil
	}
	vout, voutHeight, ok, err := spentVout(columns, vin)
	if err != nil {
		return err
	}
	if !ok || !isTrackedScript(vout.ScriptType) {
		return nil
	}
	hid := model.ComputeHID(vout.ScriptHex)

	if err := columns.ScriptActivity.Put(schema.ScriptActivityKey{
		HID: hid, Height: height, Txid: txid, Index: index, Direction: uint8(model.DirectionIn),
	}, model.ScriptActivity{
		HID: model.HID(hid), Height: height, Txid: txid, Index: index,
		Direction: model.DirectionIn, Value: vout.Value,
	}); err != nil {
		return err
	}

	if err := columns.ScriptUnspent.Delete(schema.ScriptHeightTxVoutKey{
		HID: hid, Height: voutHeight, Txid: vin.PrevTxid, VoutIndex: vin.PrevVout,
	}); err != nil {
		return err
	}

	return scriptAggApply(columns, model.HID(hid), height, model.DirectionIn, vout.Value)
}

// unapplyVinActivity reverses applyVinActivity: delete the activity row,
// re-insert the spent script-unspent row, and subtract the aggregation
// delta, per spec.md §4.8.
func unapplyVinActivity(columns *schema.Columns, height uint32, txid [32]byte, vin VinInput, index uint32) error {
	if vin.Coinbase {
		return nil
	}
	vout, voutHeight, ok, err := spentVout(columns, vin)
	if err != nil {
		return err
	}
	if !ok || !isTrackedScript(vout.ScriptType) {
		return nil
	}
	hid := model.ComputeHID(vout.ScriptHex)

	if err := columns.ScriptActivity.Delete(schema.ScriptActivityKey{
		HID: hid, Height: height, Txid: txid, Index: index, Direction: uint8(model.DirectionIn),
	}); err != nil {
		return err
	}
	if err := columns.ScriptUnspent.Put(schema.ScriptHeightTxVoutKey{
		HID: hid, Height: voutHeight, Txid: vin.PrevTxid, VoutIndex: vin.PrevVout,
	}, model.ScriptUnspent{
		HID: model.HID(hid), Height: voutHeight, Txid: vin.PrevTxid, VoutIndex: vin.PrevVout,
		Value: vout.Value, TokenID: vout.TokenID, HasToken: vout.HasToken, ScriptHex: vout.ScriptHex,
	}); err != nil {
		return err
	}
	return scriptAggUnapply(columns, model.HID(hid), height, model.DirectionIn, vout.Value)
}

// latestScriptAggBefore finds the most recent script-aggregation row for hid
// strictly below height, the baseline a freshly-touched height carries
// forward, per spec.md §3 "the latest row per HID is the current balance".
func latestScriptAggBefore(columns *schema.Columns, hid model.HID, height uint32) (model.ScriptAggregation, bool, error) {
	if height == 0 {
		return model.ScriptAggregation{}, false, nil
	}
	from := schema.ScriptHeightKey{HID: [32]byte(hid), Height: height - 1}
	for pair, err := range columns.ScriptAggregation.List(&from, kv.Reverse) {
		if err != nil {
			return model.ScriptAggregation{}, false, err
		}
		if pair.Key.HID != [32]byte(hid) {
			return model.ScriptAggregation{}, false, nil
		}
		return pair.Value, true, nil
	}
	return model.ScriptAggregation{}, false, nil
}

// scriptAggApply folds one activity event into the (hid, height) row,
// creating it from the nearest earlier height's totals if this is the first
// event at height, per spec.md §4.6/§3.
func scriptAggApply(columns *schema.Columns, hid model.HID, height uint32, direction model.Direction, value int64) error {
	row, ok, err := columns.ScriptAggregation.Get(schema.ScriptHeightKey{HID: [32]byte(hid), Height: height})
	if err != nil {
		return err
	}
	if !ok {
		row, ok, err = latestScriptAggBefore(columns, hid, height)
		if err != nil {
			return err
		}
		if !ok {
			row = model.ScriptAggregation{HID: hid, Height: height}
		}
		row.HID, row.Height, row.EventsThisHeight = hid, height, 0
	}

	row.TxCount++
	switch direction {
	case model.DirectionOut:
		row.TxInCount++
		row.TxInSum += value
	case model.DirectionIn:
		row.TxOutCount++
		row.TxOutSum += value
	}
	row.Unspent = row.TxInSum - row.TxOutSum
	row.EventsThisHeight++

	return columns.ScriptAggregation.Put(schema.ScriptHeightKey{HID: [32]byte(hid), Height: height}, row)
}

// scriptAggUnapply reverses scriptAggApply. Once the row's event count
// returns to zero it is deleted outright: no row existed at this height
// before the block that is being invalidated, per invariant §8.1.
func scriptAggUnapply(columns *schema.Columns, hid model.HID, height uint32, direction model.Direction, value int64) error {
	key := schema.ScriptHeightKey{HID: [32]byte(hid), Height: height}
	row, ok, err := columns.ScriptAggregation.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: script-aggregation(%x, %d)", ocerr.ErrNotFoundDuringInvalidation, hid, height)
	}

	row.TxCount--
	switch direction {
	case model.DirectionOut:
		row.TxInCount--
		row.TxInSum -= value
	case model.DirectionIn:
		row.TxOutCount--
		row.TxOutSum -= value
	}
	row.Unspent = row.TxInSum - row.TxOutSum

	if row.EventsThisHeight <= 1 {
		return columns.ScriptAggregation.Delete(key)
	}
	row.EventsThisHeight--
	return columns.ScriptAggregation.Put(key, row)
}
