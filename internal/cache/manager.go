package cache

import "github.com/defich/ocean/internal/model"

// Default capacities. Not spec-mandated; chosen generously for a
// single-process indexer workload.
const (
	defaultTransactionCacheSize = 4096
	defaultBlockCacheSize       = 2048
	defaultBlockHashCacheSize   = 2048
	defaultBaseFeeCacheSize     = 2048
)

// Manager owns the four bounded caches plus the latest-block slot named in
// spec.md §4.5, and is the thing the indexer and query layer share.
type Manager struct {
	Transactions *Cache[[32]byte, model.Transaction]
	Blocks       *Cache[uint32, model.Block]
	BlockHashes  *Cache[[32]byte, uint32]
	BaseFees     *Cache[[32]byte, string]
	LatestBlock  *Slot[model.Block]
}

// NewManager builds a Manager with default capacities.
func NewManager() *Manager {
	return &Manager{
		Transactions: New[[32]byte, model.Transaction]("transactions", defaultTransactionCacheSize),
		Blocks:       New[uint32, model.Block]("blocks", defaultBlockCacheSize),
		BlockHashes:  New[[32]byte, uint32]("block-hashes", defaultBlockHashCacheSize),
		BaseFees:     New[[32]byte, string]("base-fee", defaultBaseFeeCacheSize),
		LatestBlock:  NewSlot[model.Block]("latest-block"),
	}
}

// PutBlock writes through a freshly indexed block to both the height-keyed
// cache and the hash->height secondary, and updates latest-block, per the
// coherence rule in spec.md §4.5.
func (m *Manager) PutBlock(b model.Block) {
	m.Blocks.Put(b.Height, b)
	m.BlockHashes.Put(b.Hash, b.Height)
	m.LatestBlock.Set(b)
}

// RemoveBlock evicts a block being invalidated from every cache that can
// hold it. The caller is responsible for setting the new latest-block
// afterward (the parent is looked up from the store, not cached here).
func (m *Manager) RemoveBlock(b model.Block) {
	m.Blocks.Remove(b.Height)
	m.BlockHashes.Remove(b.Hash)
	m.BaseFees.Remove(b.Hash)
}

// PutTransaction writes through a freshly indexed transaction.
func (m *Manager) PutTransaction(tx model.Transaction) {
	m.Transactions.Put(tx.Txid, tx)
}

// RemoveTransaction evicts a transaction being invalidated.
func (m *Manager) RemoveTransaction(txid [32]byte) {
	m.Transactions.Remove(txid)
}

// PutBaseFee writes through a freshly computed base fee for an EVM block.
func (m *Manager) PutBaseFee(blockHash [32]byte, fee string) {
	m.BaseFees.Put(blockHash, fee)
}
