package domain

// InventoryRecord tracks stock for one (store, sku) pair. Writers must keep
// OnHand == Available + Reserved after every mutation; updates are guarded by
// the Version column (compare-and-swap), not by the cart lock.
type InventoryRecord struct {
	StoreID   int64
	SKU       string
	OnHand    int32
	Available int32
	Reserved  int32
	Version   int64
}
