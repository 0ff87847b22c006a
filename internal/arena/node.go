package arena

import "github.com/cedrichaddad/flash-lob/pkg/lob"

// Node is the arena payload (spec §3's OrderNode): exactly 64 bytes,
// one cache line in size. Its alignment is Go's 8-byte struct
// alignment; the arena's backing slice is not aligned to a 64-byte
// boundary, so a slot may straddle two cache lines. Field order is
// chosen to pack without compiler padding between the hot fields
// (checked by TestNodeSize).
type Node struct {
	OrderID      lob.OrderID    // 8
	Price        lob.Price      // 8
	RemainingQty lob.Quantity   // 8
	Timestamp    lob.Timestamp  // 8
	Sequence     lob.Sequence   // 8
	Prev         Handle         // 4  intrusive list link within a price level
	Next         Handle         // 4  intrusive list link; free-list link when the slot is free
	Level        Handle         // 4  reserved; the book always sets NullHandle (levels are keyed by price)
	Generation   uint32         // 4
	Side         lob.Side       // 1
	OrderType    lob.OrderType  // 1
	TIF          lob.TimeInForce // 1
	Flags        uint8          // 1
	_            [4]byte        // explicit padding out to 64 bytes (8-byte struct alignment)
}

const nodeSize = 64
