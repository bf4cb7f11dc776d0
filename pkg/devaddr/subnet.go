package devaddr

import (
	"encoding/json"
	"fmt"
	"math/bits"

	"github.com/iotconfig/iotconfig-go/pkg/hexfield"
)

// AddrBits is the width of the DevAddr space.
const AddrBits = 32

// MaxBlocks bounds the number of blocks Decompose can emit for any range.
const MaxBlocks = AddrBits + 1

// Block is a power-of-two-aligned DevAddr block, the DevAddr analogue of a
// CIDR prefix. Base is a multiple of the block size and the block covers
// [Base, Base + 2^(32-PrefixBits) - 1].
type Block struct {
	Base       hexfield.DevAddr `json:"base"`
	PrefixBits uint8            `json:"prefix_bits"`
}

// InvalidBlockError is returned for a block whose prefix is wider than the
// address space or whose base is not aligned to its size.
type InvalidBlockError struct {
	Base       hexfield.DevAddr
	PrefixBits uint8
}

func (e *InvalidBlockError) Error() string {
	if e.PrefixBits > AddrBits {
		return fmt.Sprintf("invalid devaddr block %s/%d: prefix_bits exceeds %d", e.Base, e.PrefixBits, AddrBits)
	}
	return fmt.Sprintf("invalid devaddr block %s/%d: base is not aligned to the block size", e.Base, e.PrefixBits)
}

// NewBlock validates that prefixBits fits the address space and that base
// is a multiple of the block size.
func NewBlock(base hexfield.DevAddr, prefixBits uint8) (Block, error) {
	if prefixBits > AddrBits {
		return Block{}, &InvalidBlockError{Base: base, PrefixBits: prefixBits}
	}
	b := Block{Base: base, PrefixBits: prefixBits}
	if uint64(base)&(b.Size()-1) != 0 {
		return Block{}, &InvalidBlockError{Base: base, PrefixBits: prefixBits}
	}
	return b, nil
}

// UnmarshalJSON re-validates decoded blocks.
func (b *Block) UnmarshalJSON(data []byte) error {
	type raw Block
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	v, err := NewBlock(r.Base, r.PrefixBits)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Size returns the number of addresses in the block.
func (b Block) Size() uint64 {
	return 1 << (AddrBits - uint(b.PrefixBits))
}

// Last returns the final address covered by the block.
func (b Block) Last() hexfield.DevAddr {
	return hexfield.DevAddr(uint64(b.Base) + b.Size() - 1)
}

// Contains reports whether addr falls inside the block.
func (b Block) Contains(addr hexfield.DevAddr) bool {
	return addr >= b.Base && addr <= b.Last()
}

// String returns the block in BASE/prefix form, e.g. "48000800/29".
func (b Block) String() string {
	return fmt.Sprintf("%s/%d", b.Base, b.PrefixBits)
}

// Decompose expresses the inclusive range c as the minimal ordered list of
// aligned blocks whose union is exactly c. Blocks are emitted left to right;
// each is the largest block that is aligned at its base and does not run
// past c.End.
func Decompose(c Constraint) []Block {
	cursor := uint64(c.Start)
	end := uint64(c.End)

	blocks := make([]Block, 0, 4)
	for cursor <= end {
		align := uint(AddrBits)
		if cursor != 0 {
			align = uint(bits.TrailingZeros64(cursor))
		}

		remaining := end - cursor + 1
		fit := uint(bits.Len64(remaining)) - 1

		sizeBits := min(align, fit)
		blocks = append(blocks, Block{
			Base:       hexfield.DevAddr(cursor),
			PrefixBits: uint8(AddrBits - sizeBits),
		})
		cursor += 1 << sizeBits
	}
	return blocks
}
