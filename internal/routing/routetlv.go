package routing

import (
	"github.com/AdguardTeam/golibs/errors"
	"github.com/nodecore/mle/internal/meshaddr"
)

// routerIDMaskBytes covers router IDs 0..62 as a bitmap, most significant
// bit of byte 0 naming router 0.
const routerIDMaskBytes = 8

// ErrShortRouteTLV is returned when a Route TLV value is too short for its
// own router-ID bitmap.
const ErrShortRouteTLV errors.Error = "routing: truncated route tlv"

// RouteEntry is one allocated router's reported link quality/cost, decoded
// from a Route TLV.
type RouteEntry struct {
	RouterID meshaddr.RouterID
	LinkQOut uint8
	LinkQIn  uint8
	Cost     uint8 // 0 means unreachable
}

// RouteTLV is the decoded payload of a Route TLV.
type RouteTLV struct {
	RouterIDSequence uint8
	Entries          []RouteEntry
}

// maskBit reports whether router id is set in an 8-byte bitmap.
func maskBit(mask [routerIDMaskBytes]byte, id meshaddr.RouterID) bool {
	return mask[id/8]&(0x80>>(id%8)) != 0
}

func setMaskBit(mask *[routerIDMaskBytes]byte, id meshaddr.RouterID) {
	mask[id/8] |= 0x80 >> (id % 8)
}

// EncodeRouteTLV serializes t's entries in ascending router-ID order
// (entries need not already be sorted).
func EncodeRouteTLV(t RouteTLV) []byte {
	var mask [routerIDMaskBytes]byte
	byID := make(map[meshaddr.RouterID]RouteEntry, len(t.Entries))
	for _, e := range t.Entries {
		setMaskBit(&mask, e.RouterID)
		byID[e.RouterID] = e
	}

	out := make([]byte, 0, 1+routerIDMaskBytes+len(t.Entries))
	out = append(out, t.RouterIDSequence)
	out = append(out, mask[:]...)

	for id := meshaddr.RouterID(0); id <= meshaddr.MaxRouterID; id++ {
		if !maskBit(mask, id) {
			continue
		}
		e := byID[id]
		out = append(out, (e.LinkQOut&0x3)<<6|(e.LinkQIn&0x3)<<4|(e.Cost&0xf))
	}

	return out
}

// DecodeRouteTLV parses a Route TLV value produced by [EncodeRouteTLV].
func DecodeRouteTLV(value []byte) (RouteTLV, error) {
	if len(value) < 1+routerIDMaskBytes {
		return RouteTLV{}, ErrShortRouteTLV
	}

	t := RouteTLV{RouterIDSequence: value[0]}
	var mask [routerIDMaskBytes]byte
	copy(mask[:], value[1:1+routerIDMaskBytes])

	data := value[1+routerIDMaskBytes:]
	idx := 0
	for id := meshaddr.RouterID(0); id <= meshaddr.MaxRouterID; id++ {
		if !maskBit(mask, id) {
			continue
		}
		if idx >= len(data) {
			return RouteTLV{}, ErrShortRouteTLV
		}
		b := data[idx]
		idx++
		t.Entries = append(t.Entries, RouteEntry{
			RouterID: id,
			LinkQOut: (b >> 6) & 0x3,
			LinkQIn:  (b >> 4) & 0x3,
			Cost:     b & 0xf,
		})
	}

	return t, nil
}

// AllocatedBitmap reduces t to the set of allocated router IDs, the form
// the router-ID-sequence propagation rule adopts wholesale.
func (t RouteTLV) AllocatedBitmap() (ids []meshaddr.RouterID) {
	for _, e := range t.Entries {
		ids = append(ids, e.RouterID)
	}
	return ids
}
