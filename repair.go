package rohc

import (
	"errors"
	"fmt"
	"time"

	"rohcd/packet"
)

// attemptRepair runs C10's two successive strategies from RFC 3095
// §5.3.2.2.4 after a clean decode's CRC check has already failed. On
// failure it leaves ctx's reference values untouched, but it always
// bumps the correction counter and repair statistics and updates Mode
// and the timestamps. On success it commits through the normal
// buildAndCheck/commit path and then restores the incremented
// correction counter, so a repaired context stays above zero until a
// packet decodes cleanly.
func attemptRepair(ctx *Context, bb *packet.BitBundle, now time.Time) (*Header, error) {
	ctx.CurrentTime = now
	if !ctx.LastOKTime.IsZero() {
		ctx.InterArrival = now.Sub(ctx.LastOKTime)
	} else {
		ctx.InterArrival = 0
	}

	ctx.CorrectionCounter++
	ctx.PacketsSinceRepair++

	hdr, err1 := tryWraparoundRepair(ctx, bb)
	if err1 == nil {
		ctx.TotalRepairs++
		ctx.Mode = FullContext
		counter := ctx.CorrectionCounter
		commit(ctx, hdr)
		ctx.CorrectionCounter = counter
		return hdr, nil
	}

	var err2 error = fmt.Errorf("clock-based repair skipped: inter_arrival_time is zero")
	var hdr2 *Header
	if ctx.InterArrival > 0 {
		hdr2, err2 = tryClockRepair(ctx, bb, now)
		if err2 == nil {
			ctx.TotalRepairs++
			ctx.Mode = FullContext
			counter := ctx.CorrectionCounter
			commit(ctx, hdr2)
			ctx.CorrectionCounter = counter
			return hdr2, nil
		}
	}

	if ctx.CorrectionCounter > ctx.CorrectionMax {
		demote(ctx, err1, err2)
	} else {
		ctx.Mode = Repair
	}
	return nil, fmt.Errorf("rohc: repair exhausted: strategy1=%v strategy2=%v", err1, err2)
}

// tryWraparoundRepair hypothesises the sender's SN counter wrapped
// past 2^k since the last committed reference (spec.md scenario 3):
// it decodes normally, then adds 2^k to the candidate SN and
// re-derives every field that depends on SN before re-checking CRC.
func tryWraparoundRepair(ctx *Context, bb *packet.BitBundle) (*Header, error) {
	if bb.SNNr == 0 {
		return nil, fmt.Errorf("rohc: wraparound repair needs SN bits, packet carries none")
	}
	base, err := DecodeValues(ctx, bb)
	if err != nil {
		return nil, err
	}
	wrapped := base
	wrapped.SN = base.SN + uint16(1)<<bb.SNNr
	wrapped.IPID = decodeIPID(ctx.OuterIP, ctx.SNRef, wrapped.SN, bb.IPID, uint8(bb.IPIDNr))
	if ctx.InnerIP != nil {
		wrapped.IPID2 = decodeIPID(ctx.InnerIP, ctx.SNRef, wrapped.SN, bb.IPID2, uint8(bb.IPID2Nr))
	}
	return buildAndCheck(ctx, bb, wrapped)
}

// tryClockRepair implements the fallback strategy: estimate how many
// sequence numbers elapsed since the last committed packet from the
// ratio of wall-clock elapsed time to the previously observed
// inter-arrival time, and re-check CRC against that candidate SN.
func tryClockRepair(ctx *Context, bb *packet.BitBundle, now time.Time) (*Header, error) {
	elapsed := now.Sub(ctx.LastOKTime)
	deltaSN := int(elapsed / ctx.InterArrival)
	if deltaSN <= 0 {
		deltaSN = 1
	}
	candidateSN := ctx.SNRef + uint16(deltaSN)

	values := DecodedValues{SN: candidateSN}
	carryForwardIPFlags(ctx, &values)
	values.TS = decodeTS(ctx, bb, candidateSN)
	values.IPID = decodeIPID(ctx.OuterIP, ctx.SNRef, candidateSN, bb.IPID, uint8(bb.IPIDNr))
	if ctx.InnerIP != nil {
		values.IPID2 = decodeIPID(ctx.InnerIP, ctx.SNRef, candidateSN, bb.IPID2, uint8(bb.IPID2Nr))
	}
	if err := ctx.Builder.DecodeProfileValues(ctx, bb, &values); err != nil {
		return nil, err
	}
	if err := resolveListState(ctx, bb, &values); err != nil {
		return nil, err
	}
	return buildAndCheck(ctx, bb, values)
}

// demote applies the repair-exhausted half of spec.md §4.10's state
// machine: if every failure was a clean CRC mismatch (the static
// chain still parses, only the dynamic reconstruction never matched),
// the context keeps its static chain and falls to STATIC_CONTEXT;
// any structural failure (malformed bits, a profile builder error)
// means even the static assumptions are suspect, so the context drops
// all the way to NO_CONTEXT.
func demote(ctx *Context, err1, err2 error) {
	var mismatch1, mismatch2 *crcMismatchError
	staticStillValid := errors.As(err1, &mismatch1) && (err2 == nil || errors.As(err2, &mismatch2) || isSkippedStrategy2(err2))
	if staticStillValid {
		ctx.Mode = StaticContext
	} else {
		ctx.Mode = NoContext
	}
}

func isSkippedStrategy2(err error) bool {
	return err != nil && err.Error() == "clock-based repair skipped: inter_arrival_time is zero"
}
