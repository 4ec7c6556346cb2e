package rohc

import (
	"errors"
	"fmt"
	"time"

	"rohcd/cid"
	"rohcd/common"
	"rohcd/packet"
)

// Engine is the only exported entry point spec.md §6 requires:
// callers feed it raw ROHC packets and a monotonic timestamp and get
// back reconstructed header bytes or a classified error. It holds no
// process-wide state beyond its context registry, matching spec.md
// §6's "process-wide state: none required."
type Engine struct {
	cfg    Config
	reg    *cid.Registry[Context]
	logger common.Logger
}

// NewEngine validates cfg and returns a ready-to-use Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = common.NewNoOpLogger()
	}
	return &Engine{
		cfg:    cfg,
		reg:    cid.NewRegistry[Context](cfg.MaxCID),
		logger: logger,
	}, nil
}

// Decompress runs one packet through CID routing, packet-type
// discrimination, value decoding, header reconstruction and CRC
// verification, falling back to C10's repair loop on a CRC mismatch.
// On success it returns the reconstructed header bytes; on failure it
// returns a *common.Error classifying why, and the context's reference
// values (SN, IP-IDs, TS, list state) are left as they were before the
// call (commit is always the last step); only the repair bookkeeping
// (correction counter, mode, timestamps) may change.
func (e *Engine) Decompress(pkt []byte, now time.Time) ([]byte, error) {
	out, err := e.decompress(pkt, now)
	if err != nil {
		e.logFailure(err)
	}
	return out, err
}

// logFailure emits every decode failure through the configured logger
// at the severity §7 assigns its kind: a Warning for MALFORMED and
// NO_CONTEXT (routine, expected under loss), an Error for anything
// that reached the repair budget's end.
func (e *Engine) logFailure(err error) {
	var rerr *common.Error
	if !errors.As(err, &rerr) {
		e.logger.Warning(err.Error())
		return
	}
	switch rerr.Kind {
	case common.KindMalformed, common.KindNoContext:
		e.logger.Warning(rerr.Error())
	default:
		e.logger.Error(rerr)
	}
}

func (e *Engine) decompress(pkt []byte, now time.Time) ([]byte, error) {
	cidVal, typeOctetOffset, cidFieldLen, err := cid.Route(pkt, e.cfg.CIDType)
	if err != nil {
		return nil, common.NewError(common.KindMalformed, -1, err)
	}
	// Small-CID framing's add-CID byte (if any) is a standalone prefix
	// byte already excluded by typeOctetOffset. Large-CID framing puts
	// the SDVL-encoded CID in-line right after the type octet, so it
	// has to be spliced out rather than just skipped over.
	var body []byte
	if cidFieldLen > 0 {
		body = append(append([]byte{}, pkt[:typeOctetOffset+1]...), pkt[typeOctetOffset+1+cidFieldLen:]...)
	} else {
		body = pkt[typeOctetOffset:]
	}

	bb, err := packet.Parse(body)
	if err != nil {
		return nil, common.NewError(common.KindMalformed, cidVal, err)
	}

	ctx, exists := e.reg.Lookup(cidVal)
	if !exists {
		if bb.Type != packet.TypeIR {
			return nil, common.NewError(common.KindNoContext, cidVal, fmt.Errorf("no context bound to CID %d", cidVal))
		}
		return e.establish(cidVal, bb, now)
	}

	switch ctx.Mode {
	case NoContext:
		if bb.Type != packet.TypeIR {
			return nil, common.NewError(common.KindNoContext, cidVal, fmt.Errorf("context for CID %d demoted to NO_CONTEXT", cidVal))
		}
		return e.reestablish(cidVal, ctx, bb, now)
	case StaticContext:
		if bb.Type != packet.TypeIR && bb.Type != packet.TypeIRDyn {
			return nil, common.NewError(common.KindNoContext, cidVal, fmt.Errorf("context for CID %d demoted to STATIC_CONTEXT", cidVal))
		}
	}

	if bb.Type == packet.TypeIR {
		return e.reestablish(cidVal, ctx, bb, now)
	}
	if bb.Type == packet.TypeIRDyn {
		return e.refreshDynamic(cidVal, ctx, bb, now)
	}
	return e.decompressCompressed(cidVal, ctx, bb, now)
}

// establish handles an IR packet for a CID with no bound context:
// select the profile's builder, parse the static and dynamic chains,
// and bind a new context only once the IR's own CRC checks out.
func (e *Engine) establish(cidVal int, bb *packet.BitBundle, now time.Time) ([]byte, error) {
	if !e.cfg.profileEnabled(bb.Profile) {
		return nil, common.NewError(common.KindUnsupportedProfile, cidVal, fmt.Errorf("profile %d not enabled", bb.Profile))
	}
	builder, err := builderFor(bb.Profile)
	if err != nil {
		return nil, common.NewError(common.KindUnsupportedProfile, cidVal, err)
	}
	ctx := newContext(bb.Profile, builder, e.cfg.ListWindow, e.cfg.CorrectionCounterMax)

	hdr, err := e.parseIRAndCheck(ctx, bb)
	if err != nil {
		return nil, common.NewError(common.KindMalformed, cidVal, err)
	}

	ctx.Mode = FullContext
	ctx.CurrentTime = now
	commit(ctx, hdr)
	ctx.DynamicChain = append([]byte{}, bb.DynamicChain...)
	if err := e.reg.Bind(cidVal, ctx); err != nil {
		return nil, common.NewError(common.KindMalformed, cidVal, err)
	}
	return hdr.Bytes, nil
}

// reestablish re-runs an IR against an existing context (the
// compressor resynchronising, or the decompressor recovering a
// demoted context per spec.md scenario 4), replacing the context's
// state only once the new IR's CRC checks out.
func (e *Engine) reestablish(cidVal int, ctx *Context, bb *packet.BitBundle, now time.Time) ([]byte, error) {
	if !e.cfg.profileEnabled(bb.Profile) {
		return nil, common.NewError(common.KindUnsupportedProfile, cidVal, fmt.Errorf("profile %d not enabled", bb.Profile))
	}
	builder, err := builderFor(bb.Profile)
	if err != nil {
		return nil, common.NewError(common.KindUnsupportedProfile, cidVal, err)
	}
	fresh := newContext(bb.Profile, builder, e.cfg.ListWindow, e.cfg.CorrectionCounterMax)
	hdr, err := e.parseIRAndCheck(fresh, bb)
	if err != nil {
		return nil, common.NewError(common.KindMalformed, cidVal, err)
	}

	*ctx = *fresh
	ctx.Mode = FullContext
	ctx.CurrentTime = now
	commit(ctx, hdr)
	ctx.DynamicChain = append([]byte{}, bb.DynamicChain...)
	return hdr.Bytes, nil
}

func (e *Engine) parseIRAndCheck(ctx *Context, bb *packet.BitBundle) (*Header, error) {
	if err := ctx.Builder.ParseStaticChain(ctx, bb.StaticChain); err != nil {
		return nil, err
	}
	values, err := ctx.Builder.ParseDynamicChain(ctx, bb.DynamicChain)
	if err != nil {
		return nil, err
	}
	return buildAndCheck(ctx, bb, values)
}

// refreshDynamic handles IR-DYN: the static chain is assumed
// unchanged, only the dynamic chain is re-parsed and re-checked. Its
// fields come explicitly from the chain rather than LSB bits, so
// C10's SN-guessing repair strategies don't apply here — a CRC
// mismatch on a refresh is reported directly.
func (e *Engine) refreshDynamic(cidVal int, ctx *Context, bb *packet.BitBundle, now time.Time) ([]byte, error) {
	values, err := ctx.Builder.ParseDynamicChain(ctx, bb.DynamicChain)
	if err != nil {
		return nil, common.NewError(common.KindMalformed, cidVal, err)
	}
	hdr, err := buildAndCheck(ctx, bb, values)
	if err != nil {
		return nil, newCRCError(cidVal, err)
	}
	ctx.Mode = FullContext
	ctx.CurrentTime = now
	commit(ctx, hdr)
	ctx.DynamicChain = append([]byte{}, bb.DynamicChain...)
	return hdr.Bytes, nil
}

// decompressCompressed handles UO-0/UO-1-family/UOR-2-family packets:
// decode values against context references, build and CRC-check the
// header, and fall back to C10's repair loop on mismatch.
func (e *Engine) decompressCompressed(cidVal int, ctx *Context, bb *packet.BitBundle, now time.Time) ([]byte, error) {
	ctx.CurrentTime = now

	values, err := DecodeValues(ctx, bb)
	if err != nil {
		return nil, common.NewError(common.KindMalformed, cidVal, err)
	}

	hdr, err := buildAndCheck(ctx, bb, values)
	if err == nil {
		ctx.Mode = FullContext
		commit(ctx, hdr)
		return hdr.Bytes, nil
	}

	repaired, rerr := attemptRepair(ctx, bb, now)
	if rerr != nil {
		// NO_CONTEXT means even the static assumptions are suspect —
		// drop it outright so the next packet takes the "establish a
		// fresh context" path. STATIC_CONTEXT keeps its static chain
		// and stays registered so a following IR-DYN can still refresh
		// it without re-sending the static chain.
		if ctx.Mode == NoContext {
			e.reg.Drop(cidVal)
		}
		return nil, newCRCError(cidVal, rerr)
	}
	return repaired.Bytes, nil
}

// DropContext explicitly tears down the context bound to cidVal
// (channel teardown per spec.md §3's context lifecycle).
func (e *Engine) DropContext(cidVal int) {
	e.reg.Drop(cidVal)
}

// FeedbackKind mirrors the ROHC FEEDBACK-1/2 distinction: a CRC
// failure warrants a NACK identifying the bad CRC; a lost context
// warrants a full NACK asking for an IR resync. The engine never
// builds or transmits a feedback packet itself — constructing one is
// out of scope (spec.md §7) — but exposes enough to let a caller do
// so without reaching back into engine internals.
type FeedbackKind int

const (
	FeedbackNone FeedbackKind = iota
	FeedbackNACK
	FeedbackSTaticNACK
)

// FeedbackHint translates a Decompress error into the feedback a
// caller might want to send upstream: the kind of NACK, and a crc7
// slot a caller can fill in from its own copy of the offending packet
// (the engine does not retain the received CRC once buildAndCheck
// returns, so this only reports which NACK kind applies). ok is false
// for errors that warrant no feedback at all: malformed input and an
// unsupported profile, whether or not a CID was resolved.
func FeedbackHint(err error) (kind FeedbackKind, crc7 uint8, ok bool) {
	var rerr *common.Error
	if !errors.As(err, &rerr) {
		return FeedbackNone, 0, false
	}
	switch rerr.Kind {
	case common.KindCRCUnrepairable:
		return FeedbackNACK, 0, true
	case common.KindNoContext, common.KindListReferenceMissing:
		return FeedbackSTaticNACK, 0, true
	default:
		return FeedbackNone, 0, false
	}
}
