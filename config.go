package rohc

import (
	"fmt"

	"rohcd/cid"
	"rohcd/common"
	"rohcd/list"
	"rohcd/packet"
)

// Config holds the engine-wide settings validated once at construction,
// following the teacher's pattern of validating configuration structs
// in their constructor rather than scattering checks through the
// decode path.
type Config struct {
	CIDType              cid.Type
	MaxCID               int
	EnabledProfiles      []packet.ProfileID
	CorrectionCounterMax int
	ListWindow           int

	// Logger receives context transitions, repair attempts, and
	// malformed-input notices at the severities §7 assigns them. Nil
	// means no-op logging (the teacher's common.NoOpLogger), off by
	// default the way the teacher's own decoders default to silence.
	Logger common.Logger
}

// DefaultConfig returns the settings spec.md §6 lists as defaults:
// small-CID framing, max CID 15, every generic profile enabled, a
// correction-counter budget of 3, and a 100-generation list window.
func DefaultConfig() Config {
	return Config{
		CIDType: cid.Small,
		MaxCID:  cid.MaxSmallCID,
		EnabledProfiles: []packet.ProfileID{
			packet.ProfileUncompressed,
			packet.ProfileIPOnly,
			packet.ProfileUDP,
			packet.ProfileUDPLite,
			packet.ProfileRTP,
			packet.ProfileESP,
		},
		CorrectionCounterMax: 3,
		ListWindow:           list.WindowSize,
	}
}

func (c Config) validate() error {
	switch c.CIDType {
	case cid.Small:
		if c.MaxCID > cid.MaxSmallCID {
			return fmt.Errorf("rohc: max_cid %d exceeds small-CID limit %d", c.MaxCID, cid.MaxSmallCID)
		}
	case cid.Large:
		// no fixed upper bound beyond what SDVL can carry
	default:
		return fmt.Errorf("rohc: unknown CID type %v", c.CIDType)
	}
	if c.MaxCID < 0 {
		return fmt.Errorf("rohc: max_cid must be non-negative, got %d", c.MaxCID)
	}
	if len(c.EnabledProfiles) == 0 {
		return fmt.Errorf("rohc: at least one profile must be enabled")
	}
	if c.CorrectionCounterMax < 0 {
		return fmt.Errorf("rohc: correction_counter_max must be non-negative, got %d", c.CorrectionCounterMax)
	}
	if c.ListWindow < 2 {
		return fmt.Errorf("rohc: list_window must be >= 2, got %d", c.ListWindow)
	}
	return nil
}

func (c Config) profileEnabled(p packet.ProfileID) bool {
	for _, ep := range c.EnabledProfiles {
		if ep == p {
			return true
		}
	}
	return false
}
