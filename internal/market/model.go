package market

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MicrosPerMillion is the money scale: every amount is stored as integer
	// micros of one million currency units.
	MicrosPerMillion = int64(1_000_000)

	FreeAgentClub = "Free Agent"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrTeamNotFound   = errors.New("team not found")
	ErrOfferNotFound  = errors.New("offer not found")

	ErrSquadTooSmall       = errors.New("squad would fall below minimum size")
	ErrRoleFloor           = errors.New("role would fall below minimum")
	ErrTooManyListings     = errors.New("maximum concurrent listings reached")
	ErrBudgetOverdrawn     = errors.New("transfer budget is overdrawn")
	ErrWageBudget          = errors.New("wage budget exceeded")
	ErrTransferBudget      = errors.New("transfer budget exceeded")
	ErrBidTooLow           = errors.New("bid below minimum fraction of value")
	ErrWageOutOfRange      = errors.New("wage outside allowed range")
	ErrRoleCapReached      = errors.New("role already at maximum")
	ErrSquadFull           = errors.New("squad already at maximum size")
	ErrInvalidContract     = errors.New("contract length out of range")
	ErrOwnPlayer           = errors.New("player already belongs to buyer")
	ErrDuplicateOffer      = errors.New("buyer already has a pending offer for player")
	ErrNotFreeAgent        = errors.New("player is not a free agent")
	ErrNotTransferable     = errors.New("player is not on a club roster")
	ErrNotListedByTeam     = errors.New("player is not on team roster")
	ErrAffordabilityDrift  = errors.New("buyer can no longer afford offer")
	ErrNoDecisionRequired  = errors.New("offer does not await a decision")
	ErrNotOwnOffer         = errors.New("offer does not belong to team")
	ErrUnknownRole         = errors.New("unknown role")
	ErrInvalidAmountString = errors.New("invalid amount")
)

var validationFailures = []error{
	ErrSquadTooSmall,
	ErrRoleFloor,
	ErrTooManyListings,
	ErrBudgetOverdrawn,
	ErrWageBudget,
	ErrTransferBudget,
	ErrBidTooLow,
	ErrWageOutOfRange,
	ErrRoleCapReached,
	ErrSquadFull,
	ErrInvalidContract,
	ErrOwnPlayer,
	ErrDuplicateOffer,
	ErrNotFreeAgent,
	ErrNotTransferable,
	ErrNotListedByTeam,
	ErrUnknownRole,
}

// IsValidationFailure reports whether err is a listing or bid denial that the
// caller can recover from by changing its inputs.
func IsValidationFailure(err error) bool {
	for _, target := range validationFailures {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err refers to an unknown player, team or offer.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlayerNotFound) || errors.Is(err, ErrTeamNotFound) || errors.Is(err, ErrOfferNotFound)
}

func denied(reason error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", reason, fmt.Sprintf(format, args...))
}

func MillionsToMicros(v float64) int64 {
	return int64(math.Round(v * float64(MicrosPerMillion)))
}

func MicrosToMillions(v int64) float64 {
	return float64(v) / float64(MicrosPerMillion)
}

// ParseMillions converts a decimal string such as "10.5" or "0.05" into micros
// without going through float64.
func ParseMillions(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmountString, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q must not be negative", ErrInvalidAmountString, s)
	}
	return d.Shift(6).Round(0).IntPart(), nil
}

// FormatMillions renders micros as a trimmed decimal string of millions.
func FormatMillions(micros int64) string {
	return decimal.New(micros, -6).String()
}

func scaleMicros(v int64, factor float64) int64 {
	return int64(math.Round(float64(v) * factor))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
