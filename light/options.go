package light

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	tmmath "github.com/tendermint/light-verifier/libs/math"
)

const (
	// DefaultTrustingPeriod is two weeks, well below the unbonding period of
	// common chains.
	DefaultTrustingPeriod = 14 * 24 * time.Hour
	// DefaultMaxClockDrift is how far a new header may be ahead of local time.
	DefaultMaxClockDrift = 10 * time.Second
)

var (
	// DefaultTrustLevel - new header can be trusted if at least one correct
	// validator signed it.
	DefaultTrustLevel = tmmath.Fraction{Numerator: 1, Denominator: 3}
)

// Options are the parameters of a single verification step.
type Options struct {
	// Share of the trusted next validator set that must have signed a
	// non-adjacent header.
	TrustThreshold tmmath.Fraction
	// How long a trusted header stays usable.
	TrustingPeriod time.Duration
	// How far a new header may be ahead of now.
	MaxClockDrift time.Duration
}

// DefaultOptions returns the trust level, trusting period and clock drift
// used when nothing else is configured.
func DefaultOptions() Options {
	return Options{
		TrustThreshold: DefaultTrustLevel,
		TrustingPeriod: DefaultTrustingPeriod,
		MaxClockDrift:  DefaultMaxClockDrift,
	}
}

// ValidateBasic checks the trust level is within [1/3, 1] and the periods are
// not negative.
func (o Options) ValidateBasic() error {
	if err := ValidateTrustLevel(o.TrustThreshold); err != nil {
		return err
	}
	if o.TrustingPeriod <= 0 {
		return errors.New("trusting period must be positive")
	}
	if o.MaxClockDrift < 0 {
		return errors.New("max clock drift can't be negative")
	}
	return nil
}

// optionsJSON is the wire form: a [numerator, denominator] pair and durations
// in whole seconds.
type optionsJSON struct {
	TrustThreshold [2]uint64 `json:"trust_threshold"`
	TrustingPeriod uint64    `json:"trusting_period"`
	ClockDrift     uint64    `json:"clock_drift"`
}

func (o Options) MarshalJSON() ([]byte, error) {
	return json.Marshal(optionsJSON{
		TrustThreshold: [2]uint64{o.TrustThreshold.Numerator, o.TrustThreshold.Denominator},
		TrustingPeriod: uint64(o.TrustingPeriod / time.Second),
		ClockDrift:     uint64(o.MaxClockDrift / time.Second),
	})
}

func (o *Options) UnmarshalJSON(data []byte) error {
	var oj optionsJSON
	if err := json.Unmarshal(data, &oj); err != nil {
		return err
	}
	const maxSeconds = uint64(1<<63-1) / uint64(time.Second)
	if oj.TrustingPeriod > maxSeconds || oj.ClockDrift > maxSeconds {
		return fmt.Errorf("duration overflow, at most %d seconds", maxSeconds)
	}
	*o = Options{
		TrustThreshold: tmmath.Fraction{Numerator: oj.TrustThreshold[0], Denominator: oj.TrustThreshold[1]},
		TrustingPeriod: time.Duration(oj.TrustingPeriod) * time.Second,
		MaxClockDrift:  time.Duration(oj.ClockDrift) * time.Second,
	}
	return nil
}
