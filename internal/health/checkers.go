package health

import (
	"context"
	"errors"
	"fmt"
)

// Pinger is the probe surface of a session store with a network backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker probes session store connectivity. The in-memory store has
// nothing to probe; pass nil and the check always reports ok.
func StoreChecker(p Pinger) Checker {
	return Checker{
		Name: "store",
		Check: func(ctx context.Context) error {
			if p == nil {
				return nil
			}
			if err := p.Ping(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
	}
}

// JudgeChecker reports the judge chain. providers returns the configured
// backend names in failover order; an empty list fails the check, since even
// an offline deployment carries the heuristic judge as its terminal entry.
func JudgeChecker(providers func() []string) Checker {
	return Checker{
		Name: "judges",
		Check: func(_ context.Context) error {
			names := providers()
			if len(names) == 0 {
				return errors.New("no judge providers configured")
			}
			return nil
		},
	}
}

