// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package irq

import "fmt"

/*
Modes are ordered from the one that cuts the biggest number of CPUs
from the compute CPUs' set to the one that takes the smallest
('mq' and 'no_irq_restrictions' don't cut any CPU from the compute set).
This order is used when we calculate the 'common quotient' mode out of
a given set of modes (e.g. default modes of different tuners) - the
combined mode is the smallest among the given modes.

Modes description:

sq - set all IRQs of a given NIC to CPU0 and configure RPS
to spread NAPIs' handling between other CPUs.

sq_split - divide all IRQs of a given NIC between CPU0 and its HT
siblings and configure RPS to spread NAPIs' handling between other CPUs.

mq - distribute NIC's IRQs among all CPUs instead of binding them all
to CPU0. In this mode RPS is always enabled to spread NAPIs' handling
between all CPUs.

no_irq_restrictions - neither computations nor IRQs are restricted,
both use the whole given CPU mask. Subsystems that need no IRQ
isolation contribute this mode so that combining never narrows the
mode picked by the others. Tuned IRQs are still banned in irqbalance.

If no mode is given a default is derived per subsystem:
  - If the number of physical CPU cores per Rx HW queue is greater
    than 4 - use the 'sq_split' mode.
  - Otherwise, if the number of hyperthreads per Rx HW queue is
    greater than 4 - use the 'sq' mode.
  - Otherwise use the 'mq' mode.
*/
type Mode int

const (
	SqSplit Mode = iota
	Sq
	Mq
	NoIRQRestrictions
	// Default marks "no mode requested"; it must stay the largest
	// value so CombineModes never picks it over a real mode.
	Default
)

func (m Mode) String() string {
	switch m {
	case SqSplit:
		return "sq_split"
	case Sq:
		return "sq"
	case Mq:
		return "mq"
	case NoIRQRestrictions:
		return "no_irq_restrictions"
	case Default:
		return "def"
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

// ModeFromString parses a user supplied mode name. Both 'sq_split'
// and the legacy 'sq-split' spelling are accepted. An empty string
// maps to Default.
func ModeFromString(modeString string) (Mode, error) {
	switch modeString {
	case "":
		return Default, nil
	case "sq_split", "sq-split":
		return SqSplit, nil
	case "sq":
		return Sq, nil
	case "mq":
		return Mq, nil
	case "no_irq_restrictions":
		return NoIRQRestrictions, nil
	}
	return Default, fmt.Errorf("unknown mode '%s'", modeString)
}

// CombineModes returns the most restrictive of the given modes,
// ignoring Default entries. If every mode is Default, Default is
// returned.
func CombineModes(modes ...Mode) Mode {
	combined := Default
	for _, mode := range modes {
		if mode < combined {
			combined = mode
		}
	}
	return combined
}
