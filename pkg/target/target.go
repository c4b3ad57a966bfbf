// Package target describes the compilation targets the analysis core
// needs to know about: the architecture identifier, the usable
// zero-page window, and the address ranges the target reserves for
// hardware and runtime use.
package target

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Range is a closed address interval.
type Range struct {
	Start uint16 `yaml:"start" json:"start"`
	End   uint16 `yaml:"end" json:"end"`
}

// Contains reports whether the address lies inside the range.
func (r Range) Contains(addr uint16) bool {
	return addr >= r.Start && addr <= r.End
}

// ReservedRange is a range the target forbids user allocations in,
// with a human-readable reason.
type ReservedRange struct {
	Range  `yaml:",inline"`
	Reason string `yaml:"reason" json:"reason"`
}

// Descriptor describes one target.
type Descriptor struct {
	// Arch identifies the CPU architecture, e.g. "m6502".
	Arch string `yaml:"arch" json:"arch"`
	// SafeZeroPage is the single contiguous zero-page window available
	// to the allocator.
	SafeZeroPage Range `yaml:"safe_zero_page" json:"safe_zero_page"`
	// Reserved lists the address intervals user code must not claim.
	Reserved []ReservedRange `yaml:"reserved" json:"reserved"`
}

// M6502 returns the default MOS 6502 descriptor: the CPU control port
// at the bottom of the zero page and the runtime workspace at the top
// are reserved, everything between is allocatable.
func M6502() *Descriptor {
	return &Descriptor{
		Arch:         "m6502",
		SafeZeroPage: Range{Start: 0x0002, End: 0x008F},
		Reserved: []ReservedRange{
			{Range: Range{Start: 0x0000, End: 0x0001}, Reason: "CPU control registers"},
			{Range: Range{Start: 0x0090, End: 0x00FF}, Reason: "runtime workspace"},
		},
	}
}

// LoadFromFile reads a target descriptor from a YAML file.
func LoadFromFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading target file %s: %w", path, err)
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing target file %s: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("target file %s: %w", path, err)
	}
	return &d, nil
}

// Validate checks the descriptor's internal consistency.
func (d *Descriptor) Validate() error {
	if d.Arch == "" {
		return fmt.Errorf("arch is required")
	}
	if d.SafeZeroPage.End < d.SafeZeroPage.Start {
		return fmt.Errorf("safe_zero_page end before start")
	}
	for i, r := range d.Reserved {
		if r.End < r.Start {
			return fmt.Errorf("reserved[%d] end before start", i)
		}
		if r.Reason == "" {
			return fmt.Errorf("reserved[%d] missing reason", i)
		}
	}
	return nil
}

// ReservedAt returns the reserved range covering an address, if any.
func (d *Descriptor) ReservedAt(addr uint16) (ReservedRange, bool) {
	for _, r := range d.Reserved {
		if r.Contains(addr) {
			return r, true
		}
	}
	return ReservedRange{}, false
}

// ZeroPageSize returns the number of allocatable zero-page bytes.
func (d *Descriptor) ZeroPageSize() int {
	return int(d.SafeZeroPage.End) - int(d.SafeZeroPage.Start) + 1
}
