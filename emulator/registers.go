package emulator

import (
	"fmt"
	"strings"
)

var registerNames = [32]string{
	"$0", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// registerIndex maps every accepted spelling, without the leading '$', to its register number.
var registerIndex = func() map[string]int {
	index := map[string]int{"zero": 0, "fp": 8}
	for i, name := range registerNames {
		index[strings.TrimPrefix(name, "$")] = i
		index[fmt.Sprintf("x%d", i)] = i
	}
	return index
}()

// RegisterNames returns the display names in register order.
func RegisterNames() []string {
	return append([]string(nil), registerNames[:]...)
}

func (inst *EmulatorInstance) regRead(reg uint32) uint64 {
	return inst.registers[reg]
}

func (inst *EmulatorInstance) regWrite(reg uint32, value uint64) {
	// x0 is hardwired to zero
	if reg == 0 {
		return
	}
	inst.registers[reg] = value
}

// LookupRegister resolves a register by name. "pc" is accepted as well, and a leading '$' is optional.
func (inst *EmulatorInstance) LookupRegister(name string) (uint64, bool) {
	name = strings.TrimPrefix(name, "$")
	if name == "pc" {
		return inst.pc, true
	}
	i, ok := registerIndex[name]
	if !ok {
		return 0, false
	}
	return inst.registers[i], true
}

func (inst *EmulatorInstance) WriteRegister(name string, value uint64) bool {
	name = strings.TrimPrefix(name, "$")
	if name == "pc" {
		inst.pc = value
		return true
	}
	i, ok := registerIndex[name]
	if !ok {
		return false
	}
	inst.regWrite(uint32(i), value)
	return true
}

// Registers returns a copy of the general purpose registers.
func (inst *EmulatorInstance) Registers() [32]uint64 {
	return inst.registers
}

// ReadMemory reads width bytes without touching the program state. Reading memory that was never
// written fails.
func (inst *EmulatorInstance) ReadMemory(addr uint64, width int) (uint64, bool) {
	switch width {
	case 1, 2, 4, 8:
		return inst.memory.Read(addr, width)
	default:
		return 0, false
	}
}

func (inst *EmulatorInstance) WriteMemory(addr uint64, width int, value uint64) {
	inst.memory.Write(addr, width, value)
}
