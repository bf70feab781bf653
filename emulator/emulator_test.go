package emulator_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/emulator"
)

const (
	base      = emulator.DefaultMemoryBase
	stackTop  = 0x80100000
	regRA     = 1
	regT0     = 5
	regT1     = 6
	regA0     = 10
	regA1     = 11
	regA2     = 12
	regA3     = 13
	allOnes   = ^uint64(0)
	minusTwo  = allOnes - 1
	signedBit = 0xFFFFFFFF80000000
)

func newMachine(t *testing.T, program []uint32, limit uint64) *emulator.EmulatorInstance {
	t.Helper()
	mem := emulator.NewMemoryImage()
	for i, word := range program {
		mem.WriteWord(base+uint64(i)*4, word)
	}
	return emulator.NewEmulator(emulator.EmulatorConfig{
		Memory:            mem,
		EntryPoint:        base,
		StackStartAddress: stackTop,
		RuntimeLimit:      limit,
	})
}

func register(t *testing.T, inst *emulator.EmulatorInstance, name string) uint64 {
	t.Helper()
	value, ok := inst.LookupRegister(name)
	if !ok {
		t.Fatalf("register %s not found", name)
	}
	return value
}

func TestDefaultImage(t *testing.T) {
	mem := emulator.NewMemoryImage()
	entry := emulator.LoadDefaultImage(mem, base)
	inst := emulator.NewEmulator(emulator.EmulatorConfig{Memory: mem, EntryPoint: entry})

	if state := inst.Execute(-1); state != emulator.StateEnd {
		t.Fatalf("state = %v, expected end", state)
	}
	if inst.GetHaltRet() != 0 {
		t.Errorf("halt ret = %d, expected 0", inst.GetHaltRet())
	}
	if inst.GetHaltPC() != base+12 {
		t.Errorf("halt pc = %#x, expected %#x", inst.GetHaltPC(), base+12)
	}
	if word, ok := mem.Read(base+16, 4); !ok || word != 0xdeadbe00 {
		t.Errorf("data word = %#x (%v), expected 0xdeadbe00", word, ok)
	}
	if inst.GetTotalInstructionsExecuted() != 4 {
		t.Errorf("executed %d instructions, expected 4", inst.GetTotalInstructionsExecuted())
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		program  []uint32
		expected uint64
	}{
		{"addi negative", []uint32{addi(regA0, 0, -5)}, allOnes - 4},
		{"lui sign extends", []uint32{lui(regA0, 0x80000)}, signedBit},
		{"addiw sign extends", []uint32{
			addi(regT0, 0, 1),
			itype(0b001, regT0, regT0, 31), // slli
			itype32(0b000, regA0, regT0, 0),
		}, signedBit},
		{"mul", []uint32{addi(regT0, 0, 6), addi(regT1, 0, 7), rtype(0b0000001, 0b000, regA0, regT0, regT1)}, 42},
		{"div by zero", []uint32{addi(regT0, 0, 5), rtype(0b0000001, 0b100, regA0, regT0, 0)}, allOnes},
		{"rem by zero", []uint32{addi(regT0, 0, 5), rtype(0b0000001, 0b110, regA0, regT0, 0)}, 5},
		{"signed div truncates", []uint32{addi(regT0, 0, -7), addi(regT1, 0, 2), rtype(0b0000001, 0b100, regA0, regT0, regT1)}, allOnes - 2},
		{"mulhu", []uint32{addi(regT0, 0, -1), rtype(0b0000001, 0b011, regA0, regT0, regT0)}, minusTwo},
		{"mulh", []uint32{addi(regT0, 0, -1), rtype(0b0000001, 0b001, regA0, regT0, regT0)}, 0},
		{"srai", []uint32{addi(regT0, 0, -16), itype(0b101, regA0, regT0, 0x402)}, allOnes - 3},
		{"srli", []uint32{addi(regT0, 0, -1), itype(0b101, regA0, regT0, 60)}, 0xF},
		{"subw", []uint32{addi(regT1, 0, 1), rtype32(0b0100000, 0b000, regA0, 0, regT1)}, allOnes},
		{"sltu", []uint32{addi(regT0, 0, -1), rtype(0, 0b011, regA0, 0, regT0)}, 1},
		{"slt", []uint32{addi(regT0, 0, -1), rtype(0, 0b010, regA0, 0, regT0)}, 0},
		{"x0 stays zero", []uint32{addi(0, 0, 9), addi(regA0, 0, 0)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := newMachine(t, append(tt.program, ebreak()), 0)
			if state := inst.Execute(-1); state != emulator.StateEnd {
				t.Fatalf("state = %v, errors = %v", state, inst.GetErrors())
			}
			if inst.GetHaltRet() != tt.expected {
				t.Errorf("a0 = %#x, expected %#x", inst.GetHaltRet(), tt.expected)
			}
		})
	}
}

func TestLoadStore(t *testing.T) {
	inst := newMachine(t, []uint32{
		emulator.MakeUTypeInstruction(emulator.OPCODE_AUIPC, regT0, 0),
		addi(regT1, 0, -2),
		store(0b011, regT0, regT1, 256), // sd
		load(0b011, regA0, regT0, 256),  // ld
		load(0b010, regA1, regT0, 256),  // lw
		load(0b110, regA2, regT0, 256),  // lwu
		load(0b100, regA3, regT0, 256),  // lbu
		ebreak(),
	}, 0)

	if state := inst.Execute(-1); state != emulator.StateEnd {
		t.Fatalf("state = %v, errors = %v", state, inst.GetErrors())
	}

	expected := map[string]uint64{"a0": minusTwo, "a1": minusTwo, "a2": 0xFFFFFFFE, "a3": 0xFE}
	for name, value := range expected {
		if got := register(t, inst, name); got != value {
			t.Errorf("%s = %#x, expected %#x", name, got, value)
		}
	}

	if word, ok := inst.ReadMemory(base+256, 8); !ok || word != minusTwo {
		t.Errorf("memory = %#x (%v), expected %#x", word, ok, minusTwo)
	}
}

func sumProgram() []uint32 {
	return []uint32{
		addi(regT0, 0, 10),
		addi(regA0, 0, 0),
		rtype(0, 0b000, regA0, regA0, regT0), // loop: add a0, a0, t0
		addi(regT0, regT0, -1),
		branch(0b001, regT0, 0, -8), // bne t0, x0, loop
		ebreak(),
	}
}

func TestBranchLoop(t *testing.T) {
	inst := newMachine(t, sumProgram(), 0)
	if state := inst.Execute(-1); state != emulator.StateEnd {
		t.Fatalf("state = %v, errors = %v", state, inst.GetErrors())
	}
	if inst.GetHaltRet() != 55 {
		t.Errorf("a0 = %d, expected 55", inst.GetHaltRet())
	}
}

func TestJumpAndLink(t *testing.T) {
	inst := newMachine(t, []uint32{
		jal(regRA, 12),
		ebreak(),
		addi(regA0, 0, 1),
		addi(regA0, 0, 7),
		jalr(0, regRA, 0),
	}, 0)

	if state := inst.Execute(-1); state != emulator.StateEnd {
		t.Fatalf("state = %v, errors = %v", state, inst.GetErrors())
	}
	if inst.GetHaltRet() != 7 {
		t.Errorf("a0 = %d, expected 7", inst.GetHaltRet())
	}
	if inst.GetHaltPC() != base+4 {
		t.Errorf("halt pc = %#x, expected %#x", inst.GetHaltPC(), base+4)
	}
}

func TestEcallAborts(t *testing.T) {
	var reported []emulator.RuntimeException
	mem := emulator.NewMemoryImage()
	mem.WriteWord(base, ecall())
	inst := emulator.NewEmulator(emulator.EmulatorConfig{
		Memory:     mem,
		EntryPoint: base,
		RuntimeErrorCallback: func(e emulator.RuntimeException) {
			reported = append(reported, e)
		},
	})

	if state := inst.Execute(-1); state != emulator.StateAbort {
		t.Fatalf("state = %v, expected abort", state)
	}
	if len(reported) != 1 || len(inst.GetErrors()) != 1 {
		t.Fatalf("reported %d, recorded %d exceptions", len(reported), len(inst.GetErrors()))
	}
	if !strings.Contains(reported[0].Message(), "ECALL") {
		t.Errorf("message = %q", reported[0].Message())
	}
	if reported[0].PC() != base || inst.GetHaltPC() != base {
		t.Errorf("exception pc = %#x, halt pc = %#x", reported[0].PC(), inst.GetHaltPC())
	}

	// an aborted machine does not run again
	if state := inst.Execute(1); state != emulator.StateAbort || inst.GetTotalInstructionsExecuted() != 0 {
		t.Errorf("state = %v after %d instructions", state, inst.GetTotalInstructionsExecuted())
	}
}

func TestUninitializedFetch(t *testing.T) {
	inst := newMachine(t, nil, 0)
	if state := inst.Execute(-1); state != emulator.StateAbort {
		t.Fatalf("state = %v, expected abort", state)
	}
	if inst.GetPC() != base {
		t.Errorf("pc = %#x, expected %#x", inst.GetPC(), base)
	}
}

func TestRuntimeLimit(t *testing.T) {
	inst := newMachine(t, []uint32{jal(0, 0)}, 100)
	if state := inst.Execute(-1); state != emulator.StateAbort {
		t.Fatalf("state = %v, expected abort", state)
	}
	if inst.GetTotalInstructionsExecuted() != 100 {
		t.Errorf("executed %d instructions, expected 100", inst.GetTotalInstructionsExecuted())
	}
}

func TestExecuteSteps(t *testing.T) {
	mem := emulator.NewMemoryImage()
	inst := emulator.NewEmulator(emulator.EmulatorConfig{Memory: mem, EntryPoint: emulator.LoadDefaultImage(mem, base)})

	if state := inst.Execute(2); state != emulator.StateStopped {
		t.Fatalf("state = %v, expected stopped", state)
	}
	if inst.GetPC() != base+8 {
		t.Errorf("pc = %#x, expected %#x", inst.GetPC(), base+8)
	}
	if state := inst.Step(); state != emulator.StateStopped {
		t.Fatalf("state = %v, expected stopped", state)
	}
	if state := inst.Step(); state != emulator.StateEnd {
		t.Fatalf("state = %v, expected end", state)
	}
	if state := inst.Execute(-1); state != emulator.StateEnd || inst.GetTotalInstructionsExecuted() != 4 {
		t.Errorf("state = %v after %d instructions", state, inst.GetTotalInstructionsExecuted())
	}
}

func TestStepHook(t *testing.T) {
	inst := newMachine(t, sumProgram(), 0)
	inst.SetStepHook(func(inst *emulator.EmulatorInstance) bool {
		a0, _ := inst.LookupRegister("a0")
		return a0 > 20
	})

	if state := inst.Execute(-1); state != emulator.StateStopped {
		t.Fatalf("state = %v, expected stopped", state)
	}
	if a0 := register(t, inst, "a0"); a0 != 27 {
		t.Errorf("a0 = %d, expected 27", a0)
	}

	inst.SetStepHook(nil)
	if state := inst.Execute(-1); state != emulator.StateEnd || inst.GetHaltRet() != 55 {
		t.Errorf("state = %v, a0 = %d", state, inst.GetHaltRet())
	}
}

func TestLookupRegister(t *testing.T) {
	inst := newMachine(t, nil, 0)
	inst.WriteRegister("s0", 0x1234)

	tests := []struct {
		name     string
		expected uint64
		ok       bool
	}{
		{"0", 0, true},
		{"$0", 0, true},
		{"zero", 0, true},
		{"x0", 0, true},
		{"sp", stackTop, true},
		{"x2", stackTop, true},
		{"$sp", stackTop, true},
		{"fp", 0x1234, true},
		{"s0", 0x1234, true},
		{"x8", 0x1234, true},
		{"pc", base, true},
		{"s11", 0, true},
		{"x32", 0, false},
		{"nosuch", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := inst.LookupRegister(tt.name)
			if ok != tt.ok || value != tt.expected {
				t.Errorf("LookupRegister(%q) = (%#x, %v), expected (%#x, %v)", tt.name, value, ok, tt.expected, tt.ok)
			}
		})
	}

	if inst.WriteRegister("zero", 5) && register(t, inst, "zero") != 0 {
		t.Errorf("zero register was written")
	}
	if len(emulator.RegisterNames()) != 32 || emulator.RegisterNames()[0] != "$0" {
		t.Errorf("RegisterNames() = %v", emulator.RegisterNames())
	}
}

func TestMemoryImage(t *testing.T) {
	mem := emulator.NewMemoryImage()
	if _, ok := mem.Read(0x1000, 1); ok {
		t.Errorf("read of an unwritten page succeeded")
	}

	mem.WriteDoubleWord(0xFFC, 0x1122334455667788)
	if value, ok := mem.Read(0xFFC, 8); !ok || value != 0x1122334455667788 {
		t.Errorf("cross-page read = %#x (%v)", value, ok)
	}
	if b, ok := mem.ReadByte(0xFFC); !ok || b != 0x88 {
		t.Errorf("low byte = %#x (%v), expected 0x88", b, ok)
	}
	if _, ok := mem.Read(0x1000, 8); ok {
		t.Errorf("read past written bytes succeeded")
	}

	clone := mem.Clone()
	clone.WriteByte(0xFFC, 0)
	if b, _ := mem.ReadByte(0xFFC); b != 0x88 {
		t.Errorf("clone write leaked into the original")
	}

	inst := emulator.NewEmulator(emulator.EmulatorConfig{Memory: mem})
	if _, ok := inst.ReadMemory(0xFFC, 3); ok {
		t.Errorf("odd width read succeeded")
	}
	inst.WriteMemory(0x2000, 2, 0xBEEF)
	if value, ok := inst.ReadMemory(0x2000, 2); !ok || value != 0xBEEF {
		t.Errorf("ReadMemory = %#x (%v)", value, ok)
	}
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()

	raw := filepath.Join(dir, "prog.bin")
	program := []uint32{addi(regA0, 0, 3), ebreak()}
	data := make([]byte, 0, len(program)*4)
	for _, word := range program {
		data = append(data, byte(word), byte(word>>8), byte(word>>16), byte(word>>24))
	}
	if err := os.WriteFile(raw, data, 0o644); err != nil {
		t.Fatal(err)
	}

	mem := emulator.NewMemoryImage()
	entry, err := emulator.LoadImage(mem, base, raw)
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	inst := emulator.NewEmulator(emulator.EmulatorConfig{Memory: mem, EntryPoint: entry})
	if state := inst.Execute(-1); state != emulator.StateEnd || inst.GetHaltRet() != 3 {
		t.Errorf("state = %v, a0 = %d", state, inst.GetHaltRet())
	}

	entry, err = emulator.LoadImage(emulator.NewMemoryImage(), base, "")
	if err != nil || entry != base {
		t.Errorf("default image entry = %#x, err = %v", entry, err)
	}

	bad := filepath.Join(dir, "bad.elf")
	if err := os.WriteFile(bad, []byte("\x7fELF garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := emulator.LoadImage(emulator.NewMemoryImage(), base, bad); err == nil {
		t.Errorf("truncated elf loaded without error")
	}

	if _, err := emulator.LoadImage(emulator.NewMemoryImage(), base, filepath.Join(dir, "missing")); err == nil {
		t.Errorf("missing image loaded without error")
	}
}
