package emulator

// Instruction is one 32-bit RV64 instruction word. The immediate accessors return the value
// sign-extended to the 64-bit register width.
type Instruction uint32

func (ins Instruction) field(shift, width uint) uint32 {
	return (uint32(ins) >> shift) & (1<<width - 1)
}

func (ins Instruction) Opcode() uint32 { return ins.field(0, 7) }
func (ins Instruction) Rd() uint32     { return ins.field(7, 5) }
func (ins Instruction) Funct3() uint32 { return ins.field(12, 3) }
func (ins Instruction) Rs1() uint32    { return ins.field(15, 5) }
func (ins Instruction) Rs2() uint32    { return ins.field(20, 5) }
func (ins Instruction) Funct7() uint32 { return ins.field(25, 7) }

// Shamt is the 6-bit shift amount of the 64-bit immediate shifts, Funct6 the bits above it.
func (ins Instruction) Shamt() uint32  { return ins.field(20, 6) }
func (ins Instruction) Funct6() uint32 { return ins.field(26, 6) }

func (ins Instruction) ImmI() uint64 {
	return signExtend(uint64(ins.field(20, 12)), 12)
}

func (ins Instruction) ImmS() uint64 {
	return signExtend(uint64(ins.field(25, 7)<<5|ins.field(7, 5)), 12)
}

func (ins Instruction) ImmB() uint64 {
	imm := ins.field(31, 1)<<12 | ins.field(7, 1)<<11 | ins.field(25, 6)<<5 | ins.field(8, 4)<<1
	return signExtend(uint64(imm), 13)
}

// ImmU is the upper immediate already shifted into place.
func (ins Instruction) ImmU() uint64 {
	return signExtend(uint64(ins.field(12, 20))<<12, 32)
}

func (ins Instruction) ImmJ() uint64 {
	imm := ins.field(31, 1)<<20 | ins.field(21, 10)<<1 | ins.field(20, 1)<<11 | ins.field(12, 8)<<12
	return signExtend(uint64(imm), 21)
}

// signExtend treats the low bits of value as a two's complement number.
func signExtend(value uint64, bits uint) uint64 {
	shift := 64 - bits
	return uint64(int64(value<<shift) >> shift)
}

// immSlice moves bits [lo, lo+width) of an immediate to position at in the instruction word.
type immSlice struct {
	lo, width, at uint
}

var (
	sTypeLayout = []immSlice{{0, 5, 7}, {5, 7, 25}}
	bTypeLayout = []immSlice{{11, 1, 7}, {1, 4, 8}, {5, 6, 25}, {12, 1, 31}}
	jTypeLayout = []immSlice{{12, 8, 12}, {11, 1, 20}, {1, 10, 21}, {20, 1, 31}}
)

func scatter(imm uint32, layout []immSlice) uint32 {
	var word uint32
	for _, s := range layout {
		word |= (imm >> s.lo & (1<<s.width - 1)) << s.at
	}
	return word
}

func MakeRTypeInstruction(opcode, rd, rs1, rs2, func7, func3 uint32) uint32 {
	return func7<<25 | rs2<<20 | rs1<<15 | func3<<12 | rd<<7 | opcode
}

// MakeITypeInstruction keeps the low 12 bits of imm, so negative offsets can be passed as
// uint32(int32(x)).
func MakeITypeInstruction(opcode, rd, rs1, imm, func3 uint32) uint32 {
	return (imm&0xFFF)<<20 | rs1<<15 | func3<<12 | rd<<7 | opcode
}

func MakeSTypeInstruction(opcode, rs1, rs2, imm, func3 uint32) uint32 {
	return scatter(imm, sTypeLayout) | rs2<<20 | rs1<<15 | func3<<12 | opcode
}

// MakeBTypeInstruction takes the branch offset in bytes.
func MakeBTypeInstruction(opcode, rs1, rs2, imm, func3 uint32) uint32 {
	return scatter(imm, bTypeLayout) | rs2<<20 | rs1<<15 | func3<<12 | opcode
}

// MakeUTypeInstruction takes the 20-bit upper immediate before shifting.
func MakeUTypeInstruction(opcode, rd, imm uint32) uint32 {
	return (imm&0xFFFFF)<<12 | rd<<7 | opcode
}

// MakeJTypeInstruction takes the jump offset in bytes.
func MakeJTypeInstruction(opcode, rd, imm uint32) uint32 {
	return scatter(imm, jTypeLayout) | rd<<7 | opcode
}

// major opcodes of RV64IM
const (
	OPCODE_RTYPE    = 0b0110011
	OPCODE_RTYPE32  = 0b0111011
	OPCODE_ITYPE    = 0b0010011
	OPCODE_ITYPE32  = 0b0011011
	OPCODE_STYPE    = 0b0100011
	OPCODE_BTYPE    = 0b1100011
	OPCODE_LUI      = 0b0110111
	OPCODE_AUIPC    = 0b0010111
	OPCODE_JAL      = 0b1101111
	OPCODE_JALR     = 0b1100111
	OPCODE_MEMITYPE = 0b0000011
	OPCODE_ENV      = 0b1110011
)
