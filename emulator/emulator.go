package emulator

import (
	"math/bits"
)

// Execute runs up to n instructions, or until the program halts when n is negative. It returns the
// state the machine is left in: StateStopped when n instructions ran or the step hook asked to stop.
func (inst *EmulatorInstance) Execute(n int64) State {
	switch inst.state {
	case StateEnd, StateAbort, StateQuit:
		return inst.state
	}

	inst.state = StateRunning
	for remaining := uint64(n); remaining > 0; remaining-- {
		if inst.runtimeLimit != 0 && inst.executedInstructions >= inst.runtimeLimit {
			inst.newRuntimeLimitException()
			break
		}

		inst.step()
		if inst.state != StateRunning {
			break
		}

		if inst.stepHook != nil && inst.stepHook(inst) {
			inst.state = StateStopped
			break
		}
	}

	if inst.state == StateRunning {
		inst.state = StateStopped
	}
	return inst.state
}

// Step executes a single instruction.
func (inst *EmulatorInstance) Step() State {
	return inst.Execute(1)
}

func (inst *EmulatorInstance) step() {
	// fetching next instruction
	word, ok := inst.memFetch(inst.pc)
	if !ok {
		return
	}

	current := inst.pc
	instruction := Instruction(word)
	switch instruction.Opcode() {
	case OPCODE_LUI:
		inst.executeLUI(instruction)
	case OPCODE_AUIPC:
		inst.executeAUIPC(instruction)
	case OPCODE_JAL:
		inst.executeJAL(instruction)
	case OPCODE_JALR:
		inst.executeJALR(instruction)
	case OPCODE_BTYPE:
		inst.executeBType(instruction)
	case OPCODE_MEMITYPE:
		inst.executeMemIType(instruction)
	case OPCODE_ITYPE:
		inst.executeIType(instruction)
	case OPCODE_ITYPE32:
		inst.executeIType32(instruction)
	case OPCODE_RTYPE:
		inst.executeRType(instruction)
	case OPCODE_RTYPE32:
		inst.executeRType32(instruction)
	case OPCODE_STYPE:
		inst.executeSType(instruction)
	case OPCODE_ENV:
		inst.executeEnv(instruction)
	default:
		inst.newIllegalInstructionException(instruction)
	}

	if inst.state == StateAbort {
		inst.pc = current
		return
	}
	inst.executedInstructions++
	inst.pc += 4
}

// jumpTo sets the pc so that the increment at the end of step lands on target
func (inst *EmulatorInstance) jumpTo(target uint64) {
	inst.pc = target - 4
}

func (inst *EmulatorInstance) executeLUI(instruction Instruction) {
	inst.regWrite(instruction.Rd(), instruction.ImmU())
}

func (inst *EmulatorInstance) executeAUIPC(instruction Instruction) {
	inst.regWrite(instruction.Rd(), instruction.ImmU()+inst.pc)
}

func (inst *EmulatorInstance) executeJAL(instruction Instruction) {
	target := inst.pc + instruction.ImmJ()
	inst.regWrite(instruction.Rd(), inst.pc+4)
	inst.jumpTo(target)
}

func (inst *EmulatorInstance) executeJALR(instruction Instruction) {
	target := (inst.regRead(instruction.Rs1()) + instruction.ImmI()) &^ 1
	inst.regWrite(instruction.Rd(), inst.pc+4)
	inst.jumpTo(target)
}

func (inst *EmulatorInstance) executeBType(instruction Instruction) {
	a, b := inst.regRead(instruction.Rs1()), inst.regRead(instruction.Rs2())

	var taken bool
	switch instruction.Funct3() {
	case 0b000:
		// BEQ
		taken = a == b
	case 0b001:
		// BNE
		taken = a != b
	case 0b100:
		// BLT
		taken = int64(a) < int64(b)
	case 0b101:
		// BGE
		taken = int64(a) >= int64(b)
	case 0b110:
		// BLTU
		taken = a < b
	case 0b111:
		// BGEU
		taken = a >= b
	default:
		inst.newIllegalInstructionException(instruction)
		return
	}

	if taken {
		inst.jumpTo(inst.pc + instruction.ImmB())
	}
}

func (inst *EmulatorInstance) executeMemIType(instruction Instruction) {
	addr := inst.regRead(instruction.Rs1()) + instruction.ImmI()

	var value uint64
	switch instruction.Funct3() {
	case 0b000:
		// LB
		value = signExtend(inst.memRead(addr, 1), 8)
	case 0b001:
		// LH
		value = signExtend(inst.memRead(addr, 2), 16)
	case 0b010:
		// LW
		value = signExtend(inst.memRead(addr, 4), 32)
	case 0b011:
		// LD
		value = inst.memRead(addr, 8)
	case 0b100:
		// LBU
		value = inst.memRead(addr, 1)
	case 0b101:
		// LHU
		value = inst.memRead(addr, 2)
	case 0b110:
		// LWU
		value = inst.memRead(addr, 4)
	default:
		inst.newIllegalInstructionException(instruction)
		return
	}

	if inst.state == StateAbort {
		return
	}
	inst.regWrite(instruction.Rd(), value)
}

func (inst *EmulatorInstance) executeIType(instruction Instruction) {
	rd := instruction.Rd()
	a := inst.regRead(instruction.Rs1())
	immVal := instruction.ImmI()
	shamt := instruction.Shamt()

	switch instruction.Funct3() {
	case 0b000:
		// ADDI
		inst.regWrite(rd, a+immVal)
	case 0b010:
		// SLTI
		inst.regWrite(rd, boolToReg(int64(a) < int64(immVal)))
	case 0b011:
		// SLTIU
		inst.regWrite(rd, boolToReg(a < immVal))
	case 0b100:
		// XORI
		inst.regWrite(rd, a^immVal)
	case 0b110:
		// ORI
		inst.regWrite(rd, a|immVal)
	case 0b111:
		// ANDI
		inst.regWrite(rd, a&immVal)
	case 0b001:
		// SLLI
		if instruction.Funct6() != 0 {
			inst.newIllegalInstructionException(instruction)
			return
		}
		inst.regWrite(rd, a<<shamt)
	case 0b101:
		switch instruction.Funct6() {
		case 0b000000:
			// SRLI
			inst.regWrite(rd, a>>shamt)
		case 0b010000:
			// SRAI
			inst.regWrite(rd, uint64(int64(a)>>shamt))
		default:
			inst.newIllegalInstructionException(instruction)
		}
	}
}

func (inst *EmulatorInstance) executeIType32(instruction Instruction) {
	rd := instruction.Rd()
	a := uint32(inst.regRead(instruction.Rs1()))
	shamt := instruction.Rs2()

	switch instruction.Funct3() {
	case 0b000:
		// ADDIW
		inst.regWrite(rd, signExtend(uint64(a+uint32(instruction.ImmI())), 32))
	case 0b001:
		// SLLIW
		if instruction.Funct7() != 0 {
			inst.newIllegalInstructionException(instruction)
			return
		}
		inst.regWrite(rd, signExtend(uint64(a<<shamt), 32))
	case 0b101:
		switch instruction.Funct7() {
		case 0b0000000:
			// SRLIW
			inst.regWrite(rd, signExtend(uint64(a>>shamt), 32))
		case 0b0100000:
			// SRAIW
			inst.regWrite(rd, uint64(int64(int32(a)>>shamt)))
		default:
			inst.newIllegalInstructionException(instruction)
		}
	default:
		inst.newIllegalInstructionException(instruction)
	}
}

func (inst *EmulatorInstance) executeRType(instruction Instruction) {
	rd, func7, func3 := instruction.Rd(), instruction.Funct7(), instruction.Funct3()
	a, b := inst.regRead(instruction.Rs1()), inst.regRead(instruction.Rs2())

	switch func7 {
	case 0b0000000, 0b0100000:
		switch func3 {
		case 0b000:
			// ADD/SUB
			if func7 == 0b0000000 {
				inst.regWrite(rd, a+b)
			} else {
				inst.regWrite(rd, a-b)
			}
		case 0b001:
			// SLL
			inst.regWrite(rd, a<<(b&0x3F))
		case 0b010:
			// SLT
			inst.regWrite(rd, boolToReg(int64(a) < int64(b)))
		case 0b011:
			// SLTU
			inst.regWrite(rd, boolToReg(a < b))
		case 0b100:
			// XOR
			inst.regWrite(rd, a^b)
		case 0b101:
			// SRL/SRA
			if func7 == 0b0000000 {
				inst.regWrite(rd, a>>(b&0x3F))
			} else {
				inst.regWrite(rd, uint64(int64(a)>>(b&0x3F)))
			}
		case 0b110:
			// OR
			inst.regWrite(rd, a|b)
		case 0b111:
			// AND
			inst.regWrite(rd, a&b)
		}
	case 0b0000001:
		switch func3 {
		case 0b000:
			// MUL
			inst.regWrite(rd, a*b)
		case 0b001:
			// MULH
			hi, _ := bits.Mul64(a, b)
			if int64(a) < 0 {
				hi -= b
			}
			if int64(b) < 0 {
				hi -= a
			}
			inst.regWrite(rd, hi)
		case 0b010:
			// MULHSU
			hi, _ := bits.Mul64(a, b)
			if int64(a) < 0 {
				hi -= b
			}
			inst.regWrite(rd, hi)
		case 0b011:
			// MULHU
			hi, _ := bits.Mul64(a, b)
			inst.regWrite(rd, hi)
		case 0b100:
			// DIV
			inst.regWrite(rd, divSigned(a, b))
		case 0b101:
			// DIVU
			inst.regWrite(rd, divUnsigned(a, b))
		case 0b110:
			// REM
			inst.regWrite(rd, remSigned(a, b))
		case 0b111:
			// REMU
			inst.regWrite(rd, remUnsigned(a, b))
		}
	default:
		inst.newIllegalInstructionException(instruction)
	}
}

func (inst *EmulatorInstance) executeRType32(instruction Instruction) {
	func7, func3 := instruction.Funct7(), instruction.Funct3()
	a, b := uint32(inst.regRead(instruction.Rs1())), uint32(inst.regRead(instruction.Rs2()))

	var result uint32
	switch {
	case func7 == 0b0000000 && func3 == 0b000:
		// ADDW
		result = a + b
	case func7 == 0b0100000 && func3 == 0b000:
		// SUBW
		result = a - b
	case func7 == 0b0000000 && func3 == 0b001:
		// SLLW
		result = a << (b & 0x1F)
	case func7 == 0b0000000 && func3 == 0b101:
		// SRLW
		result = a >> (b & 0x1F)
	case func7 == 0b0100000 && func3 == 0b101:
		// SRAW
		result = uint32(int32(a) >> (b & 0x1F))
	case func7 == 0b0000001 && func3 == 0b000:
		// MULW
		result = a * b
	case func7 == 0b0000001 && func3 == 0b100:
		// DIVW
		result = uint32(divSigned(signExtend(uint64(a), 32), signExtend(uint64(b), 32)))
	case func7 == 0b0000001 && func3 == 0b101:
		// DIVUW
		result = uint32(divUnsigned(uint64(a), uint64(b)))
	case func7 == 0b0000001 && func3 == 0b110:
		// REMW
		result = uint32(remSigned(signExtend(uint64(a), 32), signExtend(uint64(b), 32)))
	case func7 == 0b0000001 && func3 == 0b111:
		// REMUW
		result = uint32(remUnsigned(uint64(a), uint64(b)))
	default:
		inst.newIllegalInstructionException(instruction)
		return
	}
	inst.regWrite(instruction.Rd(), signExtend(uint64(result), 32))
}

func (inst *EmulatorInstance) executeSType(instruction Instruction) {
	addr := inst.regRead(instruction.Rs1()) + instruction.ImmS()
	rs2 := instruction.Rs2()

	switch instruction.Funct3() {
	case 0b000:
		// SB
		inst.memWrite(addr, 1, inst.regRead(rs2))
	case 0b001:
		// SH
		inst.memWrite(addr, 2, inst.regRead(rs2))
	case 0b010:
		// SW
		inst.memWrite(addr, 4, inst.regRead(rs2))
	case 0b011:
		// SD
		inst.memWrite(addr, 8, inst.regRead(rs2))
	default:
		inst.newIllegalInstructionException(instruction)
	}
}

func (inst *EmulatorInstance) executeEnv(instruction Instruction) {
	if instruction.Funct3() != 0b000 {
		inst.newIllegalInstructionException(instruction)
		return
	}

	switch instruction.ImmI() {
	case 0:
		// ECALL
		inst.newException("ECALL is not supported (a7 = %d)", inst.registers[17])
	case 1:
		// EBREAK ends the program, a0 holds the return value
		inst.state = StateEnd
		inst.haltPC = inst.pc
		inst.haltRet = inst.registers[10]
	default:
		inst.newIllegalInstructionException(instruction)
	}
}

func boolToReg(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func divSigned(a, b uint64) uint64 {
	if b == 0 {
		return ^uint64(0)
	}
	// MinInt64 / -1 wraps to MinInt64 in Go as the ISA requires
	return uint64(int64(a) / int64(b))
}

func divUnsigned(a, b uint64) uint64 {
	if b == 0 {
		return ^uint64(0)
	}
	return a / b
}

func remSigned(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return uint64(int64(a) % int64(b))
}

func remUnsigned(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return a % b
}
