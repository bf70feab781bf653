package emulator

import "fmt"

func (e RuntimeException) Error() string {
	return fmt.Sprintf("%s (pc = %#x)", e.message, e.pc)
}

func (e RuntimeException) Message() string {
	return e.message
}

func (e RuntimeException) PC() uint64 {
	return e.pc
}

func (e RuntimeException) Registers() [32]uint64 {
	return e.regs
}

func (inst *EmulatorInstance) newException(format string, args ...interface{}) RuntimeException {
	// auto-reports and aborts the program
	exception := RuntimeException{
		regs:    inst.registers,
		pc:      inst.pc,
		message: fmt.Sprintf(format, args...),
	}

	inst.reportException(exception)
	return exception
}

func (inst *EmulatorInstance) newMemoryAccessedBeforeInitializedException(addr uint64) RuntimeException {
	return inst.newException("Memory accessed before initialized at %#x", addr)
}

func (inst *EmulatorInstance) newMemoryAccessNotAlignedException(addr uint64, accessType string) RuntimeException {
	return inst.newException("Memory access not aligned at %#x for type %s", addr, accessType)
}

func (inst *EmulatorInstance) newIllegalInstructionException(instruction Instruction) RuntimeException {
	return inst.newException("Illegal instruction %#08x", instruction)
}

func (inst *EmulatorInstance) newRuntimeLimitException() RuntimeException {
	return inst.newException("Runtime limit of %d instructions reached", inst.runtimeLimit)
}

func (inst *EmulatorInstance) reportException(exception RuntimeException) {
	inst.errors = append(inst.errors, exception)
	inst.state = StateAbort
	inst.haltPC = inst.pc
	inst.haltRet = ^uint64(0)
	if inst.runtimeErrorCallback != nil {
		inst.runtimeErrorCallback(exception)
	}
}
