package emulator

func (inst *EmulatorInstance) memRead(addr uint64, width int) uint64 {
	value := uint64(0)
	for i := 0; i < width; i++ {
		b, ok := inst.memReadByte(addr + uint64(i))
		if !ok {
			inst.newMemoryAccessedBeforeInitializedException(addr + uint64(i))
			return 0
		}
		value |= uint64(b) << (8 * i)
	}
	return value
}

func (inst *EmulatorInstance) memReadByte(addr uint64) (byte, bool) {
	// accessing the memory, but first check if it is in the cache
	// if not, then load it into the cache
	blockAddr := addr &^ (PageSize - 1)
	if inst.dCache == nil || inst.dCache.StartAddr != blockAddr {
		newBlock, ok := inst.memory.Blocks[addr>>pageShift]
		if !ok {
			return 0, false
		}
		inst.dCache = newBlock
	}

	offset := addr & (PageSize - 1)
	return inst.dCache.Block[offset], inst.dCache.Initialized[offset]
}

func (inst *EmulatorInstance) memFetch(addr uint64) (uint32, bool) {
	if addr&0x3 != 0 {
		inst.newMemoryAccessNotAlignedException(addr, "instruction")
		return 0, false
	}

	value := inst.memRead(addr, 4)
	if inst.state == StateAbort {
		return 0, false
	}
	return uint32(value), true
}

func (inst *EmulatorInstance) memWrite(addr uint64, width int, value uint64) {
	for i := 0; i < width; i++ {
		inst.memWriteByte(addr+uint64(i), byte(value>>(8*i)))
	}
}

func (inst *EmulatorInstance) memWriteByte(addr uint64, value byte) {
	blockAddr := addr &^ (PageSize - 1)
	if inst.dCache == nil || inst.dCache.StartAddr != blockAddr {
		inst.dCache = inst.memory.getOrCreatePage(addr)
	}

	offset := addr & (PageSize - 1)
	inst.dCache.Block[offset] = value
	inst.dCache.Initialized[offset] = true
}
