package emulator

func (inst *EmulatorInstance) ResetRegisters(config EmulatorConfig) {
	for i := 0; i < 32; i++ {
		inst.registers[i] = 0
	}

	inst.registers[2] = config.StackStartAddress
	inst.pc = config.EntryPoint
	inst.entry = config.EntryPoint
	inst.state = StateStopped
	inst.haltPC = 0
	inst.haltRet = 0
}

func NewEmulator(config EmulatorConfig) *EmulatorInstance {
	if config.Memory == nil {
		config.Memory = NewMemoryImage()
	}

	inst := &EmulatorInstance{
		memory:               config.Memory,
		runtimeLimit:         config.RuntimeLimit,
		errors:               []RuntimeException{},
		runtimeErrorCallback: config.RuntimeErrorCallback,
	}
	inst.ResetRegisters(config)
	return inst
}

func NewMemoryImage() *MemoryImage {
	return &MemoryImage{Blocks: map[uint64]*MemoryPage{}}
}

func (m *MemoryImage) getOrCreatePage(addr uint64) *MemoryPage {
	page, ok := m.Blocks[addr>>pageShift]
	if !ok {
		page = &MemoryPage{StartAddr: addr &^ (PageSize - 1)}
		m.Blocks[addr>>pageShift] = page
	}
	return page
}

func (m *MemoryImage) WriteByte(addr uint64, value byte) {
	page := m.getOrCreatePage(addr)
	page.Block[addr&(PageSize-1)] = value
	page.Initialized[addr&(PageSize-1)] = true
}

// Write stores the low width bytes of value little-endian.
func (m *MemoryImage) Write(addr uint64, width int, value uint64) {
	for i := 0; i < width; i++ {
		m.WriteByte(addr+uint64(i), byte(value>>(8*i)))
	}
}

func (m *MemoryImage) WriteWord(addr uint64, value uint32) {
	m.Write(addr, 4, uint64(value))
}

func (m *MemoryImage) WriteDoubleWord(addr uint64, value uint64) {
	m.Write(addr, 8, value)
}

func (m *MemoryImage) WriteBytes(addr uint64, data []byte) {
	for i, b := range data {
		m.WriteByte(addr+uint64(i), b)
	}
}

func (m *MemoryImage) ReadByte(addr uint64) (byte, bool) {
	page, ok := m.Blocks[addr>>pageShift]
	if !ok {
		return 0, false
	}
	return page.Block[addr&(PageSize-1)], page.Initialized[addr&(PageSize-1)]
}

// Read loads width bytes little-endian. It fails if any byte was never written.
func (m *MemoryImage) Read(addr uint64, width int) (uint64, bool) {
	value := uint64(0)
	for i := 0; i < width; i++ {
		b, ok := m.ReadByte(addr + uint64(i))
		if !ok {
			return 0, false
		}
		value |= uint64(b) << (8 * i)
	}
	return value, true
}

func (m *MemoryImage) Clone() *MemoryImage {
	newMem := NewMemoryImage()
	for k, v := range m.Blocks {
		newPage := &MemoryPage{StartAddr: v.StartAddr}
		copy(newPage.Block[:], v.Block[:])
		copy(newPage.Initialized[:], v.Initialized[:])
		newMem.Blocks[k] = newPage
	}
	return newMem
}

func (inst *EmulatorInstance) GetState() State {
	return inst.state
}

// SetState is used by the console to mark a quit.
func (inst *EmulatorInstance) SetState(state State) {
	inst.state = state
}

func (inst *EmulatorInstance) GetHaltPC() uint64 {
	return inst.haltPC
}

func (inst *EmulatorInstance) GetHaltRet() uint64 {
	return inst.haltRet
}

func (inst *EmulatorInstance) GetPC() uint64 {
	return inst.pc
}

func (inst *EmulatorInstance) GetMemory() *MemoryImage {
	return inst.memory
}

func (inst *EmulatorInstance) GetErrors() []RuntimeException {
	return inst.errors
}

func (inst *EmulatorInstance) GetTotalInstructionsExecuted() uint64 {
	return inst.executedInstructions
}

func (inst *EmulatorInstance) SetStepHook(hook StepHook) {
	inst.stepHook = hook
}
