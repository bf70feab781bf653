package emulator

import (
	"bytes"
	"debug/elf"
	"fmt"
	"os"

	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/util"
)

const DefaultMemoryBase = 0x80000000

// defaultImage stores a zero byte over its own data word, loads it back into a0 and traps, so it
// ends with a good trap.
var defaultImage = []uint32{
	MakeUTypeInstruction(OPCODE_AUIPC, 5, 0),                // auipc t0, 0
	MakeSTypeInstruction(OPCODE_STYPE, 5, 0, 16, 0b000),     // sb zero, 16(t0)
	MakeITypeInstruction(OPCODE_MEMITYPE, 10, 5, 16, 0b100), // lbu a0, 16(t0)
	MakeITypeInstruction(OPCODE_ENV, 0, 0, 1, 0b000),        // ebreak
	0xdeadbeef,
}

// LoadDefaultImage writes the built-in program at base and returns its entry point.
func LoadDefaultImage(mem *MemoryImage, base uint64) uint64 {
	for i, word := range defaultImage {
		mem.WriteWord(base+uint64(i)*4, word)
	}
	return base
}

// LoadImage loads an ELF executable or a raw binary into mem and returns the entry point. Raw
// binaries are placed at base. An empty path loads the built-in image.
func LoadImage(mem *MemoryImage, base uint64, path string) (uint64, error) {
	if path == "" {
		util.LogF("No image is given. Use the default build-in image.")
		return LoadDefaultImage(mem, base), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("could not read image %s: %w", path, err)
	}

	if bytes.HasPrefix(b, []byte(elf.ELFMAG)) {
		return loadELF(mem, path, b)
	}

	mem.WriteBytes(base, b)
	util.LogF("The image is %s, size = %d", path, len(b))
	return base, nil
}

func loadELF(mem *MemoryImage, path string, b []byte) (uint64, error) {
	f, err := elf.NewFile(bytes.NewReader(b))
	if err != nil {
		return 0, fmt.Errorf("could not open elf file %s: %w", path, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 || f.Machine != elf.EM_RISCV {
		return 0, fmt.Errorf("%s is not a 64-bit RISC-V executable (class %v, machine %v)", path, f.Class, f.Machine)
	}

	for _, section := range f.Sections {
		if section.Addr == 0 || section.Flags&elf.SHF_ALLOC == 0 {
			continue // if it doesn't have an address, it's not a section we care about
		}

		data, err := section.Data()
		if err != nil {
			return 0, fmt.Errorf("could not read section %s: %w", section.Name, err)
		}
		mem.WriteBytes(section.Addr, data)
		util.LogF("loaded section %s at %#x, size = %d", section.Name, section.Addr, len(data))
	}

	return f.Entry, nil
}
