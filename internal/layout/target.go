package layout

// Target describes the ABI target triple and its pointer properties.
type Target struct {
	Triple       string // e.g. "x86_64-linux-gnu"
	PointerWidth int    // bits
}

func X86_64LinuxGNU() Target {
	return Target{Triple: "x86_64-linux-gnu", PointerWidth: 64}
}

func I686LinuxGNU() Target {
	return Target{Triple: "i686-linux-gnu", PointerWidth: 32}
}

func MSP430NoneElf() Target {
	return Target{Triple: "msp430-none-elf", PointerWidth: 16}
}

// TargetForWidth returns a generic target with the given pointer width.
func TargetForWidth(bits int) Target {
	switch bits {
	case 64:
		return X86_64LinuxGNU()
	case 32:
		return I686LinuxGNU()
	case 16:
		return MSP430NoneElf()
	case 128:
		return Target{Triple: "unknown-128", PointerWidth: 128}
	default:
		return Target{Triple: "unknown", PointerWidth: bits}
	}
}
