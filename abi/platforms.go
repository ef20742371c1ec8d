package abi

// Canned descriptors for the supported target triples. Each is built once
// and shared read-only; callers must not mutate the returned value.

var sysV = &Descriptor{
	Arch: "x86_64-sysv",
	Classes: []StorageClass{
		{
			Kind:    StorageInteger,
			Name:    "integer",
			Size:    8,
			ArgRegs: []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"},
			RetRegs: []string{"rax", "rdx"},
		},
		{
			Kind:    StorageVector,
			Name:    "vector",
			Size:    8,
			ArgRegs: []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"},
			RetRegs: []string{"xmm0", "xmm1"},
		},
		{
			Kind: StorageStack,
			Name: "stack",
			Size: 8,
		},
	},
	StackAlign: 16,
}

var aapcs64 = &Descriptor{
	Arch: "aarch64-aapcs",
	Classes: []StorageClass{
		{
			Kind:    StorageInteger,
			Name:    "integer",
			Size:    8,
			ArgRegs: []string{"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7"},
			RetRegs: []string{"x0", "x1"},
		},
		{
			Kind:    StorageVector,
			Name:    "vector",
			Size:    8,
			ArgRegs: []string{"v0", "v1", "v2", "v3", "v4", "v5", "v6", "v7"},
			RetRegs: []string{"v0", "v1", "v2", "v3"},
		},
		{
			Kind: StorageStack,
			Name: "stack",
			Size: 8,
		},
	},
	StackAlign: 16,
}

// SystemV returns the x86-64 System V descriptor singleton.
func SystemV() *Descriptor { return sysV }

// AAPCS64 returns the AArch64 AAPCS descriptor singleton.
func AAPCS64() *Descriptor { return aapcs64 }
