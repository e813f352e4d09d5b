package config

// SourceFileExt is the extension of ash source files. One file holds one function,
// named after the file stem.
const SourceFileExt = ".ash"

// AsmFileExt is the extension of hand-written typed assembly modules.
const AsmFileExt = ".tasm"

// ProjectFileNames are the recognized project file names, in lookup order
var ProjectFileNames = []string{"ash.yaml", "ash.yml"}

// Builtin function names. Source files may not use these as their stem.
const (
	CrashFuncName = "crash"
)

// Label and instruction names shared by the codegen context and the assembler
const (
	BlockLabelPrefix = "block_"
	HaltInstr        = "halt"
	ReturnInstr      = "return"
)

// Name collision policies for the source resolver
const (
	NamePolicyReject = "reject"
	NamePolicyShadow = "shadow"
)
