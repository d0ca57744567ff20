package types

type ModuleFormat string

const (
	ModuleFormatAuto     ModuleFormat = "auto"
	ModuleFormatPE       ModuleFormat = "pe"
	ModuleFormatManifest ModuleFormat = "manifest"
)

type RuntimeOrder string

const (
	RuntimeOrderOrdinal  RuntimeOrder = "ordinal"
	RuntimeOrderSemantic RuntimeOrder = "semantic"
)
