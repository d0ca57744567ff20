package app

import (
	"io"
	"os"

	"asmwalk/internal/adapters"
	"asmwalk/internal/ports"
	"asmwalk/internal/types"
)

type Service struct {
	Loaders map[types.ModuleFormat]ports.ModuleFilePort
	Out     io.Writer
}

func NewService() Service {
	return Service{
		Loaders: map[types.ModuleFormat]ports.ModuleFilePort{
			types.ModuleFormatPE:       adapters.NewPEModuleAdapter(),
			types.ModuleFormatManifest: adapters.NewManifestModuleAdapter(),
		},
		Out: os.Stdout,
	}
}
